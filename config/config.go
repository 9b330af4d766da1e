package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"phrasecut/internal/appdirs"
	"phrasecut/log"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// EnvPrefix is the prefix for environment overrides, e.g. PHRASECUT_APP_CLIP_DURATION=3.
const EnvPrefix = "PHRASECUT"

const (
	QueueBackendLocal = "local"
	QueueBackendAsynq = "asynq"
)

type App struct {
	ClipDuration float64 `toml:"clip_duration" split_words:"true"`
	FoldCase     bool    `toml:"fold_case" split_words:"true"`
	Workers      int     `toml:"workers"`
	IndexWorkers int     `toml:"index_workers" split_words:"true"`
	IndexDir     string  `toml:"index_dir" split_words:"true"`
	OutputDir    string  `toml:"output_dir" split_words:"true"`
}

type Media struct {
	FfmpegPath  string `toml:"ffmpeg_path" split_words:"true"`
	FfprobePath string `toml:"ffprobe_path" split_words:"true"`
	Dir         string `toml:"dir"`
	Extension   string `toml:"extension"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type Queue struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr" split_words:"true"`
	RedisPassword string `toml:"redis_password" split_words:"true"`
	RedisDB       int    `toml:"redis_db" split_words:"true"`
	Concurrency   int    `toml:"concurrency"`
}

type Config struct {
	App    App    `toml:"app"`
	Media  Media  `toml:"media"`
	Server Server `toml:"server"`
	Queue  Queue  `toml:"queue"`
}

var Conf = defaultConfig()

var resolveConfigPath = ResolveConfigPath

func defaultConfig() Config {
	return Config{
		App: App{
			ClipDuration: 5,
			FoldCase:     true,
			Workers:      3,
			IndexWorkers: 4,
		},
		Media: Media{
			FfmpegPath:  "ffmpeg",
			FfprobePath: "ffprobe",
			Dir:         "media",
			Extension:   ".mp4",
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8888,
		},
		Queue: Queue{
			Backend:     QueueBackendLocal,
			RedisAddr:   "localhost:6379",
			Concurrency: 3,
		},
	}
}

// UseConfigPath pins the config file location, overriding the app layout.
func UseConfigPath(path string) {
	resolveConfigPath = func() (string, error) { return path, nil }
}

// ResolveConfigPath returns the config file location for the current layout.
func ResolveConfigPath() (string, error) {
	dirs, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return dirs.ConfigFile, nil
}

// LoadOrCreateConfig loads the config file, writing defaults first when it is
// missing. created reports whether a new file was written.
func LoadOrCreateConfig() (created bool, err error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return false, fmt.Errorf("resolve config path: %w", err)
	}

	if _, statErr := os.Stat(configPath); errors.Is(statErr, os.ErrNotExist) {
		Conf = defaultConfig()
		if err = SaveConfig(); err != nil {
			return false, err
		}
		log.GetLogger().Info("created default config", zap.String("path", configPath))
		return true, applyEnv()
	}

	loaded := defaultConfig()
	if _, err = toml.DecodeFile(configPath, &loaded); err != nil {
		return false, fmt.Errorf("decode config %s: %w", configPath, err)
	}
	Conf = loaded
	log.GetLogger().Info("loaded config", zap.String("path", configPath))
	return false, applyEnv()
}

// LoadConfig loads config and logs failures; false means the caller should stop.
func LoadConfig() bool {
	if _, err := LoadOrCreateConfig(); err != nil {
		log.GetLogger().Error("failed to load config", zap.Error(err))
		return false
	}
	return true
}

// SaveConfig writes Conf as TOML, creating parent directories.
func SaveConfig() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer file.Close()

	if err = toml.NewEncoder(file).Encode(Conf); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// CheckConfig validates Conf and fills zero values that have a safe default.
func CheckConfig() error {
	defaults := defaultConfig()
	if Conf.App.ClipDuration <= 0 {
		return fmt.Errorf("app.clip_duration must be positive, got %v", Conf.App.ClipDuration)
	}
	if Conf.App.Workers <= 0 {
		Conf.App.Workers = defaults.App.Workers
	}
	if Conf.App.IndexWorkers <= 0 {
		Conf.App.IndexWorkers = defaults.App.IndexWorkers
	}
	if strings.TrimSpace(Conf.Media.FfmpegPath) == "" {
		Conf.Media.FfmpegPath = defaults.Media.FfmpegPath
	}
	if strings.TrimSpace(Conf.Media.FfprobePath) == "" {
		Conf.Media.FfprobePath = defaults.Media.FfprobePath
	}
	if Conf.Media.Extension != "" && !strings.HasPrefix(Conf.Media.Extension, ".") {
		Conf.Media.Extension = "." + Conf.Media.Extension
	}
	if Conf.Server.Port <= 0 || Conf.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", Conf.Server.Port)
	}
	switch strings.ToLower(strings.TrimSpace(Conf.Queue.Backend)) {
	case "", QueueBackendLocal:
		Conf.Queue.Backend = QueueBackendLocal
	case QueueBackendAsynq:
		Conf.Queue.Backend = QueueBackendAsynq
		if strings.TrimSpace(Conf.Queue.RedisAddr) == "" {
			return errors.New("queue.redis_addr is required for the asynq backend")
		}
	default:
		return fmt.Errorf("unknown queue.backend %q", Conf.Queue.Backend)
	}
	return nil
}

func applyEnv() error {
	if err := envconfig.Process(EnvPrefix, &Conf); err != nil {
		return fmt.Errorf("apply %s_* environment: %w", EnvPrefix, err)
	}
	return nil
}
