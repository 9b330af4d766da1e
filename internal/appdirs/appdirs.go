package appdirs

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	PortableEnv = "PHRASECUT_PORTABLE"
	// HomeEnv roots every directory under one data dir, e.g. a mounted volume.
	HomeEnv = "PHRASECUT_HOME"

	configFileName = "config.toml"
)

type Paths struct {
	Portable   bool
	ConfigDir  string
	ConfigFile string
	LogDir     string
	OutputDir  string
	CacheDir   string
}

type resolveDeps struct {
	goos       string
	getenv     func(string) string
	executable func() (string, error)
}

func Resolve() (Paths, error) {
	return resolve(resolveDeps{
		goos:       runtime.GOOS,
		getenv:     os.Getenv,
		executable: os.Executable,
	})
}

func resolve(rawDeps resolveDeps) (Paths, error) {
	deps := withDefaults(rawDeps)
	if home := strings.TrimSpace(deps.getenv(HomeEnv)); home != "" {
		return dataDirPaths(filepath.Clean(home), false), nil
	}
	if isPortableEnabled(deps.getenv(PortableEnv)) || deps.goos == "windows" {
		return resolvePortable(deps)
	}
	return defaultNonWindowsPaths(), nil
}

func withDefaults(deps resolveDeps) resolveDeps {
	if deps.goos == "" {
		deps.goos = runtime.GOOS
	}
	if deps.getenv == nil {
		deps.getenv = os.Getenv
	}
	if deps.executable == nil {
		deps.executable = os.Executable
	}
	return deps
}

func resolvePortable(deps resolveDeps) (Paths, error) {
	executablePath, err := deps.executable()
	if err != nil {
		return Paths{}, err
	}

	return dataDirPaths(filepath.Join(filepath.Dir(executablePath), "data"), true), nil
}

func dataDirPaths(dataDir string, portable bool) Paths {
	configDir := filepath.Join(dataDir, "config")
	return Paths{
		Portable:   portable,
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     filepath.Join(dataDir, "logs"),
		OutputDir:  filepath.Join(dataDir, "output"),
		CacheDir:   filepath.Join(dataDir, "cache"),
	}
}

func defaultNonWindowsPaths() Paths {
	configDir := "config"
	return Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     ".",
		OutputDir:  ".",
		CacheDir:   "cache",
	}
}

func isPortableEnabled(value string) bool {
	normalized := strings.TrimSpace(strings.ToLower(value))
	return normalized == "1" || normalized == "true"
}
