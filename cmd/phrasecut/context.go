package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"phrasecut/config"
	"phrasecut/internal/media"
	"phrasecut/internal/queue"
	"phrasecut/internal/service"
	"phrasecut/internal/storage"
	"phrasecut/internal/taskrunner"
	"phrasecut/log"

	"go.uber.org/zap"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	configErr  error

	runtimeOnce sync.Once
	runtimeErr  error
	registry    *media.Registry
	svc         *service.Service

	closers []func()
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig sets up logging and loads the config file.
func (c *commandContext) ensureConfig() error {
	c.configOnce.Do(func() {
		if c.configFlag != nil {
			if path := strings.TrimSpace(*c.configFlag); path != "" {
				config.UseConfigPath(path)
			}
		}
		log.InitLoggerTo(os.Stderr)
		if _, err := config.LoadOrCreateConfig(); err != nil {
			c.configErr = err
			return
		}
		c.configErr = config.CheckConfig()
	})
	return c.configErr
}

// ensureService opens the run ledger, scans the media dir and loads the
// saved indices.
func (c *commandContext) ensureService() (*service.Service, error) {
	if err := c.ensureConfig(); err != nil {
		return nil, err
	}
	c.runtimeOnce.Do(func() {
		storage.InitDB()

		registry, err := media.ScanDir(config.Conf.Media.Dir, config.Conf.Media.Extension)
		if err != nil {
			log.GetLogger().Warn("media dir not scanned, clips cannot be cut", zap.String("dir", config.Conf.Media.Dir), zap.Error(err))
			registry = media.NewRegistry()
		}
		c.registry = registry

		opts := service.OptionsFromConfig()
		opts.Extractor = media.NewFFmpeg(config.Conf.Media.FfmpegPath, config.Conf.Media.FfprobePath, registry)
		svc, err := service.NewService(opts)
		if err != nil {
			c.runtimeErr = err
			return
		}
		if _, err = svc.LoadIndices(); err != nil {
			log.GetLogger().Debug("no saved indices loaded", zap.String("dir", svc.IndexDir), zap.Error(err))
		}
		c.svc = svc
	})
	return c.svc, c.runtimeErr
}

// recoverStale fails tasks left running by a previous process. Only commands
// that own a clip runner call it.
func (c *commandContext) recoverStale() {
	if count, err := storage.MarkStaleTasks(); err != nil {
		log.GetLogger().Warn("Failed to mark stale tasks", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("Marked stale tasks as failed", zap.Int64("count", count))
	}
}

// useLocalRunner attaches an in-process worker pool to svc.
func (c *commandContext) useLocalRunner(svc *service.Service) *taskrunner.Runner {
	runner := taskrunner.New(svc.Extractor, svc.ClipObserver(), taskrunner.Config{
		Concurrency: config.Conf.App.Workers,
	})
	svc.Runner = runner
	c.closers = append(c.closers, runner.Close)
	return runner
}

// useQueue attaches the Redis-backed queue to svc.
func (c *commandContext) useQueue(svc *service.Service) *queue.Queue {
	q := queue.NewQueue(queueConfig())
	svc.Runner = q
	c.closers = append(c.closers, func() {
		if err := q.Close(); err != nil {
			log.GetLogger().Warn("close queue", zap.Error(err))
		}
	})
	return q
}

// useConfiguredRunner picks the runner named by queue.backend.
func (c *commandContext) useConfiguredRunner(svc *service.Service) (*queue.Queue, error) {
	switch config.Conf.Queue.Backend {
	case config.QueueBackendAsynq:
		return c.useQueue(svc), nil
	case config.QueueBackendLocal, "":
		c.useLocalRunner(svc)
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", config.Conf.Queue.Backend)
	}
}

func (c *commandContext) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
	if storage.DB != nil {
		if sqlDB, err := storage.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		storage.DB = nil
	}
	_ = log.GetLogger().Sync()
}

func queueConfig() queue.QueueConfig {
	return queue.QueueConfig{
		RedisAddr:     config.Conf.Queue.RedisAddr,
		RedisPassword: config.Conf.Queue.RedisPassword,
		RedisDB:       config.Conf.Queue.RedisDB,
		Concurrency:   config.Conf.Queue.Concurrency,
	}
}
