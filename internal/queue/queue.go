// Package queue runs clip tasks through Asynq so extraction can be spread
// over worker processes sharing a Redis instance.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"phrasecut/internal/appcore"
	"phrasecut/log"
)

// Task type names
const (
	TypeClipTask = "clip:extract"
)

// QueueConfig holds Redis configuration for Asynq
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
	// MaxRetry is Asynq's own retry budget per clip. Failed clips are retried
	// through the run ledger instead, so it defaults to zero.
	MaxRetry int
	Timeout  time.Duration
}

// Queue manages task enqueueing and processing
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	config QueueConfig
}

var _ appcore.ClipRunner = (*Queue)(nil)

// DefaultConfig returns default queue configuration
func DefaultConfig() QueueConfig {
	return QueueConfig{
		RedisAddr:   "localhost:6379",
		RedisDB:     0,
		Concurrency: 3,
		Timeout:     10 * time.Minute,
	}
}

func normalizeConfig(cfg QueueConfig) QueueConfig {
	def := DefaultConfig()
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = def.RedisAddr
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxRetry < 0 {
		cfg.MaxRetry = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return cfg
}

// NewQueue creates a new Queue instance
func NewQueue(cfg QueueConfig) *Queue {
	cfg = normalizeConfig(cfg)
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				// Exponential backoff: 10s, 20s, 40s, 80s, ...
				return time.Duration(10<<uint(n)) * time.Second
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.GetLogger().Error("Clip task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)

	return &Queue{
		client: client,
		server: server,
		config: cfg,
	}
}

// NewClipTask encodes a clip request as an Asynq task.
func NewClipTask(req appcore.ClipRequest, cfg QueueConfig) (*asynq.Task, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeClipTask, data,
		asynq.MaxRetry(cfg.MaxRetry),
		asynq.Timeout(cfg.Timeout),
		asynq.Queue("default"),
	), nil
}

// ParseClipTask decodes the payload written by NewClipTask.
func ParseClipTask(t *asynq.Task) (appcore.ClipRequest, error) {
	var req appcore.ClipRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return req, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if req.RunID == "" || req.Task.Output == "" {
		return req, fmt.Errorf("clip payload is missing run id or output")
	}
	return req, nil
}

// Submit enqueues one clip request.
func (q *Queue) Submit(ctx context.Context, req appcore.ClipRequest) error {
	task, err := NewClipTask(req, q.config)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.GetLogger().Info("Clip task enqueued",
		zap.String("run_id", req.RunID),
		zap.Int("index", req.Index),
		zap.String("queue_id", info.ID),
		zap.String("queue", info.Queue))

	return nil
}

// Close gracefully shuts down the queue
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	q.server.Shutdown()
	return nil
}

// Client returns the underlying Asynq client for advanced usage
func (q *Queue) Client() *asynq.Client {
	return q.client
}

// Server returns the underlying Asynq server for advanced usage
func (q *Queue) Server() *asynq.Server {
	return q.server
}
