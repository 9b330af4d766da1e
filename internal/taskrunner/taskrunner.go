// Package taskrunner runs clip extraction tasks on a bounded pool of
// in-process workers.
package taskrunner

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"phrasecut/internal/appcore"
	"phrasecut/internal/media"
	"phrasecut/log"
	apperrors "phrasecut/pkg/errors"
)

const (
	defaultQueueSize   = 128
	defaultConcurrency = 3
)

var (
	ErrRunnerStopped = apperrors.ErrRunnerStopped
	ErrQueueFull     = apperrors.ErrQueueFull
)

// Config controls in-process task runner behavior.
type Config struct {
	QueueSize   int
	Concurrency int
}

// DefaultConfig returns a desktop-friendly default config.
func DefaultConfig() Config {
	return Config{
		QueueSize:   defaultQueueSize,
		Concurrency: defaultConcurrency,
	}
}

// Runner executes queued clip requests with in-memory workers. A failing or
// panicking task is reported and never affects the others.
type Runner struct {
	extractor media.Extractor
	observer  appcore.Observer
	config    Config

	queue  chan appcore.ClipRequest
	ctx    context.Context
	cancel context.CancelFunc

	workerWg sync.WaitGroup
	closed   atomic.Bool
	inFlight atomic.Int64
}

var _ appcore.ClipRunner = (*Runner)(nil)

// New creates and starts a task runner.
func New(extractor media.Extractor, observer appcore.Observer, cfg Config) *Runner {
	if observer == nil {
		observer = appcore.NopObserver{}
	}

	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		extractor: extractor,
		observer:  observer,
		config:    cfg,
		queue:     make(chan appcore.ClipRequest, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < cfg.Concurrency; i++ {
		runner.workerWg.Add(1)
		go runner.worker(i + 1)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return cfg
}

// Submit queues req, blocking while the queue is full until ctx is done.
func (r *Runner) Submit(ctx context.Context, req appcore.ClipRequest) error {
	if r.closed.Load() {
		return ErrRunnerStopped
	}

	select {
	case <-r.ctx.Done():
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	case r.queue <- req:
		r.logSubmitted(req)
		return nil
	}
}

// TrySubmit queues req without blocking.
func (r *Runner) TrySubmit(req appcore.ClipRequest) error {
	if r.closed.Load() {
		return ErrRunnerStopped
	}

	select {
	case <-r.ctx.Done():
		return ErrRunnerStopped
	case r.queue <- req:
		r.logSubmitted(req)
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) logSubmitted(req appcore.ClipRequest) {
	log.GetLogger().Debug("[TaskRunner] clip submitted",
		zap.String("run_id", req.RunID),
		zap.Int("index", req.Index),
		zap.String("output", req.Task.Output))
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case req := <-r.queue:
			r.processTask(workerID, req)
		}
	}
}

func (r *Runner) processTask(workerID int, req appcore.ClipRequest) {
	r.inFlight.Add(1)
	defer r.inFlight.Add(-1)

	ev := Execute(r.ctx, r.extractor, req)
	if ev.Err != nil {
		log.GetLogger().Error("[TaskRunner] clip failed",
			zap.Int("worker_id", workerID),
			zap.String("run_id", req.RunID),
			zap.Int("index", req.Index),
			zap.String("source", req.Task.Source),
			zap.Error(ev.Err))
	} else {
		log.GetLogger().Info("[TaskRunner] clip completed",
			zap.Int("worker_id", workerID),
			zap.String("run_id", req.RunID),
			zap.Int("index", req.Index),
			zap.String("output", ev.OutputPath))
	}
	r.observer.OnClipTaskComplete(ev)
}

// Execute runs one clip request to completion and describes the outcome.
// Panics inside the extractor are turned into a failed event.
func Execute(ctx context.Context, extractor media.Extractor, req appcore.ClipRequest) (ev appcore.ClipEvent) {
	ev = appcore.ClipEvent{
		RunID:      req.RunID,
		Index:      req.Index,
		Task:       req.Task,
		OutputPath: filepath.Join(req.OutputDir, req.Task.Output),
		StartedAt:  time.Now(),
	}
	defer func() {
		if p := recover(); p != nil {
			ev.Err = fmt.Errorf("clip task panicked: %v", p)
		}
		ev.FinishedAt = time.Now()
		switch {
		case ev.Err == nil:
			ev.Stage = appcore.JobStageSucceeded
		case ctx.Err() != nil:
			ev.Stage = appcore.JobStageCanceled
		default:
			ev.Stage = appcore.JobStageFailed
		}
	}()

	if extractor == nil {
		ev.Err = fmt.Errorf("no media extractor configured")
		return ev
	}
	if err := extractor.Extract(ctx, req.Task.Source, req.Task.Start, req.Task.End, ev.OutputPath); err != nil {
		ev.Err = apperrors.Wrap(apperrors.CodeClipExtract, "clip extraction failed", err)
	}
	return ev
}

// Close stops workers and rejects new tasks. Queued tasks that have not
// started are dropped.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
}

// Pending returns the number of queued tasks waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue)
}

// Active returns the number of tasks currently being extracted.
func (r *Runner) Active() int {
	return int(r.inFlight.Load())
}
