package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"phrasecut/internal/appcore"
	"phrasecut/internal/media"
	"phrasecut/internal/taskrunner"
	"phrasecut/log"
)

// TaskHandlers executes clip tasks pulled from Redis.
type TaskHandlers struct {
	extractor media.Extractor
	observer  appcore.Observer
}

// NewTaskHandlers creates a new TaskHandlers instance
func NewTaskHandlers(extractor media.Extractor, observer appcore.Observer) *TaskHandlers {
	if observer == nil {
		observer = appcore.NopObserver{}
	}
	return &TaskHandlers{extractor: extractor, observer: observer}
}

// HandleClipTask extracts one clip. The returned error hands the task back to
// Asynq's retry and archive handling.
func (h *TaskHandlers) HandleClipTask(ctx context.Context, t *asynq.Task) error {
	req, err := ParseClipTask(t)
	if err != nil {
		return err
	}

	log.GetLogger().Info("[Queue] Processing clip task",
		zap.String("run_id", req.RunID),
		zap.Int("index", req.Index),
		zap.String("source", req.Task.Source))

	ev := taskrunner.Execute(ctx, h.extractor, req)
	h.observer.OnClipTaskComplete(ev)
	if ev.Err != nil {
		return ev.Err
	}

	log.GetLogger().Info("[Queue] Clip task completed",
		zap.String("run_id", req.RunID),
		zap.String("output", ev.OutputPath))
	return nil
}

// RegisterHandlers registers all task handlers with the Asynq server mux
func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeClipTask, h.HandleClipTask)
}

// StartWorker runs the Asynq worker until the process is signaled.
func StartWorker(q *Queue, extractor media.Extractor, observer appcore.Observer) error {
	return q.server.Run(q.workerMux(extractor, observer))
}

// StartBackground starts the worker without blocking; Close stops it.
func StartBackground(q *Queue, extractor media.Extractor, observer appcore.Observer) error {
	return q.server.Start(q.workerMux(extractor, observer))
}

func (q *Queue) workerMux(extractor media.Extractor, observer appcore.Observer) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	NewTaskHandlers(extractor, observer).RegisterHandlers(mux)

	log.GetLogger().Info("[Queue] Starting worker",
		zap.String("redis_addr", q.config.RedisAddr),
		zap.Int("concurrency", q.config.Concurrency))
	return mux
}
