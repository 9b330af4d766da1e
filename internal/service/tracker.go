package service

import (
	"context"
	"sync"

	"phrasecut/internal/appcore"
	"phrasecut/internal/storage"
	"phrasecut/log"

	"go.uber.org/zap"
)

// runTracker persists clip outcomes and lets callers wait for a run's
// outstanding tasks.
type runTracker struct {
	appcore.NopObserver

	mu   sync.Mutex
	runs map[string]*runWait
}

type runWait struct {
	remaining int
	done      chan struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{runs: make(map[string]*runWait)}
}

// expect adds n outstanding tasks to runID.
func (t *runTracker) expect(runID string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.runs[runID]
	if !ok || w.remaining == 0 {
		w = &runWait{done: make(chan struct{})}
		t.runs[runID] = w
	}
	w.remaining += n
	if w.remaining == 0 {
		close(w.done)
	}
}

func (t *runTracker) complete(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.runs[runID]
	if !ok || w.remaining == 0 {
		return
	}
	w.remaining--
	if w.remaining == 0 {
		close(w.done)
	}
}

func (t *runTracker) wait(ctx context.Context, runID string) error {
	t.mu.Lock()
	w, ok := t.runs[runID]
	t.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *runTracker) OnClipTaskComplete(ev appcore.ClipEvent) {
	if storage.DB != nil {
		reason := ""
		if ev.Err != nil {
			reason = ev.Err.Error()
		}
		if err := storage.UpdateTaskStatus(ev.RunID, ev.Index, ev.Stage.String(), reason); err != nil {
			log.GetLogger().Error("failed to record clip status",
				zap.String("run_id", ev.RunID),
				zap.Int("index", ev.Index),
				zap.Error(err))
		}
	}
	t.complete(ev.RunID)
}
