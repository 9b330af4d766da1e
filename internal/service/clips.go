package service

import (
	"context"
	"encoding/json"
	"errors"

	"phrasecut/internal/appcore"
	"phrasecut/internal/clip"
	"phrasecut/internal/query"
	"phrasecut/internal/storage"
	"phrasecut/internal/types"
	"phrasecut/log"
	apperrors "phrasecut/pkg/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlanClips validates a result and turns it into clip tasks. Sources
// without media become diagnostics, not errors.
func (s *Service) PlanClips(ctx context.Context, result query.Result) (clip.Batch, error) {
	if err := result.Validate(); err != nil {
		return clip.Batch{}, apperrors.WrapWithDetail(apperrors.CodeInvalidResult, "segmentation result is malformed", err.Error(), err)
	}
	if s.Extractor == nil {
		return clip.Batch{}, apperrors.New(apperrors.CodeMediaNotFound, "no media extractor configured")
	}
	return clip.Plan(ctx, result, s.Extractor, clip.Options{
		ClipDuration: s.ClipDuration,
		Extension:    s.Extension,
	}), nil
}

// RunSubmission is what RunClips hands back: the stored run and the plan it
// came from.
type RunSubmission struct {
	Run   *types.ClipRun `json:"run"`
	Batch clip.Batch     `json:"batch"`
}

// RunClips plans result, records a new run in the ledger and submits every
// task to the runner. It returns once the tasks are submitted; use Wait to
// block until they finish.
func (s *Service) RunClips(ctx context.Context, result query.Result) (*RunSubmission, error) {
	if s.Runner == nil {
		return nil, apperrors.ErrRunnerStopped
	}
	batch, err := s.PlanClips(ctx, result)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	dir, err := runDir(s.ClipRoot, runID)
	if err != nil {
		return nil, err
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidResult, "failed to encode result", err)
	}

	run := &types.ClipRun{
		RunId:      runID,
		Query:      result.Query,
		ResultJSON: string(resultJSON),
		OutputDir:  dir,
		Tasks: lo.Map(batch.Tasks, func(task clip.Task, i int) types.ClipTaskRecord {
			return taskRecord(runID, i, task)
		}),
	}
	if storage.DB != nil {
		if err = storage.SaveRun(run); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDBError, "failed to record clip run", err)
		}
	} else {
		run.Total = len(run.Tasks)
		run.Status = run.DeriveStatus()
	}

	log.GetLogger().Info("clip run started",
		zap.String("run_id", runID),
		zap.String("query", result.Query),
		zap.Int("tasks", len(batch.Tasks)),
		zap.Int("skipped", len(batch.Diagnostics)))

	requests := lo.Map(batch.Tasks, func(task clip.Task, i int) appcore.ClipRequest {
		return appcore.ClipRequest{RunID: runID, Index: i, Task: task, OutputDir: dir}
	})
	s.submit(ctx, requests)
	return &RunSubmission{Run: run, Batch: batch}, nil
}

// RetryFailed re-submits only the tasks of runID that failed or were
// canceled. Outputs are deterministic, so the retried clips overwrite their
// earlier partial files.
func (s *Service) RetryFailed(ctx context.Context, runID string) (*types.ClipRun, int, error) {
	if s.Runner == nil {
		return nil, 0, apperrors.ErrRunnerStopped
	}
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, 0, err
	}
	failed, err := storage.FailedTasks(runID)
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeDBError, "failed to read failed clips", err)
	}
	if len(failed) == 0 {
		return run, 0, apperrors.ErrNothingToRetry
	}

	indices := lo.Map(failed, func(rec types.ClipTaskRecord, _ int) int { return rec.TaskIndex })
	if err = storage.RequeueTasks(runID, indices); err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeDBError, "failed to requeue clips", err)
	}

	log.GetLogger().Info("retrying failed clips", zap.String("run_id", runID), zap.Int("tasks", len(failed)))
	s.submit(ctx, lo.Map(failed, func(rec types.ClipTaskRecord, _ int) appcore.ClipRequest {
		return appcore.ClipRequest{RunID: runID, Index: rec.TaskIndex, Task: clipTask(rec), OutputDir: run.OutputDir}
	}))

	run, err = s.GetRun(runID)
	if err != nil {
		return nil, 0, err
	}
	return run, len(failed), nil
}

// submit hands every request to the runner. A request the runner refuses is
// reported as failed like any other task so the run still completes.
func (s *Service) submit(ctx context.Context, requests []appcore.ClipRequest) {
	if len(requests) == 0 {
		return
	}
	s.tracker.expect(requests[0].RunID, len(requests))
	observer := s.ClipObserver()
	for _, req := range requests {
		if err := s.Runner.Submit(ctx, req); err != nil {
			log.GetLogger().Error("failed to submit clip",
				zap.String("run_id", req.RunID),
				zap.Int("index", req.Index),
				zap.Error(err))
			stage := appcore.JobStageFailed
			if ctx.Err() != nil {
				stage = appcore.JobStageCanceled
			}
			observer.OnClipTaskComplete(appcore.ClipEvent{RunID: req.RunID, Index: req.Index, Task: req.Task, Stage: stage, Err: err})
		}
	}
}

// Wait blocks until every submitted task of runID has reported back. It
// returns at once for runs this process is not tracking.
func (s *Service) Wait(ctx context.Context, runID string) error {
	return s.tracker.wait(ctx, runID)
}

// GetRun loads a run and its tasks from the ledger.
func (s *Service) GetRun(runID string) (*types.ClipRun, error) {
	run, err := storage.GetRun(runID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapWithDetail(apperrors.CodeNotFound, "clip run not found", runID, err)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, "failed to load clip run", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Service) ListRuns(limit int) ([]types.ClipRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs, err := storage.ListRuns(limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, "failed to list clip runs", err)
	}
	return runs, nil
}

func taskRecord(runID string, index int, task clip.Task) types.ClipTaskRecord {
	return types.ClipTaskRecord{
		RunId:     runID,
		TaskIndex: index,
		Ordinal:   task.Ordinal,
		Kind:      string(task.Kind),
		Gram:      task.Gram,
		Source:    task.Source,
		Start:     task.Start,
		End:       task.End,
		Output:    task.Output,
		Status:    types.ClipTaskStatusQueued,
	}
}

func clipTask(rec types.ClipTaskRecord) clip.Task {
	return clip.Task{
		Ordinal: rec.Ordinal,
		Kind:    query.Kind(rec.Kind),
		Gram:    rec.Gram,
		Source:  rec.Source,
		Start:   rec.Start,
		End:     rec.End,
		Output:  rec.Output,
	}
}
