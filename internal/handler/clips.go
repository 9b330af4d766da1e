package handler

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"phrasecut/internal/dto"
	"phrasecut/internal/query"
	"phrasecut/internal/response"
	"phrasecut/internal/service"
	"phrasecut/internal/types"
	"phrasecut/log"
	apperrors "phrasecut/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// StartClips plans and submits a clip run. The run keeps going after the
// response is written; poll GetClipRun for progress.
func (h Handler) StartClips(c *gin.Context) {
	var req dto.ClipRunReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Warn("StartClips invalid params", zap.Error(err))
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Invalid parameters", err.Error(), err))
		return
	}

	var result query.Result
	switch {
	case req.Result != nil:
		result = *req.Result
	case req.Query != "":
		var err error
		if result, err = h.Service.Query(req.Query); err != nil {
			response.ErrorResponse(c, err)
			return
		}
	default:
		response.ErrorResponse(c, apperrors.New(apperrors.CodeInvalidParams, "either query or result is required"))
		return
	}

	sub, err := h.Service.RunClips(context.WithoutCancel(c.Request.Context()), result)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.ClipRunResData{
		RunID:       sub.Run.RunId,
		Status:      sub.Run.Status,
		Total:       sub.Run.Total,
		OutputDir:   sub.Run.OutputDir,
		Diagnostics: sub.Batch.Diagnostics,
	})
}

func (h Handler) GetClipRun(c *gin.Context) {
	run, err := h.Service.GetRun(c.Param("runId"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, h.runDetail(run))
}

func (h Handler) ListClipRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.Service.ListRuns(limit)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.ClipRunListResData{
		Runs: lo.Map(runs, func(run types.ClipRun, _ int) dto.ClipRunDetailResData { return h.runDetail(&run) }),
	})
}

// RetryClipRun re-submits the failed clips of a run.
func (h Handler) RetryClipRun(c *gin.Context) {
	runID := c.Param("runId")
	run, retried, err := h.Service.RetryFailed(context.WithoutCancel(c.Request.Context()), runID)
	if err != nil {
		log.GetLogger().Warn("RetryClipRun failed", zap.String("run_id", runID), zap.Error(err))
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.RetryRunResData{RunID: run.RunId, Retried: retried, Status: run.Status})
}

func (h Handler) runDetail(run *types.ClipRun) dto.ClipRunDetailResData {
	tasks := make([]dto.ClipTaskItem, 0, len(run.Tasks))
	for _, task := range run.Tasks {
		item := dto.ClipTaskItem{ClipTaskRecord: task}
		if task.Status == types.ClipTaskStatusSucceeded && h.Service != nil {
			if rel, err := service.ClipDownloadPath(h.Service.ClipRoot, filepath.Join(run.OutputDir, task.Output)); err == nil {
				item.DownloadURL = "/api/file/" + rel
			}
		}
		tasks = append(tasks, item)
	}
	return dto.ClipRunDetailResData{
		RunID:     run.RunId,
		Query:     run.Query,
		Status:    run.Status,
		Total:     run.Total,
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
		Tasks:     tasks,
	}
}
