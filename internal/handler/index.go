package handler

import (
	"strings"

	"phrasecut/internal/dto"
	"phrasecut/internal/response"
	"phrasecut/log"
	apperrors "phrasecut/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// BuildIndex indexes subtitle files from the upload directory, such as paths
// returned by UploadFile. Paths outside it are refused.
func (h Handler) BuildIndex(c *gin.Context) {
	var req dto.BuildIndexReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Warn("BuildIndex invalid params", zap.Error(err))
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Invalid parameters", err.Error(), err))
		return
	}

	paths, refused := h.resolveIndexPaths(req.Paths)
	if len(refused) > 0 {
		log.GetLogger().Warn("BuildIndex refused paths outside the upload directory", zap.Strings("paths", refused))
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams,
			"Subtitle paths must be inside the upload directory", strings.Join(refused, ", "), nil))
		return
	}

	report, err := h.Service.BuildIndices(c.Request.Context(), paths)
	if err != nil {
		response.ErrorResponseWithData(c, err, report)
		return
	}
	response.Success(c, report)
}

func (h Handler) ListIndex(c *gin.Context) {
	catalog := h.Service.Catalog()
	data := dto.IndexListResData{
		Sources: make([]dto.IndexSourceItem, 0, len(catalog)),
	}
	for _, src := range catalog {
		grams := 0
		if src.Index != nil {
			grams = src.Index.Len()
		}
		data.Sources = append(data.Sources, dto.IndexSourceItem{ID: src.ID, Grams: grams})
	}
	data.TotalGrams = catalog.GramCount()
	response.Success(c, data)
}

// ReloadIndex replaces the loaded catalog with what is on disk.
func (h Handler) ReloadIndex(c *gin.Context) {
	report, err := h.Service.LoadIndices()
	data := dto.ReloadIndexResData{
		Loaded: report.Loaded,
		Failed: lo.MapValues(report.Failed, func(err error, _ string) string { return err.Error() }),
	}
	if err != nil {
		response.ErrorResponseWithData(c, err, data)
		return
	}
	response.Success(c, data)
}
