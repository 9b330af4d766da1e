package handler

import (
	"strings"

	"phrasecut/internal/dto"
	"phrasecut/internal/query"
	"phrasecut/internal/response"
	"phrasecut/log"
	apperrors "phrasecut/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h Handler) Query(c *gin.Context) {
	var req dto.QueryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Warn("Query invalid params", zap.Error(err))
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Invalid parameters", err.Error(), err))
		return
	}

	result, err := h.Service.Query(req.Query)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}

	if query.Encoding(strings.ToLower(strings.TrimSpace(req.Format))) == query.EncodingYAML {
		c.Header("Content-Type", "application/yaml; charset=utf-8")
		c.Status(200)
		if err = result.Write(c.Writer, query.EncodingYAML); err != nil {
			log.GetLogger().Error("Query failed to write yaml", zap.Error(err))
		}
		return
	}
	response.Success(c, result)
}
