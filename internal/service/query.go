package service

import (
	"phrasecut/internal/query"
	"phrasecut/log"
	apperrors "phrasecut/pkg/errors"

	"go.uber.org/zap"
)

// Query segments q against the loaded catalog. The returned result is the
// value to hand to PlanClips or RunClips.
func (s *Service) Query(q string) (query.Result, error) {
	catalog := s.Catalog()
	if len(catalog) == 0 {
		return query.Result{}, apperrors.ErrNoIndex
	}

	s.warnCaseMismatch(catalog)

	segmenter := query.Segmenter{
		Catalog:   catalog,
		FoldCase:  s.FoldCase,
		OnSegment: s.Observer.OnSegmentResolved,
	}
	result := segmenter.Segment(q)
	if len(result.Tokens) == 0 {
		return result, apperrors.ErrEmptyQuery
	}

	log.GetLogger().Info("query resolved",
		zap.String("query", q),
		zap.Int("tokens", len(result.Tokens)),
		zap.Int("segments", len(result.Segments)),
		zap.Int("found", len(result.Found())),
		zap.Float64("coverage", result.Coverage()))
	return result, nil
}
