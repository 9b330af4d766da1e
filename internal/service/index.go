package service

import (
	"context"
	"slices"
	"strings"

	"phrasecut/internal/ngram"
	"phrasecut/internal/subtitle"
	"phrasecut/log"
	apperrors "phrasecut/pkg/errors"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// IndexedSource describes one source built by BuildIndices.
type IndexedSource struct {
	ID    string   `json:"id"`
	Path  string   `json:"path"`
	Grams int      `json:"grams"`
	Files []string `json:"files"`
}

// IndexReport is the partial-success outcome of BuildIndices.
type IndexReport struct {
	Built  []IndexedSource   `json:"built"`
	Failed map[string]string `json:"failed"`
}

// BuildIndices parses and indexes every subtitle file in parallel, saves the
// indices and adds them to the loaded catalog, replacing sources with the
// same id. One unreadable file does not stop the others; an error is returned
// only when nothing could be built.
func (s *Service) BuildIndices(ctx context.Context, paths []string) (IndexReport, error) {
	paths = lo.Uniq(lo.Filter(paths, func(p string, _ int) bool { return strings.TrimSpace(p) != "" }))
	if len(paths) == 0 {
		return IndexReport{}, apperrors.New(apperrors.CodeInvalidParams, "no subtitle files given")
	}

	inputs := lo.Map(paths, func(p string, _ int) ngram.SourceInput {
		return ngram.SourceInput{ID: subtitle.SourceID(p), Path: p}
	})

	log.GetLogger().Info("building phrase indices",
		zap.Int("sources", len(inputs)),
		zap.Bool("fold_case", s.FoldCase),
		zap.String("index_dir", s.IndexDir))

	catalog, build := ngram.BuildSources(ctx, inputs, ngram.BuildOptions{
		FoldCase:    s.FoldCase,
		Workers:     s.IndexWorkers,
		OnUtterance: s.Observer.OnUtteranceIndexed,
	})

	report := IndexReport{Failed: make(map[string]string)}
	for id, err := range build.Failed {
		report.Failed[id] = err.Error()
		log.GetLogger().Warn("subtitle source failed", zap.String("source", id), zap.Error(err))
	}

	saved := make(ngram.Catalog, 0, len(catalog))
	for _, src := range catalog {
		files, err := ngram.SaveSource(s.IndexDir, src)
		if err != nil {
			report.Failed[src.ID] = err.Error()
			log.GetLogger().Error("failed to save index", zap.String("source", src.ID), zap.Error(err))
			continue
		}
		saved = append(saved, src)
		report.Built = append(report.Built, IndexedSource{
			ID:    src.ID,
			Path:  src.Meta.Subtitle,
			Grams: src.Index.Len(),
			Files: files,
		})
	}
	s.addSources(saved)

	if len(report.Built) == 0 {
		return report, apperrors.WrapWithDetail(apperrors.CodeIndexBuild, "no subtitle source could be indexed",
			strings.Join(lo.Keys(report.Failed), ", "), nil)
	}
	log.GetLogger().Info("phrase indices built",
		zap.Int("built", len(report.Built)),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

// LoadIndices replaces the catalog with every index found in IndexDir.
func (s *Service) LoadIndices() (ngram.LoadReport, error) {
	catalog, report, err := ngram.LoadDir(s.IndexDir)
	if err != nil {
		return report, apperrors.Wrap(apperrors.CodeIndexLoad, "failed to read index directory", err)
	}
	for id, loadErr := range report.Failed {
		log.GetLogger().Warn("index file skipped", zap.String("source", id), zap.Error(loadErr))
	}
	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()

	s.warnCaseMismatch(catalog)
	log.GetLogger().Info("phrase indices loaded",
		zap.String("index_dir", s.IndexDir),
		zap.Int("sources", len(catalog)),
		zap.Int("grams", catalog.GramCount()))
	return report, nil
}

// warnCaseMismatch logs the sources built with a casing other than the
// service's; queries against them find nothing.
func (s *Service) warnCaseMismatch(catalog ngram.Catalog) {
	if ids := catalog.CaseMismatches(s.FoldCase); len(ids) > 0 {
		log.GetLogger().Warn("indices were built with different case folding and will not match",
			zap.Strings("sources", ids),
			zap.Bool("fold_case", s.FoldCase))
	}
}

// Catalog returns the loaded sources in lookup order.
func (s *Service) Catalog() ngram.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.catalog)
}

// SetCatalog replaces the loaded sources.
func (s *Service) SetCatalog(catalog ngram.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = slices.Clone(catalog)
}

func (s *Service) addSources(sources ngram.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range sources {
		if i := slices.IndexFunc(s.catalog, func(existing ngram.Source) bool { return existing.ID == src.ID }); i >= 0 {
			s.catalog[i] = src
			continue
		}
		s.catalog = append(s.catalog, src)
	}
}
