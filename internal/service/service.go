// Package service wires parsing, indexing, querying and clip extraction into
// the operations the CLI and HTTP API expose.
package service

import (
	"sync"

	"phrasecut/config"
	"phrasecut/internal/appcore"
	"phrasecut/internal/clip"
	"phrasecut/internal/media"
	"phrasecut/internal/ngram"
)

// Options configures a Service. Zero values fall back to config.Conf and the
// resolved app directories.
type Options struct {
	IndexDir     string
	ClipRoot     string
	FoldCase     bool
	ClipDuration float64
	Extension    string
	IndexWorkers int

	Extractor media.Extractor
	Observer  appcore.Observer
}

type Service struct {
	IndexDir     string
	ClipRoot     string
	FoldCase     bool
	ClipDuration float64
	Extension    string
	IndexWorkers int

	Extractor media.Extractor
	Observer  appcore.Observer
	// Runner executes submitted clips. Feed it ClipObserver so runs are
	// tracked and recorded.
	Runner appcore.ClipRunner

	mu      sync.RWMutex
	catalog ngram.Catalog
	tracker *runTracker
}

// NewService builds a service without a runner; set Runner before running
// clips.
func NewService(opts Options) (*Service, error) {
	var err error
	if opts.IndexDir == "" {
		if opts.IndexDir, err = resolveIndexRoot(); err != nil {
			return nil, err
		}
	}
	if opts.ClipRoot == "" {
		if opts.ClipRoot, err = resolveClipRoot(); err != nil {
			return nil, err
		}
	}
	if opts.ClipDuration <= 0 {
		opts.ClipDuration = clip.DefaultClipDuration
	}
	if opts.Extension == "" {
		opts.Extension = clip.DefaultExtension
	}
	if opts.Observer == nil {
		opts.Observer = appcore.NopObserver{}
	}

	return &Service{
		IndexDir:     opts.IndexDir,
		ClipRoot:     opts.ClipRoot,
		FoldCase:     opts.FoldCase,
		ClipDuration: opts.ClipDuration,
		Extension:    opts.Extension,
		IndexWorkers: opts.IndexWorkers,
		Extractor:    opts.Extractor,
		Observer:     opts.Observer,
		tracker:      newRunTracker(),
	}, nil
}

// OptionsFromConfig reads the service settings from config.Conf.
func OptionsFromConfig() Options {
	return Options{
		IndexDir:     config.Conf.App.IndexDir,
		FoldCase:     config.Conf.App.FoldCase,
		ClipDuration: config.Conf.App.ClipDuration,
		Extension:    config.Conf.Media.Extension,
		IndexWorkers: config.Conf.App.IndexWorkers,
	}
}

// ClipObserver is the observer clip runners must report to: it records task
// outcomes in the run ledger, releases Wait and forwards to Observer.
func (s *Service) ClipObserver() appcore.Observer {
	return appcore.Combine(s.tracker, s.Observer)
}
