package ngram

import (
	"context"
	"fmt"

	"phrasecut/internal/subtitle"

	"golang.org/x/sync/errgroup"
)

const defaultBuildWorkers = 4

// SourceInput names one subtitle file to index.
type SourceInput struct {
	ID   string
	Path string
}

// BuildOptions controls BuildSources.
type BuildOptions struct {
	FoldCase bool
	Workers  int
	// Parse reads a subtitle file; subtitle.ParseFile when nil.
	Parse func(path string) (subtitle.Utterances, error)
	// OnUtterance is called from worker goroutines after each utterance is
	// indexed, so it must be safe for concurrent use.
	OnUtterance func(sourceID string, u subtitle.Utterance, grams int)
}

// BuildReport is the partial-success outcome of BuildSources. Failed is keyed
// by source id, or by path for an input whose id repeats an earlier input's.
type BuildReport struct {
	Built  []string
	Failed map[string]error
}

func (r BuildReport) OK() bool {
	return len(r.Failed) == 0
}

// BuildSources indexes every input independently and in parallel. A failing
// source is recorded in the report and does not stop the others. Only the first
// input of each id is indexed. The returned catalog keeps input order.
func BuildSources(ctx context.Context, inputs []SourceInput, opts BuildOptions) (Catalog, BuildReport) {
	report := BuildReport{Failed: make(map[string]error)}
	inputs = dedupeInputs(inputs, report.Failed)

	parse := opts.Parse
	if parse == nil {
		parse = subtitle.ParseFile
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultBuildWorkers
	}

	indices := make([]*PhraseIndex, len(inputs))
	errs := make([]error, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, input := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			utterances, err := parse(input.Path)
			if err != nil {
				errs[i] = fmt.Errorf("parse %s: %w", input.Path, err)
				return nil
			}
			index := NewPhraseIndex()
			for u := range utterances.Seq() {
				grams := index.AddUtterance(u, opts.FoldCase)
				if opts.OnUtterance != nil {
					opts.OnUtterance(input.ID, u, grams)
				}
			}
			indices[i] = index
			return nil
		})
	}
	_ = g.Wait()

	catalog := make(Catalog, 0, len(inputs))
	for i, input := range inputs {
		if errs[i] != nil {
			report.Failed[input.ID] = errs[i]
			continue
		}
		catalog = append(catalog, Source{
			ID:    input.ID,
			Index: indices[i],
			Meta:  &Meta{FoldCase: opts.FoldCase, Subtitle: input.Path, Grams: indices[i].Len()},
		})
		report.Built = append(report.Built, input.ID)
	}
	return catalog, report
}

func dedupeInputs(inputs []SourceInput, failed map[string]error) []SourceInput {
	firstPath := make(map[string]string, len(inputs))
	unique := make([]SourceInput, 0, len(inputs))
	for _, input := range inputs {
		if path, seen := firstPath[input.ID]; seen {
			failed[input.Path] = fmt.Errorf("duplicate source id %q, also from %s", input.ID, path)
			continue
		}
		firstPath[input.ID] = input.Path
		unique = append(unique, input)
	}
	return unique
}
