package ngram

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"phrasecut/internal/subtitle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexOf(pairs map[string][]float64, order ...string) *PhraseIndex {
	idx := NewPhraseIndex()
	for _, gram := range order {
		idx.set(gram, pairs[gram])
	}
	return idx
}

func TestCatalogLookupKeepsOrderAndAllSources(t *testing.T) {
	catalog := Catalog{
		{ID: "s2", Index: indexOf(map[string][]float64{"a b": {4}}, "a b")},
		{ID: "s1", Index: indexOf(map[string][]float64{"x y": {1}}, "x y")},
		{ID: "s3", Index: indexOf(map[string][]float64{"a b": {7, 8}}, "a b")},
	}

	assert.Equal(t, []Match{
		{Source: "s2", Timestamps: []float64{4}},
		{Source: "s3", Timestamps: []float64{7, 8}},
	}, catalog.Lookup("a b"))
	assert.Empty(t, catalog.Lookup("missing gram"))
	assert.Equal(t, []string{"s2", "s1", "s3"}, catalog.IDs())
	assert.Equal(t, 3, catalog.GramCount())

	idx, ok := catalog.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 1, idx.Len())
	_, ok = catalog.Get("nope")
	assert.False(t, ok)
}

func TestCatalogUnion(t *testing.T) {
	catalog := Catalog{
		{ID: "s1", Index: indexOf(map[string][]float64{"a b": {1}, "b c": {}}, "a b", "b c")},
		{ID: "s2", Index: indexOf(map[string][]float64{"c d": {3}, "a b": {2}}, "c d", "a b")},
	}
	merged := catalog.Union()

	assert.Equal(t, []string{"a b", "b c", "c d"}, merged.Grams())
	ts, _ := merged.Lookup("a b")
	assert.Equal(t, []float64{1, 2}, ts)
	ts, ok := merged.Lookup("b c")
	assert.True(t, ok)
	assert.Empty(t, ts)
}

func TestBuildSourcesIsolatesFailures(t *testing.T) {
	parsed := map[string]subtitle.Utterances{
		"one.srt":   {{Start: 1, Text: "hello world"}},
		"three.srt": {{Start: 3, Text: "hello world again"}},
	}
	var indexed atomic.Int32

	catalog, report := BuildSources(context.Background(), []SourceInput{
		{ID: "one", Path: "one.srt"},
		{ID: "two", Path: "two.srt"},
		{ID: "three", Path: "three.srt"},
	}, BuildOptions{
		FoldCase: true,
		Workers:  2,
		Parse: func(path string) (subtitle.Utterances, error) {
			if u, ok := parsed[path]; ok {
				return u, nil
			}
			return nil, errors.New("unreadable")
		},
		OnUtterance: func(string, subtitle.Utterance, int) { indexed.Add(1) },
	})

	assert.Equal(t, []string{"one", "three"}, catalog.IDs())
	assert.Equal(t, []string{"one", "three"}, report.Built)
	require.Contains(t, report.Failed, "two")
	assert.ErrorContains(t, report.Failed["two"], "unreadable")
	assert.False(t, report.OK())
	assert.EqualValues(t, 2, indexed.Load())

	assert.Equal(t, []Match{
		{Source: "one", Timestamps: []float64{1}},
		{Source: "three", Timestamps: []float64{3}},
	}, catalog.Lookup("hello world"))
}

func TestBuildSourcesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	catalog, report := BuildSources(ctx, []SourceInput{{ID: "one", Path: "one.srt"}}, BuildOptions{
		Parse: func(string) (subtitle.Utterances, error) { return nil, nil },
	})
	assert.Empty(t, catalog)
	assert.ErrorIs(t, report.Failed["one"], context.Canceled)
}

func TestBuildSourcesRejectsDuplicateIDs(t *testing.T) {
	parsed := map[string]subtitle.Utterances{
		"a/ep1.srt": {{Start: 1, Text: "hello world"}},
		"b/ep1.srt": {{Start: 2, Text: "good night"}},
		"ep1.vtt":   {{Start: 3, Text: "see you"}},
	}

	catalog, report := BuildSources(context.Background(), []SourceInput{
		{ID: "ep1", Path: "a/ep1.srt"},
		{ID: "ep1", Path: "b/ep1.srt"},
		{ID: "ep1", Path: "ep1.vtt"},
	}, BuildOptions{
		FoldCase: true,
		Parse:    func(path string) (subtitle.Utterances, error) { return parsed[path], nil },
	})

	assert.Equal(t, []string{"ep1"}, catalog.IDs())
	assert.Equal(t, []string{"ep1"}, report.Built)
	require.Len(t, report.Failed, 2)
	assert.ErrorContains(t, report.Failed["b/ep1.srt"], "also from a/ep1.srt")
	assert.ErrorContains(t, report.Failed["ep1.vtt"], `duplicate source id "ep1"`)

	require.NotNil(t, catalog[0].Meta)
	assert.Equal(t, Meta{FoldCase: true, Subtitle: "a/ep1.srt", Grams: 1}, *catalog[0].Meta)
	assert.Len(t, catalog.Lookup("hello world"), 1)
	assert.Empty(t, catalog.Lookup("good night"))
}

func TestCatalogCaseMismatches(t *testing.T) {
	catalog := Catalog{
		{ID: "folded", Index: NewPhraseIndex(), Meta: &Meta{FoldCase: true}},
		{ID: "exact", Index: NewPhraseIndex(), Meta: &Meta{FoldCase: false}},
		{ID: "unknown", Index: NewPhraseIndex()},
	}

	assert.Equal(t, []string{"exact"}, catalog.CaseMismatches(true))
	assert.Equal(t, []string{"folded"}, catalog.CaseMismatches(false))
}
