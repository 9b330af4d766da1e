package ngram

import "slices"

// Source pairs a source identifier with its index. Meta is nil for indices
// saved without a metadata file.
type Source struct {
	ID    string
	Index *PhraseIndex
	Meta  *Meta
}

// Match is one source's timestamps for a gram.
type Match struct {
	Source     string    `json:"source" yaml:"source"`
	Timestamps []float64 `json:"timestamps" yaml:"timestamps"`
}

// Catalog is an ordered collection of loaded sources. Lookups preserve its
// order.
type Catalog []Source

// Lookup returns every source containing gram, in catalog order.
func (c Catalog) Lookup(gram string) []Match {
	var matches []Match
	for _, src := range c {
		if src.Index == nil {
			continue
		}
		if timestamps, ok := src.Index.Lookup(gram); ok {
			matches = append(matches, Match{Source: src.ID, Timestamps: timestamps})
		}
	}
	return matches
}

func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for _, src := range c {
		ids = append(ids, src.ID)
	}
	return ids
}

func (c Catalog) Get(id string) (*PhraseIndex, bool) {
	i := slices.IndexFunc(c, func(src Source) bool { return src.ID == id })
	if i < 0 {
		return nil, false
	}
	return c[i].Index, true
}

// Union merges all sources into one index: keys are unioned, timestamp lists
// are concatenated in catalog order.
func (c Catalog) Union() *PhraseIndex {
	merged := NewPhraseIndex()
	for _, src := range c {
		if src.Index == nil {
			continue
		}
		for gram, timestamps := range src.Index.All() {
			if _, seen := merged.entries[gram]; !seen && len(timestamps) == 0 {
				merged.set(gram, nil)
			}
			for _, ts := range timestamps {
				merged.Add(gram, ts)
			}
		}
	}
	return merged
}

// GramCount sums the keys across all sources.
func (c Catalog) GramCount() int {
	total := 0
	for _, src := range c {
		if src.Index != nil {
			total += src.Index.Len()
		}
	}
	return total
}

// CaseMismatches returns the sources whose recorded casing differs from
// foldCase. Their keys cannot match a query tokenized that way.
func (c Catalog) CaseMismatches(foldCase bool) []string {
	var ids []string
	for _, src := range c {
		if src.Meta != nil && src.Meta.FoldCase != foldCase {
			ids = append(ids, src.ID)
		}
	}
	return ids
}
