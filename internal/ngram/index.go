// Package ngram builds and persists phrase indices: bigram and trigram keys
// mapped to the start times of the utterances they occur in.
package ngram

import (
	"iter"
	"slices"

	"phrasecut/internal/subtitle"
)

// PhraseIndex maps gram text to timestamps in encounter order. Keys also keep
// their first-encounter order so every encoding of an index is deterministic.
type PhraseIndex struct {
	keys    []string
	entries map[string][]float64
}

func NewPhraseIndex() *PhraseIndex {
	return &PhraseIndex{entries: make(map[string][]float64)}
}

// Add appends a timestamp to gram's list.
func (p *PhraseIndex) Add(gram string, timestamp float64) {
	list, ok := p.entries[gram]
	if !ok {
		p.keys = append(p.keys, gram)
	}
	p.entries[gram] = append(list, timestamp)
}

// set replaces gram's list; used by decoders.
func (p *PhraseIndex) set(gram string, timestamps []float64) {
	if _, ok := p.entries[gram]; !ok {
		p.keys = append(p.keys, gram)
	}
	if timestamps == nil {
		timestamps = []float64{}
	}
	p.entries[gram] = timestamps
}

// AddUtterance tokenizes u and records every bigram and trigram it contains
// under u.Start. It returns how many grams were recorded.
func (p *PhraseIndex) AddUtterance(u subtitle.Utterance, foldCase bool) int {
	tokens := Tokenize(u.Text, foldCase)
	n := len(tokens)
	emitted := 0
	for i := 0; i < n; i++ {
		if i <= n-2 {
			p.Add(Join(tokens[i:i+2]), u.Start)
			emitted++
		}
		if i <= n-3 {
			p.Add(Join(tokens[i:i+3]), u.Start)
			emitted++
		}
	}
	return emitted
}

// Lookup returns a copy of gram's timestamps.
func (p *PhraseIndex) Lookup(gram string) ([]float64, bool) {
	list, ok := p.entries[gram]
	if !ok {
		return nil, false
	}
	return slices.Clone(list), true
}

func (p *PhraseIndex) Len() int {
	return len(p.keys)
}

// Grams returns the keys in first-encounter order.
func (p *PhraseIndex) Grams() []string {
	return slices.Clone(p.keys)
}

// All iterates keys in order with their timestamp lists. The lists must not be
// modified.
func (p *PhraseIndex) All() iter.Seq2[string, []float64] {
	return func(yield func(string, []float64) bool) {
		for _, key := range p.keys {
			if !yield(key, p.entries[key]) {
				return
			}
		}
	}
}

// Equal reports whether both indices hold the same keys, in the same order,
// with identical timestamp lists.
func (p *PhraseIndex) Equal(other *PhraseIndex) bool {
	if p == nil || other == nil {
		return p == other
	}
	if !slices.Equal(p.keys, other.keys) {
		return false
	}
	for _, key := range p.keys {
		if !slices.Equal(p.entries[key], other.entries[key]) {
			return false
		}
	}
	return true
}

// Build indexes utterances in order.
func Build(utterances subtitle.Utterances, foldCase bool) *PhraseIndex {
	index := NewPhraseIndex()
	for u := range utterances.Seq() {
		index.AddUtterance(u, foldCase)
	}
	return index
}
