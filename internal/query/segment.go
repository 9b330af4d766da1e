// Package query resolves a sentence into an ordered run of phrase segments
// looked up in a catalog of phrase indices.
package query

import (
	"phrasecut/internal/ngram"
)

// Kind is the gram size a segment was resolved with.
type Kind string

const (
	KindTrigram Kind = "trigram"
	KindBigram  Kind = "bigram"
	KindUnigram Kind = "unigram"
)

// Size returns the number of tokens a segment of this kind spans.
func (k Kind) Size() int {
	switch k {
	case KindTrigram:
		return 3
	case KindBigram:
		return 2
	case KindUnigram:
		return 1
	default:
		return 0
	}
}

func kindOf(size int) Kind {
	switch size {
	case 3:
		return KindTrigram
	case 2:
		return KindBigram
	default:
		return KindUnigram
	}
}

// Segment is one contiguous span of query tokens and its lookup outcome.
// Span is the half-open token range [Span[0], Span[1]).
type Segment struct {
	Text    string        `json:"ngram" yaml:"ngram"`
	Kind    Kind          `json:"kind" yaml:"kind"`
	Span    [2]int        `json:"token_span" yaml:"token_span,flow"`
	Matches []ngram.Match `json:"matches" yaml:"matches"`
	Found   bool          `json:"found" yaml:"found"`
}

// Segmenter resolves queries against a fixed catalog.
type Segmenter struct {
	Catalog  ngram.Catalog
	FoldCase bool
	// OnSegment, when set, is called synchronously as each segment is emitted.
	OnSegment func(ordinal int, seg Segment)
}

// Segment tokenizes q and greedily covers it with trigrams, then bigrams.
// A span that matches nowhere is emitted as not found: the trigram span when
// one fits, otherwise the bigram span, and a unigram only for a single
// trailing token.
func (s Segmenter) Segment(q string) Result {
	tokens := ngram.Tokenize(q, s.FoldCase)
	result := Result{
		Query:    q,
		FoldCase: s.FoldCase,
		Tokens:   tokens,
		Segments: make([]Segment, 0, len(tokens)/2+1),
	}

	n := len(tokens)
	for i := 0; i < n; {
		seg := s.resolve(tokens, i)
		if s.OnSegment != nil {
			s.OnSegment(len(result.Segments), seg)
		}
		result.Segments = append(result.Segments, seg)
		i = seg.Span[1]
	}
	return result
}

func (s Segmenter) resolve(tokens []string, i int) Segment {
	n := len(tokens)
	for _, size := range []int{3, 2} {
		if i > n-size {
			continue
		}
		gram := ngram.Join(tokens[i : i+size])
		if matches := s.Catalog.Lookup(gram); len(matches) > 0 {
			return Segment{Text: gram, Kind: kindOf(size), Span: [2]int{i, i + size}, Matches: matches, Found: true}
		}
	}

	size := 1
	switch {
	case i <= n-3:
		size = 3
	case i <= n-2:
		size = 2
	}
	return Segment{
		Text:    ngram.Join(tokens[i : i+size]),
		Kind:    kindOf(size),
		Span:    [2]int{i, i + size},
		Matches: []ngram.Match{},
	}
}

// Resolve segments q against catalog with a one-off Segmenter.
func Resolve(q string, foldCase bool, catalog ngram.Catalog) Result {
	return Segmenter{Catalog: catalog, FoldCase: foldCase}.Segment(q)
}
