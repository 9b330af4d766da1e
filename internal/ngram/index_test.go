package ngram

import (
	"bytes"
	"testing"

	"phrasecut/internal/subtitle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"Hello", "world", "How", "are", "you"}, Tokenize("Hello, world! How are you?", false))
	assert.Equal(t, []string{"hello", "world", "how", "are", "you"}, Tokenize("Hello, world! How are you?", true))
	assert.Equal(t, []string{"don", "t", "stop"}, Tokenize("Don't stop", true))
	assert.Equal(t, []string{"café", "crème", "42", "snake_case"}, Tokenize("Café…CRÈME 42 snake_case", true))
	assert.Empty(t, Tokenize(" ... !!! ", true))
}

func TestAddUtteranceEmitsBigramsAndTrigrams(t *testing.T) {
	idx := NewPhraseIndex()
	emitted := idx.AddUtterance(subtitle.Utterance{Start: 2.5, Text: "The quick brown fox"}, true)

	assert.Equal(t, 5, emitted)
	assert.Equal(t, []string{
		"the quick", "the quick brown",
		"quick brown", "quick brown fox",
		"brown fox",
	}, idx.Grams())
	ts, ok := idx.Lookup("quick brown fox")
	require.True(t, ok)
	assert.Equal(t, []float64{2.5}, ts)

	_, ok = idx.Lookup("fox")
	assert.False(t, ok, "single tokens are never keys")
}

func TestAddUtteranceShortTexts(t *testing.T) {
	idx := NewPhraseIndex()
	assert.Equal(t, 0, idx.AddUtterance(subtitle.Utterance{Start: 1, Text: "Hi!"}, true))
	assert.Equal(t, 1, idx.AddUtterance(subtitle.Utterance{Start: 2, Text: "Hi there"}, true))
	assert.Equal(t, []string{"hi there"}, idx.Grams())
}

func TestBuildAccumulatesTimestampsInOrder(t *testing.T) {
	utterances := subtitle.Utterances{
		{Start: 1, Text: "hello world hello world"},
		{Start: 9, Text: "Hello World"},
	}
	idx := Build(utterances, true)

	ts, ok := idx.Lookup("hello world")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1, 9}, ts, "repeats within one utterance are kept")

	ts, ok = idx.Lookup("world hello")
	require.True(t, ok)
	assert.Equal(t, []float64{1}, ts)
}

func TestBuildCaseSensitive(t *testing.T) {
	idx := Build(subtitle.Utterances{{Start: 1, Text: "Hello World"}}, false)
	_, ok := idx.Lookup("hello world")
	assert.False(t, ok)
	_, ok = idx.Lookup("Hello World")
	assert.True(t, ok)
}

func TestBuildIsDeterministic(t *testing.T) {
	text := "1\n00:00:01,000 --> 00:00:02,000\nThe quick brown fox\n\n2\n00:00:05,000 --> 00:00:06,000\njumps over the quick brown dog\n"

	encode := func() []byte {
		var buf bytes.Buffer
		require.NoError(t, EncodeJSON(&buf, Build(subtitle.Parse(text), true)))
		return buf.Bytes()
	}
	first := encode()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, encode())
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	idx := NewPhraseIndex()
	idx.Add("a b", 1)
	ts, _ := idx.Lookup("a b")
	ts[0] = 99
	again, _ := idx.Lookup("a b")
	assert.Equal(t, []float64{1}, again)
}
