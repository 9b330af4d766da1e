package ngram

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// wordPattern matches runs of Unicode letters, digits and underscores.
// Everything else separates tokens.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize splits text into word tokens, lowercasing first when foldCase is
// set. Indexing and querying must both go through here.
func Tokenize(text string, foldCase bool) []string {
	if foldCase {
		// Casers keep state, so each call gets its own.
		text = cases.Lower(language.Und).String(text)
	}
	return wordPattern.FindAllString(text, -1)
}

// Join builds a gram key from tokens.
func Join(tokens []string) string {
	return strings.Join(tokens, " ")
}
