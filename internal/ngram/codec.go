package ngram

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// EncodeJSON writes idx as a JSON object, one gram per line, keys in index
// order.
func EncodeJSON(w io.Writer, idx *PhraseIndex) error {
	bw := bufio.NewWriter(w)
	if idx.Len() == 0 {
		bw.WriteString("{}\n")
		return bw.Flush()
	}
	bw.WriteString("{\n")
	first := true
	for gram, timestamps := range idx.All() {
		if !first {
			bw.WriteString(",\n")
		}
		first = false
		key, err := json.Marshal(gram)
		if err != nil {
			return fmt.Errorf("encode gram %q: %w", gram, err)
		}
		if timestamps == nil {
			timestamps = []float64{}
		}
		value, err := json.Marshal(timestamps)
		if err != nil {
			return fmt.Errorf("encode timestamps for %q: %w", gram, err)
		}
		bw.WriteString("  ")
		bw.Write(key)
		bw.WriteString(": ")
		bw.Write(value)
	}
	bw.WriteString("\n}\n")
	return bw.Flush()
}

// DecodeJSON reads the structured form written by EncodeJSON, keeping key
// order. A value that is not a list of numbers becomes an empty list for that
// gram.
func DecodeJSON(r io.Reader) (*PhraseIndex, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode index: want object, got %v", tok)
	}

	idx := NewPhraseIndex()
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode index key: %w", err)
		}
		gram, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode index: unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err = dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode timestamps for %q: %w", gram, err)
		}
		var timestamps []float64
		if json.Unmarshal(raw, &timestamps) != nil {
			timestamps = nil
		}
		idx.set(gram, timestamps)
	}
	if _, err = dec.Token(); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return idx, nil
}

// EncodeFlat writes only the grams, quoted and comma separated, for people to
// scan. It is not read back.
func EncodeFlat(w io.Writer, idx *PhraseIndex) error {
	quoted := make([]string, 0, idx.Len())
	for _, gram := range idx.Grams() {
		quoted = append(quoted, strconv.Quote(gram))
	}
	_, err := io.WriteString(w, strings.Join(quoted, ", ")+"\n")
	return err
}

// EncodeLines writes one "gram: [t1, t2]" line per key.
func EncodeLines(w io.Writer, idx *PhraseIndex) error {
	bw := bufio.NewWriter(w)
	for gram, timestamps := range idx.All() {
		values := make([]string, 0, len(timestamps))
		for _, ts := range timestamps {
			values = append(values, strconv.FormatFloat(ts, 'f', -1, 64))
		}
		fmt.Fprintf(bw, "%s: [%s]\n", gram, strings.Join(values, ", "))
	}
	return bw.Flush()
}

// DecodeLines reads the "gram: [list]" form. A value list that does not parse
// becomes an empty list for that gram; lines without a colon are skipped.
func DecodeLines(r io.Reader) (*PhraseIndex, error) {
	idx := NewPhraseIndex()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		gram, list, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		gram = strings.TrimSpace(gram)
		if gram == "" {
			continue
		}
		timestamps, err := ParseNumberList(list)
		if err != nil {
			timestamps = nil
		}
		idx.set(gram, timestamps)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index lines: %w", err)
	}
	return idx, nil
}

var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// MaxListItems bounds how many numbers ParseNumberList accepts.
const MaxListItems = 1 << 20

// ParseNumberList parses a bracketed list of decimal numbers such as
// "[1.0, 9, 2.5e1]". Only that grammar is accepted: no expressions, names,
// NaN or infinities. A trailing comma is allowed.
func ParseNumberList(text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return nil, fmt.Errorf("number list %q: want [ ... ]", text)
	}
	body := strings.TrimSpace(text[1 : len(text)-1])
	if body == "" {
		return []float64{}, nil
	}
	body = strings.TrimSuffix(body, ",")

	parts := strings.Split(body, ",")
	if len(parts) > MaxListItems {
		return nil, fmt.Errorf("number list has %d items, limit %d", len(parts), MaxListItems)
	}
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if !numberPattern.MatchString(part) {
			return nil, fmt.Errorf("number list: %q is not a number", part)
		}
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("number list: %w", err)
		}
		values = append(values, value)
	}
	return values, nil
}
