package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"phrasecut/internal/ngram"

	"gopkg.in/yaml.v3"
)

// Result is the segmentation of one query. It is the only input the clip
// planner takes, so it round-trips through JSON and YAML unchanged.
type Result struct {
	Query    string    `json:"query" yaml:"query"`
	FoldCase bool      `json:"fold_case" yaml:"fold_case"`
	Tokens   []string  `json:"tokens" yaml:"tokens,flow"`
	Segments []Segment `json:"segments" yaml:"segments"`
}

// Found returns the segments that matched at least one source.
func (r Result) Found() []Segment {
	var found []Segment
	for _, seg := range r.Segments {
		if seg.Found {
			found = append(found, seg)
		}
	}
	return found
}

// Coverage is the fraction of query tokens inside found segments.
func (r Result) Coverage() float64 {
	if len(r.Tokens) == 0 {
		return 0
	}
	covered := 0
	for _, seg := range r.Segments {
		if seg.Found {
			covered += seg.Span[1] - seg.Span[0]
		}
	}
	return float64(covered) / float64(len(r.Tokens))
}

// Validate checks that the segments partition the tokens in order and that
// every segment is consistent with the tokens it spans.
func (r Result) Validate() error {
	next := 0
	for i, seg := range r.Segments {
		start, end := seg.Span[0], seg.Span[1]
		if start != next {
			return fmt.Errorf("segment %d starts at token %d, want %d", i, start, next)
		}
		if end <= start || end > len(r.Tokens) {
			return fmt.Errorf("segment %d has invalid span [%d,%d) for %d tokens", i, start, end, len(r.Tokens))
		}
		if seg.Kind.Size() != end-start {
			return fmt.Errorf("segment %d: kind %q does not span %d tokens", i, seg.Kind, end-start)
		}
		if want := ngram.Join(r.Tokens[start:end]); seg.Text != want {
			return fmt.Errorf("segment %d: text %q does not match tokens %q", i, seg.Text, want)
		}
		if seg.Found && len(seg.Matches) == 0 {
			return fmt.Errorf("segment %d is found but has no matches", i)
		}
		if !seg.Found && len(seg.Matches) > 0 {
			return fmt.Errorf("segment %d is not found but has matches", i)
		}
		next = end
	}
	if next != len(r.Tokens) {
		return fmt.Errorf("segments cover %d of %d tokens", next, len(r.Tokens))
	}
	return nil
}

// Encoding selects the document format of a Result.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingYAML Encoding = "yaml"
)

// EncodingFor picks the encoding from a file extension, defaulting to JSON.
func EncodingFor(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return EncodingYAML
	default:
		return EncodingJSON
	}
}

// Write encodes r to w.
func (r Result) Write(w io.Writer, enc Encoding) error {
	switch enc {
	case EncodingYAML:
		ye := yaml.NewEncoder(w)
		ye.SetIndent(2)
		if err := ye.Encode(r); err != nil {
			return fmt.Errorf("encode result yaml: %w", err)
		}
		return ye.Close()
	case EncodingJSON, "":
		je := json.NewEncoder(w)
		je.SetIndent("", "  ")
		if err := je.Encode(r); err != nil {
			return fmt.Errorf("encode result json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown result encoding %q", enc)
	}
}

// WriteFile writes r to path, creating parent directories. The encoding
// follows the extension.
func (r Result) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}
	var buf bytes.Buffer
	if err := r.Write(&buf, EncodingFor(path)); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadResult decodes a JSON or YAML document. JSON is detected by a leading
// brace.
func ReadResult(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read result: %w", err)
	}
	var result Result
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &result)
	} else {
		err = yaml.Unmarshal(data, &result)
	}
	if err != nil {
		return Result{}, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}

// ReadResultFile reads and validates a result document.
func ReadResultFile(path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer file.Close()

	result, err := ReadResult(file)
	if err != nil {
		return Result{}, err
	}
	if err = result.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid result %s: %w", path, err)
	}
	return result, nil
}
