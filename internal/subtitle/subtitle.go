// Package subtitle turns SRT (and WebVTT) text into timed utterances.
package subtitle

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/asticode/go-astisub"
)

// Utterance is one subtitle cue: when it starts and what is said.
type Utterance struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// Utterances is an ordered, re-iterable cue sequence.
type Utterances []Utterance

// Seq yields the utterances in source order. It can be ranged over repeatedly.
func (u Utterances) Seq() iter.Seq[Utterance] {
	return func(yield func(Utterance) bool) {
		for _, utt := range u {
			if !yield(utt) {
				return
			}
		}
	}
}

var (
	blockSeparator = regexp.MustCompile(`\n[ \t]*\n`)
	timeRangeLine  = regexp.MustCompile(`^\s*(\d+:\d{2}:\d{2}[,.]\d{1,3})\s*-->\s*(\d+:\d{2}:\d{2}[,.]\d{1,3})`)
)

// Parse splits SRT text into utterances. Blocks with fewer than three lines or
// an unreadable time range are dropped without error.
func Parse(text string) Utterances {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	var utterances Utterances
	for _, block := range blockSeparator.Split(strings.TrimSpace(text), -1) {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}
		match := timeRangeLine.FindStringSubmatch(lines[1])
		if match == nil {
			continue
		}
		start, err := ParseTimestamp(match[1])
		if err != nil {
			continue
		}
		textLines := make([]string, 0, len(lines)-2)
		for _, line := range lines[2:] {
			textLines = append(textLines, strings.TrimSpace(line))
		}
		utterances = append(utterances, Utterance{
			Start: start,
			Text:  strings.Join(textLines, " "),
		})
	}
	return utterances
}

// ParseTimestamp converts "HH:MM:SS,mmm" into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.Replace(strings.TrimSpace(value), ".", ",", 1)
	clock, millisText, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("parse timestamp %q: missing milliseconds", value)
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("parse timestamp %q: want HH:MM:SS,mmm", value)
	}

	var fields [4]int
	for i, part := range append(parts, millisText) {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("parse timestamp %q: bad field %q", value, part)
		}
		fields[i] = n
	}
	hours, minutes, seconds, millis := fields[0], fields[1], fields[2], fields[3]
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// ParseFile reads a subtitle file. ".vtt" files go through the WebVTT reader,
// everything else is treated as SRT.
func ParseFile(path string) (Utterances, error) {
	if strings.EqualFold(filepath.Ext(path), ".vtt") {
		return parseWebVTTFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle %s: %w", path, err)
	}
	return Parse(string(data)), nil
}

func parseWebVTTFile(path string) (Utterances, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle %s: %w", path, err)
	}
	defer file.Close()

	subs, err := astisub.ReadFromWebVTT(file)
	if err != nil {
		return nil, fmt.Errorf("parse webvtt %s: %w", path, err)
	}
	return fromItems(subs.Items), nil
}

func fromItems(items []*astisub.Item) Utterances {
	utterances := make(Utterances, 0, len(items))
	for _, item := range items {
		var words []string
		for _, line := range item.Lines {
			if text := strings.TrimSpace(line.String()); text != "" {
				words = append(words, text)
			}
		}
		if len(words) == 0 {
			continue
		}
		utterances = append(utterances, Utterance{
			Start: item.StartAt.Seconds(),
			Text:  strings.Join(words, " "),
		})
	}
	return utterances
}

// SourceID derives a source identifier from a subtitle path: its base name
// without extension.
func SourceID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Extensions are the subtitle formats ParseFile understands.
var Extensions = []string{".srt", ".vtt"}

// FindFiles lists the subtitle files directly inside dir, sorted by name.
func FindFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read subtitle dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if slices.ContainsFunc(Extensions, func(e string) bool { return strings.EqualFold(e, ext) }) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}
