// Package clip turns a segmentation result into time-bounded extraction
// tasks.
package clip

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"phrasecut/internal/query"
	"phrasecut/log"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	DefaultClipDuration = 5.0
	DefaultExtension    = ".mp4"
)

// DurationSource reports the total media duration of a source, in seconds.
type DurationSource interface {
	Duration(ctx context.Context, source string) (float64, error)
}

// DurationFunc adapts a function to DurationSource.
type DurationFunc func(ctx context.Context, source string) (float64, error)

func (f DurationFunc) Duration(ctx context.Context, source string) (float64, error) {
	return f(ctx, source)
}

// Task is one extraction request. Tasks share no state and Output is a pure
// function of the other fields, so re-running a task rewrites the same file.
type Task struct {
	Ordinal int        `json:"ordinal"`
	Kind    query.Kind `json:"kind"`
	Gram    string     `json:"gram"`
	Source  string     `json:"source"`
	Start   float64    `json:"start"`
	End     float64    `json:"end"`
	Output  string     `json:"output"`
}

func (t Task) Duration() float64 {
	return t.End - t.Start
}

// Diagnostic records a match that produced no task.
type Diagnostic struct {
	Ordinal   int     `json:"ordinal"`
	Source    string  `json:"source"`
	Timestamp float64 `json:"timestamp"`
	Reason    string  `json:"reason"`
}

// Batch is the outcome of planning one result.
type Batch struct {
	Tasks       []Task       `json:"tasks"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type Options struct {
	// ClipDuration is the window length; DefaultClipDuration when <= 0.
	ClipDuration float64
	// Extension of output files; DefaultExtension when empty.
	Extension string
}

func (o Options) withDefaults() Options {
	if o.ClipDuration <= 0 {
		o.ClipDuration = DefaultClipDuration
	}
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	if !strings.HasPrefix(o.Extension, ".") {
		o.Extension = "." + o.Extension
	}
	return o
}

// Plan emits a task for every timestamp of every match of every found
// segment, windowed to [t, min(t+ClipDuration, duration)]. Sources without
// a duration and windows that would be empty become diagnostics. Each source
// is probed at most once.
func Plan(ctx context.Context, result query.Result, durations DurationSource, opts Options) Batch {
	opts = opts.withDefaults()
	batch := Batch{Tasks: []Task{}, Diagnostics: []Diagnostic{}}

	type probe struct {
		seconds float64
		err     error
	}
	probed := make(map[string]probe)
	durationOf := func(source string) (float64, error) {
		if p, ok := probed[source]; ok {
			return p.seconds, p.err
		}
		seconds, err := durations.Duration(ctx, source)
		probed[source] = probe{seconds: seconds, err: err}
		return seconds, err
	}

	for ordinal, seg := range result.Segments {
		if !seg.Found {
			continue
		}
		for _, match := range seg.Matches {
			total, err := durationOf(match.Source)
			for _, t := range lo.Uniq(match.Timestamps) {
				if err != nil {
					batch.Diagnostics = append(batch.Diagnostics, Diagnostic{
						Ordinal: ordinal, Source: match.Source, Timestamp: t, Reason: err.Error(),
					})
					continue
				}
				end := math.Min(t+opts.ClipDuration, total)
				if end <= t {
					batch.Diagnostics = append(batch.Diagnostics, Diagnostic{
						Ordinal: ordinal, Source: match.Source, Timestamp: t,
						Reason: fmt.Sprintf("timestamp %.3fs is not before media end %.3fs", t, total),
					})
					continue
				}
				task := Task{
					Ordinal: ordinal,
					Kind:    seg.Kind,
					Gram:    seg.Text,
					Source:  match.Source,
					Start:   t,
					End:     end,
				}
				task.Output = OutputName(task, opts.Extension)
				batch.Tasks = append(batch.Tasks, task)
			}
		}
	}

	for _, d := range batch.Diagnostics {
		log.GetLogger().Warn("clip skipped",
			zap.Int("ordinal", d.Ordinal),
			zap.String("source", d.Source),
			zap.Float64("timestamp", d.Timestamp),
			zap.String("reason", d.Reason))
	}
	return batch
}

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// OutputName is the file name for a task:
// NNN_<kind>_<gram>_<source>_<startMillis><ext>.
func OutputName(t Task, ext string) string {
	gram := strings.Trim(unsafeName.ReplaceAllString(t.Gram, "-"), "-")
	source := strings.Trim(unsafeName.ReplaceAllString(t.Source, "-"), "-")
	millis := int64(math.Round(t.Start * 1000))
	return fmt.Sprintf("%03d_%s_%s_%s_%d%s", t.Ordinal, t.Kind, gram, source, millis, ext)
}

// Sources lists the distinct sources the tasks read from, in first-use order.
func (b Batch) Sources() []string {
	return lo.Uniq(lo.Map(b.Tasks, func(t Task, _ int) string { return t.Source }))
}
