// Package appcore holds the contracts shared by the clip pipeline's front
// ends and workers: job stages, clip requests and events, and the observer
// that reports progress.
package appcore

import (
	"context"
	"time"

	"phrasecut/internal/clip"
	"phrasecut/internal/query"
	"phrasecut/internal/subtitle"
)

type JobStage uint8

const (
	JobStageQueued JobStage = iota + 1
	JobStageRunning
	JobStageSucceeded
	JobStageFailed
	JobStageCanceled
)

func (s JobStage) String() string {
	switch s {
	case JobStageQueued:
		return "queued"
	case JobStageRunning:
		return "running"
	case JobStageSucceeded:
		return "succeeded"
	case JobStageFailed:
		return "failed"
	case JobStageCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (s JobStage) IsTerminal() bool {
	return s == JobStageSucceeded || s == JobStageFailed || s == JobStageCanceled
}

// ParseJobStage is the inverse of String; unknown names map to zero.
func ParseJobStage(name string) JobStage {
	for s := JobStageQueued; s <= JobStageCanceled; s++ {
		if s.String() == name {
			return s
		}
	}
	return 0
}

// ClipRequest is one clip task of a run, addressed by its position in the
// run's batch.
type ClipRequest struct {
	RunID     string    `json:"run_id"`
	Index     int       `json:"index"`
	Task      clip.Task `json:"task"`
	OutputDir string    `json:"output_dir"`
}

// ClipEvent reports a clip task reaching a new stage.
type ClipEvent struct {
	RunID      string
	Index      int
	Task       clip.Task
	Stage      JobStage
	OutputPath string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// ClipRunner accepts clip requests for asynchronous execution. Completion is
// reported through an Observer.
type ClipRunner interface {
	Submit(ctx context.Context, req ClipRequest) error
}

// Observer receives progress from the pipeline. Calls may come from worker
// goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	OnUtteranceIndexed(source string, u subtitle.Utterance, grams int)
	OnSegmentResolved(ordinal int, seg query.Segment)
	OnClipTaskComplete(ev ClipEvent)
}

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) OnUtteranceIndexed(string, subtitle.Utterance, int) {}
func (NopObserver) OnSegmentResolved(int, query.Segment)               {}
func (NopObserver) OnClipTaskComplete(ClipEvent)                       {}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	UtteranceIndexed func(source string, u subtitle.Utterance, grams int)
	SegmentResolved  func(ordinal int, seg query.Segment)
	ClipTaskComplete func(ev ClipEvent)
}

func (f ObserverFuncs) OnUtteranceIndexed(source string, u subtitle.Utterance, grams int) {
	if f.UtteranceIndexed != nil {
		f.UtteranceIndexed(source, u, grams)
	}
}

func (f ObserverFuncs) OnSegmentResolved(ordinal int, seg query.Segment) {
	if f.SegmentResolved != nil {
		f.SegmentResolved(ordinal, seg)
	}
}

func (f ObserverFuncs) OnClipTaskComplete(ev ClipEvent) {
	if f.ClipTaskComplete != nil {
		f.ClipTaskComplete(ev)
	}
}

// Observers fans every callback out in order.
type Observers []Observer

func (o Observers) OnUtteranceIndexed(source string, u subtitle.Utterance, grams int) {
	for _, obs := range o {
		obs.OnUtteranceIndexed(source, u, grams)
	}
}

func (o Observers) OnSegmentResolved(ordinal int, seg query.Segment) {
	for _, obs := range o {
		obs.OnSegmentResolved(ordinal, seg)
	}
}

func (o Observers) OnClipTaskComplete(ev ClipEvent) {
	for _, obs := range o {
		obs.OnClipTaskComplete(ev)
	}
}

// Combine drops nil observers and returns NopObserver when none are left.
func Combine(observers ...Observer) Observer {
	kept := make(Observers, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			kept = append(kept, obs)
		}
	}
	switch len(kept) {
	case 0:
		return NopObserver{}
	case 1:
		return kept[0]
	default:
		return kept
	}
}
