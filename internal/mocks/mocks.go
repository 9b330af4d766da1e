// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"
	"sync"

	"phrasecut/internal/appcore"
	"phrasecut/internal/query"
	"phrasecut/internal/subtitle"

	"github.com/stretchr/testify/mock"
)

// MockExtractor is a mock implementation of media.Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Duration(ctx context.Context, source string) (float64, error) {
	args := m.Called(ctx, source)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockExtractor) Extract(ctx context.Context, source string, start, end float64, outPath string) error {
	args := m.Called(ctx, source, start, end, outPath)
	return args.Error(0)
}

// MockClipRunner is a mock implementation of appcore.ClipRunner
type MockClipRunner struct {
	mock.Mock
}

func (m *MockClipRunner) Submit(ctx context.Context, req appcore.ClipRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// RecordingObserver keeps every callback it receives. Safe for concurrent use.
type RecordingObserver struct {
	mu         sync.Mutex
	Utterances []subtitle.Utterance
	Segments   []query.Segment
	Clips      []appcore.ClipEvent
	clipSignal chan struct{}
}

func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{clipSignal: make(chan struct{}, 1024)}
}

func (o *RecordingObserver) OnUtteranceIndexed(_ string, u subtitle.Utterance, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Utterances = append(o.Utterances, u)
}

func (o *RecordingObserver) OnSegmentResolved(_ int, seg query.Segment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Segments = append(o.Segments, seg)
}

func (o *RecordingObserver) OnClipTaskComplete(ev appcore.ClipEvent) {
	o.mu.Lock()
	o.Clips = append(o.Clips, ev)
	o.mu.Unlock()
	if o.clipSignal != nil {
		select {
		case o.clipSignal <- struct{}{}:
		default:
		}
	}
}

// ClipEvents returns a snapshot of the clip events seen so far.
func (o *RecordingObserver) ClipEvents() []appcore.ClipEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appcore.ClipEvent(nil), o.Clips...)
}

// WaitClips blocks until n clip events have arrived or done is closed.
func (o *RecordingObserver) WaitClips(n int, done <-chan struct{}) bool {
	for {
		if len(o.ClipEvents()) >= n {
			return true
		}
		select {
		case <-o.clipSignal:
		case <-done:
			return len(o.ClipEvents()) >= n
		}
	}
}
