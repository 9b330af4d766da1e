package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"phrasecut/internal/appcore"
	"phrasecut/internal/mocks"
	"phrasecut/internal/query"
	"phrasecut/internal/storage"
	"phrasecut/internal/taskrunner"
	"phrasecut/internal/types"
	"phrasecut/log"
	apperrors "phrasecut/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	log.UseLogger(zap.NewNop())
}

const episodeOne = `1
00:00:01,000 --> 00:00:03,000
Hello world there

2
00:00:09,000 --> 00:00:11,000
hello world again
`

const episodeTwo = `1
00:00:04,000 --> 00:00:06,000
Well, hello world!
`

type fixture struct {
	svc       *Service
	dir       string
	extractor *mocks.MockExtractor
	observer  *mocks.RecordingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	db, err := storage.Open(filepath.Join(dir, "cache", "test.db"))
	require.NoError(t, err)
	original := storage.DB
	storage.DB = db
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		storage.DB = original
	})

	extractor := &mocks.MockExtractor{}
	observer := mocks.NewRecordingObserver()
	svc, err := NewService(Options{
		IndexDir:  filepath.Join(dir, "indices"),
		ClipRoot:  filepath.Join(dir, "clips"),
		FoldCase:  true,
		Extractor: extractor,
		Observer:  observer,
	})
	require.NoError(t, err)

	runner := taskrunner.New(extractor, svc.ClipObserver(), taskrunner.Config{Concurrency: 2})
	t.Cleanup(runner.Close)
	svc.Runner = runner

	return &fixture{svc: svc, dir: dir, extractor: extractor, observer: observer}
}

func (f *fixture) writeSubtitle(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(f.dir, "subs", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func waitRun(t *testing.T, svc *Service, runID string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(ctx, runID))
}

func TestBuildIndicesPartialSuccess(t *testing.T) {
	f := newFixture(t)
	one := f.writeSubtitle(t, "ep1.srt", episodeOne)
	two := f.writeSubtitle(t, "ep2.srt", episodeTwo)

	report, err := f.svc.BuildIndices(context.Background(), []string{one, filepath.Join(f.dir, "subs", "missing.srt"), two, one})
	require.NoError(t, err)

	require.Len(t, report.Built, 2)
	assert.Equal(t, "ep1", report.Built[0].ID)
	assert.Equal(t, "ep2", report.Built[1].ID)
	assert.Contains(t, report.Failed, "missing")
	assert.FileExists(t, filepath.Join(f.dir, "indices", "ep1.json"))
	assert.FileExists(t, filepath.Join(f.dir, "indices", "ep1.txt"))
	assert.Len(t, f.observer.Utterances, 3)
	assert.Equal(t, []string{"ep1", "ep2"}, f.svc.Catalog().IDs())

	_, err = f.svc.BuildIndices(context.Background(), []string{filepath.Join(f.dir, "nope.srt")})
	assert.True(t, apperrors.Is(err, apperrors.CodeIndexBuild))
	_, err = f.svc.BuildIndices(context.Background(), nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))
}

func TestBuildIndicesReportsDuplicateSourceIDs(t *testing.T) {
	f := newFixture(t)
	first := f.writeSubtitle(t, filepath.Join("a", "ep1.srt"), "1\n00:00:01,000 --> 00:00:02,000\nhello world\n")
	second := f.writeSubtitle(t, filepath.Join("b", "ep1.srt"), "1\n00:00:03,000 --> 00:00:04,000\ngood night\n")

	report, err := f.svc.BuildIndices(context.Background(), []string{first, second})
	require.NoError(t, err)

	require.Len(t, report.Built, 1)
	assert.Equal(t, "ep1", report.Built[0].ID)
	assert.Equal(t, first, report.Built[0].Path)
	require.Contains(t, report.Failed, second)
	assert.Contains(t, report.Failed[second], "duplicate source id")
	assert.Equal(t, []string{"ep1"}, f.svc.Catalog().IDs())

	result, err := f.svc.Query("hello world")
	require.NoError(t, err)
	assert.True(t, result.Segments[0].Found)
	result, err = f.svc.Query("good night")
	require.NoError(t, err)
	assert.False(t, result.Segments[0].Found)
}

func TestCaseMismatchIsLogged(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.WarnLevel)
	log.UseLogger(zap.New(core))
	t.Cleanup(func() { log.UseLogger(zap.NewNop()) })

	f.svc.FoldCase = false
	report, err := f.svc.BuildIndices(context.Background(), []string{f.writeSubtitle(t, "ep1.srt", episodeOne)})
	require.NoError(t, err)
	assert.Contains(t, report.Built[0].Files, filepath.Join(f.dir, "indices", "ep1.meta"))
	assert.Zero(t, logs.Len())

	f.svc.FoldCase = true
	_, err = f.svc.LoadIndices()
	require.NoError(t, err)
	_, err = f.svc.Query("hello world")
	require.NoError(t, err)

	warnings := logs.FilterMessage("indices were built with different case folding and will not match").All()
	require.Len(t, warnings, 2)
	assert.Equal(t, []interface{}{"ep1"}, warnings[0].ContextMap()["sources"])
}

func TestLoadIndicesAndQuery(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Query("hello world")
	assert.ErrorIs(t, err, apperrors.ErrNoIndex)

	_, err = f.svc.BuildIndices(context.Background(), []string{
		f.writeSubtitle(t, "ep2.srt", episodeTwo),
		f.writeSubtitle(t, "ep1.srt", episodeOne),
	})
	require.NoError(t, err)

	f.svc.SetCatalog(nil)
	report, err := f.svc.LoadIndices()
	require.NoError(t, err)
	assert.Equal(t, []string{"ep1", "ep2"}, report.Loaded)

	result, err := f.svc.Query("Hello world there")
	require.NoError(t, err)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, query.KindTrigram, result.Segments[0].Kind)
	assert.Len(t, f.observer.Segments, 1)

	result, err = f.svc.Query("hello world")
	require.NoError(t, err)
	require.Len(t, result.Segments[0].Matches, 2)
	assert.Equal(t, "ep1", result.Segments[0].Matches[0].Source)
	assert.Equal(t, []float64{1, 9}, result.Segments[0].Matches[0].Timestamps)

	_, err = f.svc.Query("?!")
	assert.ErrorIs(t, err, apperrors.ErrEmptyQuery)
}

func TestRunClipsAndRetryFailed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BuildIndices(context.Background(), []string{f.writeSubtitle(t, "ep1.srt", episodeOne)})
	require.NoError(t, err)
	result, err := f.svc.Query("hello world")
	require.NoError(t, err)

	f.extractor.On("Duration", mock.Anything, "ep1").Return(600.0, nil)
	f.extractor.On("Extract", mock.Anything, "ep1", 1.0, 6.0, mock.Anything).Return(nil)
	failing := f.extractor.On("Extract", mock.Anything, "ep1", 9.0, 14.0, mock.Anything).Return(assert.AnError)

	submission, err := f.svc.RunClips(context.Background(), result)
	require.NoError(t, err)
	runID := submission.Run.RunId
	assert.Len(t, submission.Batch.Tasks, 2)
	waitRun(t, f.svc, runID)

	run, err := f.svc.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, types.ClipRunStatusPartial, run.Status)
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, filepath.Join(f.dir, "clips", runID), run.OutputDir)

	failing.Unset()
	f.extractor.On("Extract", mock.Anything, "ep1", 9.0, 14.0, mock.Anything).Return(nil)

	run, retried, err := f.svc.RetryFailed(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, 1, retried)
	waitRun(t, f.svc, runID)

	run, err = f.svc.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, types.ClipRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Tasks[1].Attempts)

	_, _, err = f.svc.RetryFailed(context.Background(), runID)
	assert.ErrorIs(t, err, apperrors.ErrNothingToRetry)

	successes := 0
	for _, ev := range f.observer.ClipEvents() {
		if ev.Stage == appcore.JobStageSucceeded {
			successes++
		}
	}
	assert.Equal(t, 2, successes)
}

func TestRunClipsSkipsUnknownMedia(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BuildIndices(context.Background(), []string{f.writeSubtitle(t, "ep2.srt", episodeTwo)})
	require.NoError(t, err)
	result, err := f.svc.Query("hello world")
	require.NoError(t, err)

	f.extractor.On("Duration", mock.Anything, "ep2").Return(0.0, apperrors.ErrMediaNotFound)

	submission, err := f.svc.RunClips(context.Background(), result)
	require.NoError(t, err)
	assert.Empty(t, submission.Batch.Tasks)
	require.Len(t, submission.Batch.Diagnostics, 1)
	assert.Equal(t, types.ClipRunStatusCompleted, submission.Run.Status)
	waitRun(t, f.svc, submission.Run.RunId)
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPlanClipsRejectsMalformedResult(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PlanClips(context.Background(), query.Result{Tokens: []string{"a"}})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidResult))
}

func TestGetRunNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetRun("nope")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	runs, err := f.svc.ListRuns(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunnerRefusalCompletesRun(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BuildIndices(context.Background(), []string{f.writeSubtitle(t, "ep2.srt", episodeTwo)})
	require.NoError(t, err)
	result, err := f.svc.Query("hello world")
	require.NoError(t, err)
	f.extractor.On("Duration", mock.Anything, "ep2").Return(100.0, nil)

	refusing := &mocks.MockClipRunner{}
	refusing.On("Submit", mock.Anything, mock.Anything).Return(apperrors.ErrQueueFull)
	f.svc.Runner = refusing

	submission, err := f.svc.RunClips(context.Background(), result)
	require.NoError(t, err)
	waitRun(t, f.svc, submission.Run.RunId)

	run, err := f.svc.GetRun(submission.Run.RunId)
	require.NoError(t, err)
	assert.Equal(t, types.ClipRunStatusFailed, run.Status)
	assert.Contains(t, run.Tasks[0].FailReason, "queue is full")
}
