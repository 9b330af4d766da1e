package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phrasecut/config"
	"phrasecut/internal/ngram"
	"phrasecut/internal/query"
	"phrasecut/internal/storage"
	apperrors "phrasecut/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const episodeOne = `1
00:00:01,000 --> 00:00:03,000
Hello world there

2
00:00:09,000 --> 00:00:11,000
hello world again
`

// setupWorkspace moves into a temp dir with a config pointing every
// directory inside it and returns the config path.
func setupWorkspace(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	originalConf := config.Conf
	t.Cleanup(func() {
		config.Conf = originalConf
		if storage.DB != nil {
			if sqlDB, err := storage.DB.DB(); err == nil {
				sqlDB.Close()
			}
			storage.DB = nil
		}
	})

	configPath := filepath.Join(dir, "phrasecut.toml")
	body := fmt.Sprintf(`[app]
clip_duration = 5.0
fold_case = true
workers = 2
index_workers = 2
index_dir = %q
output_dir = %q

[media]
dir = %q
`, filepath.Join(dir, "indices"), filepath.Join(dir, "out"), filepath.Join(dir, "media"))
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subs", "ep1.srt"), []byte(episodeOne), 0o644))
	return dir, configPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIndexAndQueryCommands(t *testing.T) {
	dir, configPath := setupWorkspace(t)

	_, err := runCommand(t, "--config", configPath, "query", "hello", "world")
	assert.True(t, apperrors.Is(err, apperrors.CodeNoIndex), "got %v", err)

	out, err := runCommand(t, "--config", configPath, "index", "--dir", "subs")
	require.NoError(t, err)
	assert.Contains(t, out, "ep1")
	assert.Contains(t, out, "Indexed 1 of 1 sources")
	assert.FileExists(t, filepath.Join(dir, "indices", "ep1.json"))

	resultPath := filepath.Join(dir, "result.yaml")
	out, err = runCommand(t, "--config", configPath, "query", "--format", "json", "--out", resultPath, "Hello", "world", "again")
	require.NoError(t, err)

	var result query.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"hello", "world", "again"}, result.Tokens)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, query.KindTrigram, result.Segments[0].Kind)
	assert.Equal(t, []ngram.Match{{Source: "ep1", Timestamps: []float64{9}}}, result.Segments[0].Matches)

	saved, err := query.ReadResultFile(resultPath)
	require.NoError(t, err)
	assert.Equal(t, result, saved)

	out, err = runCommand(t, "--config", configPath, "query", "hello", "world", "moon")
	require.NoError(t, err)
	assert.Contains(t, out, "not found")
	assert.Contains(t, out, "1 of 2 segments found")

	out, err = runCommand(t, "--config", configPath, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "No clip runs yet")

	_, err = runCommand(t, "--config", configPath, "cut")
	assert.ErrorContains(t, err, "pass text to resolve or --result")

	_, err = runCommand(t, "--config", configPath, "query", "--format", "xml", "hello")
	assert.ErrorContains(t, err, "unknown format")
}

func TestIndexCommandReportsDuplicateStem(t *testing.T) {
	dir, configPath := setupWorkspace(t)
	vtt := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\ngood night moon\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subs", "ep1.vtt"), []byte(vtt), 0o644))

	out, err := runCommand(t, "--config", configPath, "index", "--dir", "subs")
	require.NoError(t, err)
	assert.Contains(t, out, "duplicate source id")
	assert.Contains(t, out, "Indexed 1 of 2 sources")
	assert.FileExists(t, filepath.Join(dir, "indices", "ep1.meta"))
}

func TestIndexCommandRequiresInput(t *testing.T) {
	_, configPath := setupWorkspace(t)
	_, err := runCommand(t, "--config", configPath, "index")
	assert.ErrorContains(t, err, "no subtitle files given")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "version: dev\ncommit: none\ndate: unknown\n", out)
}

func TestDiagnoseCommand(t *testing.T) {
	_, configPath := setupWorkspace(t)
	out, err := runCommand(t, "--config", configPath, "diagnose")
	require.NoError(t, err)
	for _, want := range []string{"runtime: ", "path.effective_log_dir:", "path.clips:", "queue.backend: local", "Dependency status", "- ffprobe [MUST]"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderTable(t *testing.T) {
	assert.Empty(t, renderTable(nil, nil, nil))

	rendered := renderTable([]string{"Source", "Grams"}, [][]string{{"ep1", "12"}, {"ep2"}}, []columnAlignment{alignLeft, alignRight})
	lines := strings.Split(rendered, "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[1], "SOURCE")
	assert.Contains(t, lines[1], "GRAMS")
	assert.Contains(t, lines[3], "ep1")
	assert.Contains(t, lines[3], "12")
	assert.Contains(t, lines[4], "ep2")
}

func TestSegmentRows(t *testing.T) {
	result := query.Result{
		Tokens: []string{"hello", "world", "moon"},
		Segments: []query.Segment{
			{
				Text: "hello world", Kind: query.KindBigram, Span: [2]int{0, 2}, Found: true,
				Matches: []ngram.Match{
					{Source: "ep1", Timestamps: []float64{1, 9, 12.5, 20, 31}},
					{Source: "ep2", Timestamps: []float64{4}},
				},
			},
			{Text: "moon", Kind: query.KindUnigram, Span: [2]int{2, 3}, Matches: []ngram.Match{}},
		},
	}

	rows := segmentRows(result)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"0", "hello world", "bigram", "0-2", "ep1 @ 1, 9, 12.5, 20 +1\nep2 @ 4"}, rows[0])
	assert.Equal(t, []string{"1", "moon", "unigram", "2-3", "not found"}, rows[1])
}

func TestColorStatus(t *testing.T) {
	assert.Equal(t, "failed", colorStatus("failed", false))
	assert.Equal(t, "\x1b[31mfailed\x1b[0m", colorStatus("failed", true))
	assert.Equal(t, "\x1b[32mcompleted\x1b[0m", colorStatus("completed", true))
}
