package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	apperrors "phrasecut/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ep1.mp4", "ep2.MKV", "ep2.srt", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ep3.mp4"), 0o755))

	registry, err := ScanDir(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ep1", "ep2"}, registry.Sources())
	path, err := registry.Path("ep2")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ep2.MKV"), path)

	onlyMP4, err := ScanDir(dir, "mp4")
	require.NoError(t, err)
	assert.Equal(t, []string{"ep1"}, onlyMP4.Sources())

	_, err = ScanDir(filepath.Join(dir, "missing"), "")
	assert.Error(t, err)
}

func TestRegistryUnknownSource(t *testing.T) {
	_, err := NewRegistry().Path("ghost")
	assert.True(t, errors.Is(err, apperrors.ErrMediaNotFound))
	assert.True(t, apperrors.Is(err, apperrors.CodeMediaNotFound))
}

func TestExtractArgs(t *testing.T) {
	assert.Equal(t, []string{
		"-y", "-ss", "1.000", "-i", "in.mp4", "-t", "5.000",
		"-c", "copy", "-avoid_negative_ts", "1", "out.mp4",
	}, ExtractArgs("in.mp4", 1, 6, "out.mp4", false))

	args := ExtractArgs("in.mp4", 188.48, 190, "out.mp4", true)
	assert.Contains(t, strings.Join(args, " "), "-ss 188.480 -i in.mp4 -t 1.520 -c:v libx264")
}

func TestFFmpegDurationCachesProbe(t *testing.T) {
	registry := NewRegistry()
	registry.Register("ep1", "/media/ep1.mp4")
	var calls atomic.Int32
	f := NewFFmpeg("ffmpeg", "/opt/ffprobe", registry)
	f.Run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls.Add(1)
		assert.Equal(t, "/opt/ffprobe", name)
		assert.Equal(t, "/media/ep1.mp4", args[len(args)-1])
		return []byte(`{"format":{"duration":"1421.504000"}}`), nil
	}

	for i := 0; i < 3; i++ {
		seconds, err := f.Duration(context.Background(), "ep1")
		require.NoError(t, err)
		assert.Equal(t, 1421.504, seconds)
	}
	assert.EqualValues(t, 1, calls.Load())

	_, err := f.Duration(context.Background(), "ep2")
	assert.True(t, errors.Is(err, apperrors.ErrMediaNotFound))
}

func TestFFmpegDurationRejectsBadProbe(t *testing.T) {
	registry := NewRegistry()
	registry.Register("ep1", "/media/ep1.mp4")
	f := NewFFmpeg("", "", registry)

	f.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"format":{}}`), nil
	}
	_, err := f.Duration(context.Background(), "ep1")
	assert.ErrorContains(t, err, "no usable duration")

	f.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("ep1.mp4: Invalid data"), errors.New("exit status 1")
	}
	_, err = f.Duration(context.Background(), "ep1")
	assert.ErrorContains(t, err, "Invalid data")
}

func TestFFmpegExtract(t *testing.T) {
	registry := NewRegistry()
	registry.Register("ep1", "/media/ep1.mp4")
	f := NewFFmpeg("/usr/bin/ffmpeg", "", registry)

	var gotName string
	var gotArgs []string
	f.Run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, nil
	}

	out := filepath.Join(t.TempDir(), "run", "000_bigram_hello-world_ep1_1000.mp4")
	require.NoError(t, f.Extract(context.Background(), "ep1", 1, 6, out))
	assert.Equal(t, "/usr/bin/ffmpeg", gotName)
	assert.Equal(t, out, gotArgs[len(gotArgs)-1])
	assert.DirExists(t, filepath.Dir(out))

	assert.Error(t, f.Extract(context.Background(), "ep1", 6, 6, out))
	assert.Error(t, f.Extract(context.Background(), "ghost", 1, 2, out))

	f.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("boom"), errors.New("exit status 1")
	}
	assert.ErrorContains(t, f.Extract(context.Background(), "ep1", 1, 2, out), "exit status 1")
}
