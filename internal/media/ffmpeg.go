package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"phrasecut/log"

	"go.uber.org/zap"
)

// Extractor is the media capability the clip pipeline needs.
type Extractor interface {
	Duration(ctx context.Context, source string) (float64, error)
	Extract(ctx context.Context, source string, start, end float64, outPath string) error
}

// RunFunc executes a command and returns its combined output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpeg extracts clips with ffmpeg and reads durations with ffprobe.
// Durations are cached per source.
type FFmpeg struct {
	FfmpegPath  string
	FfprobePath string
	Registry    *Registry
	// Reencode trades speed for frame-accurate cuts; stream copy snaps to
	// keyframes.
	Reencode bool
	Run      RunFunc

	durations sync.Map
}

func NewFFmpeg(ffmpegPath, ffprobePath string, registry *Registry) *FFmpeg {
	return &FFmpeg{
		FfmpegPath:  ffmpegPath,
		FfprobePath: ffprobePath,
		Registry:    registry,
		Run:         runCommand,
	}
}

func (f *FFmpeg) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if f.Run != nil {
		return f.Run(ctx, name, args...)
	}
	return runCommand(ctx, name, args...)
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the container duration of source's media file.
func (f *FFmpeg) Duration(ctx context.Context, source string) (float64, error) {
	if cached, ok := f.durations.Load(source); ok {
		return cached.(float64), nil
	}
	path, err := f.Registry.Path(source)
	if err != nil {
		return 0, err
	}

	output, err := f.run(ctx, binaryOr(f.FfprobePath, "ffprobe"),
		"-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}
	var probe probeResult
	if err = json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("ffprobe parse %s: %w", path, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("ffprobe %s: no usable duration %q", path, probe.Format.Duration)
	}
	f.durations.Store(source, seconds)
	return seconds, nil
}

// Extract writes [start, end) of source's media to outPath, overwriting it.
func (f *FFmpeg) Extract(ctx context.Context, source string, start, end float64, outPath string) error {
	if end <= start {
		return fmt.Errorf("extract %s: empty window [%.3f, %.3f]", source, start, end)
	}
	input, err := f.Registry.Path(source)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(outPath), os.ModePerm); err != nil {
		return fmt.Errorf("create clip dir: %w", err)
	}

	args := ExtractArgs(input, start, end, outPath, f.Reencode)
	if output, err := f.run(ctx, binaryOr(f.FfmpegPath, "ffmpeg"), args...); err != nil {
		log.GetLogger().Error("ffmpeg extract failed",
			zap.String("source", source),
			zap.String("output", outPath),
			zap.String("ffmpeg", strings.TrimSpace(string(output))),
			zap.Error(err))
		return fmt.Errorf("ffmpeg %s: %w", source, err)
	}
	return nil
}

// ExtractArgs builds the ffmpeg arguments for one clip.
func ExtractArgs(input string, start, end float64, outPath string, reencode bool) []string {
	// Input seeking resets timestamps, so the window is given as a length.
	args := []string{
		"-y", "-ss", seconds(start),
		"-i", input,
		"-t", seconds(end - start),
	}
	if reencode {
		args = append(args, "-c:v", "libx264", "-c:a", "aac")
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, "-avoid_negative_ts", "1", outPath)
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func binaryOr(path, fallback string) string {
	if path = strings.TrimSpace(path); path != "" {
		return path
	}
	return fallback
}
