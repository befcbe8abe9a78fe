// Package encoder turns an ordered raw frame stream plus audio inputs into
// one H.264 container file via ffmpeg.
package encoder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arisris/ai-video-generator/internal/logging"
	"github.com/arisris/ai-video-generator/pkg/util"
)

// Default encoding settings. The balanced preset keeps output deterministic
// for identical inputs.
const (
	DefaultCRF    = 23
	DefaultPreset = "medium"
)

// Options configures one encode run.
type Options struct {
	Width  int
	Height int
	FPS    float64

	// AudioPath is the narration track. AudioDelay shifts it right by the
	// intro padding, in seconds.
	AudioPath  string
	AudioDelay float64

	// MusicPath optionally loops a music bed under the narration at
	// MusicVolume (0..1], starting MusicOffset seconds into the track.
	MusicPath   string
	MusicVolume float64
	MusicOffset float64

	// Duration bounds the container so a narration track longer than the
	// frame stream cannot stretch the output.
	Duration float64

	// CRF is passed to x264 as given; 0 means lossless. Callers wanting
	// the usual default take it from config.
	CRF    int
	Preset string

	Output string

	Progress func(*Progress)
}

// Encoder executes ffmpeg with raw RGBA frames on stdin.
type Encoder struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
}

// New locates the ffmpeg and ffprobe binaries.
func New(logger zerolog.Logger) (*Encoder, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Encoder{
		logger:      logging.WithComponent(logger, "encoder"),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

// Encode consumes packed RGBA frames from frames until EOF and writes one
// finished file at opts.Output. It writes to a hidden temp path in the same
// directory and renames on success, so a failed or cancelled encode never
// leaves a partial output in place.
func (e *Encoder) Encode(ctx context.Context, frames io.Reader, opts Options) error {
	if err := validateOptions(opts); err != nil {
		return fmt.Errorf("invalid encode options: %w", err)
	}

	dir := filepath.Dir(opts.Output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")

	args := append(baseArgs(), buildArgs(opts, tmp)...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stdin = frames

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanProgress(stderr, opts.Progress, func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("encode output")
		})
	}()

	waitErr := cmd.Wait()
	<-done

	if waitErr != nil {
		util.CleanupFiles(tmp)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg execution failed: %w", waitErr)
	}
	if ctx.Err() != nil {
		util.CleanupFiles(tmp)
		return ctx.Err()
	}

	if err := os.Rename(tmp, opts.Output); err != nil {
		util.CleanupFiles(tmp)
		return fmt.Errorf("failed to finalize output: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("encode completed")
	return nil
}

func baseArgs() []string {
	return []string{"-hide_banner", "-loglevel", "error", "-progress", "pipe:2", "-y"}
}

func validateOptions(opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("output resolution %dx%d is not positive", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("fps %.2f is not positive", opts.FPS)
	}
	if opts.AudioPath == "" {
		return fmt.Errorf("audio path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.CRF < 0 || opts.CRF > 51 {
		return fmt.Errorf("CRF must be between 0 and 51")
	}
	return nil
}
