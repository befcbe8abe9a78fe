// Package render drives frame sampling, parallel compositing and the
// encoder into a single finished video file.
package render

import (
	"container/heap"
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/arisris/ai-video-generator/internal/compose"
	"github.com/arisris/ai-video-generator/internal/encoder"
	"github.com/arisris/ai-video-generator/internal/logging"
	"github.com/arisris/ai-video-generator/internal/subtitle"
	"github.com/arisris/ai-video-generator/internal/timeline"
)

// Options configures one render run.
type Options struct {
	Timeline  *timeline.Timeline
	Track     *subtitle.Track
	Subtitles *subtitle.Renderer

	AudioPath   string
	MusicPath   string
	MusicVolume float64
	MusicOffset float64

	Width  int
	Height int
	FPS    float64

	// Padding adds a quiet lead-in/lead-out showing the first/last frame,
	// fading from/to black over Fade seconds. Narration starts after the
	// lead-in.
	Padding float64
	Fade    float64

	Workers int
	CRF     int
	Preset  string

	OutputPath string
}

// Pipeline renders timelines into video files.
type Pipeline struct {
	logger zerolog.Logger
	enc    *encoder.Encoder
}

// New creates a render pipeline around an encoder.
func New(logger zerolog.Logger, enc *encoder.Encoder) *Pipeline {
	return &Pipeline{
		logger: logging.WithComponent(logger, "render"),
		enc:    enc,
	}
}

// Render samples frames at the configured rate across the whole timeline,
// computes them on a bounded worker pool, reorders them by frame index and
// feeds them with the narration audio into the encoder. Exactly one output
// file is written; any failure or cancellation leaves nothing behind.
func (p *Pipeline) Render(ctx context.Context, opts Options) error {
	if opts.Timeline == nil {
		return &timeline.InvalidTimelineError{Reason: "no timeline supplied"}
	}
	if opts.Subtitles == nil {
		return fmt.Errorf("subtitle renderer is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("output resolution %dx%d is not positive", opts.Width, opts.Height)
	}

	if opts.Track == nil {
		opts.Track = subtitle.NewBlockTrack(opts.Timeline)
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	comp := compose.New(opts.Timeline, opts.Width, opts.Height)
	sess := newSession(comp, opts.Track, opts.FPS, opts.Padding, opts.Fade)
	frameCount := sess.frameCount()

	p.logger.Info().
		Int("segments", opts.Timeline.Len()).
		Float64("duration", opts.Timeline.TotalDuration()).
		Str("mode", opts.Track.Mode().String()).
		Int("frames", frameCount).
		Int("workers", opts.Workers).
		Str("output", opts.OutputPath).
		Msg("starting render")

	started := time.Now()

	pr, pw := io.Pipe()

	g, gctx := errgroup.WithContext(ctx)

	jobs := make(chan int)
	results := make(chan *frameResult, opts.Workers*2)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < frameCount; i++ {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var workers sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			// font faces are stateful, so every worker draws through
			// its own renderer
			subs, err := opts.Subtitles.Clone()
			if err != nil {
				return &RenderError{Stage: "frames", Err: err}
			}
			for idx := range jobs {
				res := &frameResult{index: idx, data: sess.frame(idx, subs)}
				select {
				case results <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	g.Go(func() error {
		err := p.writeOrdered(gctx, results, pw, frameCount)
		if err != nil {
			pw.CloseWithError(err)
			return err
		}
		return pw.Close()
	})

	g.Go(func() error {
		defer pr.Close()
		err := p.enc.Encode(gctx, pr, encoder.Options{
			Width:       opts.Width,
			Height:      opts.Height,
			FPS:         opts.FPS,
			AudioPath:   opts.AudioPath,
			AudioDelay:  opts.Padding,
			MusicPath:   opts.MusicPath,
			MusicVolume: opts.MusicVolume,
			MusicOffset: opts.MusicOffset,
			Duration:    2*opts.Padding + opts.Timeline.TotalDuration(),
			CRF:         opts.CRF,
			Preset:      opts.Preset,
			Output:      opts.OutputPath,
			Progress: func(prog *encoder.Progress) {
				p.logger.Debug().
					Int("frame", prog.Frame).
					Str("speed", prog.Speed).
					Msg("encoding")
			},
		})
		if err != nil {
			return &RenderError{Stage: "encode", Err: err}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	p.logger.Info().
		Str("output", opts.OutputPath).
		Dur("elapsed", time.Since(started)).
		Msg("render completed")
	return nil
}

// writeOrdered drains computed frames and writes them to the encoder
// strictly by ascending index, buffering out-of-order arrivals in a
// min-heap. Progress logging is throttled so it never dominates at frame
// rate.
func (p *Pipeline) writeOrdered(ctx context.Context, results <-chan *frameResult, w io.Writer, frameCount int) error {
	pending := &frameHeap{}
	heap.Init(pending)

	limiter := rate.NewLimiter(rate.Every(2*time.Second), 1)

	next := 0
	for next < frameCount {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return &RenderError{
					Stage: "reorder",
					Err:   fmt.Errorf("frame stream ended at %d of %d", next, frameCount),
				}
			}
			heap.Push(pending, res)
			for pending.Len() > 0 && (*pending)[0].index == next {
				frame := heap.Pop(pending).(*frameResult)
				if _, err := w.Write(frame.data); err != nil {
					return &RenderError{Stage: "write", Err: err}
				}
				next++
			}
			if limiter.Allow() {
				p.logger.Info().
					Int("frame", next).
					Int("total", frameCount).
					Msg("rendering frames")
			}
		}
	}
	return nil
}
