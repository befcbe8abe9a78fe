package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math/rand"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/arisris/ai-video-generator/internal/compose"
	"github.com/arisris/ai-video-generator/internal/encoder"
	"github.com/arisris/ai-video-generator/internal/kenburns"
	"github.com/arisris/ai-video-generator/internal/subtitle"
	"github.com/arisris/ai-video-generator/internal/timeline"
)

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func testTimeline(t *testing.T) *timeline.Timeline {
	t.Helper()
	tl, err := timeline.Build([]timeline.SegmentSpec{
		{Narration: "first", Image: solidImage(96, 96, color.RGBA{200, 40, 40, 255}), Duration: 2, Motion: kenburns.MotionFor(5000, 0)},
		{Narration: "second", Image: solidImage(96, 96, color.RGBA{40, 40, 200, 255}), Duration: 2, Motion: kenburns.MotionFor(5000, 1)},
	}, 0.5)
	if err != nil {
		t.Fatalf("failed to build timeline: %v", err)
	}
	return tl
}

func testRenderer() *subtitle.Renderer {
	return subtitle.NewRenderer(subtitle.Style{Face: basicfont.Face7x13})
}

func TestRenderValidation(t *testing.T) {
	p := New(zerolog.Nop(), nil)

	err := p.Render(context.Background(), Options{})
	var tlErr *timeline.InvalidTimelineError
	if !errors.As(err, &tlErr) {
		t.Errorf("missing timeline: got %v, want InvalidTimelineError", err)
	}

	tl := testTimeline(t)

	if err := p.Render(context.Background(), Options{Timeline: tl}); err == nil {
		t.Error("expected error when subtitle renderer is missing")
	}

	err = p.Render(context.Background(), Options{Timeline: tl, Subtitles: testRenderer()})
	if err == nil {
		t.Error("expected error when output path is missing")
	}

	err = p.Render(context.Background(), Options{
		Timeline:   tl,
		Subtitles:  testRenderer(),
		OutputPath: "out.mp4",
		Width:      0,
		Height:     64,
	})
	if err == nil {
		t.Error("expected error for non-positive resolution")
	}
}

func TestWriteOrderedReordersFrames(t *testing.T) {
	p := New(zerolog.Nop(), nil)

	const frameCount = 40
	order := rand.New(rand.NewSource(1)).Perm(frameCount)

	results := make(chan *frameResult, frameCount)
	for _, idx := range order {
		results <- &frameResult{index: idx, data: []byte{byte(idx)}}
	}
	close(results)

	var buf bytes.Buffer
	if err := p.writeOrdered(context.Background(), results, &buf, frameCount); err != nil {
		t.Fatalf("writeOrdered failed: %v", err)
	}

	got := buf.Bytes()
	if len(got) != frameCount {
		t.Fatalf("wrote %d bytes, want %d", len(got), frameCount)
	}
	for i, b := range got {
		if int(b) != i {
			t.Fatalf("frame %d out of order: got payload %d", i, b)
		}
	}
}

func TestWriteOrderedShortStream(t *testing.T) {
	p := New(zerolog.Nop(), nil)

	results := make(chan *frameResult, 2)
	results <- &frameResult{index: 0, data: []byte{0}}
	close(results)

	var buf bytes.Buffer
	err := p.writeOrdered(context.Background(), results, &buf, 3)
	var rerr *RenderError
	if !errors.As(err, &rerr) || rerr.Stage != "reorder" {
		t.Fatalf("got %v, want reorder RenderError", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteOrderedWriteFailure(t *testing.T) {
	p := New(zerolog.Nop(), nil)

	results := make(chan *frameResult, 1)
	results <- &frameResult{index: 0, data: []byte{0}}
	close(results)

	err := p.writeOrdered(context.Background(), results, failingWriter{}, 1)
	var rerr *RenderError
	if !errors.As(err, &rerr) || rerr.Stage != "write" {
		t.Fatalf("got %v, want write RenderError", err)
	}
}

func TestSessionFrames(t *testing.T) {
	tl := testTimeline(t)
	sess := newSession(compose.New(tl, 96, 96), subtitle.NewBlockTrack(tl), 10, 1, 0.5)
	subs := testRenderer()

	// 1s intro + 3.5s story + 1s outro at 10 fps
	if got, want := sess.frameCount(), 55; got != want {
		t.Fatalf("frameCount = %d, want %d", got, want)
	}

	// frame 0 is at the stream edge and must be fully black
	first := sess.frame(0, subs)
	if len(first) != 96*96*4 {
		t.Fatalf("frame size = %d, want %d", len(first), 96*96*4)
	}
	for i := 0; i < len(first); i += 4 {
		if first[i] != 0 || first[i+1] != 0 || first[i+2] != 0 {
			t.Fatal("intro edge frame is not black")
		}
		if first[i+3] != 255 {
			t.Fatal("fade must not touch alpha")
		}
	}

	// a frame past the fade window shows the story's first frame unscaled
	lit := sess.frame(9, subs) // t=0.9, 0.1s before the story starts
	if bytes.Equal(lit, first) {
		t.Error("late intro frame should no longer be black")
	}

	// story frames carry pixels from the composited source image
	story := sess.frame(15, subs) // storyT=0.5, inside the first red segment
	var sawRed bool
	for i := 0; i < len(story); i += 4 {
		if story[i] > 150 && story[i+2] < 100 {
			sawRed = true
			break
		}
	}
	if !sawRed {
		t.Error("story frame does not show the segment image")
	}
}

func TestSessionNoPadding(t *testing.T) {
	tl := testTimeline(t)
	sess := newSession(compose.New(tl, 96, 96), subtitle.NewBlockTrack(tl), 10, 0, 0)

	if got, want := sess.frameCount(), 35; got != want {
		t.Fatalf("frameCount = %d, want %d", got, want)
	}
	if sess.introBase != nil || sess.outroBase != nil {
		t.Error("padding bases should not be precomputed without padding")
	}
}

// Opentype faces mutate an internal buffer per glyph call, so concurrent
// workers sharing one face corrupt glyphs or crash under the race detector.
// Each worker must draw through its own renderer clone.
func TestConcurrentWorkersUseIsolatedFaces(t *testing.T) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		t.Fatalf("failed to parse font: %v", err)
	}
	newFace := func() (font.Face, error) {
		return opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    24,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}
	face, err := newFace()
	if err != nil {
		t.Fatalf("failed to build face: %v", err)
	}
	renderer := subtitle.NewRenderer(subtitle.Style{Face: face, NewFace: newFace})

	tl := testTimeline(t)
	sess := newSession(compose.New(tl, 96, 96), subtitle.NewBlockTrack(tl), 10, 0, 0)
	frameCount := sess.frameCount()

	const workers = 4
	errs := make(chan error, workers)
	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for i := 0; i < frameCount; i++ {
			jobs <- i
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subs, err := renderer.Clone()
			if err != nil {
				errs <- err
				return
			}
			for idx := range jobs {
				if got := sess.frame(idx, subs); len(got) != 96*96*4 {
					errs <- fmt.Errorf("frame %d has %d bytes", idx, len(got))
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestRenderIntegration(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	audio := makeSilence(t, dir)
	output := filepath.Join(dir, "story.mp4")

	enc, err := encoder.New(zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}

	p := New(zerolog.Nop(), enc)
	err = p.Render(context.Background(), Options{
		Timeline:   testTimeline(t),
		Subtitles:  testRenderer(),
		AudioPath:  audio,
		Width:      96,
		Height:     96,
		FPS:        10,
		Workers:    2,
		OutputPath: output,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	dur, err := enc.ProbeDuration(context.Background(), output)
	if err != nil {
		t.Fatalf("failed to probe output: %v", err)
	}
	if dur < 3.0 || dur > 4.0 {
		t.Errorf("output duration = %v, want ~3.5", dur)
	}
}

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

func makeSilence(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "silence.wav")
	cmd := exec.Command("ffmpeg", "-y", "-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono", "-t", "1", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to synthesize silence: %v\n%s", err, out)
	}
	return path
}
