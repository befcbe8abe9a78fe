package render

import (
	"github.com/arisris/ai-video-generator/internal/compose"
	"github.com/arisris/ai-video-generator/internal/subtitle"
)

// session holds everything a frame computation reads. All of it is
// immutable for the whole render, so frames for different timestamps can be
// computed concurrently without locking. The subtitle renderer is not part
// of the session: font faces are stateful, so each worker draws through its
// own clone.
type session struct {
	comp  *compose.Compositor
	track *subtitle.Track

	fps     float64
	padding float64
	fade    float64
	total   float64

	// static frames shown during the intro/outro padding
	introBase []byte
	outroBase []byte
}

func newSession(comp *compose.Compositor, track *subtitle.Track, fps, padding, fade float64) *session {
	s := &session{
		comp:    comp,
		track:   track,
		fps:     fps,
		padding: padding,
		fade:    fade,
		total:   comp.Timeline().TotalDuration(),
	}
	if padding > 0 {
		s.introBase = comp.FrameAt(0).Pix
		s.outroBase = comp.FrameAt(s.total).Pix
	}
	return s
}

// frameCount covers [0, padding + total + padding) at the session rate.
func (s *session) frameCount() int {
	count := int((2*s.padding + s.total) * s.fps)
	if count < 1 {
		count = 1
	}
	return count
}

// frame computes the packed RGBA bytes for output frame idx. Padding frames
// show the first/last story frame with a fade from/to black; story frames
// are composited and get the active subtitle burned in through subs, which
// must be private to the calling goroutine.
func (s *session) frame(idx int, subs *subtitle.Renderer) []byte {
	t := float64(idx) / s.fps
	storyT := t - s.padding

	switch {
	case storyT < 0:
		return fadeToBlack(s.introBase, s.fadeIn(t))
	case storyT >= s.total:
		remaining := 2*s.padding + s.total - t
		return fadeToBlack(s.outroBase, s.fadeIn(remaining))
	default:
		img := s.comp.FrameAt(storyT)
		subs.Draw(img, s.track.ActiveAt(storyT))
		return img.Pix
	}
}

// fadeIn maps distance from the stream edge to a brightness factor.
func (s *session) fadeIn(edgeDistance float64) float64 {
	if s.fade <= 0 {
		return 1
	}
	f := edgeDistance / s.fade
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// fadeToBlack scales the color channels of a packed RGBA buffer, leaving
// alpha untouched. Always copies, so shared padding bases stay pristine.
func fadeToBlack(src []byte, factor float64) []byte {
	out := make([]byte, len(src))
	if factor >= 1 {
		copy(out, src)
		return out
	}
	for i := 0; i < len(src); i += 4 {
		out[i] = uint8(float64(src[i]) * factor)
		out[i+1] = uint8(float64(src[i+1]) * factor)
		out[i+2] = uint8(float64(src[i+2]) * factor)
		out[i+3] = src[i+3]
	}
	return out
}
