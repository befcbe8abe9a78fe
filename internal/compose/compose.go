// Package compose blends adjacent animated segments into one continuous
// visual stream.
package compose

import (
	"image"

	"github.com/arisris/ai-video-generator/internal/kenburns"
	"github.com/arisris/ai-video-generator/internal/timeline"
)

// Compositor answers "what does the video look like at time t". It holds no
// mutable state: any timestamp can be sampled in any order, so frames can be
// computed in parallel.
type Compositor struct {
	tl      *timeline.Timeline
	sampler kenburns.Sampler
}

// New creates a compositor producing frames at the given output resolution.
func New(tl *timeline.Timeline, width, height int) *Compositor {
	return &Compositor{
		tl:      tl,
		sampler: kenburns.Sampler{Width: width, Height: height},
	}
}

// Timeline returns the timeline being composited.
func (c *Compositor) Timeline() *timeline.Timeline {
	return c.tl
}

// BlendAt resolves timestamp t against the transition windows. When t falls
// strictly inside the overlap between segment i and i+1, blending is true
// and alpha is the mix fraction of segment i+1, clamped to [0, 1]. A zero
// overlap is a hard cut: blending is never reported for it.
func (c *Compositor) BlendAt(t float64) (i int, alpha float64, blending bool) {
	for k := 0; k < c.tl.Len()-1; k++ {
		overlap := c.tl.Overlap(k)
		if overlap <= 0 {
			continue
		}
		overlapStart := c.tl.Segment(k + 1).Start
		overlapEnd := c.tl.Segment(k).End()
		if t > overlapStart && t < overlapEnd {
			alpha = (t - overlapStart) / overlap
			if alpha < 0 {
				alpha = 0
			}
			if alpha > 1 {
				alpha = 1
			}
			return k, alpha, true
		}
	}
	return c.tl.OwnerAt(t), 0, false
}

// FrameAt returns the fully composited visual sample for timestamp t. Each
// segment is sampled with its own local-time mapping; inside a transition
// the two samples are alpha blended.
func (c *Compositor) FrameAt(t float64) *image.RGBA {
	i, alpha, blending := c.BlendAt(t)

	first := c.tl.Segment(i)
	a := c.sampler.Sample(first.Image, first.Motion, first.LocalTime(t))
	if !blending {
		return a
	}

	second := c.tl.Segment(i + 1)
	b := c.sampler.Sample(second.Image, second.Motion, second.LocalTime(t))
	return blend(a, b, alpha)
}

// blend mixes two equally sized RGBA frames: out = (1-alpha)*a + alpha*b.
func blend(a, b *image.RGBA, alpha float64) *image.RGBA {
	out := image.NewRGBA(a.Bounds())
	inv := 1 - alpha
	for i := range out.Pix {
		out.Pix[i] = uint8(inv*float64(a.Pix[i]) + alpha*float64(b.Pix[i]) + 0.5)
	}
	return out
}
