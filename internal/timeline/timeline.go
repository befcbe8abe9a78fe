// Package timeline holds the immutable playback model: ordered segments,
// the crossfade transitions binding them, and the derived time windows.
package timeline

import (
	"fmt"
	"image"

	"github.com/arisris/ai-video-generator/internal/kenburns"
)

// DefaultOverlap is the default crossfade duration in seconds.
const DefaultOverlap = 1.0

// InvalidTimelineError reports malformed segment or transition input. It is
// a caller bug: surfaced immediately, never retried.
type InvalidTimelineError struct {
	Reason string
}

func (e *InvalidTimelineError) Error() string {
	return "invalid timeline: " + e.Reason
}

// SegmentSpec is the caller-supplied description of one narrative beat.
type SegmentSpec struct {
	Narration string
	Image     image.Image
	Duration  float64
	Motion    kenburns.Motion
}

// Segment is one narrative beat placed on the timeline. The still image is
// owned exclusively by the segment for the timeline's lifetime.
type Segment struct {
	Index     int
	Narration string
	Image     image.Image
	Start     float64
	Duration  float64
	Motion    kenburns.Motion
}

// End returns the segment's end time within the timeline.
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// LocalTime maps a timeline timestamp into the segment's own [0, 1] window.
func (s Segment) LocalTime(t float64) float64 {
	if s.Duration <= 0 {
		return 0
	}
	local := (t - s.Start) / s.Duration
	if local < 0 {
		return 0
	}
	if local > 1 {
		return 1
	}
	return local
}

// Transition is a crossfade binding two adjacent segments.
type Transition struct {
	Overlap float64
}

// Timeline is the ordered sequence of segments plus transitions. Immutable
// once built.
type Timeline struct {
	segments    []Segment
	transitions []Transition
	total       float64
}

// Build constructs a timeline from finalized segment durations. Segments
// are contiguous: segment i starts where segment i-1 ends, minus the
// transition overlap.
func Build(specs []SegmentSpec, overlap float64) (*Timeline, error) {
	if len(specs) < 2 {
		return nil, &InvalidTimelineError{
			Reason: fmt.Sprintf("need at least 2 segments, got %d", len(specs)),
		}
	}
	if overlap < 0 {
		return nil, &InvalidTimelineError{
			Reason: fmt.Sprintf("transition overlap %.3f is negative", overlap),
		}
	}

	for i, spec := range specs {
		if spec.Duration <= 0 {
			return nil, &InvalidTimelineError{
				Reason: fmt.Sprintf("segment %d duration %.3f is not positive", i, spec.Duration),
			}
		}
	}
	for i := 0; i < len(specs)-1; i++ {
		if overlap > specs[i].Duration || overlap > specs[i+1].Duration {
			return nil, &InvalidTimelineError{
				Reason: fmt.Sprintf("overlap %.3f exceeds duration of segment %d or %d", overlap, i, i+1),
			}
		}
	}

	segments := make([]Segment, len(specs))
	transitions := make([]Transition, len(specs)-1)

	start := 0.0
	for i, spec := range specs {
		segments[i] = Segment{
			Index:     i,
			Narration: spec.Narration,
			Image:     spec.Image,
			Start:     start,
			Duration:  spec.Duration,
			Motion:    spec.Motion,
		}
		start += spec.Duration - overlap
	}
	for i := range transitions {
		transitions[i] = Transition{Overlap: overlap}
	}

	last := segments[len(segments)-1]
	return &Timeline{
		segments:    segments,
		transitions: transitions,
		total:       last.End(),
	}, nil
}

// Len returns the number of segments.
func (tl *Timeline) Len() int {
	return len(tl.segments)
}

// Segments returns the ordered segments.
func (tl *Timeline) Segments() []Segment {
	return tl.segments
}

// Segment returns the segment at index i.
func (tl *Timeline) Segment(i int) Segment {
	return tl.segments[i]
}

// Overlap returns the crossfade duration between segments i and i+1.
func (tl *Timeline) Overlap(i int) float64 {
	return tl.transitions[i].Overlap
}

// Window returns the [start, end) window of segment i.
func (tl *Timeline) Window(i int) (start, end float64) {
	seg := tl.segments[i]
	return seg.Start, seg.End()
}

// TotalDuration is the sum of segment durations minus transition overlaps.
func (tl *Timeline) TotalDuration() float64 {
	return tl.total
}

// OwnerAt returns the index of the segment that owns timestamp t: the
// earliest segment whose window has not yet ended. Timestamps outside
// [0, total) clamp to the first or last segment.
func (tl *Timeline) OwnerAt(t float64) int {
	for i, seg := range tl.segments {
		if t < seg.End() {
			return i
		}
	}
	return len(tl.segments) - 1
}
