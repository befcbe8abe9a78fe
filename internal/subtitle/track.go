// Package subtitle builds time-keyed subtitle cues and renders them onto
// frames. Every instant of the timeline resolves to exactly one cue: word
// gaps and uncovered segments fall back to the segment's block cue.
package subtitle

import (
	"sort"
	"strings"

	"github.com/arisris/ai-video-generator/internal/timeline"
)

// Mode selects between per-segment block cues and per-word karaoke cues.
type Mode int

const (
	// ModeBlock shows each segment's full narration line for its window.
	ModeBlock Mode = iota
	// ModeWord progressively reveals words in sync with word timestamps.
	ModeWord
)

func (m Mode) String() string {
	if m == ModeWord {
		return "word"
	}
	return "block"
}

// Word is a single recognized word with its timestamp window. Index is the
// word's position within its owning segment.
type Word struct {
	Text  string
	Start float64
	End   float64
	Index int
}

// WordState is one word of the active cue with its highlight state.
type WordState struct {
	Text      string
	Spoken    bool
	Highlight bool
}

// State is what should be rendered at a given instant. In block rendering
// Words is nil and Text carries the full narration line. In karaoke
// rendering Words holds the revealed words in order.
type State struct {
	Segment int
	Text    string
	Words   []WordState
}

// segmentCues pairs a segment's always-available block cue with whatever
// word timestamps fell inside its window.
type segmentCues struct {
	text  string
	start float64
	end   float64
	words []Word
}

// Track is the subtitle source for one render session. It is rebuilt each
// run and immutable afterwards.
type Track struct {
	mode     Mode
	segments []segmentCues
	total    float64
}

// NewBlockTrack builds a track with one block cue per segment.
func NewBlockTrack(tl *timeline.Timeline) *Track {
	track := &Track{mode: ModeBlock, total: tl.TotalDuration()}
	for _, seg := range tl.Segments() {
		track.segments = append(track.segments, segmentCues{
			text:  seg.Narration,
			start: seg.Start,
			end:   seg.End(),
		})
	}
	return track
}

// NewWordTrack builds a karaoke track from a flat ordered word-timestamp
// sequence spanning the whole narration. Words are partitioned into
// segments by containment of their start time within the segment window.
// Words with no owning window are dropped; a segment left without words
// keeps only its block cue.
func NewWordTrack(tl *timeline.Timeline, words []Word) *Track {
	track := NewBlockTrack(tl)
	track.mode = ModeWord

	sorted := make([]Word, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" || w.End <= w.Start {
			continue
		}
		sorted = append(sorted, w)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	for _, w := range sorted {
		i := track.ownerOf(w.Start)
		if i < 0 {
			continue
		}
		seg := &track.segments[i]
		w.Text = strings.TrimSpace(w.Text)
		w.Index = len(seg.words)
		// cues within one segment never overlap
		if n := len(seg.words); n > 0 && w.Start < seg.words[n-1].End {
			w.Start = seg.words[n-1].End
			if w.End <= w.Start {
				continue
			}
		}
		// clamp the span into the segment window
		if w.End > seg.end {
			w.End = seg.end
		}
		seg.words = append(seg.words, w)
	}

	return track
}

// Mode returns the track's subtitle mode.
func (t *Track) Mode() Mode {
	return t.mode
}

// TotalDuration returns the covered timeline duration.
func (t *Track) TotalDuration() float64 {
	return t.total
}

// Words returns segment i's word cues.
func (t *Track) Words(i int) []Word {
	return t.segments[i].words
}

// ownerOf returns the index of the segment whose [start, end) window
// contains t, or -1.
func (t *Track) ownerOf(ts float64) int {
	for i, seg := range t.segments {
		if ts >= seg.start && ts < seg.end {
			return i
		}
	}
	return -1
}

// ActiveAt answers what should be rendered at timestamp t. Coverage is
// total: timestamps outside [0, total) clamp to the nearest segment, and a
// karaoke gap resolves to the owning segment's block cue, never to nothing.
//
// Karaoke policy is reveal-as-you-go: finished words render as spoken, the
// word containing t renders highlighted, later words stay hidden.
func (t *Track) ActiveAt(ts float64) State {
	idx := t.clampOwner(ts)
	seg := t.segments[idx]

	if t.mode == ModeWord && len(seg.words) > 0 {
		if states, ok := revealAt(seg.words, ts); ok {
			return State{Segment: idx, Words: states}
		}
	}

	return State{Segment: idx, Text: seg.text}
}

func (t *Track) clampOwner(ts float64) int {
	for i, seg := range t.segments {
		if ts < seg.end {
			return i
		}
	}
	return len(t.segments) - 1
}

// revealAt builds the reveal-as-you-go word states. ok is false when no
// word's span contains ts, which triggers the block-cue fallback.
func revealAt(words []Word, ts float64) ([]WordState, bool) {
	active := -1
	for i, w := range words {
		if ts >= w.Start && ts < w.End {
			active = i
			break
		}
	}
	if active < 0 {
		return nil, false
	}

	states := make([]WordState, 0, active+1)
	for i := 0; i <= active; i++ {
		states = append(states, WordState{
			Text:      words[i].Text,
			Spoken:    i < active,
			Highlight: i == active,
		})
	}
	return states, true
}
