package subtitle

import (
	"image"
	"testing"

	"github.com/arisris/ai-video-generator/internal/timeline"
)

func buildTimeline(t *testing.T, narrations []string, durations []float64, overlap float64) *timeline.Timeline {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	specs := make([]timeline.SegmentSpec, len(narrations))
	for i := range narrations {
		specs[i] = timeline.SegmentSpec{
			Narration: narrations[i],
			Image:     img,
			Duration:  durations[i],
		}
	}
	tl, err := timeline.Build(specs, overlap)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return tl
}

func TestBlockTrack(t *testing.T) {
	tl := buildTimeline(t, []string{"first line", "second line"}, []float64{2.0, 2.0}, 0)
	track := NewBlockTrack(tl)

	if track.Mode() != ModeBlock {
		t.Errorf("mode = %v, want block", track.Mode())
	}

	if st := track.ActiveAt(1.0); st.Text != "first line" || st.Segment != 0 {
		t.Errorf("ActiveAt(1.0) = %+v, want first segment block", st)
	}
	if st := track.ActiveAt(2.5); st.Text != "second line" || st.Segment != 1 {
		t.Errorf("ActiveAt(2.5) = %+v, want second segment block", st)
	}
}

func TestWordTrackKaraokeScenario(t *testing.T) {
	tl := buildTimeline(t, []string{"Hello world", "the end"}, []float64{2.0, 2.0}, 0)
	track := NewWordTrack(tl, []Word{
		{Text: "Hello", Start: 0.0, End: 0.5},
		{Text: "world", Start: 0.6, End: 1.1},
	})

	if track.Mode() != ModeWord {
		t.Fatalf("mode = %v, want word", track.Mode())
	}

	// inside the first word: only it is revealed, highlighted
	st := track.ActiveAt(0.3)
	if len(st.Words) != 1 {
		t.Fatalf("ActiveAt(0.3) revealed %d words, want 1", len(st.Words))
	}
	if st.Words[0].Text != "Hello" || !st.Words[0].Highlight {
		t.Errorf("ActiveAt(0.3) = %+v, want highlighted Hello", st.Words[0])
	}

	// inside the second word: first is spoken, second highlighted
	st = track.ActiveAt(0.8)
	if len(st.Words) != 2 {
		t.Fatalf("ActiveAt(0.8) revealed %d words, want 2", len(st.Words))
	}
	if !st.Words[0].Spoken || st.Words[0].Highlight {
		t.Errorf("first word state = %+v, want spoken", st.Words[0])
	}
	if st.Words[1].Text != "world" || !st.Words[1].Highlight {
		t.Errorf("second word state = %+v, want highlighted world", st.Words[1])
	}

	// in the gap after the last word, fall back to the block cue
	st = track.ActiveAt(1.5)
	if st.Words != nil {
		t.Errorf("gap should fall back to block rendering, got words %+v", st.Words)
	}
	if st.Text != "Hello world" {
		t.Errorf("gap fallback text = %q, want segment narration", st.Text)
	}

	// a segment with no word coverage keeps its block cue
	st = track.ActiveAt(3.0)
	if st.Text != "the end" || st.Words != nil {
		t.Errorf("uncovered segment = %+v, want block cue", st)
	}
}

func TestWordGapBetweenWords(t *testing.T) {
	tl := buildTimeline(t, []string{"a b", "c"}, []float64{2.0, 2.0}, 0)
	track := NewWordTrack(tl, []Word{
		{Text: "a", Start: 0.0, End: 0.3},
		{Text: "b", Start: 1.0, End: 1.3},
	})

	// mid-segment silence resolves to the block cue, never to nothing
	st := track.ActiveAt(0.6)
	if st.Text != "a b" || st.Words != nil {
		t.Errorf("mid-word gap = %+v, want block fallback", st)
	}
}

func TestCoverageIsTotal(t *testing.T) {
	tl := buildTimeline(t, []string{"one", "two", "three"}, []float64{2.0, 3.0, 2.0}, 0.5)

	tracks := map[string]*Track{
		"block": NewBlockTrack(tl),
		"word": NewWordTrack(tl, []Word{
			{Text: "one", Start: 0.2, End: 0.9},
			{Text: "two", Start: 2.0, End: 2.8},
		}),
	}

	for name, track := range tracks {
		total := track.TotalDuration()
		for ts := 0.0; ts < total; ts += 0.05 {
			st := track.ActiveAt(ts)
			if st.Text == "" && len(st.Words) == 0 {
				t.Fatalf("%s track: no active cue at t=%v", name, ts)
			}
		}
	}
}

func TestWordPartitioning(t *testing.T) {
	tl := buildTimeline(t, []string{"s0", "s1"}, []float64{2.0, 2.0}, 0)
	track := NewWordTrack(tl, []Word{
		{Text: "early", Start: 0.3, End: 0.6},
		{Text: "late", Start: 2.2, End: 2.6},
		{Text: "", Start: 2.7, End: 2.8},           // blank, dropped
		{Text: "outside", Start: 9.0, End: 9.5},    // no owning window, dropped
		{Text: "straddle", Start: 1.8, End: 2.4},   // owned by start, clamped to the window
		{Text: "inverted", Start: 1.0, End: 0.5},   // bad span, dropped
	})

	first := track.Words(0)
	if len(first) != 2 {
		t.Fatalf("segment 0 got %d words, want 2", len(first))
	}
	if first[0].Index != 0 || first[1].Index != 1 {
		t.Errorf("word indices not re-based per segment: %+v", first)
	}
	straddle := first[1]
	if straddle.Text != "straddle" || straddle.End > 2.0 {
		t.Errorf("straddling word not clamped to window: %+v", straddle)
	}

	second := track.Words(1)
	if len(second) != 1 || second[0].Text != "late" {
		t.Fatalf("segment 1 words = %+v, want just 'late'", second)
	}
}

func TestWordOverlapsResolved(t *testing.T) {
	tl := buildTimeline(t, []string{"s0", "s1"}, []float64{4.0, 2.0}, 0)
	track := NewWordTrack(tl, []Word{
		{Text: "first", Start: 0.0, End: 1.0},
		{Text: "second", Start: 0.8, End: 1.6}, // overlapping start pushed forward
	})

	words := track.Words(0)
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if words[1].Start < words[0].End {
		t.Errorf("cues overlap in time: %+v", words)
	}

	// exactly one word is active at any instant
	for ts := 0.0; ts < 1.6; ts += 0.01 {
		active := 0
		for _, w := range words {
			if ts >= w.Start && ts < w.End {
				active++
			}
		}
		if active > 1 {
			t.Fatalf("more than one word active at t=%v", ts)
		}
	}
}

func TestTrackDeterminism(t *testing.T) {
	tl := buildTimeline(t, []string{"s0", "s1"}, []float64{2.0, 2.0}, 0)
	words := []Word{
		{Text: "a", Start: 0.1, End: 0.4},
		{Text: "b", Start: 0.5, End: 0.9},
	}

	a := NewWordTrack(tl, words)
	b := NewWordTrack(tl, words)
	for ts := 0.0; ts < a.TotalDuration(); ts += 0.1 {
		sa := a.ActiveAt(ts)
		sb := b.ActiveAt(ts)
		if sa.Text != sb.Text || len(sa.Words) != len(sb.Words) {
			t.Fatalf("tracks diverge at t=%v: %+v vs %+v", ts, sa, sb)
		}
	}
}
