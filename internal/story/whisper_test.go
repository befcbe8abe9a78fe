package story

import (
	"strings"
	"testing"
)

func TestParseWhisper(t *testing.T) {
	input := `{
		"segments": [
			{"words": [
				{"word": " Once", "start": 0.0, "end": 0.4},
				{"word": " upon", "start": 0.4, "end": 0.8},
				{"word": "   ", "start": 0.8, "end": 1.0},
				{"word": " a", "start": 1.2, "end": 1.1}
			]},
			{"words": [
				{"word": " time", "start": 1.2, "end": 1.7}
			]}
		]
	}`

	words, err := ParseWhisper(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseWhisper failed: %v", err)
	}

	want := []string{"Once", "upon", "time"}
	if len(words) != len(want) {
		t.Fatalf("got %d words, want %d", len(words), len(want))
	}
	for i, w := range words {
		if w.Text != want[i] {
			t.Errorf("word %d = %q, want %q", i, w.Text, want[i])
		}
	}
	if words[2].Start != 1.2 || words[2].End != 1.7 {
		t.Errorf("word spans not preserved: %+v", words[2])
	}
}

func TestParseWhisperEmpty(t *testing.T) {
	words, err := ParseWhisper(strings.NewReader(`{"segments": []}`))
	if err != nil {
		t.Fatalf("ParseWhisper failed: %v", err)
	}
	if words != nil {
		t.Errorf("got %d words, want none", len(words))
	}
}

func TestParseWhisperMalformed(t *testing.T) {
	if _, err := ParseWhisper(strings.NewReader(`{"segments": [`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
