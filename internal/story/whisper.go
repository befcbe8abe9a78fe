package story

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/arisris/ai-video-generator/internal/subtitle"
)

// whisperResult matches the JSON written by the whisper CLI with word
// timestamps enabled. Only the word spans matter here; the model run
// itself is an external concern.
type whisperResult struct {
	Segments []struct {
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"words"`
	} `json:"segments"`
}

// ParseWhisper flattens a whisper transcription into the ordered word
// sequence consumed by the subtitle synchronizer. An empty result is not
// an error; the caller falls back to block subtitles.
func ParseWhisper(r io.Reader) ([]subtitle.Word, error) {
	var result whisperResult
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %w", err)
	}

	var words []subtitle.Word
	for _, seg := range result.Segments {
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" || w.End <= w.Start {
				continue
			}
			words = append(words, subtitle.Word{
				Text:  text,
				Start: w.Start,
				End:   w.End,
			})
		}
	}
	return words, nil
}
