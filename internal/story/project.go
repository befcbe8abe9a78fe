// Package story loads a prepared project directory: the story manifest,
// the per-segment still images, the narration track and, when present, the
// word-timestamp transcription. All assets are expected to exist already;
// nothing here talks to a network.
package story

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/jpeg"
	_ "image/png"

	"github.com/arisris/ai-video-generator/internal/kenburns"
	"github.com/arisris/ai-video-generator/internal/subtitle"
	"github.com/arisris/ai-video-generator/internal/timeline"
)

// Manifest mirrors the story.json produced by the story generator.
type Manifest struct {
	Title    string            `json:"title"`
	Lang     string            `json:"lang"`
	Segments []ManifestSegment `json:"segments"`
}

// ManifestSegment is one narrative beat in the manifest. Duration is
// optional; a zero duration means "derive from the narration track".
type ManifestSegment struct {
	Narration   string  `json:"voice_prompt"`
	ImagePrompt string  `json:"image_prompt"`
	Duration    float64 `json:"duration,omitempty"`
}

// Project is a fully loaded render input set.
type Project struct {
	Title      string
	Lang       string
	Narrations []string
	Images     []image.Image
	Durations  []float64 // nil when the manifest omits them
	AudioPath  string
	Words      []subtitle.Word // nil triggers block-subtitle mode
}

// Load reads a project directory laid out as story.json, images/image_N.jpg,
// audio/narration.mp3 and optionally subtitles/narration.json.
func Load(dir string) (*Project, error) {
	manifest, err := loadManifest(filepath.Join(dir, "story.json"))
	if err != nil {
		return nil, err
	}
	if len(manifest.Segments) == 0 {
		return nil, fmt.Errorf("story %q has no segments", manifest.Title)
	}

	project := &Project{
		Title: manifest.Title,
		Lang:  manifest.Lang,
	}

	haveDurations := true
	for i, seg := range manifest.Segments {
		img, err := loadImage(filepath.Join(dir, "images", fmt.Sprintf("image_%d.jpg", i+1)))
		if err != nil {
			return nil, err
		}
		project.Images = append(project.Images, img)
		project.Narrations = append(project.Narrations, seg.Narration)
		if seg.Duration <= 0 {
			haveDurations = false
		}
	}
	if haveDurations {
		for _, seg := range manifest.Segments {
			project.Durations = append(project.Durations, seg.Duration)
		}
	}

	project.AudioPath = filepath.Join(dir, "audio", "narration.mp3")
	if _, err := os.Stat(project.AudioPath); err != nil {
		return nil, fmt.Errorf("narration audio missing: %w", err)
	}

	transcript := filepath.Join(dir, "subtitles", "narration.json")
	if f, err := os.Open(transcript); err == nil {
		defer f.Close()
		words, err := ParseWhisper(f)
		if err != nil {
			return nil, fmt.Errorf("transcript %s: %w", transcript, err)
		}
		project.Words = words
	}

	return project, nil
}

// SegmentSpecs builds the timeline input. Explicit manifest durations win;
// otherwise the narration duration is split evenly across segments, the
// original alignment behavior. Motion is derived from the project seed and
// segment index so re-renders reproduce identical animation.
func (p *Project) SegmentSpecs(seed int64, audioDuration float64) ([]timeline.SegmentSpec, error) {
	durations := p.Durations
	if durations == nil {
		if audioDuration <= 0 {
			return nil, fmt.Errorf("audio duration %.3f is not positive", audioDuration)
		}
		per := audioDuration / float64(len(p.Narrations))
		for range p.Narrations {
			durations = append(durations, per)
		}
	}

	specs := make([]timeline.SegmentSpec, len(p.Narrations))
	for i := range p.Narrations {
		specs[i] = timeline.SegmentSpec{
			Narration: p.Narrations[i],
			Image:     p.Images[i],
			Duration:  durations[i],
			Motion:    kenburns.MotionFor(seed, i),
		}
	}
	return specs, nil
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}
