package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/arisris/ai-video-generator/internal/encoder"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Output settings
	Output OutputConfig `yaml:"output"`

	// Render settings
	Render RenderConfig `yaml:"render"`

	// Subtitle settings
	Subtitles SubtitleConfig `yaml:"subtitles"`

	// Music settings
	Music MusicConfig `yaml:"music"`
}

type OutputConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"fps"`
	CRF    int     `yaml:"crf"`
	Preset string  `yaml:"preset"`
}

type RenderConfig struct {
	Workers           int     `yaml:"workers"`
	TransitionOverlap float64 `yaml:"transition_overlap"`
	Padding           float64 `yaml:"padding"`
	Fade              float64 `yaml:"fade"`
	Seed              int64   `yaml:"seed"`
}

type SubtitleConfig struct {
	FontPath       string  `yaml:"font_path" env:"GENVIDEO_FONT_PATH"`
	FontSize       float64 `yaml:"font_size"`
	Color          string  `yaml:"color"`
	HighlightColor string  `yaml:"highlight_color"`
	Position       string  `yaml:"position"`
}

type MusicConfig struct {
	Path   string  `yaml:"path"`
	Volume float64 `yaml:"volume"`
	Offset string  `yaml:"offset"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		applyEnv(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Width:  720,
			Height: 1280,
			FPS:    30,
			CRF:    encoder.DefaultCRF,
			Preset: encoder.DefaultPreset,
		},
		Render: RenderConfig{
			Workers:           0,
			TransitionOverlap: 1.0,
			Padding:           5.0,
			Fade:              1.0,
			Seed:              5000,
		},
		Subtitles: SubtitleConfig{
			FontSize:       40,
			Color:          "white",
			HighlightColor: "yellow",
			Position:       "bottom",
		},
		Music: MusicConfig{
			Volume: 0.15,
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GENVIDEO_FONT_PATH"); v != "" {
		cfg.Subtitles.FontPath = v
	}
	if v := os.Getenv("GENVIDEO_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Render.Workers = n
		}
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".genvideo", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
