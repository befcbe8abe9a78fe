package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/arisris/ai-video-generator/internal/config"
	"github.com/arisris/ai-video-generator/internal/encoder"
	"github.com/arisris/ai-video-generator/internal/logging"
	"github.com/arisris/ai-video-generator/internal/render"
	"github.com/arisris/ai-video-generator/internal/story"
	"github.com/arisris/ai-video-generator/internal/subtitle"
	"github.com/arisris/ai-video-generator/internal/timeline"
	"github.com/arisris/ai-video-generator/pkg/util"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "genvideo",
	Short: "genvideo - short story video renderer",
	Long:  "Renders prepared story assets (images, narration, transcript) into a vertical video with pan/zoom motion, crossfades and burned-in subtitles.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Optional .env overrides
		_ = godotenv.Load()

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

var (
	outputPath     string
	seed           int64
	musicPath      string
	musicVolume    float64
	musicOffset    string
	fontPath       string
	fontSize       float64
	fontColor      string
	highlightColor string
	position       string
	overlap        float64
	padding        float64
	fps            float64
	workers        int
	forceBlock     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: <story-title>.mp4)")
	renderCmd.Flags().Int64Var(&seed, "seed", 0, "animation seed (default: from config)")
	renderCmd.Flags().StringVar(&musicPath, "music", "", "background music file")
	renderCmd.Flags().Float64Var(&musicVolume, "music-volume", 0, "background music volume (default: from config)")
	renderCmd.Flags().StringVar(&musicOffset, "music-offset", "", "seek into the music bed (SS, MM:SS or HH:MM:SS.mmm)")
	renderCmd.Flags().StringVar(&fontPath, "font", "", "subtitle font file (.ttf)")
	renderCmd.Flags().Float64Var(&fontSize, "font-size", 0, "subtitle font size in pixels")
	renderCmd.Flags().StringVar(&fontColor, "font-color", "", "subtitle color (name or #RRGGBB)")
	renderCmd.Flags().StringVar(&highlightColor, "highlight-color", "", "karaoke highlight color")
	renderCmd.Flags().StringVar(&position, "position", "", "subtitle position (top, center, bottom)")
	renderCmd.Flags().Float64Var(&overlap, "overlap", -1, "crossfade overlap seconds")
	renderCmd.Flags().Float64Var(&padding, "padding", -1, "intro/outro padding seconds")
	renderCmd.Flags().Float64Var(&fps, "fps", 0, "output frame rate")
	renderCmd.Flags().IntVar(&workers, "workers", 0, "frame worker count (default: CPU count)")
	renderCmd.Flags().BoolVar(&forceBlock, "block", false, "force per-segment subtitles even when a transcript exists")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(probeCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render [project dir]",
	Short: "Render a prepared story project into a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)
		applyFlags(cfg)

		if cfg.Music.Path != "" && !util.FileExists(cfg.Music.Path) {
			return fmt.Errorf("music file not found: %s", cfg.Music.Path)
		}
		var offset float64
		if cfg.Music.Offset != "" {
			d, err := util.ParseTimestamp(cfg.Music.Offset)
			if err != nil {
				return err
			}
			offset = d.Seconds()
		}

		project, err := story.Load(args[0])
		if err != nil {
			return err
		}

		log.Info().
			Str("title", project.Title).
			Int("segments", len(project.Narrations)).
			Bool("transcript", project.Words != nil).
			Msg("project loaded")

		enc, err := encoder.New(log.Logger)
		if err != nil {
			return err
		}

		audioDuration := 0.0
		if project.Durations == nil {
			audioDuration, err = enc.ProbeDuration(ctx, project.AudioPath)
			if err != nil {
				return err
			}
			log.Debug().Float64("duration", audioDuration).Msg("narration probed")
		}

		specs, err := project.SegmentSpecs(cfg.Render.Seed, audioDuration)
		if err != nil {
			return err
		}

		tl, err := timeline.Build(specs, cfg.Render.TransitionOverlap)
		if err != nil {
			return err
		}

		track := subtitle.NewBlockTrack(tl)
		if len(project.Words) > 0 && !forceBlock {
			track = subtitle.NewWordTrack(tl, project.Words)
		}

		renderer, err := buildSubtitleRenderer(cfg, track)
		if err != nil {
			return err
		}

		out := outputPath
		if out == "" {
			out = util.Slugify(project.Title) + ".mp4"
			if out == ".mp4" {
				out = "untitled-video.mp4"
			}
		} else if util.GetExtension(out) == "" {
			out += ".mp4"
		}
		if dir := filepath.Dir(out); dir != "." {
			if err := util.EnsureDir(dir); err != nil {
				return err
			}
		}

		pipe := render.New(log.Logger, enc)
		return pipe.Render(ctx, render.Options{
			Timeline:    tl,
			Track:       track,
			Subtitles:   renderer,
			AudioPath:   project.AudioPath,
			MusicPath:   cfg.Music.Path,
			MusicVolume: cfg.Music.Volume,
			MusicOffset: offset,
			Width:       cfg.Output.Width,
			Height:      cfg.Output.Height,
			FPS:         cfg.Output.FPS,
			Padding:     cfg.Render.Padding,
			Fade:        cfg.Render.Fade,
			Workers:     cfg.Render.Workers,
			CRF:         cfg.Output.CRF,
			Preset:      cfg.Output.Preset,
			OutputPath:  out,
		})
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [media file]",
	Short: "Print a media file's duration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enc, err := encoder.New(log.Logger)
		if err != nil {
			return err
		}

		duration, err := enc.ProbeDuration(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\t%.3fs\n", args[0], duration)
		return nil
	},
}

// applyFlags overlays non-default flag values onto the loaded config.
func applyFlags(cfg *config.Config) {
	if seed != 0 {
		cfg.Render.Seed = seed
	}
	if musicPath != "" {
		cfg.Music.Path = musicPath
	}
	if musicVolume > 0 {
		cfg.Music.Volume = musicVolume
	}
	if musicOffset != "" {
		cfg.Music.Offset = musicOffset
	}
	if fontPath != "" {
		cfg.Subtitles.FontPath = fontPath
	}
	if fontSize > 0 {
		cfg.Subtitles.FontSize = fontSize
	}
	if fontColor != "" {
		cfg.Subtitles.Color = fontColor
	}
	if highlightColor != "" {
		cfg.Subtitles.HighlightColor = highlightColor
	}
	if position != "" {
		cfg.Subtitles.Position = position
	}
	if overlap >= 0 {
		cfg.Render.TransitionOverlap = overlap
	}
	if padding >= 0 {
		cfg.Render.Padding = padding
	}
	if fps > 0 {
		cfg.Output.FPS = fps
	}
	if workers > 0 {
		cfg.Render.Workers = workers
	}
}

func buildSubtitleRenderer(cfg *config.Config, track *subtitle.Track) (*subtitle.Renderer, error) {
	if cfg.Subtitles.FontPath == "" {
		return nil, fmt.Errorf("subtitle font is required (--font or subtitles.font_path)")
	}

	data, err := os.ReadFile(cfg.Subtitles.FontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	// the parsed font is shareable, faces are not: render workers clone
	// the renderer and build one face each
	newFace := func() (font.Face, error) {
		return opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    cfg.Subtitles.FontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}
	face, err := newFace()
	if err != nil {
		return nil, fmt.Errorf("failed to build font face: %w", err)
	}

	baseColor, err := subtitle.ParseColor(cfg.Subtitles.Color)
	if err != nil {
		return nil, err
	}
	highlight, err := subtitle.ParseColor(cfg.Subtitles.HighlightColor)
	if err != nil {
		return nil, err
	}
	pos, err := subtitle.ParsePosition(cfg.Subtitles.Position)
	if err != nil {
		return nil, err
	}

	style := subtitle.Style{
		Face:      face,
		NewFace:   newFace,
		Color:     baseColor,
		Highlight: highlight,
		Position:  pos,
	}
	// block cues carry an outline for readability over bright frames
	if track.Mode() == subtitle.ModeBlock {
		black, _ := subtitle.ParseColor("black")
		style.Outline = black
	}

	return subtitle.NewRenderer(style), nil
}
