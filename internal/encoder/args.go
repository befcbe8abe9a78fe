package encoder

import (
	"fmt"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/arisris/ai-video-generator/pkg/util"
)

// buildArgs compiles the encode graph into ffmpeg arguments. The video
// stream is packed RGBA on stdin; the narration (optionally delayed and
// mixed with a looped music bed) is the audio stream. The temp target gets
// an explicit mp4 muxer since its extension carries no format hint.
func buildArgs(opts Options, target string) []string {
	video := ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"framerate": fmt.Sprintf("%.3f", opts.FPS),
	})

	audio := ffmpeg.Input(opts.AudioPath).Audio()
	if opts.AudioDelay > 0 {
		delay := fmt.Sprintf("%dms:all=1", int(opts.AudioDelay*1000))
		audio = audio.Filter("adelay", ffmpeg.Args{delay})
	}

	if opts.MusicPath != "" {
		volume := opts.MusicVolume
		if volume <= 0 {
			volume = 0.15
		}
		musicKwargs := ffmpeg.KwArgs{"stream_loop": -1}
		if opts.MusicOffset > 0 {
			musicKwargs["ss"] = util.FormatSeconds(opts.MusicOffset)
		}
		music := ffmpeg.Input(opts.MusicPath, musicKwargs).
			Audio().
			Filter("volume", ffmpeg.Args{fmt.Sprintf("%.2f", volume)})
		audio = ffmpeg.Filter([]*ffmpeg.Stream{audio, music}, "amix", ffmpeg.Args{},
			ffmpeg.KwArgs{"inputs": 2, "duration": "first"})
	}

	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}

	kwargs := ffmpeg.KwArgs{
		"f":        "mp4",
		"c:v":      "libx264",
		"pix_fmt":  "yuv420p",
		"crf":      opts.CRF,
		"preset":   preset,
		"c:a":      "aac",
		"b:a":      "192k",
		"movflags": "+faststart",
	}
	if opts.Duration > 0 {
		kwargs["t"] = util.FormatSeconds(opts.Duration)
	}

	out := ffmpeg.Output([]*ffmpeg.Stream{video, audio}, target, kwargs)

	return out.GetArgs()
}
