package encoder

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Progress represents one ffmpeg progress report block.
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	OutTime string
	Speed   string
}

// scanProgress parses the key=value blocks emitted by "-progress pipe:2"
// and hands each completed block to the handler. Non-progress lines go to
// the log handler.
func scanProgress(r io.Reader, handler func(*Progress), logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	current := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "frame="):
			fmt.Sscanf(line, "frame=%d", &current.Frame)
		case strings.HasPrefix(line, "fps="):
			fmt.Sscanf(line, "fps=%f", &current.FPS)
		case strings.HasPrefix(line, "bitrate="):
			current.Bitrate = valueOf(line)
		case strings.HasPrefix(line, "out_time="):
			current.OutTime = valueOf(line)
		case strings.HasPrefix(line, "speed="):
			current.Speed = valueOf(line)
		case strings.HasPrefix(line, "progress="):
			// end of a progress block
			if handler != nil && current.Frame > 0 {
				handler(current)
			}
			current = &Progress{}
		default:
			if logHandler != nil && line != "" {
				logHandler(line)
			}
		}
	}
}

func valueOf(line string) string {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
