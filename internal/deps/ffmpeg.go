package deps

import "strings"

// CheckFFmpeg reports the ffmpeg executable a run will use. An empty binary
// means "ffmpeg" on PATH.
func CheckFFmpeg(binary string) Status {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return Resolve("FFmpeg", binary, "Required for screenshots and subtitle burn-in")
}
