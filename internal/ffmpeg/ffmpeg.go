package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Tool runs ffmpeg commands with a fixed binary and frame quality.
type Tool struct {
	Binary  string
	Quality int
}

// New returns a Tool for binary. An empty binary resolves to "ffmpeg" on PATH.
func New(binary string, quality int) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if quality <= 0 {
		quality = 2
	}
	return &Tool{Binary: binary, Quality: quality}
}

// CaptureFrame writes the single frame at seconds into dest as a JPEG.
func (t *Tool) CaptureFrame(ctx context.Context, video string, seconds float64, dest string) error {
	if seconds < 0 {
		return fmt.Errorf("capture frame: negative timestamp %v", seconds)
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(seconds, 'f', 3, 64),
		"-i", video,
		"-frames:v", "1",
		"-q:v", strconv.Itoa(t.Quality),
		"-y",
		dest,
	}
	cmd := exec.CommandContext(ctx, t.Binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg capture: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// BurnOptions describes a subtitle burn-in.
type BurnOptions struct {
	Video        string
	Subtitles    string
	Output       string
	ForceStyle   string
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
}

// BurnSubtitles renders the subtitle track onto the video frames and writes
// a new file. The command runs inside the subtitle directory so the filter
// argument only needs the file's base name.
func (t *Tool) BurnSubtitles(ctx context.Context, opts BurnOptions) error {
	if opts.Video == "" || opts.Subtitles == "" || opts.Output == "" {
		return fmt.Errorf("burn subtitles: video, subtitles, and output are required")
	}
	video, err := filepath.Abs(opts.Video)
	if err != nil {
		return fmt.Errorf("burn subtitles: resolve video: %w", err)
	}
	output, err := filepath.Abs(opts.Output)
	if err != nil {
		return fmt.Errorf("burn subtitles: resolve output: %w", err)
	}
	cmd := exec.CommandContext(ctx, t.Binary, BurnArgs(video, filepath.Base(opts.Subtitles), output, opts)...) //nolint:gosec
	cmd.Dir = filepath.Dir(opts.Subtitles)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg burn: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// BurnArgs builds the ffmpeg argument list for a burn-in. subtitleName is
// resolved relative to the command's working directory.
func BurnArgs(video, subtitleName, output string, opts BurnOptions) []string {
	filter := "subtitles=" + escapeFilterValue(subtitleName)
	if style := strings.TrimSpace(opts.ForceStyle); style != "" {
		filter += ":force_style='" + style + "'"
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", video,
		"-vf", filter,
	}
	if opts.VideoCodec != "" {
		args = append(args, "-c:v", opts.VideoCodec)
	}
	if opts.AudioCodec != "" {
		args = append(args, "-c:a", opts.AudioCodec)
	}
	if opts.AudioBitrate != "" {
		args = append(args, "-b:a", opts.AudioBitrate)
	}
	return append(args, "-y", output)
}

// escapeFilterValue quotes characters the filtergraph parser treats as
// separators.
func escapeFilterValue(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`,`, `\,`,
		`[`, `\[`,
		`]`, `\]`,
		`;`, `\;`,
	)
	return replacer.Replace(value)
}
