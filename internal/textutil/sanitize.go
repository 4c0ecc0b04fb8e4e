package textutil

import "strings"

// fileNameReplacer maps characters that are unsafe in paths, or awkward in
// ffmpeg filter arguments, to safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"'", "",
	"<", "",
	">", "",
	"|", "",
	"[", "(",
	"]", ")",
	";", "-",
)

// SanitizeFileName returns name as a single safe path segment. Runs of
// whitespace collapse to one space and leading dots are dropped so the
// result is never hidden. An empty result becomes fallback.
func SanitizeFileName(name, fallback string) string {
	name = strings.Join(strings.Fields(fileNameReplacer.Replace(name)), " ")
	name = strings.TrimLeft(name, ".")
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return name
}
