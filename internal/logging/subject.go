package logging

import "strings"

// FormatSubject builds the run/phase/batch subject string used in console output.
func FormatSubject(runID, phase, batch string) string {
	runID = strings.TrimSpace(runID)
	phase = strings.TrimSpace(phase)
	batch = strings.TrimSpace(batch)
	parts := make([]string, 0, 3)
	if runID != "" {
		if len(runID) > 8 {
			runID = runID[:8]
		}
		parts = append(parts, "run "+runID)
	}
	switch {
	case phase != "" && batch != "":
		parts = append(parts, phase+" #"+batch)
	case phase != "":
		parts = append(parts, phase)
	case batch != "":
		parts = append(parts, "batch #"+batch)
	}
	return strings.Join(parts, " · ")
}
