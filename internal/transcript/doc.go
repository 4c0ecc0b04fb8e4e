// Package transcript holds time-aligned transcript segments and renders them
// into the SubRip subtitle track consumed by the burn-in step.
//
// Rendering is deterministic: the same segment sequence always produces the
// same bytes. Timestamps use the fixed HH:MM:SS,mmm form with unbounded hours.
// Segments with negative or inverted timing are either rejected as a group
// (abort policy, the default) or dropped with a report (skip policy).
package transcript
