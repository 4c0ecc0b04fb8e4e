// Package services defines shared utilities consumed by the pipeline phases
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, phase names, and batch indices for
//     logging.
//   - Structured error markers plus the Wrap helper so each failure kind
//     (malformed segment, capture, attachment read, delivery, remote transfer,
//     remote command) stays classifiable with errors.Is after wrapping.
//
// Use these helpers when wiring new phase logic so failure isolation and
// observability stay uniform across the pipeline.
package services
