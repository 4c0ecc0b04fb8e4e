// Package screenshots captures one still frame per transcript segment.
//
// Each artifact is named after its segment's 1-based position so the name
// alone identifies which piece of speech it illustrates. Failures are
// per-segment: a frame that cannot be grabbed is logged and counted, and the
// remaining segments still run. Capture may fan out across a bounded worker
// pool but the returned artifacts are always in segment order.
package screenshots
