// Package batching splits an ordered list of screenshot artifacts into
// contiguous groups that each fit a per-email attachment budget.
//
// Grouping is greedy and order preserving. An artifact larger than the
// budget on its own is never dropped: it becomes a singleton batch flagged
// as oversized so delivery can still try it.
package batching
