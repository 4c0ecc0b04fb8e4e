// Package pipeline runs one job end to end.
//
// A run moves through fixed phases:
//
//	formatted -> screenshotted -> partitioned -> notifying(i) ... -> remote_pushed -> done
//
// A failed batch advances to the next batch and a failed remote push
// advances to done. Only a transcript rejected under the abort policy, or a
// setup failure before any output exists, ends a run early. Nothing is rolled
// back: every artifact written before a failure stays on disk. Each
// transition is logged with the run ID and recorded in the ledger.
//
// A workspace file lock keeps two runs (for example the watcher and a manual
// "process") from writing the same output tree at once.
package pipeline
