// Package preflight provides readiness checks for the filesystem paths,
// binaries, and remote endpoints that streamdigest depends on.
//
// These checks run in two contexts:
//   - "streamdigest watch" calls RunAll at startup and refuses to watch the
//     inbox while a check fails, so manifests are not consumed by a run that
//     cannot deliver.
//   - The CLI "streamdigest preflight" command prints every result.
//
// Remote checks are gated by remote.enabled; disabled features are skipped.
package preflight
