// Package main hosts the streamdigest CLI entrypoint and command graph.
//
// The Cobra command tree runs single jobs from flags or manifests, watches an
// inbox directory, prints run history from the ledger, and scaffolds
// configuration. Configuration resolution and logger setup live here so
// subcommands stay declarative; the pipeline itself lives in internal/.
package main
