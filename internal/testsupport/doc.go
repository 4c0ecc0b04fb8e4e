// Package testsupport provides shared helpers for package tests: temp-dir
// backed configs, stub binaries on PATH, sized fixture files, and a
// self-cleaning ledger.
package testsupport
