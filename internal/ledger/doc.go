// Package ledger persists run history in SQLite.
//
// Each pipeline run gets a row in runs, updated as the run moves through its
// phases, and one row per notification batch in receipts. The watcher also
// records which inbox manifests it has already handled so restarts do not
// resend mail. Writes retry briefly on SQLITE_BUSY since the CLI and a
// running watcher may share the database.
package ledger
