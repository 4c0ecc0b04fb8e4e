// Package remote pushes the finished video to the post-processing host and
// triggers the host's processing command.
//
// Uploads use SFTP and commands use an SSH exec session. The two may listen
// on different ports. Every call dials, works, and closes its own
// connection; nothing is pooled between calls.
package remote
