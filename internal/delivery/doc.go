// Package delivery sends composed messages in order and pushes the finished
// video to the remote host.
//
// The Orchestrator owns no transport code. Mail submission, file transfer,
// and remote command execution are capabilities handed in at construction so
// tests can substitute fakes. Each message gets exactly one attempt; a failed
// message is recorded and the next one is still tried. The remote phase runs
// independently of how notification went.
package delivery
