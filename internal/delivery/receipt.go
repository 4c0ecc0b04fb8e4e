package delivery

// Status is the outcome of one message.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Receipt records what happened to one batch.
type Receipt struct {
	BatchIndex int
	BatchTotal int
	Status     Status
	Reason     string
	Images     int
	Skipped    int
}

// Receipts is the ordered outcome of a notification pass.
type Receipts []Receipt

// Sent counts delivered batches.
func (r Receipts) Sent() int {
	n := 0
	for _, receipt := range r {
		if receipt.Status == StatusSent {
			n++
		}
	}
	return n
}

// Failed counts batches that were not delivered.
func (r Receipts) Failed() int {
	return len(r) - r.Sent()
}

// RemoteStatus is the outcome of the remote phase.
type RemoteStatus string

const (
	RemoteOK             RemoteStatus = "ok"
	RemoteSkipped        RemoteStatus = "skipped"
	RemoteTransferFailed RemoteStatus = "transfer_failed"
	RemoteCommandFailed  RemoteStatus = "command_failed"
)

// RemoteResult records the remote phase.
type RemoteResult struct {
	Status     RemoteStatus
	RemotePath string
	Uploaded   bool
	CommandRan bool
	Output     CommandOutput
	Err        error
}
