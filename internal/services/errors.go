package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")

	// ErrMalformedSegment marks transcript segments with negative or inverted timing.
	ErrMalformedSegment = errors.New("malformed segment")
	// ErrCaptureFailure marks a single frame capture that produced no artifact.
	ErrCaptureFailure = errors.New("capture failure")
	// ErrAttachmentRead marks a screenshot whose bytes could not be read for embedding.
	ErrAttachmentRead = errors.New("attachment read failure")
	// ErrDeliveryFailure marks a notification message the transport did not accept.
	ErrDeliveryFailure = errors.New("delivery failure")
	// ErrRemoteTransfer marks a failed artifact push to the remote store.
	ErrRemoteTransfer = errors.New("remote transfer failure")
	// ErrRemoteCommand marks a failed remote post-processing command.
	ErrRemoteCommand = errors.New("remote command failure")
)

// Wrap builds an error message that includes phase context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the marker carried by err, used in receipts
// and the run ledger.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedSegment):
		return "malformed_segment"
	case errors.Is(err, ErrCaptureFailure):
		return "capture_failure"
	case errors.Is(err, ErrAttachmentRead):
		return "attachment_read_failure"
	case errors.Is(err, ErrDeliveryFailure):
		return "delivery_failure"
	case errors.Is(err, ErrRemoteTransfer):
		return "remote_transfer_failure"
	case errors.Is(err, ErrRemoteCommand):
		return "remote_command_failure"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "transient"
	}
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
