package syncproto

import (
	"errors"
	"fmt"
)

// SyncError taxonomy per spec §7: decoding and transaction-apply
// failures surface as typed errors, never as panics, so a session can
// log and continue (or abort) rather than crash the process.
var (
	// ErrDecoding is wrapped by Decode, DecodeStateVector and ReadFrame's
	// size check. Failures applying a decoded update wrap ErrTransaction
	// instead.
	ErrDecoding = errors.New("syncproto: decoding error")
	// ErrUnsupportedTag is returned when a custom tag arrives that the
	// session has no handler registered for.
	ErrUnsupportedTag = errors.New("syncproto: unsupported tag")
	// ErrTransaction wraps a failure applying a decoded update to the
	// document (spec's Error::YrsTransaction).
	ErrTransaction = errors.New("syncproto: transaction error")
)

// PermissionDeniedError is returned when the peer's Auth message denies
// the session (spec §4.5.2 step 4).
type PermissionDeniedError struct {
	Reason string
}

func (e *PermissionDeniedError) Error() string {
	if e.Reason == "" {
		return "syncproto: permission denied"
	}
	return fmt.Sprintf("syncproto: permission denied: %s", e.Reason)
}
