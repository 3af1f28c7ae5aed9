package persistence

import "errors"

var (
	// ErrDuplicateUpdateKey is returned by PushUpdate if the computed
	// clock already has an update row (a programming error: clocks are
	// meant to be allocated exactly once per append).
	ErrDuplicateUpdateKey = errors.New("persistence: duplicate update key")
	// ErrInvalidData is returned when a stored update or state payload
	// fails to decode or apply.
	ErrInvalidData = errors.New("persistence: invalid data")
	// ErrDocNotFound is returned when an object id has no DocID mapping.
	ErrDocNotFound = errors.New("persistence: document not found")
	// ErrCorruption is returned by Open when the underlying store fails
	// to open in a way consistent with on-disk corruption and
	// auto-repair is disabled.
	ErrCorruption = errors.New("persistence: store corruption detected")
	// ErrRepairFailed is returned by Open when auto-repair was attempted
	// and still could not bring the store back online.
	ErrRepairFailed = errors.New("persistence: automatic repair failed")
)
