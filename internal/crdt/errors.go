package crdt

import "errors"

var (
	// ErrRootNotFound names a lookup of a root that does not exist. The
	// root accessors in this package create a missing root instead of
	// returning it.
	ErrRootNotFound = errors.New("crdt: root not found")
	// ErrRootKindMismatch is returned when a root is looked up as the
	// wrong container kind (e.g. GetArray on a name created as a map).
	ErrRootKindMismatch = errors.New("crdt: root exists with a different kind")
	// ErrClosedTxn is the panic value raised when a WriteTxn is used after
	// its Doc.TransactWith call has returned.
	ErrClosedTxn = errors.New("crdt: transaction already committed")
	// ErrInvalidUpdate is returned by ApplyUpdate when the encoded
	// update cannot be parsed.
	ErrInvalidUpdate = errors.New("crdt: invalid update payload")
)
