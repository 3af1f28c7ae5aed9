// Package kv defines the minimal ordered key-value capability the
// persistence layer needs from its storage engine.
package kv

// Entry is a single key/value pair returned from a range scan.
type Entry struct {
	Key   []byte
	Value []byte
}

// Store is the ordered KV capability consumed by internal/persistence.
// Keys are compared byte-lexicographically, which is what lets the fixed
// -prefix schema in internal/persistence/schema address whole documents
// and update ranges with simple prefix/bound scans.
type Store interface {
	// Get returns the value at key, or ok == false if key is absent.
	Get(key []byte) (value []byte, ok bool, err error)
	// Put writes value at key, overwriting any existing value.
	Put(key, value []byte) error
	// Delete removes key. It is not an error if key was already absent.
	Delete(key []byte) error
	// DeleteRange removes every key in [from, to): from inclusive, to
	// exclusive.
	DeleteRange(from, to []byte) error
	// Range calls fn for every key in [from, to) in ascending key order,
	// stopping early if fn returns false.
	Range(from, to []byte, fn func(Entry) bool) error
	// NextBackEntry returns the entry with the greatest key <= upper, or
	// ok == false if no such entry exists. It is used to find the
	// highest-clock update row below a bound without a full scan.
	NextBackEntry(upper []byte) (entry Entry, ok bool, err error)
}

// Txn is a single read-write unit of work against a Store. Writes made
// through a Txn become visible only once WithWriteTxn's callback returns
// without error, matching the original's TransactionMut semantics.
type Txn interface {
	Store
}

// DB opens write and read-only transactions over the underlying engine.
type DB interface {
	// WithWriteTxn runs fn inside a read-write transaction, committing on
	// a nil return and rolling back otherwise.
	WithWriteTxn(fn func(Txn) error) error
	// WithReadTxn runs fn inside a read-only transaction.
	WithReadTxn(fn func(Txn) error) error
	// Close releases the underlying engine resources.
	Close() error
}
