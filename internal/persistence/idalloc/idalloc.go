// Package idalloc mints the monotonically increasing DocID/SnapshotID
// values used throughout internal/persistence/schema, mirroring the
// original's DocIDGen counter: ids are handed out in increasing order
// and never reused, so encoding them big-endian keeps the persisted
// document ranges lexicographically ordered by creation time.
package idalloc

import "sync/atomic"

// Allocator hands out strictly increasing uint64 ids starting after a
// seed value recovered from the store at open time.
type Allocator struct {
	next uint64
}

// NewAllocator returns an Allocator that will hand out seed+1 as its
// first id. Callers seed it with the highest id already present in
// storage (0 for a fresh database) so ids never collide across restarts.
func NewAllocator(seed uint64) *Allocator {
	return &Allocator{next: seed}
}

// Next returns the next id in sequence.
func (a *Allocator) Next() uint64 {
	return atomic.AddUint64(&a.next, 1)
}

// Peek returns the highest id handed out so far without allocating a
// new one.
func (a *Allocator) Peek() uint64 {
	return atomic.LoadUint64(&a.next)
}
