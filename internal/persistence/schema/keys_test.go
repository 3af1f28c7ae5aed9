package schema

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDocStateKeyOrdering tests that the doc state key sorts before the
// update key range, which sorts before the end-of-range marker, for the
// same DocID -- the ordering the range scans in internal/persistence
// depend on.
func TestDocStateKeyOrdering(t *testing.T) {
	docID := DocID(42)

	start := DocStartKey(docID)
	stateVec := StateVectorKey(docID)
	update := DocUpdateKey(docID, 0)
	end := DocEndKey(docID)

	assert.True(t, bytes.Compare(start, stateVec) < 0)
	assert.True(t, bytes.Compare(stateVec, update) < 0)
	assert.True(t, bytes.Compare(update, end) < 0)
}

// TestDocUpdateKeyClockOrdering tests that update keys sort by
// ascending clock for a fixed DocID.
func TestDocUpdateKeyClockOrdering(t *testing.T) {
	docID := DocID(7)
	k0 := DocUpdateKey(docID, 0)
	k1 := DocUpdateKey(docID, 1)
	k1000 := DocUpdateKey(docID, 1000)

	assert.True(t, bytes.Compare(k0, k1) < 0)
	assert.True(t, bytes.Compare(k1, k1000) < 0)
}

// TestClockFromUpdateKeyRoundTrip tests that the clock embedded in an
// update key can be recovered exactly.
func TestClockFromUpdateKeyRoundTrip(t *testing.T) {
	for _, clock := range []Clock{0, 1, 255, 70000} {
		key := DocUpdateKey(DocID(1), clock)
		assert.Equal(t, clock, ClockFromUpdateKey(key))
	}
}

// TestDocIDKeyDistinctObjects tests that different object ids under the
// same uid/workspace produce distinct keys.
func TestDocIDKeyDistinctObjects(t *testing.T) {
	uid := []byte("uid-00001")
	ws := bytes.Repeat([]byte{1}, 16)
	obj1 := bytes.Repeat([]byte{2}, 16)
	obj2 := bytes.Repeat([]byte{3}, 16)

	k1 := DocIDKey(uid, ws, obj1)
	k2 := DocIDKey(uid, ws, obj2)
	assert.NotEqual(t, k1, k2)
}

// TestDocUpdateKeyPrefixIsPrefix tests that every update key for a DocID
// shares the prefix returned by DocUpdateKeyPrefix.
func TestDocUpdateKeyPrefixIsPrefix(t *testing.T) {
	docID := DocID(99)
	prefix := DocUpdateKeyPrefix(docID)
	key := DocUpdateKey(docID, 5)
	assert.True(t, bytes.HasPrefix(key, prefix))
}
