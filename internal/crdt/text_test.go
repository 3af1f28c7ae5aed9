package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTextInsertDelete tests basic rune-level insert and delete.
func TestTextInsertDelete(t *testing.T) {
	doc := NewDoc(1, "doc-1")

	require.NoError(t, doc.Transact(func(tx *WriteTxn) error {
		return tx.InsertText("body", 0, "hello")
	}))

	txt, err := doc.GetText("body")
	require.NoError(t, err)
	assert.Equal(t, "hello", txt.String())

	require.NoError(t, doc.Transact(func(tx *WriteTxn) error {
		return tx.DeleteText("body", 1, 3)
	}))
	assert.Equal(t, "ho", txt.String())
}

// TestTextToDeltaRoundTrip tests that flattening to a delta and
// replaying it into a fresh text root reproduces the same content.
func TestTextToDeltaRoundTrip(t *testing.T) {
	doc := NewDoc(1, "doc-1")
	require.NoError(t, doc.Transact(func(tx *WriteTxn) error {
		return tx.InsertText("body", 0, "rehydrate me")
	}))

	txt, err := doc.GetText("body")
	require.NoError(t, err)
	delta := txt.ToDelta()
	require.Len(t, delta, 1)

	fresh := NewText()
	var client uint64 = 99
	var clock uint32
	fresh.ApplyDeltaOps(delta, func() OpID {
		clock++
		return OpID{Client: client, Clock: clock}
	})
	assert.Equal(t, txt.String(), fresh.String())
}

// TestTextConcurrentInsertConverge tests that concurrent inserts at the
// same cursor position converge to the same string on both replicas.
func TestTextConcurrentInsertConverge(t *testing.T) {
	docA := NewDoc(1, "doc-1")
	docB := NewDoc(2, "doc-1")

	require.NoError(t, docA.Transact(func(tx *WriteTxn) error {
		return tx.InsertText("body", 0, "ac")
	}))
	base, err := docA.EncodeStateV1()
	require.NoError(t, err)
	require.NoError(t, docB.ApplyUpdate(ServerOrigin(), base))

	require.NoError(t, docA.Transact(func(tx *WriteTxn) error {
		return tx.InsertText("body", 1, "X")
	}))
	require.NoError(t, docB.Transact(func(tx *WriteTxn) error {
		return tx.InsertText("body", 1, "Y")
	}))

	updA, err := docA.EncodeDiffV1(StateVector{1: 2})
	require.NoError(t, err)
	updB, err := docB.EncodeDiffV1(StateVector{1: 2})
	require.NoError(t, err)

	require.NoError(t, docA.ApplyUpdate(ServerOrigin(), updB))
	require.NoError(t, docB.ApplyUpdate(ServerOrigin(), updA))

	txtA, err := docA.GetText("body")
	require.NoError(t, err)
	txtB, err := docB.GetText("body")
	require.NoError(t, err)
	assert.Equal(t, txtA.String(), txtB.String())
}
