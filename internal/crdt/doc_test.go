package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestObserveReceivesOrigin tests that a registered observer is invoked
// with the origin the transaction was tagged with.
func TestObserveReceivesOrigin(t *testing.T) {
	doc := NewDoc(1, "doc-1")

	var gotOrigin Origin
	var calls int
	unsub := doc.Observe(func(events []Event) {
		calls++
		if len(events) > 0 {
			gotOrigin = events[0].Origin
		}
	})
	defer unsub()

	origin := ClientOrigin(42, "device-a")
	require.NoError(t, doc.TransactWith(origin, func(tx *WriteTxn) error {
		return tx.SetMapKey("data", "k", IntValue(1))
	}))

	assert.Equal(t, 1, calls)
	assert.True(t, gotOrigin.Equal(origin))
}

// TestObserveUnsubscribe tests that an unsubscribed observer stops
// receiving events.
func TestObserveUnsubscribe(t *testing.T) {
	doc := NewDoc(1, "doc-1")

	calls := 0
	unsub := doc.Observe(func(events []Event) { calls++ })
	unsub()

	require.NoError(t, doc.Transact(func(tx *WriteTxn) error {
		return tx.SetMapKey("data", "k", IntValue(1))
	}))
	assert.Equal(t, 0, calls)
}

// TestNoOpTransactionDoesNotDispatch tests that a transaction producing
// no actual state change (e.g. deleting an absent key) does not fire
// observers.
func TestNoOpTransactionDoesNotDispatch(t *testing.T) {
	doc := NewDoc(1, "doc-1")

	calls := 0
	doc.Observe(func(events []Event) { calls++ })

	require.NoError(t, doc.Transact(func(tx *WriteTxn) error {
		return tx.DeleteMapKey("data", "missing")
	}))
	assert.Equal(t, 0, calls)
}

// TestStateVectorTracksClients tests that the state vector reflects the
// highest clock observed from each client, local and remote alike.
func TestStateVectorTracksClients(t *testing.T) {
	docA := NewDoc(1, "doc-1")
	docB := NewDoc(2, "doc-1")

	require.NoError(t, docA.Transact(func(tx *WriteTxn) error {
		require.NoError(t, tx.SetMapKey("data", "a", IntValue(1)))
		require.NoError(t, tx.SetMapKey("data", "b", IntValue(2)))
		return nil
	}))

	sv := docA.StateVector()
	assert.Equal(t, uint32(2), sv.Get(1))
	assert.Equal(t, uint32(0), sv.Get(2))

	update, err := docA.EncodeStateV1()
	require.NoError(t, err)
	require.NoError(t, docB.ApplyUpdate(ServerOrigin(), update))

	svB := docB.StateVector()
	assert.Equal(t, uint32(2), svB.Get(1))
}

// TestGetRootKindMismatch tests that re-opening an existing root under a
// different kind returns an error instead of silently reinterpreting it.
func TestGetRootKindMismatch(t *testing.T) {
	doc := NewDoc(1, "doc-1")
	_, err := doc.GetMap("shared")
	require.NoError(t, err)

	_, err = doc.GetArray("shared")
	assert.ErrorIs(t, err, ErrRootKindMismatch)
}
