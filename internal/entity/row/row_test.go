package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/collabd/internal/crdt"
)

func newTestRow(t *testing.T) *Row {
	t.Helper()
	return New(crdt.NewDoc(1, "row-1"))
}

func TestCreateAndReadRow(t *testing.T) {
	r := newTestRow(t)

	require.NoError(t, r.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return Create(tx, Data{ID: "r1", DatabaseID: "db-1", Height: 36, Visibility: true}, Meta{IconURL: "🙂"})
	}))

	data, err := r.Data()
	require.NoError(t, err)
	assert.Equal(t, "r1", data.ID)
	assert.Equal(t, int64(36), data.Height)
	assert.True(t, data.Visibility)

	meta, err := r.Meta()
	require.NoError(t, err)
	assert.Equal(t, "🙂", meta.IconURL)
}

func TestSetAndReadCell(t *testing.T) {
	r := newTestRow(t)

	require.NoError(t, r.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return SetCell(tx, "field-1", "hello world")
	}))

	v, err := r.Cell("field-1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)

	cells, err := r.Cells()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"field-1": "hello world"}, cells)
}

func TestObserveTranslatesVisibilityHeightAndCellChanges(t *testing.T) {
	r := newTestRow(t)

	var got []RowChange
	unsub := r.Observe(func(c RowChange) { got = append(got, c) })
	defer unsub()

	require.NoError(t, r.Doc().TransactWith(crdt.ClientOrigin(1, "device-a"), func(tx *crdt.WriteTxn) error {
		if err := SetVisibility(tx, false); err != nil {
			return err
		}
		if err := SetHeight(tx, 50); err != nil {
			return err
		}
		return SetCell(tx, "field-1", 42.0)
	}))

	require.Len(t, got, 3)

	var sawVisibility, sawHeight, sawCell bool
	for _, c := range got {
		switch c.Kind {
		case DidUpdateVisibility:
			sawVisibility = true
			assert.False(t, c.Visibility)
			assert.True(t, c.IsLocalChange)
		case DidUpdateHeight:
			sawHeight = true
			assert.Equal(t, int64(50), c.Height)
			assert.True(t, c.IsLocalChange)
		case DidUpdateCell:
			sawCell = true
			assert.Equal(t, "field-1", c.FieldID)
			assert.Equal(t, 42.0, c.Value)
			assert.True(t, c.IsLocalChange)
		}
	}
	assert.True(t, sawVisibility)
	assert.True(t, sawHeight)
	assert.True(t, sawCell)
}

func TestObserveMarksRemoteOriginAsNonLocal(t *testing.T) {
	r := newTestRow(t)

	var got RowChange
	unsub := r.Observe(func(c RowChange) { got = c })
	defer unsub()

	require.NoError(t, r.Doc().TransactWith(crdt.ClientOrigin(99, "device-remote"), func(tx *crdt.WriteTxn) error {
		return SetVisibility(tx, true)
	}))

	assert.False(t, got.IsLocalChange)
}

func TestRemapIDsRewritesRowAndDatabaseID(t *testing.T) {
	r := newTestRow(t)

	require.NoError(t, r.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return Create(tx, Data{ID: "r1", DatabaseID: "db-1"}, Meta{})
	}))

	require.NoError(t, r.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return RemapIDs(tx, map[string]string{"r1": "r2", "db-1": "db-2"})
	}))

	data, err := r.Data()
	require.NoError(t, err)
	assert.Equal(t, "r2", data.ID)
	assert.Equal(t, "db-2", data.DatabaseID)
}
