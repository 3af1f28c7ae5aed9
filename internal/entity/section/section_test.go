package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/entity/order"
)

func TestSectionItemsOrderingIsPerUser(t *testing.T) {
	doc := crdt.NewDoc(1, "workspace-1")
	favorites := New(doc, "favorite")

	require.NoError(t, doc.Transact(func(tx *crdt.WriteTxn) error {
		return favorites.SetItems(tx, "user-1", []string{"a", "b"})
	}))
	require.NoError(t, doc.Transact(func(tx *crdt.WriteTxn) error {
		return favorites.SetItems(tx, "user-2", []string{"z"})
	}))

	items1, err := favorites.Items("user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items1)

	items2, err := favorites.Items("user-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, items2)
}

func TestSectionInsertRemoveMove(t *testing.T) {
	doc := crdt.NewDoc(1, "workspace-1")
	trash := New(doc, "trash")

	require.NoError(t, doc.Transact(func(tx *crdt.WriteTxn) error {
		return trash.SetItems(tx, "user-1", []string{"a", "c"})
	}))
	require.NoError(t, doc.Transact(func(tx *crdt.WriteTxn) error {
		return trash.Insert(tx, "user-1", "b", order.After, "a")
	}))

	items, err := trash.Items("user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)

	require.NoError(t, doc.Transact(func(tx *crdt.WriteTxn) error {
		return trash.MoveTo(tx, "user-1", "c", "a")
	}))
	items, err = trash.Items("user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, items)

	require.NoError(t, doc.Transact(func(tx *crdt.WriteTxn) error {
		return trash.Remove(tx, "user-1", "b")
	}))
	items, err = trash.Items("user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, items)
}

func TestRelationParentChild(t *testing.T) {
	doc := crdt.NewDoc(1, "workspace-1")
	private := New(doc, "private")

	require.NoError(t, doc.Transact(func(tx *crdt.WriteTxn) error {
		if err := private.SetParent(tx, "folder-b", "folder-a"); err != nil {
			return err
		}
		return private.SetParent(tx, "folder-c", "folder-a")
	}))

	parent, ok, err := private.Parent("folder-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "folder-a", parent)

	children, err := private.Children("folder-a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"folder-b", "folder-c"}, children)
}
