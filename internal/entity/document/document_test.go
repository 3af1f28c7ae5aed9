package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/collabd/internal/crdt"
)

func newTestDoc(t *testing.T) *Document {
	t.Helper()
	return New(crdt.NewDoc(1, "doc-1"))
}

func TestCreateBlockAndGetBlock(t *testing.T) {
	d := newTestDoc(t)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		if err := SetPageID(tx, "page-1"); err != nil {
			return err
		}
		return CreateBlock(tx, Block{
			ID:       "page-1",
			Type:     "page",
			ParentID: "",
			Data:     map[string]any{"title": "Untitled"},
		})
	}))

	pageID, err := d.PageID()
	require.NoError(t, err)
	assert.Equal(t, "page-1", pageID)

	b, ok, err := d.GetBlock("page-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "page", b.Type)
	assert.Equal(t, "Untitled", b.Data["title"])

	require.NoError(t, d.Validate())
}

func TestGetBlockMissingDoesNotCreateRoot(t *testing.T) {
	d := newTestDoc(t)

	_, ok, err := d.GetBlock("nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotContains(t, d.Doc().RootNames(), blockRoot("nope"))
}

func TestUpdateBlock(t *testing.T) {
	d := newTestDoc(t)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return CreateBlock(tx, Block{ID: "b1", Type: "paragraph"})
	}))

	newType := "heading"
	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return UpdateBlock(tx, "b1", BlockUpdater{Type: &newType})
	}))

	b, ok, err := d.GetBlock("b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "heading", b.Type)
}

func TestDeleteBlockRemovesFromIndex(t *testing.T) {
	d := newTestDoc(t)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return CreateBlock(tx, Block{ID: "b1", Type: "paragraph"})
	}))
	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return DeleteBlock(tx, "b1")
	}))

	_, ok, err := d.GetBlock("b1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChildrenOrdering(t *testing.T) {
	d := newTestDoc(t)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return SetChildren(tx, "children-1", []string{"a", "b", "c"})
	}))

	ids, err := d.Children("children-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return InsertChild(tx, "children-1", "x", 1)
	}))
	ids, err = d.Children("children-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "x", "b", "c"}, ids)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return RemoveChild(tx, "children-1", "x")
	}))
	ids, err = d.Children("children-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestTextCreateAndDelta(t *testing.T) {
	d := newTestDoc(t)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return CreateText(tx, "text-1", "hello")
	}))

	s, err := d.Text("text-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	deltas, err := d.TextDelta("text-1")
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, crdt.DeltaInsert, deltas[0].Op)
	assert.Equal(t, "hello", deltas[0].Insert)
}

func TestApplyTextDeltaRetainInsertDelete(t *testing.T) {
	d := newTestDoc(t)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return CreateText(tx, "text-1", "hello world")
	}))

	// Replace "world" with "there": retain 6, delete 5, insert "there".
	edit := []crdt.TextDelta{
		{Op: crdt.DeltaRetain, Len: 6},
		{Op: crdt.DeltaDelete, Len: 5},
		{Op: crdt.DeltaInsert, Insert: "there"},
	}
	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return ApplyTextDelta(tx, "text-1", edit)
	}))

	s, err := d.Text("text-1")
	require.NoError(t, err)
	assert.Equal(t, "hello there", s)
}

func TestApplyTextDeltaLogsOps(t *testing.T) {
	d := newTestDoc(t)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return CreateText(tx, "text-1", "ab")
	}))
	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		return ApplyTextDelta(tx, "text-1", []crdt.TextDelta{
			{Op: crdt.DeltaRetain, Len: 2},
			{Op: crdt.DeltaInsert, Insert: "c"},
		})
	}))

	state, err := d.Doc().EncodeStateV1()
	require.NoError(t, err)

	other := crdt.NewDoc(2, "doc-1")
	require.NoError(t, other.ApplyUpdate(crdt.EmptyOrigin, state))
	otherText, err := other.GetText(textRoot("text-1"))
	require.NoError(t, err)
	assert.Equal(t, "abc", otherText.String())
}

func TestValidateDetectsUnknownParent(t *testing.T) {
	d := newTestDoc(t)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		if err := SetPageID(tx, "page-1"); err != nil {
			return err
		}
		if err := CreateBlock(tx, Block{ID: "page-1", Type: "page"}); err != nil {
			return err
		}
		return CreateBlock(tx, Block{ID: "b1", Type: "paragraph", ParentID: "ghost"})
	}))

	err := d.Validate()
	assert.Error(t, err)
}

func TestValidateDetectsTextMismatch(t *testing.T) {
	d := newTestDoc(t)

	require.NoError(t, d.Doc().Transact(func(tx *crdt.WriteTxn) error {
		if err := SetPageID(tx, "page-1"); err != nil {
			return err
		}
		return CreateBlock(tx, Block{
			ID:           "page-1",
			Type:         "page",
			ExternalID:   "text-1",
			ExternalType: "text",
		})
	}))

	// external_id references text-1 but it was never created.
	err := d.Validate()
	assert.Error(t, err)
}
