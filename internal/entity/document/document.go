// Package document implements the document entity (spec §3.3): a page
// of nested blocks, each carrying an opaque JSON data bag, plus the
// children-order and rich-text side tables a block's children_id and
// external_id point into.
//
// The underlying crdt.Doc only logs ops performed through the root-level
// WriteTxn methods (SetMapKey/InsertArray/InsertText/...), so a block's
// fields cannot live as a nested Value inside one shared "blocks" map —
// there would be nowhere for a concurrent edit inside that nested value
// to mint its own OpID. Instead every block, child list and text body
// gets its own dynamically-named root, and three small existence-index
// maps ("block_index", "children_map", "text_map") record which of
// those dynamic roots are currently live, mirroring the spec's
// blocks/meta.children_map/meta.text_map maps one level up.
package document

import (
	"fmt"

	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/entity/document/delta"
	"github.com/foldkeep/collabd/internal/entity/typed"
)

const (
	rootDoc          = "doc"
	rootBlockIndex   = "block_index"
	rootChildrenMap  = "children_map"
	rootTextMap      = "text_map"
	blockRootPrefix  = "block:"
	childrenPrefix   = "children:"
	textRootPrefix   = "text:"
	keyPageID        = "page_id"
)

// Block mirrors spec §3.3's Block { id, type, parent_id, children_id,
// external_id?, external_type?, data }.
type Block struct {
	ID           string
	Type         string
	ParentID     string
	ChildrenID   string
	ExternalID   string
	ExternalType string
	Data         map[string]any
}

func blockRoot(id string) string    { return blockRootPrefix + id }
func childrenRoot(id string) string { return childrenPrefix + id }
func textRoot(id string) string     { return textRootPrefix + id }

// Document wraps a *crdt.Doc as the document entity's typed projection.
type Document struct {
	doc *crdt.Doc
}

// New wraps doc, an already-open CRDT document, as a document entity.
func New(doc *crdt.Doc) *Document {
	return &Document{doc: doc}
}

// Doc returns the underlying CRDT document, for persistence and sync.
func (d *Document) Doc() *crdt.Doc { return d.doc }

// PageID returns the root block id, or "" if unset.
func (d *Document) PageID() (string, error) {
	m, err := d.doc.GetMap(rootDoc)
	if err != nil {
		return "", err
	}
	return typed.Str(m, keyPageID), nil
}

// SetPageID sets the document's root block id.
func SetPageID(tx *crdt.WriteTxn, pageID string) error {
	return typed.SetStr(tx, rootDoc, keyPageID, pageID)
}

// HasBlock reports whether id is a live (non-deleted) block.
func (d *Document) HasBlock(id string) (bool, error) {
	idx, err := d.doc.GetMap(rootBlockIndex)
	if err != nil {
		return false, err
	}
	return typed.Bool(idx, id), nil
}

// GetBlock reads the block identified by id. It returns ok=false without
// error if id is not a known block, so callers can distinguish "missing"
// from a read failure.
func (d *Document) GetBlock(id string) (Block, bool, error) {
	ok, err := d.HasBlock(id)
	if err != nil || !ok {
		return Block{}, false, err
	}
	m, err := d.doc.GetMap(blockRoot(id))
	if err != nil {
		return Block{}, false, err
	}
	b := Block{
		ID:           id,
		Type:         typed.Str(m, "type"),
		ParentID:     typed.Str(m, "parent_id"),
		ChildrenID:   typed.Str(m, "children_id"),
		ExternalID:   typed.Str(m, "external_id"),
		ExternalType: typed.Str(m, "external_type"),
	}
	if data, ok := typed.Any(m, "data").(map[string]any); ok {
		b.Data = data
	}
	return b, true, nil
}

// CreateBlock inserts b into the document, marking it live in
// block_index and writing its field map. It does not validate
// parent_id/children_id/external_id linkage; call Validate after a batch
// of related writes to check the document's structural invariants.
func CreateBlock(tx *crdt.WriteTxn, b Block) error {
	if err := typed.SetBool(tx, rootBlockIndex, b.ID, true); err != nil {
		return err
	}
	root := blockRoot(b.ID)
	if err := typed.SetStr(tx, root, "type", b.Type); err != nil {
		return err
	}
	if err := typed.SetStr(tx, root, "parent_id", b.ParentID); err != nil {
		return err
	}
	if err := typed.SetStrIfNotEmpty(tx, root, "children_id", b.ChildrenID); err != nil {
		return err
	}
	if err := typed.SetStrIfNotEmpty(tx, root, "external_id", b.ExternalID); err != nil {
		return err
	}
	if err := typed.SetStrIfNotEmpty(tx, root, "external_type", b.ExternalType); err != nil {
		return err
	}
	if b.Data != nil {
		if err := typed.SetAny(tx, root, "data", b.Data); err != nil {
			return err
		}
	}
	return nil
}

// BlockUpdater mutates the fields of an existing block in place.
type BlockUpdater struct {
	Type         *string
	ParentID     *string
	ChildrenID   *string
	ExternalID   *string
	ExternalType *string
	Data         map[string]any
}

// UpdateBlock applies u to the block identified by id. It is a no-op if
// id is not a known block.
//
// The existence check reads through tx, not through a *Document's own
// GetMap-backed accessors: Doc.mu is held for the whole transaction
// closure, so a call here into a method that re-locks it would
// deadlock.
func UpdateBlock(tx *crdt.WriteTxn, id string, u BlockUpdater) error {
	idx, err := tx.Map(rootBlockIndex)
	if err != nil {
		return err
	}
	if !typed.Bool(idx, id) {
		return nil
	}
	root := blockRoot(id)
	if u.Type != nil {
		if err := typed.SetStr(tx, root, "type", *u.Type); err != nil {
			return err
		}
	}
	if u.ParentID != nil {
		if err := typed.SetStr(tx, root, "parent_id", *u.ParentID); err != nil {
			return err
		}
	}
	if u.ChildrenID != nil {
		if err := typed.SetStr(tx, root, "children_id", *u.ChildrenID); err != nil {
			return err
		}
	}
	if u.ExternalID != nil {
		if err := typed.SetStr(tx, root, "external_id", *u.ExternalID); err != nil {
			return err
		}
	}
	if u.ExternalType != nil {
		if err := typed.SetStr(tx, root, "external_type", *u.ExternalType); err != nil {
			return err
		}
	}
	if u.Data != nil {
		if err := typed.SetAny(tx, root, "data", u.Data); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBlock tombstones the block identified by id in block_index. The
// block's field map root is left in place (crdt roots are never
// reclaimed), matching the CRDT substrate's tombstone-don't-erase model.
func DeleteBlock(tx *crdt.WriteTxn, id string) error {
	return typed.Delete(tx, rootBlockIndex, id)
}

// HasChildren reports whether childrenID names a live ordered child list.
func (d *Document) HasChildren(childrenID string) (bool, error) {
	idx, err := d.doc.GetMap(rootChildrenMap)
	if err != nil {
		return false, err
	}
	return typed.Bool(idx, childrenID), nil
}

// Children returns the ordered block ids under childrenID, or nil if
// childrenID is not a known child list.
func (d *Document) Children(childrenID string) ([]string, error) {
	ok, err := d.HasChildren(childrenID)
	if err != nil || !ok {
		return nil, err
	}
	arr, err := d.doc.GetArray(childrenRoot(childrenID))
	if err != nil {
		return nil, err
	}
	values := arr.Values()
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v.Kind == crdt.KindString {
			out = append(out, v.Str)
		}
	}
	return out, nil
}

// SetChildren replaces the ordered child list named childrenID wholesale
// and marks it live in children_map.
func SetChildren(tx *crdt.WriteTxn, childrenID string, ids []string) error {
	if err := typed.SetBool(tx, rootChildrenMap, childrenID, true); err != nil {
		return err
	}
	root := childrenRoot(childrenID)
	arr, err := tx.Array(root)
	if err != nil {
		return err
	}
	for arr.Len() > 0 {
		if err := tx.DeleteArrayAt(root, 0); err != nil {
			return err
		}
	}
	for i, id := range ids {
		if err := tx.InsertArray(root, i, crdt.StringValue(id)); err != nil {
			return err
		}
	}
	return nil
}

// InsertChild inserts childID into childrenID's list at index pos.
// pos == -1 appends at the end.
func InsertChild(tx *crdt.WriteTxn, childrenID, childID string, pos int) error {
	if err := typed.SetBool(tx, rootChildrenMap, childrenID, true); err != nil {
		return err
	}
	root := childrenRoot(childrenID)
	arr, err := tx.Array(root)
	if err != nil {
		return err
	}
	if pos < 0 || pos > arr.Len() {
		pos = arr.Len()
	}
	return tx.InsertArray(root, pos, crdt.StringValue(childID))
}

// RemoveChild removes the first occurrence of childID from childrenID's
// list, if present. Reads childrenID's list through tx rather than
// through a *Document accessor, for the same reentrant-lock reason as
// UpdateBlock.
func RemoveChild(tx *crdt.WriteTxn, childrenID, childID string) error {
	arr, err := tx.Array(childrenRoot(childrenID))
	if err != nil {
		return err
	}
	for i, v := range arr.Values() {
		if v.Kind == crdt.KindString && v.Str == childID {
			return tx.DeleteArrayAt(childrenRoot(childrenID), i)
		}
	}
	return nil
}

// HasText reports whether externalID names a live text body.
func (d *Document) HasText(externalID string) (bool, error) {
	idx, err := d.doc.GetMap(rootTextMap)
	if err != nil {
		return false, err
	}
	return typed.Bool(idx, externalID), nil
}

// Text returns the plain-text content of externalID's text body.
func (d *Document) Text(externalID string) (string, error) {
	ok, err := d.HasText(externalID)
	if err != nil || !ok {
		return "", err
	}
	t, err := d.doc.GetText(textRoot(externalID))
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// TextDelta returns externalID's text body as a TextDelta run list, the
// shape persisted under meta.text_map and sent to rich-text clients.
func (d *Document) TextDelta(externalID string) ([]crdt.TextDelta, error) {
	ok, err := d.HasText(externalID)
	if err != nil || !ok {
		return nil, err
	}
	return delta.Read(d.doc, textRoot(externalID))
}

// CreateText seeds a new text body for externalID from an initial
// plain-text value and marks it live in text_map.
func CreateText(tx *crdt.WriteTxn, externalID, initial string) error {
	if err := typed.SetBool(tx, rootTextMap, externalID, true); err != nil {
		return err
	}
	if initial == "" {
		_, err := tx.Text(textRoot(externalID))
		return err
	}
	return tx.InsertText(textRoot(externalID), 0, initial)
}

// ApplyTextDelta applies a TextDelta run list (e.g. from a rich-text
// client edit or a rehydrated snapshot) to externalID's text body.
func ApplyTextDelta(tx *crdt.WriteTxn, externalID string, deltas []crdt.TextDelta) error {
	if err := typed.SetBool(tx, rootTextMap, externalID, true); err != nil {
		return err
	}
	return delta.Apply(tx, textRoot(externalID), deltas)
}

// Validate checks the structural invariants of spec §3.3:
// (a) page_id exists in blocks;
// (b) every parent_id other than the page's own (empty) parent
//     references a known block;
// (c) every children_id referenced by a block exists in children_map;
// (d) a block's external_id, when set, exists in text_map iff
//     external_type == "text".
func (d *Document) Validate() error {
	pageID, err := d.PageID()
	if err != nil {
		return err
	}
	if pageID == "" {
		return fmt.Errorf("document: page_id is unset")
	}
	pageBlock, ok, err := d.GetBlock(pageID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("document: page_id %q is not a known block", pageID)
	}

	idx, err := d.doc.GetMap(rootBlockIndex)
	if err != nil {
		return err
	}
	for _, id := range idx.Keys() {
		if !typed.Bool(idx, id) {
			continue
		}
		b, ok, err := d.GetBlock(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if id != pageID && b.ParentID != "" {
			if _, ok, err := d.GetBlock(b.ParentID); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("document: block %q has unknown parent_id %q", id, b.ParentID)
			}
		}
		if b.ChildrenID != "" {
			if ok, err := d.HasChildren(b.ChildrenID); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("document: block %q references unknown children_id %q", id, b.ChildrenID)
			}
		}
		if b.ExternalID != "" {
			hasText, err := d.HasText(b.ExternalID)
			if err != nil {
				return err
			}
			isText := b.ExternalType == "text"
			if hasText != isText {
				return fmt.Errorf("document: block %q external_id %q/external_type %q disagrees with text_map", id, b.ExternalID, b.ExternalType)
			}
		}
	}
	_ = pageBlock
	return nil
}
