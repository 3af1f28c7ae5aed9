// Package order implements the impl_order_update shape shared by every
// ordered-by-id array in the entity layer: a database view's row_orders
// and field_orders, a section's per-user object list. A view's
// filters/sorts are not stored through this package. Items are opaque JSON-shaped records carrying an "id" key; the
// package never interprets any other field.
package order

import "github.com/foldkeep/collabd/internal/crdt"

// Position names where Insert places a new item relative to the existing
// sequence.
type Position int

const (
	Start Position = iota
	End
	Before
	After
)

// Item is one record in an ordered array: an opaque field bag that must
// carry "id" as a string key.
type Item map[string]any

// IDOf returns item's "id" field, or "" if missing/not a string.
func IDOf(item Item) string {
	id, _ := item["id"].(string)
	return id
}

func valueToItem(v crdt.Value) (Item, bool) {
	m, ok := v.Any.(map[string]any)
	if !ok {
		return nil, false
	}
	return Item(m), true
}

// List returns every item currently in root, in order.
func List(arr *crdt.CRDTArray) []Item {
	values := arr.Values()
	out := make([]Item, 0, len(values))
	for _, v := range values {
		if item, ok := valueToItem(v); ok {
			out = append(out, item)
		}
	}
	return out
}

// IndexOf returns the visible position of the item whose id is id, or
// (-1, false) if not present.
func IndexOf(arr *crdt.CRDTArray, id string) (int, bool) {
	for i, v := range arr.Values() {
		if item, ok := valueToItem(v); ok && IDOf(item) == id {
			return i, true
		}
	}
	return -1, false
}

// SetOrders replaces the entire ordered array in root with items, in the
// given order. It is used to seed a freshly built view/section (and by
// the remap builder, which always rematerializes from scratch).
func SetOrders(tx *crdt.WriteTxn, root string, items []Item) error {
	arr, err := tx.Array(root)
	if err != nil {
		return err
	}
	for arr.Len() > 0 {
		if err := tx.DeleteArrayAt(root, 0); err != nil {
			return err
		}
	}
	for i, item := range items {
		if err := tx.InsertArray(root, i, crdt.AnyValue(map[string]any(item))); err != nil {
			return err
		}
	}
	return nil
}

// Insert places item in root at pos, relative to refID for Before/After.
// A Before/After whose refID is not found falls back to End.
func Insert(tx *crdt.WriteTxn, root string, item Item, pos Position, refID string) error {
	arr, err := tx.Array(root)
	if err != nil {
		return err
	}
	target := arr.Len()
	switch pos {
	case Start:
		target = 0
	case End:
		target = arr.Len()
	case Before:
		if idx, ok := IndexOf(arr, refID); ok {
			target = idx
		}
	case After:
		if idx, ok := IndexOf(arr, refID); ok {
			target = idx + 1
		}
	}
	return tx.InsertArray(root, target, crdt.AnyValue(map[string]any(item)))
}

// Remove deletes the item identified by id from root, if present.
func Remove(tx *crdt.WriteTxn, root, id string) error {
	arr, err := tx.Array(root)
	if err != nil {
		return err
	}
	idx, ok := IndexOf(arr, id)
	if !ok {
		return nil
	}
	return tx.DeleteArrayAt(root, idx)
}

// MoveTo relocates the item identified by fromID to immediately before
// toID. It is implemented as a delete-then-reinsert (the array root has
// no atomic move primitive), which is sufficient for convergence since
// both halves carry the transaction's single origin tag.
func MoveTo(tx *crdt.WriteTxn, root, fromID, toID string) error {
	arr, err := tx.Array(root)
	if err != nil {
		return err
	}
	fromIdx, ok := IndexOf(arr, fromID)
	if !ok {
		return nil
	}
	item, _ := valueToItem(arr.Values()[fromIdx])
	if err := tx.DeleteArrayAt(root, fromIdx); err != nil {
		return err
	}

	arr, err = tx.Array(root)
	if err != nil {
		return err
	}
	target := arr.Len()
	if idx, ok := IndexOf(arr, toID); ok {
		target = idx
	}
	return tx.InsertArray(root, target, crdt.AnyValue(map[string]any(item)))
}

// UpdateItem replaces the item identified by id with mutate(item)'s
// result, preserving its position. Used for in-place field updates
// (field_settings width/visibility) on an ordered record.
func UpdateItem(tx *crdt.WriteTxn, root, id string, mutate func(Item) Item) error {
	arr, err := tx.Array(root)
	if err != nil {
		return err
	}
	idx, ok := IndexOf(arr, id)
	if !ok {
		return nil
	}
	item, _ := valueToItem(arr.Values()[idx])
	updated := mutate(item)
	if err := tx.DeleteArrayAt(root, idx); err != nil {
		return err
	}
	return tx.InsertArray(root, idx, crdt.AnyValue(map[string]any(updated)))
}
