// Package database implements the database entity of spec.md §3.4: a
// database's fields and views live together in one CRDT document (the
// rows themselves are independent documents, owned by
// internal/entity/row and loaded on demand by internal/rowblock).
//
// Field and view payloads follow the same dynamically-named-root scheme
// internal/entity/document uses, for the same reason: a WriteTxn only
// logs ops performed through its own root-level methods, so a field or
// view's data cannot live as a Value nested inside one shared map.
package database

import (
	"fmt"

	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/entity/order"
	"github.com/foldkeep/collabd/internal/entity/typed"
)

const (
	rootMeta        = "database"
	rootFieldIndex  = "field_index"
	rootLinkedViews = "linked_views"
	fieldRootPrefix = "field:"
	viewRootPrefix  = "view:"

	keyDatabaseID = "database_id"
)

func fieldRoot(id string) string      { return fieldRootPrefix + id }
func viewRoot(id string) string       { return viewRootPrefix + id }
func rowOrdersRoot(id string) string  { return viewRootPrefix + id + ":row_orders" }
func fieldOrdersRoot(id string) string { return viewRootPrefix + id + ":field_orders" }

// Field mirrors spec §3.4's Field { id, name, field_type, icon,
// is_primary, type_options }.
type Field struct {
	ID          string
	Name        string
	FieldType   int64
	Icon        string
	IsPrimary   bool
	TypeOptions map[string]any // tag (stringified i64) -> opaque option blob
}

// RowOrder is one entry of a view's row_orders ordered array.
type RowOrder struct {
	RowID  string
	Height int64
}

func (r RowOrder) toItem() order.Item {
	return order.Item{"id": r.RowID, "height": r.Height}
}

func rowOrderFromItem(item order.Item) RowOrder {
	height, _ := item["height"].(int64)
	if f, ok := item["height"].(float64); ok {
		height = int64(f)
	}
	return RowOrder{RowID: order.IDOf(item), Height: height}
}

// FieldOrder is one entry of a view's field_orders ordered array.
type FieldOrder struct {
	FieldID string
}

func (f FieldOrder) toItem() order.Item { return order.Item{"id": f.FieldID} }

func fieldOrderFromItem(item order.Item) FieldOrder {
	return FieldOrder{FieldID: order.IDOf(item)}
}

// Layout names a DatabaseView's layout enum.
type Layout int64

const (
	LayoutGrid Layout = iota
	LayoutBoard
	LayoutCalendar
	LayoutChart
	LayoutGallery
	LayoutList
)

// View mirrors spec §3.4's DatabaseView.
type View struct {
	ID             string
	DatabaseID     string
	Layout         Layout
	LayoutSettings map[string]any
	FieldSettings  map[string]any // field_id -> {visibility, width, wrap, ...}
	Filters        []any
	Sorts          []any
	GroupSettings  any
	CreatedAt      int64
	ModifiedAt     int64
	Embedded       bool
}

// Database wraps a *crdt.Doc as the database entity's typed projection.
type Database struct {
	doc *crdt.Doc
}

// New wraps doc as a database entity.
func New(doc *crdt.Doc) *Database { return &Database{doc: doc} }

// Doc returns the underlying CRDT document.
func (d *Database) Doc() *crdt.Doc { return d.doc }

// DatabaseID returns the database's own id.
func (d *Database) DatabaseID() (string, error) {
	m, err := d.doc.GetMap(rootMeta)
	if err != nil {
		return "", err
	}
	return typed.Str(m, keyDatabaseID), nil
}

// SetDatabaseID sets the database's own id.
func SetDatabaseID(tx *crdt.WriteTxn, id string) error {
	return typed.SetStr(tx, rootMeta, keyDatabaseID, id)
}

// HasField reports whether id is a live field.
func (d *Database) HasField(id string) (bool, error) {
	idx, err := d.doc.GetMap(rootFieldIndex)
	if err != nil {
		return false, err
	}
	return typed.Bool(idx, id), nil
}

// GetField reads the field identified by id.
func (d *Database) GetField(id string) (Field, bool, error) {
	ok, err := d.HasField(id)
	if err != nil || !ok {
		return Field{}, false, err
	}
	m, err := d.doc.GetMap(fieldRoot(id))
	if err != nil {
		return Field{}, false, err
	}
	f := Field{
		ID:        id,
		Name:      typed.Str(m, "name"),
		FieldType: typed.I64(m, "field_type"),
		Icon:      typed.Str(m, "icon"),
		IsPrimary: typed.Bool(m, "is_primary"),
	}
	if opts, ok := typed.Any(m, "type_options").(map[string]any); ok {
		f.TypeOptions = opts
	}
	return f, true, nil
}

// Fields returns every live field, in unspecified order.
func (d *Database) Fields() ([]Field, error) {
	idx, err := d.doc.GetMap(rootFieldIndex)
	if err != nil {
		return nil, err
	}
	out := make([]Field, 0, idx.Len())
	for _, id := range idx.Keys() {
		f, ok, err := d.GetField(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// PrimaryField returns the field with IsPrimary set. Spec §3.4 requires
// exactly one; CreateField enforces this on write, so a valid database
// always has one.
func (d *Database) PrimaryField() (Field, bool, error) {
	fields, err := d.Fields()
	if err != nil {
		return Field{}, false, err
	}
	for _, f := range fields {
		if f.IsPrimary {
			return f, true, nil
		}
	}
	return Field{}, false, nil
}

// CreateField inserts f. If f.IsPrimary, any existing primary field is
// demoted first, preserving the "exactly one primary field" invariant.
func CreateField(tx *crdt.WriteTxn, f Field) error {
	if f.IsPrimary {
		if err := demotePrimary(tx); err != nil {
			return err
		}
	}
	if err := typed.SetBool(tx, rootFieldIndex, f.ID, true); err != nil {
		return err
	}
	root := fieldRoot(f.ID)
	if err := typed.SetStr(tx, root, "name", f.Name); err != nil {
		return err
	}
	if err := typed.SetI64(tx, root, "field_type", f.FieldType); err != nil {
		return err
	}
	if err := typed.SetStr(tx, root, "icon", f.Icon); err != nil {
		return err
	}
	if err := typed.SetBool(tx, root, "is_primary", f.IsPrimary); err != nil {
		return err
	}
	if f.TypeOptions != nil {
		if err := typed.SetAny(tx, root, "type_options", f.TypeOptions); err != nil {
			return err
		}
	}
	return nil
}

// primaryFieldIDTx finds the id of the current primary field, reading
// entirely through tx so it is safe to call from inside a transaction
// closure (Doc.mu is already held for its whole duration; a call into
// a *Database accessor, which re-locks it, would deadlock).
func primaryFieldIDTx(tx *crdt.WriteTxn) (string, bool, error) {
	idx, err := tx.Map(rootFieldIndex)
	if err != nil {
		return "", false, err
	}
	for _, id := range idx.Keys() {
		if !typed.Bool(idx, id) {
			continue
		}
		fm, err := tx.Map(fieldRoot(id))
		if err != nil {
			return "", false, err
		}
		if typed.Bool(fm, "is_primary") {
			return id, true, nil
		}
	}
	return "", false, nil
}

func demotePrimary(tx *crdt.WriteTxn) error {
	id, ok, err := primaryFieldIDTx(tx)
	if err != nil || !ok {
		return err
	}
	return typed.SetBool(tx, fieldRoot(id), "is_primary", false)
}

// FieldUpdater mutates the fields of an existing Field in place.
type FieldUpdater struct {
	Name        *string
	Icon        *string
	TypeOptions map[string]any
}

// UpdateField applies u to the field identified by id. Promoting a
// field to primary is a dedicated operation (SetPrimaryField), not part
// of this updater, so a caller cannot accidentally strand the database
// without a primary field.
func UpdateField(tx *crdt.WriteTxn, id string, u FieldUpdater) error {
	idx, err := tx.Map(rootFieldIndex)
	if err != nil {
		return err
	}
	if !typed.Bool(idx, id) {
		return nil
	}
	root := fieldRoot(id)
	if u.Name != nil {
		if err := typed.SetStr(tx, root, "name", *u.Name); err != nil {
			return err
		}
	}
	if u.Icon != nil {
		if err := typed.SetStr(tx, root, "icon", *u.Icon); err != nil {
			return err
		}
	}
	if u.TypeOptions != nil {
		if err := typed.SetAny(tx, root, "type_options", u.TypeOptions); err != nil {
			return err
		}
	}
	return nil
}

// SetPrimaryField promotes id to primary, demoting whichever field
// currently holds it.
func SetPrimaryField(tx *crdt.WriteTxn, id string) error {
	idx, err := tx.Map(rootFieldIndex)
	if err != nil {
		return err
	}
	if !typed.Bool(idx, id) {
		return fmt.Errorf("database: field %q does not exist", id)
	}
	if err := demotePrimary(tx); err != nil {
		return err
	}
	return typed.SetBool(tx, fieldRoot(id), "is_primary", true)
}

// DeleteField tombstones the field identified by id. Per spec §3.4's
// field_order invariant (b), callers must also remove id from every
// view's field_orders; this function only removes the field itself.
func DeleteField(tx *crdt.WriteTxn, id string) error {
	return typed.Delete(tx, rootFieldIndex, id)
}

// HasView reports whether id is a currently linked view.
func (d *Database) HasView(id string) (bool, error) {
	idx, err := d.doc.GetMap(rootLinkedViews)
	if err != nil {
		return false, err
	}
	return typed.Bool(idx, id), nil
}

// LinkedViews returns metas.linked_views: the authoritative set of view
// ids currently linked to the database.
func (d *Database) LinkedViews() ([]string, error) {
	idx, err := d.doc.GetMap(rootLinkedViews)
	if err != nil {
		return nil, err
	}
	return idx.Keys(), nil
}

// GetView reads the view identified by id, including its row_orders and
// field_orders.
func (d *Database) GetView(id string) (View, bool, error) {
	ok, err := d.HasView(id)
	if err != nil || !ok {
		return View{}, false, err
	}
	m, err := d.doc.GetMap(viewRoot(id))
	if err != nil {
		return View{}, false, err
	}
	v := View{
		ID:         id,
		DatabaseID: typed.Str(m, "database_id"),
		Layout:     Layout(typed.I64(m, "layout")),
		CreatedAt:  typed.I64(m, "created_at"),
		ModifiedAt: typed.I64(m, "modified_at"),
		Embedded:   typed.Bool(m, "embedded"),
	}
	if ls, ok := typed.Any(m, "layout_settings").(map[string]any); ok {
		v.LayoutSettings = ls
	}
	if fs, ok := typed.Any(m, "field_settings").(map[string]any); ok {
		v.FieldSettings = fs
	}
	if filters, ok := typed.Any(m, "filters").([]any); ok {
		v.Filters = filters
	}
	if sorts, ok := typed.Any(m, "sorts").([]any); ok {
		v.Sorts = sorts
	}
	v.GroupSettings = typed.Any(m, "group_settings")
	return v, true, nil
}

// RowOrders returns the view's row_orders, in order.
func (d *Database) RowOrders(viewID string) ([]RowOrder, error) {
	arr, err := d.doc.GetArray(rowOrdersRoot(viewID))
	if err != nil {
		return nil, err
	}
	items := order.List(arr)
	out := make([]RowOrder, len(items))
	for i, item := range items {
		out[i] = rowOrderFromItem(item)
	}
	return out, nil
}

// FieldOrders returns the view's field_orders, in order.
func (d *Database) FieldOrders(viewID string) ([]FieldOrder, error) {
	arr, err := d.doc.GetArray(fieldOrdersRoot(viewID))
	if err != nil {
		return nil, err
	}
	items := order.List(arr)
	out := make([]FieldOrder, len(items))
	for i, item := range items {
		out[i] = fieldOrderFromItem(item)
	}
	return out, nil
}

// CreateView inserts v as a newly linked view, seeding its row_orders
// and field_orders.
func CreateView(tx *crdt.WriteTxn, v View, rowOrders []RowOrder, fieldOrders []FieldOrder) error {
	if err := typed.SetBool(tx, rootLinkedViews, v.ID, true); err != nil {
		return err
	}
	root := viewRoot(v.ID)
	if err := typed.SetStr(tx, root, "database_id", v.DatabaseID); err != nil {
		return err
	}
	if err := typed.SetI64(tx, root, "layout", int64(v.Layout)); err != nil {
		return err
	}
	if v.LayoutSettings != nil {
		if err := typed.SetAny(tx, root, "layout_settings", v.LayoutSettings); err != nil {
			return err
		}
	}
	if v.FieldSettings != nil {
		if err := typed.SetAny(tx, root, "field_settings", v.FieldSettings); err != nil {
			return err
		}
	}
	if v.Filters != nil {
		if err := typed.SetAny(tx, root, "filters", v.Filters); err != nil {
			return err
		}
	}
	if v.Sorts != nil {
		if err := typed.SetAny(tx, root, "sorts", v.Sorts); err != nil {
			return err
		}
	}
	if v.GroupSettings != nil {
		if err := typed.SetAny(tx, root, "group_settings", v.GroupSettings); err != nil {
			return err
		}
	}
	if err := typed.SetI64(tx, root, "created_at", v.CreatedAt); err != nil {
		return err
	}
	if err := typed.SetI64(tx, root, "modified_at", v.ModifiedAt); err != nil {
		return err
	}
	if err := typed.SetBool(tx, root, "embedded", v.Embedded); err != nil {
		return err
	}

	rowItems := make([]order.Item, len(rowOrders))
	for i, ro := range rowOrders {
		rowItems[i] = ro.toItem()
	}
	if err := order.SetOrders(tx, rowOrdersRoot(v.ID), rowItems); err != nil {
		return err
	}
	fieldItems := make([]order.Item, len(fieldOrders))
	for i, fo := range fieldOrders {
		fieldItems[i] = fo.toItem()
	}
	return order.SetOrders(tx, fieldOrdersRoot(v.ID), fieldItems)
}

// ViewUpdater mutates the scalar/blob fields of an existing view.
type ViewUpdater struct {
	LayoutSettings map[string]any
	FieldSettings  map[string]any
	Filters        []any
	Sorts          []any
	GroupSettings  any
	ModifiedAt     *int64
}

// UpdateView applies u to the view identified by id.
func UpdateView(tx *crdt.WriteTxn, id string, u ViewUpdater) error {
	idx, err := tx.Map(rootLinkedViews)
	if err != nil {
		return err
	}
	if !typed.Bool(idx, id) {
		return nil
	}
	root := viewRoot(id)
	if u.LayoutSettings != nil {
		if err := typed.SetAny(tx, root, "layout_settings", u.LayoutSettings); err != nil {
			return err
		}
	}
	if u.FieldSettings != nil {
		if err := typed.SetAny(tx, root, "field_settings", u.FieldSettings); err != nil {
			return err
		}
	}
	if u.Filters != nil {
		if err := typed.SetAny(tx, root, "filters", u.Filters); err != nil {
			return err
		}
	}
	if u.Sorts != nil {
		if err := typed.SetAny(tx, root, "sorts", u.Sorts); err != nil {
			return err
		}
	}
	if u.GroupSettings != nil {
		if err := typed.SetAny(tx, root, "group_settings", u.GroupSettings); err != nil {
			return err
		}
	}
	if u.ModifiedAt != nil {
		if err := typed.SetI64(tx, root, "modified_at", *u.ModifiedAt); err != nil {
			return err
		}
	}
	return nil
}

// DeleteView unlinks the view identified by id. Per spec §3.4 invariant
// (c), this removes only that view: the database and its other views
// are untouched.
func DeleteView(tx *crdt.WriteTxn, id string) error {
	return typed.Delete(tx, rootLinkedViews, id)
}

// InsertRowOrder inserts a row into view id's row_orders at pos
// (see internal/entity/order.Position).
func InsertRowOrder(tx *crdt.WriteTxn, viewID string, ro RowOrder, pos order.Position, refRowID string) error {
	return order.Insert(tx, rowOrdersRoot(viewID), ro.toItem(), pos, refRowID)
}

// RemoveRowOrder removes rowID from view id's row_orders.
func RemoveRowOrder(tx *crdt.WriteTxn, viewID, rowID string) error {
	return order.Remove(tx, rowOrdersRoot(viewID), rowID)
}

// MoveRowOrder relocates fromRowID to immediately before toRowID within
// view id's row_orders.
func MoveRowOrder(tx *crdt.WriteTxn, viewID, fromRowID, toRowID string) error {
	return order.MoveTo(tx, rowOrdersRoot(viewID), fromRowID, toRowID)
}

// InsertFieldOrder inserts a field into view id's field_orders at pos.
func InsertFieldOrder(tx *crdt.WriteTxn, viewID string, fo FieldOrder, pos order.Position, refFieldID string) error {
	return order.Insert(tx, fieldOrdersRoot(viewID), fo.toItem(), pos, refFieldID)
}

// RemoveFieldOrder removes fieldID from view id's field_orders.
func RemoveFieldOrder(tx *crdt.WriteTxn, viewID, fieldID string) error {
	return order.Remove(tx, fieldOrdersRoot(viewID), fieldID)
}

// Validate checks the structural invariants of spec §3.4:
// (b) every field_order.field_id exists in fields, which is the only
// check it performs.
// Invariant (d) (field_orders/row_orders are view-local) holds by the
// per-view root naming and is not checked here.
// Invariant (a) (every row_order.row_id refers to a distinct row
// document) is not checkable from the database document alone — it
// requires cross-referencing internal/rowblock's cache/persistence, and
// is enforced there instead.
func (d *Database) Validate() error {
	views, err := d.LinkedViews()
	if err != nil {
		return err
	}
	for _, viewID := range views {
		fieldOrders, err := d.FieldOrders(viewID)
		if err != nil {
			return err
		}
		for _, fo := range fieldOrders {
			if ok, err := d.HasField(fo.FieldID); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("database: view %q field_orders references unknown field %q", viewID, fo.FieldID)
			}
		}
	}
	return nil
}
