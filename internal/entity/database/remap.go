package database

import "github.com/foldkeep/collabd/internal/crdt"

// Snapshot is a plain, CRDT-free copy of a database document's state,
// used by Remap and Build to implement spec.md §4.3.4's
// duplication/import remapping: Remap never touches a live *crdt.Doc
// directly (there is no in-place "rename every id" primitive over a
// CRDT map), it rewrites a Snapshot, and Build then materializes the
// rewritten Snapshot into a fresh document via the ordinary builder
// calls (CreateField/CreateView), exactly as if a client had built it
// from scratch.
type Snapshot struct {
	DatabaseID string
	Fields     []Field
	Views      []ViewSnapshot
	// RowMetas holds any row-keyed metadata cached at the database
	// level (e.g. for bulk listing without opening each row's own
	// document); keyed by row id.
	RowMetas map[string]map[string]any
}

// ViewSnapshot bundles a View with its ordered row/field lists, the unit
// Remap and Build operate on.
type ViewSnapshot struct {
	View
	RowOrders   []RowOrder
	FieldOrders []FieldOrder
}

// ReadSnapshot flattens db's current state into a Snapshot.
func ReadSnapshot(db *Database) (*Snapshot, error) {
	databaseID, err := db.DatabaseID()
	if err != nil {
		return nil, err
	}
	fields, err := db.Fields()
	if err != nil {
		return nil, err
	}
	viewIDs, err := db.LinkedViews()
	if err != nil {
		return nil, err
	}
	views := make([]ViewSnapshot, 0, len(viewIDs))
	for _, id := range viewIDs {
		v, ok, err := db.GetView(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rowOrders, err := db.RowOrders(id)
		if err != nil {
			return nil, err
		}
		fieldOrders, err := db.FieldOrders(id)
		if err != nil {
			return nil, err
		}
		views = append(views, ViewSnapshot{View: v, RowOrders: rowOrders, FieldOrders: fieldOrders})
	}
	return &Snapshot{DatabaseID: databaseID, Fields: fields, Views: views}, nil
}

// mapID rewrites id through idMapping, passing it through unchanged if
// it has no entry (spec §4.3.4: "unknown ids pass through unchanged").
func mapID(idMapping map[string]string, id string) string {
	if id == "" {
		return id
	}
	if mapped, ok := idMapping[id]; ok {
		return mapped
	}
	return id
}

// Remap rewrites snap's database id, every view id, every view's
// database_id, and every row_order's row id, per spec §4.3.4. Field ids
// are left untouched: the spec's remap list does not name them, since
// fields are not independently addressable documents the way rows and
// views are.
func Remap(snap *Snapshot, idMapping map[string]string) *Snapshot {
	out := &Snapshot{
		DatabaseID: mapID(idMapping, snap.DatabaseID),
		Fields:     append([]Field(nil), snap.Fields...),
	}
	out.Views = make([]ViewSnapshot, len(snap.Views))
	for i, v := range snap.Views {
		nv := v
		nv.ID = mapID(idMapping, v.ID)
		nv.DatabaseID = mapID(idMapping, v.DatabaseID)
		nv.RowOrders = make([]RowOrder, len(v.RowOrders))
		for j, ro := range v.RowOrders {
			nv.RowOrders[j] = RowOrder{RowID: mapID(idMapping, ro.RowID), Height: ro.Height}
		}
		nv.FieldOrders = append([]FieldOrder(nil), v.FieldOrders...)
		out.Views[i] = nv
	}
	if snap.RowMetas != nil {
		out.RowMetas = make(map[string]map[string]any, len(snap.RowMetas))
		for rowID, meta := range snap.RowMetas {
			out.RowMetas[mapID(idMapping, rowID)] = meta
		}
	}
	return out
}

// Build materializes snap into tx's document from scratch, using the
// same CreateField/CreateView builder calls a client would use to build
// a database the first time. This is what makes a remapped duplicate's
// state canonical rather than a patched copy of the original's CRDT op
// log.
func Build(tx *crdt.WriteTxn, snap *Snapshot) error {
	if err := SetDatabaseID(tx, snap.DatabaseID); err != nil {
		return err
	}
	for _, f := range snap.Fields {
		if err := CreateField(tx, f); err != nil {
			return err
		}
	}
	for _, v := range snap.Views {
		if err := CreateView(tx, v.View, v.RowOrders, v.FieldOrders); err != nil {
			return err
		}
	}
	return nil
}
