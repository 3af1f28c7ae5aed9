// Package row implements the row entity of spec.md §3.5: each row is
// its own CRDT document (never nested inside the database document),
// owned by the row order that references it and loaded on demand by
// internal/rowblock.
package row

import (
	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/entity/typed"
)

const (
	rootData  = "data"
	rootCells = "cells"
	rootMeta  = "meta"
)

// Data mirrors spec §3.5's data map.
type Data struct {
	ID              string
	DatabaseID      string
	Height          int64
	Visibility      bool
	CreatedAt       int64
	LastModified    int64
	CreatedBy       string
	LastModifiedBy  string
}

// Meta mirrors spec §3.5's meta map.
type Meta struct {
	IconURL         string
	Cover           string
	IsDocumentEmpty bool
	AttachmentCount int64
	DocumentID      string
}

// Row wraps a *crdt.Doc as the row entity's typed projection.
type Row struct {
	doc *crdt.Doc
}

// New wraps doc as a row entity.
func New(doc *crdt.Doc) *Row { return &Row{doc: doc} }

// Doc returns the underlying CRDT document.
func (r *Row) Doc() *crdt.Doc { return r.doc }

// Data reads the row's data map.
func (r *Row) Data() (Data, error) {
	m, err := r.doc.GetMap(rootData)
	if err != nil {
		return Data{}, err
	}
	return Data{
		ID:             typed.Str(m, "id"),
		DatabaseID:     typed.Str(m, "database_id"),
		Height:         typed.I64(m, "height"),
		Visibility:     typed.Bool(m, "visibility"),
		CreatedAt:      typed.I64(m, "created_at"),
		LastModified:   typed.I64(m, "last_modified"),
		CreatedBy:      typed.Str(m, "created_by"),
		LastModifiedBy: typed.Str(m, "last_modified_by"),
	}, nil
}

// Meta reads the row's meta map.
func (r *Row) Meta() (Meta, error) {
	m, err := r.doc.GetMap(rootMeta)
	if err != nil {
		return Meta{}, err
	}
	return Meta{
		IconURL:         typed.Str(m, "icon_url"),
		Cover:           typed.Str(m, "cover"),
		IsDocumentEmpty: typed.Bool(m, "is_document_empty"),
		AttachmentCount: typed.I64(m, "attachment_count"),
		DocumentID:      typed.Str(m, "document_id"),
	}, nil
}

// Cell reads the cell blob for fieldID, or nil if unset.
func (r *Row) Cell(fieldID string) (any, error) {
	m, err := r.doc.GetMap(rootCells)
	if err != nil {
		return nil, err
	}
	return typed.Any(m, fieldID), nil
}

// Cells reads every cell currently set on the row, keyed by field id.
func (r *Row) Cells() (map[string]any, error) {
	m, err := r.doc.GetMap(rootCells)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, m.Len())
	for _, fieldID := range m.Keys() {
		out[fieldID] = typed.Any(m, fieldID)
	}
	return out, nil
}

// Create seeds a freshly allocated row document with data and meta.
func Create(tx *crdt.WriteTxn, data Data, meta Meta) error {
	if err := typed.SetStr(tx, rootData, "id", data.ID); err != nil {
		return err
	}
	if err := typed.SetStr(tx, rootData, "database_id", data.DatabaseID); err != nil {
		return err
	}
	if err := typed.SetI64(tx, rootData, "height", data.Height); err != nil {
		return err
	}
	if err := typed.SetBool(tx, rootData, "visibility", data.Visibility); err != nil {
		return err
	}
	if err := typed.SetI64(tx, rootData, "created_at", data.CreatedAt); err != nil {
		return err
	}
	if err := typed.SetI64(tx, rootData, "last_modified", data.LastModified); err != nil {
		return err
	}
	if err := typed.SetStrIfNotEmpty(tx, rootData, "created_by", data.CreatedBy); err != nil {
		return err
	}
	if err := typed.SetStrIfNotEmpty(tx, rootData, "last_modified_by", data.LastModifiedBy); err != nil {
		return err
	}
	if err := typed.SetStrIfNotEmpty(tx, rootMeta, "icon_url", meta.IconURL); err != nil {
		return err
	}
	if err := typed.SetStrIfNotEmpty(tx, rootMeta, "cover", meta.Cover); err != nil {
		return err
	}
	if err := typed.SetBool(tx, rootMeta, "is_document_empty", meta.IsDocumentEmpty); err != nil {
		return err
	}
	if err := typed.SetI64(tx, rootMeta, "attachment_count", meta.AttachmentCount); err != nil {
		return err
	}
	return typed.SetStrIfNotEmpty(tx, rootMeta, "document_id", meta.DocumentID)
}

// SetVisibility updates data.visibility, the source of a DidUpdateVisibility
// change event (spec §3.6).
func SetVisibility(tx *crdt.WriteTxn, visible bool) error {
	return typed.SetBool(tx, rootData, "visibility", visible)
}

// SetHeight updates data.height, the source of a DidUpdateHeight change
// event.
func SetHeight(tx *crdt.WriteTxn, height int64) error {
	return typed.SetI64(tx, rootData, "height", height)
}

// Touch updates last_modified/last_modified_by, as every cell/meta
// mutation should alongside its own field write.
func Touch(tx *crdt.WriteTxn, lastModified int64, lastModifiedBy string) error {
	if err := typed.SetI64(tx, rootData, "last_modified", lastModified); err != nil {
		return err
	}
	return typed.SetStrIfNotEmpty(tx, rootData, "last_modified_by", lastModifiedBy)
}

// SetCell writes value as the cell blob for fieldID, the source of a
// DidUpdateCell change event.
func SetCell(tx *crdt.WriteTxn, fieldID string, value any) error {
	return typed.SetAny(tx, rootCells, fieldID, value)
}

// DeleteCell clears fieldID's cell.
func DeleteCell(tx *crdt.WriteTxn, fieldID string) error {
	return typed.Delete(tx, rootCells, fieldID)
}

// MetaUpdater applies a partial update to the row's meta map.
type MetaUpdater struct {
	IconURL         *string
	Cover           *string
	IsDocumentEmpty *bool
	AttachmentCount *int64
	DocumentID      *string
}

// UpdateMeta applies u to the row's meta map.
func UpdateMeta(tx *crdt.WriteTxn, u MetaUpdater) error {
	if u.IconURL != nil {
		if err := typed.SetStr(tx, rootMeta, "icon_url", *u.IconURL); err != nil {
			return err
		}
	}
	if u.Cover != nil {
		if err := typed.SetStr(tx, rootMeta, "cover", *u.Cover); err != nil {
			return err
		}
	}
	if u.IsDocumentEmpty != nil {
		if err := typed.SetBool(tx, rootMeta, "is_document_empty", *u.IsDocumentEmpty); err != nil {
			return err
		}
	}
	if u.AttachmentCount != nil {
		if err := typed.SetI64(tx, rootMeta, "attachment_count", *u.AttachmentCount); err != nil {
			return err
		}
	}
	if u.DocumentID != nil {
		if err := typed.SetStr(tx, rootMeta, "document_id", *u.DocumentID); err != nil {
			return err
		}
	}
	return nil
}

// RemapIDs rewrites the row's own id and database_id per spec §4.3.4's
// "every row.id and row.database_id" remap rule. Unlike database.Remap,
// a row document is small enough to patch in place rather than rebuild
// from a snapshot: its only identity-bearing fields are these two.
func RemapIDs(tx *crdt.WriteTxn, idMapping map[string]string) error {
	m, err := tx.Map(rootData)
	if err != nil {
		return err
	}
	if id := typed.Str(m, "id"); id != "" {
		if mapped, ok := idMapping[id]; ok {
			if err := typed.SetStr(tx, rootData, "id", mapped); err != nil {
				return err
			}
		}
	}
	if dbID := typed.Str(m, "database_id"); dbID != "" {
		if mapped, ok := idMapping[dbID]; ok {
			if err := typed.SetStr(tx, rootData, "database_id", mapped); err != nil {
				return err
			}
		}
	}
	return nil
}
