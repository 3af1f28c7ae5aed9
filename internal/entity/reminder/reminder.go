// Package reminder implements the reminder record referenced by
// SPEC_FULL.md's reminders supplement: a small typed-map entry
// scheduling a notification against an arbitrary object id (a block, a
// row, a whole document), built from the same reader/builder/updater
// pattern as every other typed projection (spec §4.3.1).
package reminder

import (
	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/entity/typed"
)

const rootReminder = "reminder"

// Reminder is one scheduled reminder record.
type Reminder struct {
	ID          string
	ObjectID    string
	ScheduledAt int64 // unix seconds
	IsAck       bool
	Meta        map[string]any
}

// Wrapper wraps a *crdt.Doc as the reminder entity's typed projection.
// Each reminder is small enough to be its own CRDT document, the same
// ownership model as a row (internal/entity/row): it is created once
// and never grows additional nested structure.
type Wrapper struct {
	doc *crdt.Doc
}

// New wraps doc as a reminder entity.
func New(doc *crdt.Doc) *Wrapper { return &Wrapper{doc: doc} }

// Doc returns the underlying CRDT document.
func (w *Wrapper) Doc() *crdt.Doc { return w.doc }

// Read returns the reminder's current fields.
func (w *Wrapper) Read() (Reminder, error) {
	m, err := w.doc.GetMap(rootReminder)
	if err != nil {
		return Reminder{}, err
	}
	rem := Reminder{
		ID:          typed.Str(m, "id"),
		ObjectID:    typed.Str(m, "object_id"),
		ScheduledAt: typed.I64(m, "scheduled_at"),
		IsAck:       typed.Bool(m, "is_ack"),
	}
	if meta, ok := typed.Any(m, "meta").(map[string]any); ok {
		rem.Meta = meta
	}
	return rem, nil
}

// Create seeds a freshly allocated reminder document.
func Create(tx *crdt.WriteTxn, r Reminder) error {
	if err := typed.SetStr(tx, rootReminder, "id", r.ID); err != nil {
		return err
	}
	if err := typed.SetStr(tx, rootReminder, "object_id", r.ObjectID); err != nil {
		return err
	}
	if err := typed.SetI64(tx, rootReminder, "scheduled_at", r.ScheduledAt); err != nil {
		return err
	}
	if err := typed.SetBool(tx, rootReminder, "is_ack", r.IsAck); err != nil {
		return err
	}
	if r.Meta != nil {
		if err := typed.SetAny(tx, rootReminder, "meta", r.Meta); err != nil {
			return err
		}
	}
	return nil
}

// Updater mutates an existing reminder's fields in place.
type Updater struct {
	ScheduledAt *int64
	IsAck       *bool
	Meta        map[string]any
}

// Update applies u to the reminder.
func Update(tx *crdt.WriteTxn, u Updater) error {
	if u.ScheduledAt != nil {
		if err := typed.SetI64(tx, rootReminder, "scheduled_at", *u.ScheduledAt); err != nil {
			return err
		}
	}
	if u.IsAck != nil {
		if err := typed.SetBool(tx, rootReminder, "is_ack", *u.IsAck); err != nil {
			return err
		}
	}
	if u.Meta != nil {
		if err := typed.SetAny(tx, rootReminder, "meta", u.Meta); err != nil {
			return err
		}
	}
	return nil
}

// Ack marks the reminder acknowledged, the common single-field update.
func Ack(tx *crdt.WriteTxn) error {
	return typed.SetBool(tx, rootReminder, "is_ack", true)
}
