// Package section implements the generic SectionMap abstraction
// supplementing spec.md §3.6's "Section change: used by user-collection
// roots" — the single shared structure backing favorites, trash,
// recent, and private object lists (spec.md §9 Open Question, resolved
// in DESIGN.md): a per-user ordered array of object ids, plus a
// parent/child Relation index for hierarchical views (folder/workspace
// trees).
//
// Each SectionMap instance is keyed by its own section type string
// ("favorite", "trash", "recent", "private", ...) and lives inside
// whichever CRDT document owns that user-collection root (typically a
// per-workspace or per-user document, not a per-object one).
package section

import (
	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/entity/order"
	"github.com/foldkeep/collabd/internal/entity/typed"
)

const relationSuffix = ":relation"

// SectionMap wraps a *crdt.Doc as one section's typed projection.
type SectionMap struct {
	doc         *crdt.Doc
	sectionType string
}

// New wraps doc as the section named sectionType ("favorite", "trash",
// "recent", "private", or a caller-defined type).
func New(doc *crdt.Doc, sectionType string) *SectionMap {
	return &SectionMap{doc: doc, sectionType: sectionType}
}

func (s *SectionMap) userRoot(userID string) string {
	return "section:" + s.sectionType + ":" + userID
}

func (s *SectionMap) relationRoot() string {
	return "section:" + s.sectionType + relationSuffix
}

// Items returns userID's ordered object ids in this section.
func (s *SectionMap) Items(userID string) ([]string, error) {
	arr, err := s.doc.GetArray(s.userRoot(userID))
	if err != nil {
		return nil, err
	}
	items := order.List(arr)
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = order.IDOf(item)
	}
	return out, nil
}

// SetItems replaces userID's entire ordered object id list.
func (s *SectionMap) SetItems(tx *crdt.WriteTxn, userID string, objectIDs []string) error {
	items := make([]order.Item, len(objectIDs))
	for i, id := range objectIDs {
		items[i] = order.Item{"id": id}
	}
	return order.SetOrders(tx, s.userRoot(userID), items)
}

// Insert places objectID in userID's list at pos, relative to refID for
// Before/After.
func (s *SectionMap) Insert(tx *crdt.WriteTxn, userID, objectID string, pos order.Position, refID string) error {
	return order.Insert(tx, s.userRoot(userID), order.Item{"id": objectID}, pos, refID)
}

// Remove deletes objectID from userID's list, if present.
func (s *SectionMap) Remove(tx *crdt.WriteTxn, userID, objectID string) error {
	return order.Remove(tx, s.userRoot(userID), objectID)
}

// MoveTo relocates fromID to immediately before toID within userID's list.
func (s *SectionMap) MoveTo(tx *crdt.WriteTxn, userID, fromID, toID string) error {
	return order.MoveTo(tx, s.userRoot(userID), fromID, toID)
}

// SetParent records parentID as childID's parent in this section's
// Relation index, for hierarchical (folder/workspace tree) views.
func (s *SectionMap) SetParent(tx *crdt.WriteTxn, childID, parentID string) error {
	return typed.SetStr(tx, s.relationRoot(), childID, parentID)
}

// Parent returns childID's parent, if recorded.
func (s *SectionMap) Parent(childID string) (string, bool, error) {
	m, err := s.doc.GetMap(s.relationRoot())
	if err != nil {
		return "", false, err
	}
	return typed.StrOk(m, childID)
}

// Children returns every id recorded with parentID as its parent.
func (s *SectionMap) Children(parentID string) ([]string, error) {
	m, err := s.doc.GetMap(s.relationRoot())
	if err != nil {
		return nil, err
	}
	var out []string
	for _, childID := range m.Keys() {
		if typed.Str(m, childID) == parentID {
			out = append(out, childID)
		}
	}
	return out, nil
}

// RemoveParent clears childID's recorded parent.
func (s *SectionMap) RemoveParent(tx *crdt.WriteTxn, childID string) error {
	return typed.Delete(tx, s.relationRoot(), childID)
}
