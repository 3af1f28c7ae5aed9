package row

import "github.com/foldkeep/collabd/internal/crdt"

// ChangeKind tags the shape of one RowChange (spec §3.6).
type ChangeKind int

const (
	DidUpdateVisibility ChangeKind = iota
	DidUpdateHeight
	DidUpdateCell
)

// RowChange is a high-level row change derived from the CRDT events a
// committed transaction produces, the translation spec §3.6 calls
// "typed change streams".
type RowChange struct {
	Kind          ChangeKind
	Visibility    bool
	Height        int64
	FieldID       string
	Value         any
	IsLocalChange bool
}

// Observe subscribes to row-level changes on r's document, translating
// each committed transaction's raw crdt.Event list into RowChange
// values. IsLocalChange is derived by comparing the transaction's origin
// client id against r's own document client id, per spec §3.6's
// "is_local_change flag derived from the transaction's origin".
func (r *Row) Observe(fn func(RowChange)) func() {
	return r.doc.Observe(func(events []crdt.Event) {
		for _, ev := range events {
			isLocal := ev.Origin.Kind == crdt.OriginClient && ev.Origin.ClientID == r.doc.ClientID
			switch ev.Root {
			case rootData:
				if len(ev.Path) == 0 {
					continue
				}
				switch ev.Path[0] {
				case "visibility":
					data, err := r.Data()
					if err != nil {
						continue
					}
					fn(RowChange{Kind: DidUpdateVisibility, Visibility: data.Visibility, IsLocalChange: isLocal})
				case "height":
					data, err := r.Data()
					if err != nil {
						continue
					}
					fn(RowChange{Kind: DidUpdateHeight, Height: data.Height, IsLocalChange: isLocal})
				}
			case rootCells:
				if len(ev.Path) == 0 {
					continue
				}
				fieldID := ev.Path[0]
				value, err := r.Cell(fieldID)
				if err != nil {
					continue
				}
				fn(RowChange{Kind: DidUpdateCell, FieldID: fieldID, Value: value, IsLocalChange: isLocal})
			}
		}
	})
}
