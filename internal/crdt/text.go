package crdt

import "strings"

// Text is the sequence-CRDT root for rich text: an RGA of single-rune
// elements, giving genuine concurrent-edit convergence at the character
// level. Persisted snapshots flatten it to a TextDelta run list (the
// quill-style insert/retain/delete format the entity layer stores under
// meta.text_map), so a document loaded from disk never needs to replay
// every individual rune operation.
type Text struct {
	arr *CRDTArray
}

// NewText returns an empty text root.
func NewText() *Text {
	return &Text{arr: NewCRDTArray()}
}

// String returns the current text content.
func (t *Text) String() string {
	var b strings.Builder
	for _, v := range t.arr.Values() {
		b.WriteString(v.Str)
	}
	return b.String()
}

// Len returns the number of runes currently in the text.
func (t *Text) Len() int {
	return t.arr.Len()
}

// Array exposes the backing RGA for callers that need origin/ID-level
// access (state encoding, the sync layer).
func (t *Text) Array() *CRDTArray {
	return t.arr
}

// TextDeltaOp names one operation in a TextDelta run list.
type TextDeltaOp string

const (
	DeltaInsert TextDeltaOp = "insert"
	DeltaDelete TextDeltaOp = "delete"
	DeltaRetain TextDeltaOp = "retain"
)

// TextDelta is a single run in a quill-style delta, the JSON shape
// persisted under meta.text_map and exchanged with rich-text clients.
type TextDelta struct {
	Op         TextDeltaOp    `json:"op"`
	Insert     string         `json:"insert,omitempty"`
	Len        int            `json:"len,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ToDelta flattens the current text content into a single insert run.
// It does not reconstruct historical attribute boundaries; callers that
// need attribute runs preserved across edits must track them alongside
// the CRDT content in the entity layer.
func (t *Text) ToDelta() []TextDelta {
	s := t.String()
	if s == "" {
		return nil
	}
	return []TextDelta{{Op: DeltaInsert, Insert: s}}
}

// ApplyDeltaOps walks a TextDelta run list and applies it as a sequence
// of local inserts/deletes at the given rune cursor, using genID to mint
// an OpID for each inserted rune. This is how a loaded snapshot's
// meta.text_map is rehydrated into a live Text root, and how a client's
// delta-shaped edit is translated into RGA operations before sync.
func (t *Text) ApplyDeltaOps(deltas []TextDelta, genID func() OpID) {
	cursor := 0
	for _, d := range deltas {
		switch d.Op {
		case DeltaRetain:
			cursor += d.Len
		case DeltaInsert:
			for _, r := range d.Insert {
				originID, hasOrigin := t.arr.OriginAt(cursor)
				id := genID()
				t.arr.ApplyInsert(id, originID, hasOrigin, StringValue(string(r)))
				cursor++
			}
		case DeltaDelete:
			for i := 0; i < d.Len; i++ {
				if id, ok := t.arr.IDAt(cursor); ok {
					t.arr.ApplyDelete(id)
				}
			}
		}
	}
}

// InsertLocal inserts s at rune offset pos, minting one array element per
// rune via genID.
func (t *Text) InsertLocal(pos int, s string, genID func() OpID) {
	for _, r := range s {
		originID, hasOrigin := t.arr.OriginAt(pos)
		id := genID()
		t.arr.ApplyInsert(id, originID, hasOrigin, StringValue(string(r)))
		pos++
	}
}

// DeleteLocal deletes the n runes starting at rune offset pos.
func (t *Text) DeleteLocal(pos, n int) {
	for i := 0; i < n; i++ {
		if id, ok := t.arr.IDAt(pos); ok {
			t.arr.ApplyDelete(id)
		}
	}
}
