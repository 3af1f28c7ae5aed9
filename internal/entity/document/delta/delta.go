// Package delta converts between the JSON TextDelta wire shape and a
// live crdt.Text root, without ever calling crdt.Text's own
// ApplyDeltaOps/InsertLocal/DeleteLocal. Those methods mint OpIDs
// through a caller-supplied genID closure and write straight to the RGA,
// bypassing Doc.log — fine inside package crdt's own tests, but silent
// data loss for any other package, since EncodeStateV1 and EncodeDiffV1
// only ever look at Doc.log. Apply instead replays each run as a
// WriteTxn.InsertText/DeleteText call, the same path a plain typed
// edit takes, so every delta-shaped edit is fully log-backed and
// syncable.
package delta

import (
	"encoding/json"
	"fmt"

	"github.com/foldkeep/collabd/internal/crdt"
)

// Decode parses a JSON-encoded TextDelta run list, the shape persisted
// under meta.text_map and sent over the wire by rich-text clients.
func Decode(raw []byte) ([]crdt.TextDelta, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var deltas []crdt.TextDelta
	if err := json.Unmarshal(raw, &deltas); err != nil {
		return nil, fmt.Errorf("delta: decode: %w", err)
	}
	return deltas, nil
}

// Encode renders deltas back to the JSON run-list shape.
func Encode(deltas []crdt.TextDelta) ([]byte, error) {
	raw, err := json.Marshal(deltas)
	if err != nil {
		return nil, fmt.Errorf("delta: encode: %w", err)
	}
	return raw, nil
}

// Apply replays deltas against the text root named rootName inside tx,
// advancing a rune cursor the same way crdt.Text.ApplyDeltaOps does, but
// issuing every insert/delete through tx so each op is minted with a
// real Doc-tracked OpID and appended to Doc.log.
func Apply(tx *crdt.WriteTxn, rootName string, deltas []crdt.TextDelta) error {
	cursor := 0
	for _, d := range deltas {
		switch d.Op {
		case crdt.DeltaRetain:
			cursor += d.Len
		case crdt.DeltaInsert:
			if d.Insert == "" {
				continue
			}
			if err := tx.InsertText(rootName, cursor, d.Insert); err != nil {
				return err
			}
			cursor += runeLen(d.Insert)
		case crdt.DeltaDelete:
			if d.Len == 0 {
				continue
			}
			if err := tx.DeleteText(rootName, cursor, d.Len); err != nil {
				return err
			}
		}
	}
	return nil
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// Read flattens the current content of the text root named rootName
// into a single-run TextDelta list, the shape written to meta.text_map
// on flush.
func Read(doc *crdt.Doc, rootName string) ([]crdt.TextDelta, error) {
	t, err := doc.GetText(rootName)
	if err != nil {
		return nil, err
	}
	return t.ToDelta(), nil
}
