package crdt

// Event describes one committed change to a root, delivered to observers
// after a transaction commits. Path identifies the root (and, for nested
// containers, the key/index chain beneath it); entity-layer observers use
// Path to decide which typed projection to re-read.
type Event struct {
	Root   string
	Path   []string
	Origin Origin
}

// ObserverFunc receives the events produced by one committed transaction.
type ObserverFunc func(events []Event)

// WriteTxn is a single read-write transaction against a Doc. All writes
// made through a WriteTxn are tagged with the transaction's Origin and
// are applied to the document as they are made. An error returned from
// the Doc.TransactWith callback does not undo writes already made; it
// only suppresses observer notification.
type WriteTxn struct {
	doc    *Doc
	origin Origin
	closed bool
	events []Event
}

// Origin returns the origin this transaction's writes are tagged with.
func (tx *WriteTxn) Origin() Origin { return tx.origin }

func (tx *WriteTxn) mustOpen() {
	if tx.closed {
		panic(ErrClosedTxn)
	}
}

func (tx *WriteTxn) emit(root string, path ...string) {
	tx.events = append(tx.events, Event{Root: root, Path: path, Origin: tx.origin})
}

// Map returns the map root named name on the transaction's document,
// creating it as a map if it does not exist yet.
func (tx *WriteTxn) Map(name string) (*CRDTMap, error) {
	tx.mustOpen()
	r, err := tx.doc.getOrCreateRoot(name, RootMap)
	if err != nil {
		return nil, err
	}
	return r.m, nil
}

// Array returns the array root named name, creating it if needed.
func (tx *WriteTxn) Array(name string) (*CRDTArray, error) {
	tx.mustOpen()
	r, err := tx.doc.getOrCreateRoot(name, RootArray)
	if err != nil {
		return nil, err
	}
	return r.a, nil
}

// Text returns the text root named name, creating it if needed.
func (tx *WriteTxn) Text(name string) (*Text, error) {
	tx.mustOpen()
	r, err := tx.doc.getOrCreateRoot(name, RootText)
	if err != nil {
		return nil, err
	}
	return r.t, nil
}

// SetMapKey writes value at key in the named map root.
func (tx *WriteTxn) SetMapKey(rootName, key string, value Value) error {
	m, err := tx.Map(rootName)
	if err != nil {
		return err
	}
	id := tx.doc.nextOpID()
	if m.applySet(key, id, value) {
		tx.doc.log = append(tx.doc.log, LoggedOp{Root: rootName, RootKind: RootMap, MapKey: key, ID: id, Value: value, Set: true})
		tx.emit(rootName, key)
	}
	return nil
}

// DeleteMapKey tombstones key in the named map root. Deleting a key that
// is absent or already deleted is a no-op.
func (tx *WriteTxn) DeleteMapKey(rootName, key string) error {
	m, err := tx.Map(rootName)
	if err != nil {
		return err
	}
	if _, ok := m.Get(key); !ok {
		return nil
	}
	id := tx.doc.nextOpID()
	if m.applyDelete(key, id) {
		tx.doc.log = append(tx.doc.log, LoggedOp{Root: rootName, RootKind: RootMap, MapKey: key, ID: id, Set: false})
		tx.emit(rootName, key)
	}
	return nil
}

// InsertArray inserts value at visible index pos in the named array root.
func (tx *WriteTxn) InsertArray(rootName string, pos int, value Value) error {
	a, err := tx.Array(rootName)
	if err != nil {
		return err
	}
	originID, hasOrigin := a.OriginAt(pos)
	id := tx.doc.nextOpID()
	if a.ApplyInsert(id, originID, hasOrigin, value) {
		tx.doc.log = append(tx.doc.log, LoggedOp{Root: rootName, RootKind: RootArray, ID: id, OriginID: originID, HasOrigin: hasOrigin, Value: value, Set: true})
		tx.emit(rootName)
	}
	return nil
}

// DeleteArrayAt tombstones the element at visible index pos in the named
// array root.
func (tx *WriteTxn) DeleteArrayAt(rootName string, pos int) error {
	a, err := tx.Array(rootName)
	if err != nil {
		return err
	}
	id, ok := a.IDAt(pos)
	if !ok {
		return nil
	}
	if a.ApplyDelete(id) {
		tx.doc.log = append(tx.doc.log, LoggedOp{Root: rootName, RootKind: RootArray, ID: id, Deleted: true, Set: false})
		tx.emit(rootName)
	}
	return nil
}

// InsertText inserts s at rune offset pos in the named text root.
func (tx *WriteTxn) InsertText(rootName string, pos int, s string) error {
	t, err := tx.Text(rootName)
	if err != nil {
		return err
	}
	for _, r := range s {
		originID, hasOrigin := t.arr.OriginAt(pos)
		id := tx.doc.nextOpID()
		t.arr.ApplyInsert(id, originID, hasOrigin, StringValue(string(r)))
		tx.doc.log = append(tx.doc.log, LoggedOp{Root: rootName, RootKind: RootText, ID: id, OriginID: originID, HasOrigin: hasOrigin, Value: StringValue(string(r)), Set: true})
		pos++
	}
	if s != "" {
		tx.emit(rootName)
	}
	return nil
}

// DeleteText deletes n runes starting at rune offset pos in the named
// text root.
func (tx *WriteTxn) DeleteText(rootName string, pos, n int) error {
	t, err := tx.Text(rootName)
	if err != nil {
		return err
	}
	deletedAny := false
	for i := 0; i < n; i++ {
		if id, ok := t.arr.IDAt(pos); ok {
			if t.arr.ApplyDelete(id) {
				tx.doc.log = append(tx.doc.log, LoggedOp{Root: rootName, RootKind: RootText, ID: id, Deleted: true, Set: false})
				deletedAny = true
			}
		}
	}
	if deletedAny {
		tx.emit(rootName)
	}
	return nil
}
