package crdt

import "sync"

// RootKind tags the container type bound to a root name.
type RootKind uint8

const (
	RootMap RootKind = iota
	RootArray
	RootText
)

type root struct {
	kind RootKind
	m    *CRDTMap
	a    *CRDTArray
	t    *Text
}

// LoggedOp is one applied operation, kept in Doc's append-only op log so
// the document can later re-derive a full state encode or a diff against
// an arbitrary state vector without needing a separate undo/redo stack.
type LoggedOp struct {
	Root     string
	RootKind RootKind

	// map op fields
	MapKey string

	// array/text op fields
	OriginID  OpID
	HasOrigin bool
	Deleted   bool

	ID    OpID
	Value Value
	Set   bool // true for a set/insert, false for a delete
}

// Doc is a single CRDT document: a fixed client ID, a set of named root
// containers (maps, arrays or text), a local Lamport clock and the
// highest clock observed per client, used to build state vectors.
type Doc struct {
	mu       sync.Mutex
	ClientID uint64
	ID       string

	roots  map[string]*root
	clocks map[uint64]uint32 // per-client max clock observed
	log    []LoggedOp

	obsReg *observerRegistry
}

// NewDoc returns an empty document owned by clientID, identified by id
// (typically the persisted DocID).
func NewDoc(clientID uint64, id string) *Doc {
	return &Doc{
		ClientID: clientID,
		ID:       id,
		roots:    make(map[string]*root),
		clocks:   make(map[uint64]uint32),
	}
}

func (d *Doc) getOrCreateRoot(name string, kind RootKind) (*root, error) {
	if r, ok := d.roots[name]; ok {
		if r.kind != kind {
			return nil, ErrRootKindMismatch
		}
		return r, nil
	}
	r := &root{kind: kind}
	switch kind {
	case RootMap:
		r.m = NewCRDTMap()
	case RootArray:
		r.a = NewCRDTArray()
	case RootText:
		r.t = NewText()
	}
	d.roots[name] = r
	return r, nil
}

// GetMap returns the map root named name, creating it if it does not
// exist yet.
func (d *Doc) GetMap(name string) (*CRDTMap, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, err := d.getOrCreateRoot(name, RootMap)
	if err != nil {
		return nil, err
	}
	return r.m, nil
}

// GetArray returns the array root named name, creating it if it does not
// exist yet.
func (d *Doc) GetArray(name string) (*CRDTArray, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, err := d.getOrCreateRoot(name, RootArray)
	if err != nil {
		return nil, err
	}
	return r.a, nil
}

// GetText returns the text root named name, creating it if it does not
// exist yet.
func (d *Doc) GetText(name string) (*Text, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, err := d.getOrCreateRoot(name, RootText)
	if err != nil {
		return nil, err
	}
	return r.t, nil
}

// RootNames returns the names of every root currently bound on the
// document, in unspecified order.
func (d *Doc) RootNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.roots))
	for name := range d.roots {
		names = append(names, name)
	}
	return names
}

// nextOpID mints a fresh OpID for a local write, advancing and recording
// this client's own Lamport clock.
func (d *Doc) nextOpID() OpID {
	c := d.clocks[d.ClientID] + 1
	d.clocks[d.ClientID] = c
	return OpID{Client: d.ClientID, Clock: c}
}

// observeClock records that an op (local or remote) with id has been
// applied, advancing the tracked high-water mark for id.Client.
func (d *Doc) observeClock(id OpID) {
	if id.Clock > d.clocks[id.Client] {
		d.clocks[id.Client] = id.Clock
	}
}

// StateVector returns a snapshot of the highest clock seen per client.
func (d *Doc) StateVector() StateVector {
	d.mu.Lock()
	defer d.mu.Unlock()
	sv := make(StateVector, len(d.clocks))
	for c, clk := range d.clocks {
		sv[c] = clk
	}
	return sv
}

// Transact runs fn inside a write transaction tagged with EmptyOrigin.
func (d *Doc) Transact(fn func(*WriteTxn) error) error {
	return d.TransactWith(EmptyOrigin, fn)
}

// TransactWith runs fn inside a write transaction tagged with origin.
// Observers registered via Observe are notified with the accumulated
// diff once fn returns without error.
func (d *Doc) TransactWith(origin Origin, fn func(*WriteTxn) error) error {
	d.mu.Lock()
	txn := &WriteTxn{doc: d, origin: origin}
	err := fn(txn)
	if err != nil {
		txn.closed = true
		d.mu.Unlock()
		return err
	}
	txn.closed = true
	events := txn.events
	d.mu.Unlock()

	if len(events) > 0 {
		d.dispatch(events, origin)
	}
	return nil
}
