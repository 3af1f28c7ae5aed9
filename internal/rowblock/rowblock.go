// Package rowblock implements the on-demand row loader of spec.md §4.4:
// a database-scoped handle that, given a row id, returns a shared row
// document in a fully initialized state, loaded from persistence on
// first access and never built twice concurrently for the same id.
package rowblock

import (
	"context"
	"sync"

	"github.com/foldkeep/collabd/internal/entity/row"
	"github.com/foldkeep/collabd/pkg/events"
	"github.com/foldkeep/collabd/pkg/log"
)

// RowHandle is the shared, cached handle for one row document. Readers
// take RLock, the update path (UpdateRow) takes Lock, matching spec
// §5's "writers take the handle's write lock, readers take its read
// lock" shared-resource policy.
type RowHandle struct {
	mu          sync.RWMutex
	Row         *row.Row
	unsubscribe func()
}

// Lock/Unlock/RLock/RUnlock expose the handle's row lock directly to
// callers that need to hold it across more than one Row method call.
func (h *RowHandle) Lock()    { h.mu.Lock() }
func (h *RowHandle) Unlock()  { h.mu.Unlock() }
func (h *RowHandle) RLock()   { h.mu.RLock() }
func (h *RowHandle) RUnlock() { h.mu.RUnlock() }

// Cache is the concurrent id -> *RowHandle map backing the loader. It is
// safe for concurrent use without external locking (spec §5: "the
// id->handle cache is a lock-free concurrent map").
type Cache struct {
	handles sync.Map // RowID -> *RowHandle
	size    int64    // approximate; maintained under mu
	mu      sync.Mutex
}

// NewCache constructs an empty row handle cache.
func NewCache() *Cache { return &Cache{} }

func (c *Cache) get(rowID string) (*RowHandle, bool) {
	v, ok := c.handles.Load(rowID)
	if !ok {
		return nil, false
	}
	return v.(*RowHandle), true
}

func (c *Cache) store(rowID string, h *RowHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, existed := c.handles.Load(rowID); !existed {
		c.size++
	}
	c.handles.Store(rowID, h)
}

// Evict removes rowID's handle, unsubscribing its change observer and
// publishing EventRowEvicted. Safe to call even if rowID is not cached.
func (c *Cache) Evict(rowID string, broker *events.Broker) {
	c.mu.Lock()
	v, ok := c.handles.Load(rowID)
	if ok {
		c.handles.Delete(rowID)
		c.size--
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	h := v.(*RowHandle)
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	if broker != nil {
		broker.Publish(&events.Event{Type: events.EventRowEvicted, RowIDs: []string{rowID}})
	}
}

// Len returns the number of cached row handles. Wired as the cacheFn
// callback of pkg/metrics.NewCollector.
func (c *Cache) Len() int {
	n := 0
	c.handles.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Loader is the database-scoped row handle provider of spec §4.4.1,
// implementing the initialization protocol of §4.4.2 over a
// CollabService.
type Loader struct {
	cache     *Cache
	initLocks sync.Map // RowID -> *sync.Mutex
	service   CollabService
	broker    *events.Broker
}

// NewLoader constructs a Loader backed by service, fanning row events out
// on broker (nil is accepted; events are simply not published).
func NewLoader(service CollabService, broker *events.Broker) *Loader {
	return &Loader{cache: NewCache(), service: service, broker: broker}
}

// Cache exposes the loader's handle cache, e.g. for metrics wiring.
func (l *Loader) Cache() *Cache { return l.cache }

// GetOrInitRow implements spec §4.4.2's five-step initialization
// protocol: fast-path cache lookup, per-row init mutex, re-check under
// lock, build via the collab service, then release and forget the
// mutex.
func (l *Loader) GetOrInitRow(ctx context.Context, rowID string) (*RowHandle, error) {
	// Step 1: fast path.
	if h, ok := l.cache.get(rowID); ok {
		return h, nil
	}

	// Step 2: acquire (or insert) the per-row init mutex. LoadOrStore
	// never spans an await, per spec §4.4.2 step 2.
	lockIface, _ := l.initLocks.LoadOrStore(rowID, &sync.Mutex{})
	initMu := lockIface.(*sync.Mutex)
	initMu.Lock()
	defer func() {
		initMu.Unlock()
		l.initLocks.Delete(rowID)
	}()

	// Step 3: re-check under the per-row mutex.
	if h, ok := l.cache.get(rowID); ok {
		return h, nil
	}

	// Step 4: build via the collab service.
	r, err := l.service.BuildRow(ctx, rowID)
	if err != nil {
		log.WithRowID(rowID).Error().Err(err).Msg("row build failed")
		return nil, err
	}
	h := &RowHandle{Row: r}
	h.unsubscribe = r.Observe(func(ch row.RowChange) { l.publishRowChange(rowID, ch) })
	l.cache.store(rowID, h)

	if l.broker != nil {
		l.broker.Publish(&events.Event{Type: events.EventRowFetched, RowIDs: []string{rowID}})
	}
	return h, nil
	// Step 5 (drop the per-row mutex and delete the entry) runs via defer.
}

// InitDatabaseRows implements spec §4.4.3's batch protocol: ids already
// cached are returned as-is, uncached ids are resolved via the collab
// service's batch build (which may itself issue a single remote fetch).
// Output preserves input order; ids that fail to resolve are omitted.
func (l *Loader) InitDatabaseRows(ctx context.Context, rowIDs []string, autoFetch bool) ([]*RowHandle, error) {
	var toBuild []string
	for _, id := range rowIDs {
		if _, ok := l.cache.get(id); !ok {
			toBuild = append(toBuild, id)
		}
	}

	if len(toBuild) > 0 {
		built, err := l.service.BuildRows(ctx, toBuild, autoFetch)
		if err != nil {
			return nil, err
		}
		for id, r := range built {
			if _, ok := l.cache.get(id); ok {
				continue
			}
			h := &RowHandle{Row: r}
			h.unsubscribe = r.Observe(func(ch row.RowChange) { l.publishRowChange(id, ch) })
			l.cache.store(id, h)
		}
		if l.broker != nil && len(built) > 0 {
			ids := make([]string, 0, len(built))
			for id := range built {
				ids = append(ids, id)
			}
			l.broker.Publish(&events.Event{Type: events.EventRowFetched, RowIDs: ids})
		}
	}

	out := make([]*RowHandle, 0, len(rowIDs))
	for _, id := range rowIDs {
		if h, ok := l.cache.get(id); ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// RowUpdate is the closure signature passed to UpdateRow.
type RowUpdate func(h *RowHandle) error

// UpdateRow implements spec §4.4.5: acquire the row handle, take its
// write lock, run fn, and commit. The CRDT transaction itself commits
// inside fn via h.Row.Doc().Transact/TransactWith; UpdateRow's
// responsibility is only handle acquisition and lock discipline.
func (l *Loader) UpdateRow(ctx context.Context, rowID string, fn RowUpdate) error {
	h, err := l.GetOrInitRow(ctx, rowID)
	if err != nil {
		return err
	}
	h.Lock()
	defer h.Unlock()
	return fn(h)
}

func (l *Loader) publishRowChange(rowID string, ch row.RowChange) {
	if l.broker == nil {
		return
	}
	meta := map[string]string{"kind": rowChangeKindString(ch.Kind)}
	if ch.FieldID != "" {
		meta["field_id"] = ch.FieldID
	}
	l.broker.Publish(&events.Event{Type: events.EventRowUpdated, RowIDs: []string{rowID}, Metadata: meta})
}

func rowChangeKindString(k row.ChangeKind) string {
	switch k {
	case row.DidUpdateVisibility:
		return "visibility"
	case row.DidUpdateHeight:
		return "height"
	case row.DidUpdateCell:
		return "cell"
	default:
		return "unknown"
	}
}
