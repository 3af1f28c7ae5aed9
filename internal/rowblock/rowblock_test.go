package rowblock

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/entity/row"
	"github.com/foldkeep/collabd/pkg/events"
)

// countingService builds a fresh row document for each id the first
// time it is asked, counting how many times BuildRow actually ran the
// slow path. A short sleep widens the window in which concurrent
// GetOrInitRow callers could (incorrectly) race past each other.
type countingService struct {
	builds int64
}

func (c *countingService) BuildRow(ctx context.Context, rowID string) (*row.Row, error) {
	atomic.AddInt64(&c.builds, 1)
	time.Sleep(5 * time.Millisecond)
	doc := crdt.NewDoc(1, rowID)
	if err := doc.Transact(func(tx *crdt.WriteTxn) error {
		return row.Create(tx, row.Data{ID: rowID, DatabaseID: "db-1"}, row.Meta{})
	}); err != nil {
		panic(err)
	}
	return row.New(doc), nil
}

func (c *countingService) CreateRow(ctx context.Context, rowID string, data row.Data, meta row.Meta) (*row.Row, error) {
	return c.BuildRow(ctx, rowID)
}

func (c *countingService) BuildRows(ctx context.Context, rowIDs []string, autoFetch bool) (map[string]*row.Row, error) {
	out := make(map[string]*row.Row, len(rowIDs))
	for _, id := range rowIDs {
		// Ids prefixed "missing-" stand for rows that fail to resolve.
		if strings.HasPrefix(id, "missing-") {
			continue
		}
		r, err := c.BuildRow(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = r
	}
	return out, nil
}

// TestGetOrInitRowDedupsConcurrentCalls replicates scenario S2: 100
// concurrent calls for the same row id must dedup to exactly one build
// call, with every caller resolving to the same handle.
func TestGetOrInitRowDedupsConcurrentCalls(t *testing.T) {
	svc := &countingService{}
	loader := NewLoader(svc, nil)

	const n = 100
	handles := make([]*RowHandle, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			h, err := loader.GetOrInitRow(context.Background(), "row-1")
			handles[i] = h
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, handles[0], handles[i])
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&svc.builds))
}

func TestGetOrInitRowFastPathReturnsCachedHandle(t *testing.T) {
	svc := &countingService{}
	loader := NewLoader(svc, nil)

	h1, err := loader.GetOrInitRow(context.Background(), "row-1")
	require.NoError(t, err)
	h2, err := loader.GetOrInitRow(context.Background(), "row-1")
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, int64(1), atomic.LoadInt64(&svc.builds))
}

func TestInitDatabaseRowsPreservesOrderAndSkipsUnresolved(t *testing.T) {
	svc := &countingService{}
	loader := NewLoader(svc, nil)

	handles, err := loader.InitDatabaseRows(context.Background(), []string{"row-a", "missing-x", "row-b", "row-c"}, true)
	require.NoError(t, err)
	require.Len(t, handles, 3)

	data, err := handles[0].Row.Data()
	require.NoError(t, err)
	assert.Equal(t, "row-a", data.ID)
	data, err = handles[2].Row.Data()
	require.NoError(t, err)
	assert.Equal(t, "row-c", data.ID)
}

func TestUpdateRowPublishesRowUpdatedEvent(t *testing.T) {
	svc := &countingService{}
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	loader := NewLoader(svc, broker)
	_, err := loader.GetOrInitRow(context.Background(), "row-1")
	require.NoError(t, err)

	// Drain the DidFetchRow event from construction.
	<-sub

	err = loader.UpdateRow(context.Background(), "row-1", func(h *RowHandle) error {
		return h.Row.Doc().TransactWith(crdt.ClientOrigin(1, "device-a"), func(tx *crdt.WriteTxn) error {
			return row.SetHeight(tx, 42)
		})
	})
	require.NoError(t, err)

	select {
	case ev := <-sub:
		assert.Equal(t, events.EventRowUpdated, ev.Type)
		assert.Equal(t, []string{"row-1"}, ev.RowIDs)
		assert.Equal(t, "height", ev.Metadata["kind"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for row update event")
	}
}

func TestCacheEvictUnsubscribesAndPublishes(t *testing.T) {
	svc := &countingService{}
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	loader := NewLoader(svc, broker)
	_, err := loader.GetOrInitRow(context.Background(), "row-1")
	require.NoError(t, err)
	<-sub // DidFetchRow

	loader.Cache().Evict("row-1", broker)
	assert.Equal(t, 0, loader.Cache().Len())

	select {
	case ev := <-sub:
		assert.Equal(t, events.EventRowEvicted, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for evict event")
	}

	// Evicting an already-evicted / unknown row is a no-op, not an error.
	loader.Cache().Evict("row-1", broker)
}
