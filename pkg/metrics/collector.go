package metrics

import (
	"time"

	"github.com/foldkeep/collabd/internal/persistence"
)

// Collector periodically samples gauge metrics that the persistence layer
// and row block loader don't update inline on every call (document count,
// cache size), mirroring the teacher's periodic-sample-plus-inline-counter
// split between Collector and direct metric updates at call sites.
type Collector struct {
	store   *persistence.Store
	uid     []byte
	cacheFn func() int
	stopCh  chan struct{}
}

// NewCollector creates a new metrics collector. uid scopes the document
// count sample to a single user (GetAllDocs is per-uid); cacheFn, if
// non-nil, reports the row block loader's current cache size.
func NewCollector(store *persistence.Store, uid []byte, cacheFn func() int) *Collector {
	return &Collector{
		store:   store,
		uid:     uid,
		cacheFn: cacheFn,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15s tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectDocumentMetrics()
	c.collectRowCacheMetrics()
}

func (c *Collector) collectDocumentMetrics() {
	if c.store == nil {
		return
	}
	docs, err := c.store.GetAllDocs(c.uid)
	if err != nil {
		return
	}
	DocumentsOpen.Set(float64(len(docs)))
}

func (c *Collector) collectRowCacheMetrics() {
	if c.cacheFn == nil {
		return
	}
	RowCacheSize.Set(float64(c.cacheFn()))
}
