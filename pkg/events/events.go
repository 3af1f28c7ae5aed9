package events

import (
	"sync"
	"time"
)

// EventType names the kind of block event carried by an Event.
type EventType string

const (
	// EventRowFetched fires once a row block finishes (re)building,
	// whether triggered by get_or_init_database_row or a batch fetch.
	EventRowFetched EventType = "row.fetched"
	// EventRowUpdated fires when a committed transaction changes a
	// cached row's cells or metadata.
	EventRowUpdated EventType = "row.updated"
	// EventRowEvicted fires when a row handle is dropped from the cache.
	EventRowEvicted EventType = "row.evicted"
)

// Event is one block-level event broadcast by a Broker. RowIDs carries
// the affected row ids (DidFetchRow batches several ids into one event);
// Metadata carries free-form per-event context (origin, field id, ...).
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	RowIDs    []string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker manages event subscriptions and distribution. Publish never
// blocks on a subscriber: a subscriber whose buffer is full simply misses
// the event (spec's "late subscribers miss historic events", matching
// the original's Tokio broadcast-channel lag semantics).
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, drop: never block the publisher.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
