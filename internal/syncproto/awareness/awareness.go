// Package awareness implements the presence layer of spec.md §4.5.1's
// Awareness message: a last-write-wins map from client id to an
// arbitrary JSON blob (cursor position, selection, user name/color),
// with a monotonic per-client clock so an out-of-order update never
// regresses a client's published state.
package awareness

import (
	"encoding/json"
	"sync"

	"github.com/foldkeep/collabd/internal/wire"
)

// entry is one client's last-known awareness state.
type entry struct {
	Clock uint64
	Data  json.RawMessage
}

// State holds every peer's awareness entries observed by one session.
// Safe for concurrent use.
type State struct {
	mu      sync.RWMutex
	clients map[uint64]entry
	local   uint64 // this session's own client id, clock 0 until Set
}

// New constructs an empty awareness state for localClientID.
func New(localClientID uint64) *State {
	return &State{clients: make(map[uint64]entry), local: localClientID}
}

// Set publishes data as the local client's current awareness state,
// bumping its clock so the update beats any earlier one in a
// last-write-wins comparison.
func (s *State) Set(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.clients[s.local]
	s.clients[s.local] = entry{Clock: cur.Clock + 1, Data: raw}
	return nil
}

// Get returns clientID's current awareness blob, if any.
func (s *State) Get(clientID uint64) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.clients[clientID]
	if !ok {
		return nil, false
	}
	return e.Data, true
}

// Clients returns every client id currently tracked.
func (s *State) Clients() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint64, 0, len(s.clients))
	for id := range s.clients {
		out = append(out, id)
	}
	return out
}

// EncodeUpdate serializes every tracked client's (clock, data) pair as
// an awareness update, the payload of an Awareness message.
func (s *State) EncodeUpdate() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := wire.NewEncoder()
	e.WriteUvarint(uint64(len(s.clients)))
	for clientID, ent := range s.clients {
		e.WriteUvarint(clientID)
		e.WriteUvarint(ent.Clock)
		e.WriteBuf(ent.Data)
	}
	return e.Bytes()
}

// ApplyUpdate merges a peer-encoded update, keeping, per client id,
// whichever entry has the higher clock (last-write-wins; ties keep the
// existing entry).
func (s *State) ApplyUpdate(update []byte) error {
	d := wire.NewDecoder(update)
	count, err := d.ReadUvarint()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := uint64(0); i < count; i++ {
		clientID, err := d.ReadUvarint()
		if err != nil {
			return err
		}
		clock, err := d.ReadUvarint()
		if err != nil {
			return err
		}
		data, err := d.ReadBuf()
		if err != nil {
			return err
		}
		if cur, ok := s.clients[clientID]; !ok || clock > cur.Clock {
			s.clients[clientID] = entry{Clock: clock, Data: append(json.RawMessage(nil), data...)}
		}
	}
	return nil
}
