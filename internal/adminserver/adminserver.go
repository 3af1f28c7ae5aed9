// Package adminserver implements the collabd admin gRPC service
// (internal/adminpb): document metadata lookup, active session listing,
// and on-demand compaction, backed directly by internal/persistence.
package adminserver

import (
	"context"
	"errors"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/foldkeep/collabd/internal/adminpb"
	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/persistence"
)

// SessionMeta describes one active sync session for admin listing.
type SessionMeta struct {
	ClientID    uint64
	DeviceID    string
	ObjectID    string
	Role        string
	ConnectedAt time.Time
}

// SessionRegistry tracks every sync session currently being served, so
// the admin surface can answer ListActiveSessions without reaching into
// the transport layer directly.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]SessionMeta
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]SessionMeta)}
}

// Register records meta under id (typically a per-connection UUID). Call
// Unregister when the session ends.
func (r *SessionRegistry) Register(id string, meta SessionMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if meta.ConnectedAt.IsZero() {
		meta.ConnectedAt = time.Now()
	}
	r.sessions[id] = meta
}

// Unregister removes id from the registry.
func (r *SessionRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// List returns every currently registered session.
func (r *SessionRegistry) List() []SessionMeta {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SessionMeta, 0, len(r.sessions))
	for _, m := range r.sessions {
		out = append(out, m)
	}
	return out
}

// Server implements adminpb.Server over one persistence.Store, scoped to
// a single (uid, workspaceID) pair — the admin surface of a collabd
// daemon serving one logical workspace.
type Server struct {
	store       *persistence.Store
	uid         []byte
	workspaceID []byte
	sessions    *SessionRegistry
}

// New constructs an admin Server backed by store, scoped to
// uid/workspaceID, reporting sessions registered with sessions.
func New(store *persistence.Store, uid, workspaceID []byte, sessions *SessionRegistry) *Server {
	return &Server{store: store, uid: uid, workspaceID: workspaceID, sessions: sessions}
}

// GetDocMeta reports the number of update-log rows currently persisted
// for req.ObjectID.
func (s *Server) GetDocMeta(ctx context.Context, req *adminpb.GetDocMetaRequest) (*adminpb.GetDocMetaResponse, error) {
	updates, err := s.store.GetUpdates(s.uid, s.workspaceID, []byte(req.ObjectID))
	if err != nil {
		if errors.Is(err, persistence.ErrDocNotFound) {
			return nil, status.Errorf(codes.NotFound, "object %q not found", req.ObjectID)
		}
		return nil, status.Errorf(codes.Internal, "get doc meta: %v", err)
	}
	return &adminpb.GetDocMetaResponse{ObjectID: req.ObjectID, UpdateCount: int32(len(updates))}, nil
}

// ListActiveSessions reports every session currently registered.
func (s *Server) ListActiveSessions(ctx context.Context, req *adminpb.ListActiveSessionsRequest) (*adminpb.ListActiveSessionsResponse, error) {
	var sessions []SessionMeta
	if s.sessions != nil {
		sessions = s.sessions.List()
	}
	resp := &adminpb.ListActiveSessionsResponse{Sessions: make([]adminpb.SessionInfo, 0, len(sessions))}
	for _, m := range sessions {
		resp.Sessions = append(resp.Sessions, adminpb.SessionInfo{
			ClientID:    m.ClientID,
			DeviceID:    m.DeviceID,
			ObjectID:    m.ObjectID,
			Role:        m.Role,
			ConnectedAt: m.ConnectedAt.Unix(),
		})
	}
	return resp, nil
}

// TriggerCompaction loads req.ObjectID's full state, collapsing its
// update log via FlushDoc (internal/persistence.Store.FlushDoc), and
// reports how many update rows existed prior to the flush.
func (s *Server) TriggerCompaction(ctx context.Context, req *adminpb.TriggerCompactionRequest) (*adminpb.TriggerCompactionResponse, error) {
	doc := crdt.NewDoc(0, req.ObjectID)
	applied, err := s.store.LoadDoc(s.uid, s.workspaceID, []byte(req.ObjectID), doc)
	if err != nil {
		if errors.Is(err, persistence.ErrDocNotFound) {
			return nil, status.Errorf(codes.NotFound, "object %q not found", req.ObjectID)
		}
		return nil, status.Errorf(codes.Internal, "load doc: %v", err)
	}
	if err := s.store.FlushDoc(s.uid, s.workspaceID, []byte(req.ObjectID), doc); err != nil {
		return nil, status.Errorf(codes.Internal, "flush doc: %v", err)
	}
	return &adminpb.TriggerCompactionResponse{UpdatesCollapsed: int32(applied)}, nil
}
