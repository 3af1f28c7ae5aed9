package adminserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/foldkeep/collabd/internal/adminpb"
	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/persistence"
)

func newTestStore(t *testing.T) *persistence.Store {
	t.Helper()
	store, err := persistence.Open(filepath.Join(t.TempDir(), "admin.db"), persistence.OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetDocMetaReportsUpdateCount(t *testing.T) {
	store := newTestStore(t)
	uid, ws, obj := []byte("uid-1"), []byte("ws-1"), []byte("row-1")

	doc := crdt.NewDoc(1, "row-1")
	require.NoError(t, doc.Transact(func(tx *crdt.WriteTxn) error {
		return tx.SetMapKey("data", "id", crdt.StringValue("row-1"))
	}))
	require.NoError(t, store.CreateNewDoc(uid, ws, obj, doc))

	update, err := doc.EncodeDiffV1(crdt.StateVector{})
	require.NoError(t, err)
	_, err = store.PushUpdate(uid, ws, obj, update)
	require.NoError(t, err)

	srv := New(store, uid, ws, nil)
	resp, err := srv.GetDocMeta(context.Background(), &adminpb.GetDocMetaRequest{ObjectID: "row-1"})
	require.NoError(t, err)
	assert.Equal(t, "row-1", resp.ObjectID)
	assert.Equal(t, int32(1), resp.UpdateCount)
}

func TestGetDocMetaUnknownObjectReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	srv := New(store, []byte("uid-1"), []byte("ws-1"), nil)
	_, err := srv.GetDocMeta(context.Background(), &adminpb.GetDocMetaRequest{ObjectID: "missing"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestListActiveSessionsReflectsRegistry(t *testing.T) {
	store := newTestStore(t)
	registry := NewSessionRegistry()
	registry.Register("sess-1", SessionMeta{ClientID: 1, DeviceID: "device-a", ObjectID: "row-1", Role: "client"})

	srv := New(store, []byte("uid-1"), []byte("ws-1"), registry)
	resp, err := srv.ListActiveSessions(context.Background(), &adminpb.ListActiveSessionsRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, uint64(1), resp.Sessions[0].ClientID)
	assert.Equal(t, "row-1", resp.Sessions[0].ObjectID)

	registry.Unregister("sess-1")
	resp, err = srv.ListActiveSessions(context.Background(), &adminpb.ListActiveSessionsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Sessions)
}

func TestTriggerCompactionCollapsesUpdateLog(t *testing.T) {
	store := newTestStore(t)
	uid, ws, obj := []byte("uid-1"), []byte("ws-1"), []byte("db-1")

	doc := crdt.NewDoc(1, "db-1")
	require.NoError(t, store.CreateNewDoc(uid, ws, obj, doc))
	for i := 0; i < 3; i++ {
		sv := doc.StateVector()
		require.NoError(t, doc.Transact(func(tx *crdt.WriteTxn) error {
			return tx.SetMapKey("data", "k", crdt.IntValue(int64(i)))
		}))
		diff, err := doc.EncodeDiffV1(sv)
		require.NoError(t, err)
		_, err = store.PushUpdate(uid, ws, obj, diff)
		require.NoError(t, err)
	}

	srv := New(store, uid, ws, nil)
	resp, err := srv.TriggerCompaction(context.Background(), &adminpb.TriggerCompactionRequest{ObjectID: "db-1"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), resp.UpdatesCollapsed)

	metaResp, err := srv.GetDocMeta(context.Background(), &adminpb.GetDocMetaRequest{ObjectID: "db-1"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), metaResp.UpdateCount)
}
