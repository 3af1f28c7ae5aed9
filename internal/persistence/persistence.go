// Package persistence implements the embedded storage layer: documents
// are addressed by a logical (uid, workspaceID, objectID) triple, mapped
// to a compact DocID, and stored as update-log rows plus a periodically
// flushed full-state row under the fixed-prefix schema in
// internal/persistence/schema.
package persistence

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/persistence/boltkv"
	"github.com/foldkeep/collabd/internal/persistence/envelope"
	"github.com/foldkeep/collabd/internal/persistence/idalloc"
	"github.com/foldkeep/collabd/internal/persistence/kv"
	"github.com/foldkeep/collabd/internal/persistence/schema"
)

// Store is the persistence layer's public surface: the document and
// snapshot operations of spec §4.1.3, realized over an embedded ordered
// KV store.
type Store struct {
	db       *boltkv.DB
	docIDs   *idalloc.Allocator
	snapIDs  *idalloc.Allocator
}

// Open opens (creating if necessary) the bbolt file at path and seeds the
// DocID/SnapshotID allocators from the highest id already present.
func Open(path string, opts OpenOptions) (*Store, error) {
	db, err := openBoltWithRepair(path, opts)
	if err != nil {
		return nil, err
	}

	var maxDoc, maxSnap uint64
	err = db.WithReadTxn(func(txn kv.Txn) error {
		if err := txn.Range([]byte{schema.DocSpace, schema.DocSpaceObject}, []byte{schema.DocSpace, schema.DocSpaceObject + 1}, func(e kv.Entry) bool {
			if len(e.Value) == 8 {
				if id := binary.BigEndian.Uint64(e.Value); id > maxDoc {
					maxDoc = id
				}
			}
			return true
		}); err != nil {
			return err
		}
		return txn.Range([]byte{schema.SnapshotSpace, schema.SnapshotSpaceObject}, []byte{schema.SnapshotSpace, schema.SnapshotSpaceObject + 1}, func(e kv.Entry) bool {
			if len(e.Value) == 8 {
				if id := binary.BigEndian.Uint64(e.Value); id > maxSnap {
					maxSnap = id
				}
			}
			return true
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: seed allocators: %w", err)
	}

	return &Store{
		db:      db,
		docIDs:  idalloc.NewAllocator(maxDoc),
		snapIDs: idalloc.NewAllocator(maxSnap),
	}, nil
}

// Close releases the underlying store.
func (s *Store) Close() error { return s.db.Close() }

// resolveDocID returns the DocID for (uid, workspaceID, objectID),
// allocating and persisting a fresh one under the same write transaction
// if absent (insert-if-absent, so concurrent resolvers of the same
// object never race past each other).
func (s *Store) resolveDocID(txn kv.Txn, uid, workspaceID, objectID []byte) (schema.DocID, error) {
	key := schema.DocIDKey(uid, workspaceID, objectID)
	if v, ok, err := txn.Get(key); err != nil {
		return 0, err
	} else if ok {
		return binary.BigEndian.Uint64(v), nil
	}

	id := s.docIDs.Next()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	if err := txn.Put(key, buf[:]); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) lookupDocID(txn kv.Txn, uid, workspaceID, objectID []byte) (schema.DocID, bool, error) {
	key := schema.DocIDKey(uid, workspaceID, objectID)
	v, ok, err := txn.Get(key)
	if err != nil || !ok {
		return 0, false, err
	}
	return binary.BigEndian.Uint64(v), true, nil
}

// CreateNewDoc allocates a DocID for (uid, objectID) under workspaceID
// and writes its initial encoded state (a full diff against the empty
// state vector) and state vector rows.
func (s *Store) CreateNewDoc(uid, workspaceID, objectID []byte, doc *crdt.Doc) error {
	return s.db.WithWriteTxn(func(txn kv.Txn) error {
		docID, err := s.resolveDocID(txn, uid, workspaceID, objectID)
		if err != nil {
			return err
		}
		state, err := doc.EncodeDiffV1(crdt.StateVector{})
		if err != nil {
			return err
		}
		sv := encodeStateVector(doc.StateVector())
		env := envelope.Encode(envelope.EncodedCollab{StateVector: sv, DocState: state, EncoderVersion: envelope.V1})
		if err := txn.Put(schema.DocStateKey(docID), env); err != nil {
			return err
		}
		return txn.Put(schema.StateVectorKey(docID), sv)
	})
}

// FlushDoc collapses the update log into a single full-state row: the
// current document state is encoded as a v1 update, the state and
// state-vector rows are overwritten, and every existing update row for
// this DocID is deleted.
func (s *Store) FlushDoc(uid, workspaceID, objectID []byte, doc *crdt.Doc) error {
	return s.db.WithWriteTxn(func(txn kv.Txn) error {
		docID, ok, err := s.lookupDocID(txn, uid, workspaceID, objectID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDocNotFound
		}

		full, err := doc.EncodeStateV1()
		if err != nil {
			return err
		}
		sv := encodeStateVector(doc.StateVector())
		env := envelope.Encode(envelope.EncodedCollab{StateVector: sv, DocState: full, EncoderVersion: envelope.V1})
		if err := txn.Put(schema.DocStateKey(docID), env); err != nil {
			return err
		}
		if err := txn.Put(schema.StateVectorKey(docID), sv); err != nil {
			return err
		}

		from := schema.DocUpdateKeyPrefix(docID)
		to := append(append([]byte{}, from...), 255, 255, 255, 255, 255)
		return txn.DeleteRange(from, to)
	})
}

// PushUpdate resolves the document's DocID, computes the next append-only
// clock value via NextBackEntry on the update-key max, and inserts the
// update row. It returns the fully qualified key the update was written
// under (used by snapshots as a checkpoint marker).
func (s *Store) PushUpdate(uid, workspaceID, objectID, update []byte) ([]byte, error) {
	var key []byte
	err := s.db.WithWriteTxn(func(txn kv.Txn) error {
		docID, err := s.resolveDocID(txn, uid, workspaceID, objectID)
		if err != nil {
			return err
		}

		var nextClock schema.Clock
		prefix := schema.DocUpdateKeyPrefix(docID)
		upperBound := append(append([]byte{}, prefix...), 255, 255, 255, 255, 255)
		if entry, ok, err := txn.NextBackEntry(upperBound); err != nil {
			return err
		} else if ok && bytes.HasPrefix(entry.Key, prefix) {
			nextClock = schema.ClockFromUpdateKey(entry.Key) + 1
		}

		key = schema.DocUpdateKey(docID, nextClock)
		if _, ok, err := txn.Get(key); err != nil {
			return err
		} else if ok {
			return ErrDuplicateUpdateKey
		}
		return txn.Put(key, update)
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// LoadDoc reads the state row (if present) and applies it, then iterates
// every update row for the document in ascending clock order and applies
// each in turn. It returns the number of updates applied on top of the
// base state.
func (s *Store) LoadDoc(uid, workspaceID, objectID []byte, doc *crdt.Doc) (int, error) {
	applied := 0
	err := s.db.WithReadTxn(func(txn kv.Txn) error {
		docID, ok, err := s.lookupDocID(txn, uid, workspaceID, objectID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDocNotFound
		}

		if raw, ok, err := txn.Get(schema.DocStateKey(docID)); err != nil {
			return err
		} else if ok {
			env, err := envelope.Decode(raw)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidData, err)
			}
			if err := doc.ApplyUpdate(crdt.ServerOrigin(), env.DocState); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidData, err)
			}
		}

		prefix := schema.DocUpdateKeyPrefix(docID)
		upperBound := append(append([]byte{}, prefix...), 255, 255, 255, 255, 255)
		return txn.Range(prefix, upperBound, func(e kv.Entry) bool {
			if applyErr := doc.ApplyUpdate(crdt.ServerOrigin(), e.Value); applyErr != nil {
				err = fmt.Errorf("%w: %v", ErrInvalidData, applyErr)
				return false
			}
			applied++
			return true
		})
	})
	if err != nil {
		return applied, err
	}
	return applied, nil
}

// DeleteDoc removes the id mapping, state row, state-vector row and all
// update rows for (uid, workspaceID, objectID).
func (s *Store) DeleteDoc(uid, workspaceID, objectID []byte) error {
	return s.db.WithWriteTxn(func(txn kv.Txn) error {
		docID, ok, err := s.lookupDocID(txn, uid, workspaceID, objectID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := txn.Delete(schema.DocIDKey(uid, workspaceID, objectID)); err != nil {
			return err
		}
		if err := txn.Delete(schema.DocStateKey(docID)); err != nil {
			return err
		}
		if err := txn.Delete(schema.StateVectorKey(docID)); err != nil {
			return err
		}
		prefix := schema.DocUpdateKeyPrefix(docID)
		upperBound := append(append([]byte{}, prefix...), 255, 255, 255, 255, 255)
		return txn.DeleteRange(prefix, upperBound)
	})
}

// snapshotRecord is the self-describing payload stored at each snapshot
// update row.
type snapshotRecord struct {
	Data      []byte `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// CreateSnapshot allocates a SnapshotID for (uid, objectID) if one does
// not already exist, and appends a new snapshot row holding data plus a
// creation timestamp.
func (s *Store) CreateSnapshot(uid, objectID, data []byte) error {
	return s.db.WithWriteTxn(func(txn kv.Txn) error {
		idKey := schema.SnapshotIDKey(uid, objectID)
		var snapID schema.SnapshotID
		if v, ok, err := txn.Get(idKey); err != nil {
			return err
		} else if ok {
			snapID = binary.BigEndian.Uint64(v)
		} else {
			snapID = s.snapIDs.Next()
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], snapID)
			if err := txn.Put(idKey, buf[:]); err != nil {
				return err
			}
		}

		prefix := schema.SnapshotUpdateKeyPrefix(snapID)
		upperBound := append(append([]byte{}, prefix...), 255, 255, 255, 255, 255)
		var nextClock schema.Clock
		if entry, ok, err := txn.NextBackEntry(upperBound); err != nil {
			return err
		} else if ok && bytes.HasPrefix(entry.Key, prefix) {
			nextClock = schema.ClockFromUpdateKey(entry.Key) + 1
		}

		rec, err := json.Marshal(snapshotRecord{Data: data, CreatedAt: time.Now().Unix()})
		if err != nil {
			return err
		}
		return txn.Put(schema.SnapshotUpdateKey(snapID, nextClock), rec)
	})
}

// DocRef identifies one document discovered by GetAllDocs.
type DocRef struct {
	UID         []byte
	WorkspaceID []byte
	ObjectID    []byte
	DocID       schema.DocID
}

// GetAllDocs enumerates every object-id mapping under uid, across all
// workspaces, by scanning the DocSpace object-index prefix.
func (s *Store) GetAllDocs(uid []byte) ([]DocRef, error) {
	var refs []DocRef
	err := s.db.WithReadTxn(func(txn kv.Txn) error {
		from := append([]byte{schema.DocSpace, schema.DocSpaceObject}, uid...)
		to := append(append([]byte{}, from...), 0xff)
		return txn.Range(from, to, func(e kv.Entry) bool {
			payload := e.Key[2+len(uid) : len(e.Key)-1]
			if len(payload) < 16 {
				return true
			}
			workspaceID := append([]byte(nil), payload[:16]...)
			objectID := append([]byte(nil), payload[16:]...)
			refs = append(refs, DocRef{
				UID:         uid,
				WorkspaceID: workspaceID,
				ObjectID:    objectID,
				DocID:       binary.BigEndian.Uint64(e.Value),
			})
			return true
		})
	})
	return refs, err
}

// GetUpdates returns the raw update payloads for (uid, workspaceID,
// objectID) in ascending clock order, without applying them to a Doc.
func (s *Store) GetUpdates(uid, workspaceID, objectID []byte) ([][]byte, error) {
	var updates [][]byte
	err := s.db.WithReadTxn(func(txn kv.Txn) error {
		docID, ok, err := s.lookupDocID(txn, uid, workspaceID, objectID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDocNotFound
		}
		prefix := schema.DocUpdateKeyPrefix(docID)
		upperBound := append(append([]byte{}, prefix...), 255, 255, 255, 255, 255)
		return txn.Range(prefix, upperBound, func(e kv.Entry) bool {
			updates = append(updates, append([]byte(nil), e.Value...))
			return true
		})
	})
	return updates, err
}

func encodeStateVector(sv crdt.StateVector) []byte {
	b, _ := json.Marshal(sv)
	return b
}
