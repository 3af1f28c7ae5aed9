// Package schema builds the fixed-prefix, lexicographically ordered keys
// used to lay out documents, snapshots and object-id indices inside a
// single flat bbolt bucket.
//
//	DOC_SPACE
//	    DOC_SPACE_OBJECT       object_id   TERMINATOR
//	    DOC_SPACE_OBJECT_KEY     doc_id      DOC_STATE (state start)
//	    DOC_SPACE_OBJECT_KEY     doc_id      TERMINATOR_HI_WATERMARK (state end)
//	    DOC_SPACE_OBJECT_KEY     doc_id      DOC_STATE_VEC (state vector)
//	    DOC_SPACE_OBJECT_KEY     doc_id      DOC_UPDATE clock TERMINATOR (update)
//
//	SNAPSHOT_SPACE
//	    SNAPSHOT_SPACE_OBJECT        object_id       TERMINATOR
//	    SNAPSHOT_SPACE_OBJECT        snapshot_id     SNAPSHOT_UPDATE clock TERMINATOR (snapshot)
package schema

import "encoding/binary"

const (
	DocSpace       byte = 1
	SnapshotSpace  byte = 2
	CollabSpace    byte = 3

	DocSpaceObject    byte = 0
	DocSpaceObjectKey byte = 1

	Terminator          byte = 0
	TerminatorHiWatermark byte = 255

	DocState         byte = 0
	DocStateVec      byte = 1
	RemoteDocStateVec byte = 2
	DocUpdate        byte = 2

	SnapshotSpaceObject byte = 0
	SnapshotUpdate      byte = 1

	CollabSpaceObject byte = 0
)

// DocID and SnapshotID are allocated from monotonically increasing
// counters (see internal/persistence/idalloc) rather than derived from
// the object id, so lookups by id stay a fixed-width key comparison.
type DocID = uint64
type SnapshotID = uint64
type Clock = uint32

const (
	DocIDLen               = 8
	ClockLen                = 4
	DocStateKeyLen          = DocIDLen + 1
	DocUpdateKeyPrefixLen   = DocIDLen + 1
	DocUpdateKeyLen         = DocIDLen + 1 + ClockLen + 1
	SnapshotUpdateKeyPrefixLen = 8 + 1
	SnapshotUpdateKeyLen       = 8 + 1 + ClockLen + 1
)

// DocIDKey builds the object_id -> DocID index key: a document is looked
// up by (uid, workspaceID, objectID) to find the DocID used everywhere
// else in this space.
func DocIDKey(uid, workspaceID, objectID []byte) []byte {
	k := make([]byte, 0, 2+len(uid)+len(workspaceID)+len(objectID)+1)
	k = append(k, DocSpace, DocSpaceObject)
	k = append(k, uid...)
	k = append(k, workspaceID...)
	k = append(k, objectID...)
	k = append(k, Terminator)
	return k
}

// ObjectIDFromDocIDKey extracts the (uid || workspaceID || objectID)
// payload from a key built by DocIDKey, given the uid length.
func ObjectIDFromDocIDKey(key []byte, uidLen int) []byte {
	return key[2+uidLen : len(key)-1]
}

// DocStateKey is the doc's state start boundary: [DocSpace, DocSpaceObjectKey, docID, DocState].
func DocStateKey(docID DocID) []byte {
	k := make([]byte, 0, DocStateKeyLen+2)
	k = append(k, DocSpace, DocSpaceObjectKey)
	k = appendU64(k, docID)
	k = append(k, DocState)
	return k
}

// DocStartKey is an alias of DocStateKey used as the lower bound of a
// document's key range.
func DocStartKey(docID DocID) []byte { return DocStateKey(docID) }

// DocEndKey is the upper bound of a document's key range.
func DocEndKey(docID DocID) []byte {
	k := make([]byte, 0, DocStateKeyLen+2)
	k = append(k, DocSpace, DocSpaceObjectKey)
	k = appendU64(k, docID)
	k = append(k, TerminatorHiWatermark)
	return k
}

// StateVectorKey is the key holding the document's encoded state vector.
func StateVectorKey(docID DocID) []byte {
	k := make([]byte, 0, DocStateKeyLen+2)
	k = append(k, DocSpace, DocSpaceObjectKey)
	k = appendU64(k, docID)
	k = append(k, DocStateVec)
	return k
}

// RemoteStateVectorKey holds the last state vector received from a
// given remote peer, keyed separately from the document's own vector so
// the sync layer can compute per-peer diffs without recomputing them
// from the full update log each time.
func RemoteStateVectorKey(docID DocID) []byte {
	k := make([]byte, 0, DocStateKeyLen+2)
	k = append(k, DocSpace, DocSpaceObjectKey)
	k = appendU64(k, docID)
	k = append(k, RemoteDocStateVec)
	return k
}

// DocUpdateKey addresses a single logged update at clock within docID.
func DocUpdateKey(docID DocID, clock Clock) []byte {
	k := make([]byte, 0, DocUpdateKeyLen+2)
	k = append(k, DocSpace, DocSpaceObjectKey)
	k = appendU64(k, docID)
	k = append(k, DocUpdate)
	k = appendU32(k, clock)
	k = append(k, Terminator)
	return k
}

// DocUpdateKeyPrefix is the shared prefix of every update key for docID,
// used as a range-scan prefix to enumerate or delete them all.
func DocUpdateKeyPrefix(docID DocID) []byte {
	k := make([]byte, 0, DocUpdateKeyPrefixLen+2)
	k = append(k, DocSpace, DocSpaceObjectKey)
	k = appendU64(k, docID)
	k = append(k, DocUpdate)
	return k
}

// ClockFromUpdateKey extracts the clock embedded in a key built by
// DocUpdateKey.
func ClockFromUpdateKey(key []byte) Clock {
	n := len(key)
	return binary.BigEndian.Uint32(key[n-5 : n-1])
}

// SnapshotIDKey is the object_id -> SnapshotID index key.
func SnapshotIDKey(uid, objectID []byte) []byte {
	k := make([]byte, 0, 2+len(uid)+len(objectID)+1)
	k = append(k, SnapshotSpace, SnapshotSpaceObject)
	k = append(k, uid...)
	k = append(k, objectID...)
	k = append(k, Terminator)
	return k
}

// SnapshotUpdateKey addresses one snapshot payload at clock within
// snapshotID.
func SnapshotUpdateKey(snapshotID SnapshotID, clock Clock) []byte {
	k := make([]byte, 0, SnapshotUpdateKeyLen+2)
	k = append(k, SnapshotSpace, SnapshotSpaceObject)
	k = appendU64(k, snapshotID)
	k = append(k, SnapshotUpdate)
	k = appendU32(k, clock)
	k = append(k, Terminator)
	return k
}

// SnapshotUpdateKeyPrefix is the shared prefix of every snapshot payload
// key for snapshotID.
func SnapshotUpdateKeyPrefix(snapshotID SnapshotID) []byte {
	k := make([]byte, 0, SnapshotUpdateKeyPrefixLen+2)
	k = append(k, SnapshotSpace, SnapshotSpaceObject)
	k = appendU64(k, snapshotID)
	k = append(k, SnapshotUpdate)
	return k
}

// CollabIDKey is the key space used to record which object ids have ever
// been registered as collaborative documents, independent of their
// current DocID assignment.
func CollabIDKey(objectID []byte) []byte {
	k := make([]byte, 0, 2+len(objectID)+1)
	k = append(k, CollabSpace, CollabSpaceObject)
	k = append(k, objectID...)
	k = append(k, Terminator)
	return k
}

func appendU64(k []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(k, tmp[:]...)
}

func appendU32(k []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(k, tmp[:]...)
}
