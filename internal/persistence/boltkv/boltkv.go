// Package boltkv implements internal/persistence/kv.Store on top of
// go.etcd.io/bbolt using a single flat bucket: bbolt already orders keys lexicographically within a bucket, so the fixed-prefix
// schema in internal/persistence/schema needs nothing more than a flat
// bucket and a cursor.
package boltkv

import (
	"bytes"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/foldkeep/collabd/internal/persistence/kv"
)

// rootBucket is the single flat bucket every key lives in. This store
// keeps one bucket because the schema package already
// partitions the keyspace by a leading space byte (DocSpace,
// SnapshotSpace, CollabSpace) — a second partitioning layer would only
// duplicate that prefix structure as bucket names.
var rootBucket = []byte("collab")

// DB wraps a bbolt database file as a kv.DB.
type DB struct {
	db *bolt.DB
}

// Open opens (creating if needed) the bbolt file at path and ensures the
// root bucket exists.
func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltkv: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("boltkv: create root bucket: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the underlying bbolt file.
func (d *DB) Close() error { return d.db.Close() }

// WithWriteTxn runs fn against a read-write bbolt transaction.
func (d *DB) WithWriteTxn(fn func(kv.Txn) error) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return fn(&txn{b: tx.Bucket(rootBucket)})
	})
}

// WithReadTxn runs fn against a read-only bbolt transaction.
func (d *DB) WithReadTxn(fn func(kv.Txn) error) error {
	return d.db.View(func(tx *bolt.Tx) error {
		return fn(&txn{b: tx.Bucket(rootBucket)})
	})
}

type txn struct {
	b *bolt.Bucket
}

func (t *txn) Get(key []byte) ([]byte, bool, error) {
	v := t.b.Get(key)
	if v == nil {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (t *txn) Put(key, value []byte) error {
	return t.b.Put(key, value)
}

func (t *txn) Delete(key []byte) error {
	return t.b.Delete(key)
}

func (t *txn) DeleteRange(from, to []byte) error {
	c := t.b.Cursor()
	var toDelete [][]byte
	for k, _ := c.Seek(from); k != nil && bytes.Compare(k, to) < 0; k, _ = c.Next() {
		key := make([]byte, len(k))
		copy(key, k)
		toDelete = append(toDelete, key)
	}
	for _, k := range toDelete {
		if err := t.b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (t *txn) Range(from, to []byte, fn func(kv.Entry) bool) error {
	c := t.b.Cursor()
	for k, v := c.Seek(from); k != nil; k, v = c.Next() {
		if to != nil && bytes.Compare(k, to) >= 0 {
			break
		}
		key := make([]byte, len(k))
		copy(key, k)
		val := make([]byte, len(v))
		copy(val, v)
		if !fn(kv.Entry{Key: key, Value: val}) {
			break
		}
	}
	return nil
}

// NextBackEntry returns the entry with the greatest key <= upper. Seek
// lands on the first key >= upper (or past the end of the bucket if
// none); in either case, stepping back once lands on the entry we want
// unless Seek landed exactly on upper itself.
func (t *txn) NextBackEntry(upper []byte) (kv.Entry, bool, error) {
	c := t.b.Cursor()
	k, v := c.Seek(upper)
	if k == nil || !bytes.Equal(k, upper) {
		k, v = c.Prev()
	}
	if k == nil {
		return kv.Entry{}, false, nil
	}
	key := make([]byte, len(k))
	copy(key, k)
	val := make([]byte, len(v))
	copy(val, v)
	return kv.Entry{Key: key, Value: val}, true, nil
}
