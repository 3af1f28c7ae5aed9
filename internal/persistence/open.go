package persistence

import (
	"errors"
	"fmt"
	"os"

	bolt "go.etcd.io/bbolt"

	"github.com/foldkeep/collabd/internal/persistence/boltkv"
)

// OpenOptions controls how Open behaves on a corrupt store.
type OpenOptions struct {
	// AutoRepair, when true, attempts a compaction-based reopen before
	// surfacing ErrRepairFailed. bbolt has no RocksDB-style Repair()
	// call; the stand-in is copying the live pages out via Tx.Copy into
	// a fresh file and swapping it in, which discards a corrupt
	// freelist without touching committed page data.
	AutoRepair bool
}

// openBoltWithRepair opens path as a bbolt-backed kv.DB, classifying
// failures the way RocksDB's corruption/unknown distinction does: any
// open error bbolt reports is treated as corruption, since bbolt (unlike
// RocksDB) does not distinguish transient I/O errors from structural
// corruption at Open time.
func openBoltWithRepair(path string, opts OpenOptions) (*boltkv.DB, error) {
	db, err := boltkv.Open(path)
	if err == nil {
		return db, nil
	}
	if !opts.AutoRepair {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	if repairErr := repairBoltFile(path); repairErr != nil {
		return nil, fmt.Errorf("%w: %v (repair: %v)", ErrRepairFailed, err, repairErr)
	}
	db, err = boltkv.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepairFailed, err)
	}
	return db, nil
}

// repairBoltFile rebuilds path by copying every page reachable from a
// fresh bbolt.Open (which itself runs bbolt's own freelist recovery) into
// a new file, then replacing the original. If bbolt cannot even open the
// file read-only, repair cannot proceed and the caller's own open error
// is surfaced instead.
func repairBoltFile(path string) error {
	src, err := bolt.Open(path, 0600, &bolt.Options{ReadOnly: true})
	if err != nil {
		return err
	}
	defer src.Close()

	tmpPath := path + ".repair"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer out.Close()

	err = src.View(func(tx *bolt.Tx) error {
		_, err := tx.WriteTo(out)
		return err
	})
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	return nil
}

func isClassifiedCorruption(err error) bool {
	return errors.Is(err, ErrCorruption) || errors.Is(err, ErrRepairFailed)
}
