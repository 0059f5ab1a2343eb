// Package store contains the local state database: a small boltdb
// file recording the self-update bootstrap's last phase and a
// correlation id for the most recent run, so a crash mid-sync or
// mid-self-update can be diagnosed. Crash recovery itself does not
// read this database.
package store

import (
	"fmt"
	"os"

	"github.com/boltdb/bolt"
)

var bucketState = []byte("state")

// DB wraps a bolt database with the buckets this package expects to
// exist.
type DB struct {
	*bolt.DB
}

// Open opens (creating if necessary) the state database at path.
func Open(path string, mode os.FileMode) (*DB, error) {
	b, err := bolt.Open(path, mode, nil)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	db := &DB{b}
	if err := db.Update(db.init); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) init(tx *Tx) error {
	_, err := tx.tx.CreateBucketIfNotExists(bucketState)
	return err
}

func (db *DB) View(fn func(*Tx) error) error {
	return db.DB.View(func(tx *bolt.Tx) error {
		return fn(&Tx{tx})
	})
}

func (db *DB) Update(fn func(*Tx) error) error {
	return db.DB.Update(func(tx *bolt.Tx) error {
		return fn(&Tx{tx})
	})
}

// Tx is a database transaction.
type Tx struct {
	tx *bolt.Tx
}

func (tx *Tx) state() *bolt.Bucket {
	return tx.tx.Bucket(bucketState)
}

var (
	keyBootstrapPhase = []byte("bootstrap_phase")
	keyRunID          = []byte("run_id")
)

// SetBootstrapPhase records the self-update bootstrap state machine's
// current phase, so a crash between the two renames of a self-update
// can be diagnosed on the next run.
func (tx *Tx) SetBootstrapPhase(phase string) error {
	return tx.state().Put(keyBootstrapPhase, []byte(phase))
}

// BootstrapPhase returns the last recorded bootstrap phase, or "" if
// none has ever been recorded.
func (tx *Tx) BootstrapPhase() string {
	v := tx.state().Get(keyBootstrapPhase)
	return string(v)
}

// SetRunID records a correlation id for the current run, stored
// alongside the bootstrap phase recorded for this invocation.
func (tx *Tx) SetRunID(id string) error {
	return tx.state().Put(keyRunID, []byte(id))
}

// RunID returns the most recently recorded run id.
func (tx *Tx) RunID() string {
	v := tx.state().Get(keyRunID)
	return string(v)
}
