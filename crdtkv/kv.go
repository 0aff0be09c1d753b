// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package crdtkv implements the CRDT-backed key-value store of spec.md §5:
// eventually consistent, idempotent-write, last-writer-wins per key. It
// backs C8/C9's block repository and C15's ProcessingTaskQueue. The
// physical store is github.com/syndtr/goleveldb, the teacher corpus's other
// embedded-KV dependency (alongside pebble, used by the trie/triedb layer),
// chosen here because its ordered iterator makes the §4.12 prefix scans
// (grabTask's walk over "tasks/") a direct match instead of a workaround.
package crdtkv

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/GeniusVentures/sgnode-go/errkind"
)

// record is what's physically stored per key: a value plus a logical clock
// used to resolve concurrent writes last-writer-wins.
type record struct {
	value []byte
	clock uint64
}

// DB is a process-local view of the CRDT store. Multiple DB instances over
// the same directory (or, in tests, the same in-memory map) model multiple
// peers publishing deltas to each other; Merge applies a remote delta with
// LWW semantics.
type DB struct {
	mu     sync.Mutex
	ldb    *leveldb.DB
	clocks map[string]uint64
	self   uint64 // this peer's own monotonically increasing clock source
}

// Open opens (or creates) a goleveldb database at dir.
func Open(dir string) (*DB, error) {
	ldb, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, errkind.New(errkind.Transient, err)
	}
	return &DB{ldb: ldb, clocks: make(map[string]uint64)}, nil
}

// OpenMemory opens an in-memory database, used by tests.
func OpenMemory() (*DB, error) {
	ldb, err := leveldb.Open(nil, nil)
	if err != nil {
		return nil, errkind.New(errkind.Transient, err)
	}
	return &DB{ldb: ldb, clocks: make(map[string]uint64)}, nil
}

func (db *DB) Close() error { return db.ldb.Close() }

// Put writes key=value idempotently: a monotonically increasing local clock
// is attached so replays or duplicate deliveries are no-ops.
func (db *DB) Put(key string, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.self++
	return db.putLocked(key, value, db.self)
}

func (db *DB) putLocked(key string, value []byte, clock uint64) error {
	if cur, ok := db.clocks[key]; ok && cur >= clock {
		return nil // a later write already won; idempotent no-op
	}
	if err := db.ldb.Put([]byte(key), encodeRecord(record{value: value, clock: clock}), nil); err != nil {
		return errkind.New(errkind.Transient, err)
	}
	db.clocks[key] = clock
	return nil
}

// Merge applies a remote peer's write with last-writer-wins semantics,
// modeling delta propagation between CRDT replicas.
func (db *DB) Merge(key string, value []byte, remoteClock uint64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.putLocked(key, value, remoteClock)
}

// Get returns the value stored at key, or a NotFound error.
func (db *DB) Get(key string) ([]byte, error) {
	raw, err := db.ldb.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, errkind.New(errkind.NotFound, errkind.ErrNotFound)
	}
	if err != nil {
		return nil, errkind.New(errkind.Transient, err)
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, errkind.New(errkind.Corruption, err)
	}
	return rec.value, nil
}

// Has reports whether key exists.
func (db *DB) Has(key string) (bool, error) {
	_, err := db.Get(key)
	if errkind.Is(err, errkind.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes key. Deletes are not versioned against concurrent puts in
// this simplified CRDT; last physical writer wins, matching the LWW-register
// semantics used for values.
func (db *DB) Delete(key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.clocks, key)
	if err := db.ldb.Delete([]byte(key), nil); err != nil {
		return errkind.New(errkind.Transient, err)
	}
	return nil
}

// IteratePrefix calls fn for every key under prefix, in key order, stopping
// early if fn returns false.
func (db *DB) IteratePrefix(prefix string, fn func(key string, value []byte) (cont bool, err error)) error {
	iter := db.ldb.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	for iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return errkind.New(errkind.Corruption, err)
		}
		cont, err := fn(string(iter.Key()), rec.value)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return errkind.New(errkind.Transient, err)
	}
	return nil
}
