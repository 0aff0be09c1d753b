// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package triedb implements C3, TrieStorageBackend (a prefixed KV facade
// over a pluggable persistent store), and C4, TrieSerializer (which walks a
// trie.Trie's node graph through the codec and the backend). The pluggable
// store itself is github.com/cockroachdb/pebble in production and an
// in-memory map in tests; both satisfy the same KVStore interface.
package triedb

import (
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// KVStore is the minimal persistent key-value contract every backend
// (PebbleStore in production, or an in-memory map in tests) must satisfy. It is intentionally narrower than a full database
// API: batched writes only, no range scans, matching what C3/C4 need.
type KVStore interface {
	Get(key []byte) ([]byte, error) // errkind.NotFound if absent
	NewBatch() KVBatch
}

// KVBatch accumulates writes for atomic commit.
type KVBatch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Commit() error
}

// Backend is C3: a thin prefix facade over a KVStore, so several key
// spaces can share one physical store without key collisions. app.Node
// uses it only for trie nodes, under the "trie/" prefix.
type Backend struct {
	store  KVStore
	prefix []byte
}

// NewBackend returns a Backend that prepends prefix to every key.
func NewBackend(store KVStore, prefix []byte) *Backend {
	return &Backend{store: store, prefix: append([]byte(nil), prefix...)}
}

func (b *Backend) key(k []byte) []byte {
	out := make([]byte, 0, len(b.prefix)+len(k))
	out = append(out, b.prefix...)
	out = append(out, k...)
	return out
}

func (b *Backend) Get(key []byte) ([]byte, error) {
	v, err := b.store.Get(b.key(key))
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Batch is a prefixed view over a KVBatch.
type Batch struct {
	b      KVBatch
	prefix []byte
}

func (b *Backend) NewBatch() *Batch {
	return &Batch{b: b.store.NewBatch(), prefix: b.prefix}
}

func (bt *Batch) Put(key, value []byte) {
	k := make([]byte, 0, len(bt.prefix)+len(key))
	k = append(k, bt.prefix...)
	k = append(k, key...)
	bt.b.Put(k, value)
}

func (bt *Batch) Delete(key []byte) {
	k := make([]byte, 0, len(bt.prefix)+len(key))
	k = append(k, bt.prefix...)
	k = append(k, key...)
	bt.b.Delete(k)
}

func (bt *Batch) Commit() error { return bt.b.Commit() }

// MemStore is a trivial in-memory KVStore. app.Node always opens a
// PebbleStore and never falls back to MemStore.
type MemStore struct {
	data map[string][]byte
}

func NewMemStore() *MemStore { return &MemStore{data: make(map[string][]byte)} }

func (m *MemStore) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, errkind.New(errkind.NotFound, errkind.ErrNotFound)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemStore) NewBatch() KVBatch { return &memBatch{store: m} }

type memOp struct {
	key    []byte
	value  []byte
	delete bool
}

type memBatch struct {
	store *MemStore
	ops   []memOp
}

func (mb *memBatch) Put(key, value []byte) {
	mb.ops = append(mb.ops, memOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

func (mb *memBatch) Delete(key []byte) {
	mb.ops = append(mb.ops, memOp{key: append([]byte(nil), key...), delete: true})
}

func (mb *memBatch) Commit() error {
	for _, op := range mb.ops {
		if op.delete {
			delete(mb.store.data, string(op.key))
			continue
		}
		mb.store.data[string(op.key)] = op.value
	}
	return nil
}
