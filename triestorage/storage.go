// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package triestorage implements C6: TrieStorage and its three batch
// kinds (ephemeral, persistent, topper) over a shared trie.Trie and
// triedb.Serializer, per spec.md §4.4/§5.
package triestorage

import (
	"sync"

	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
	"github.com/GeniusVentures/sgnode-go/trie"
	"github.com/GeniusVentures/sgnode-go/triedb"
)

// Storage is C6's TrieStorage: it hands out batches rooted at a given state
// root, serializing them back through the shared Serializer on commit.
type Storage struct {
	mu         sync.Mutex
	serializer *triedb.Serializer
	// persistentLock enforces "concurrent persistent batches against the
	// same state are not allowed" (spec.md §4.4).
	persistentLock sync.Mutex
}

func NewStorage(serializer *triedb.Serializer) *Storage {
	return &Storage{serializer: serializer}
}

// GetEphemeralBatchAt returns a batch that mutates an in-memory trie loaded
// from root and is discarded (never persisted) when dropped.
func (s *Storage) GetEphemeralBatchAt(root common.Hash256) (*EphemeralBatch, error) {
	t, err := s.serializer.RetrieveTrie(root)
	if err != nil {
		return nil, err
	}
	return &EphemeralBatch{trie: t}, nil
}

// GetPersistentBatchAt returns the exclusive persistent batch rooted at
// root. Committing it may fork state: the old root remains addressable in
// the backend even after a new root is produced.
func (s *Storage) GetPersistentBatchAt(root common.Hash256) (*PersistentBatch, error) {
	s.persistentLock.Lock()
	t, err := s.serializer.RetrieveTrie(root)
	if err != nil {
		s.persistentLock.Unlock()
		return nil, err
	}
	return &PersistentBatch{storage: s, trie: t}, nil
}

// EphemeralBatch mutates an in-memory trie with no persistence.
type EphemeralBatch struct {
	trie *trie.Trie
}

func (b *EphemeralBatch) Get(key []byte) ([]byte, error)    { return b.trie.Get(key) }
func (b *EphemeralBatch) Put(key, value []byte) error       { return b.trie.Put(key, value) }
func (b *EphemeralBatch) Remove(key []byte) error            { return b.trie.Remove(key) }
func (b *EphemeralBatch) ClearPrefix(prefix []byte) error    { return b.trie.ClearPrefix(prefix) }
func (b *EphemeralBatch) Contains(key []byte) (bool, error) {
	_, err := b.trie.Get(key)
	if err == trie.NoValue {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// WriteObserver is notified of every put/remove performed inside a
// PersistentBatch, which is how C7's ChangesTracker observes writes without
// the trie or the batch knowing anything about changes-tries.
type WriteObserver interface {
	OnPut(key, value []byte)
	OnRemove(key []byte)
}

// PersistentBatch owns exclusive write access to the trie it was opened
// against until Commit releases the lock.
type PersistentBatch struct {
	storage   *Storage
	trie      *trie.Trie
	observers []WriteObserver
	closed    bool
}

func (b *PersistentBatch) AddObserver(o WriteObserver) { b.observers = append(b.observers, o) }

func (b *PersistentBatch) Get(key []byte) ([]byte, error) { return b.trie.Get(key) }

func (b *PersistentBatch) Put(key, value []byte) error {
	if err := b.trie.Put(key, value); err != nil {
		return err
	}
	for _, o := range b.observers {
		o.OnPut(key, value)
	}
	return nil
}

func (b *PersistentBatch) Remove(key []byte) error {
	if err := b.trie.Remove(key); err != nil {
		return err
	}
	for _, o := range b.observers {
		o.OnRemove(key)
	}
	return nil
}

func (b *PersistentBatch) ClearPrefix(prefix []byte) error { return b.trie.ClearPrefix(prefix) }

// Commit invokes the TrieSerializer and returns the new root hash, then
// releases the storage's exclusive persistent-batch lock.
func (b *PersistentBatch) Commit() (common.Hash256, error) {
	if b.closed {
		return common.Hash256{}, errkind.New(errkind.InvariantViolation, errkind.ErrParentExpired)
	}
	b.closed = true
	defer b.storage.persistentLock.Unlock()
	return b.storage.serializer.StoreTrie(b.trie)
}

// Trie exposes the underlying trie, e.g. so a Topper can stack on it.
func (b *PersistentBatch) Trie() *trie.Trie { return b.trie }
