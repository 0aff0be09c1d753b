// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package triedb

import (
	"github.com/cockroachdb/pebble"

	"github.com/GeniusVentures/sgnode-go/errkind"
)

// PebbleStore adapts a *pebble.DB (the teacher corpus's modern embedded-KV
// dependency, alongside goleveldb) to the KVStore contract, standing in for
// the rocksdb driver spec.md §1 treats as an external collaborator.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a pebble database rooted at dir.
func OpenPebble(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errkind.New(errkind.Transient, err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, errkind.New(errkind.NotFound, errkind.ErrNotFound)
	}
	if err != nil {
		return nil, errkind.New(errkind.Transient, err)
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, nil
}

func (p *PebbleStore) NewBatch() KVBatch {
	return &pebbleBatch{db: p.db, batch: p.db.NewBatch()}
}

type pebbleBatch struct {
	db    *pebble.DB
	batch *pebble.Batch
}

func (b *pebbleBatch) Put(key, value []byte) { b.batch.Set(key, value, nil) }
func (b *pebbleBatch) Delete(key []byte)     { b.batch.Delete(key, nil) }
func (b *pebbleBatch) Commit() error {
	if err := b.batch.Commit(pebble.Sync); err != nil {
		return errkind.New(errkind.Transient, err)
	}
	return nil
}
