// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package blockchain implements C8 (BlockHeaderRepository), C9 (BlockStorage)
// and C10 (BlockTree) of spec.md §4.6-4.8: the persistent block index and the
// in-memory fork-aware tree built on top of it.
package blockchain

import (
	"encoding/binary"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/core/types"
	"github.com/GeniusVentures/sgnode-go/crdtkv"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// headerCacheSize bounds the in-memory header LRU; headers are immutable
// once written so a hit never needs invalidation, only eviction.
const headerCacheSize = 1024

// BlockStatus reports whether a header is known to the repository.
type BlockStatus int

const (
	StatusUnknown BlockStatus = iota
	StatusInChain
)

// BlockID identifies a block by either its number or its hash. Exactly one
// of the two must be set; NumberSet distinguishes "number 0" from "unset".
type BlockID struct {
	Hash      common.Hash256
	Number    uint64
	NumberSet bool
	HashSet   bool
}

// ByHash builds a BlockID from a hash.
func ByHash(h common.Hash256) BlockID { return BlockID{Hash: h, HashSet: true} }

// ByNumber builds a BlockID from a number.
func ByNumber(n uint64) BlockID { return BlockID{Number: n, NumberSet: true} }

const (
	prefixHeaderByHash  = "blockchain/h/"
	prefixHashByNumber  = "blockchain/n/"
	prefixBodyByHash    = "blockchain/b/"
	prefixJustByHash    = "blockchain/j/"
	keyLastFinalized    = "blockchain/lf"
	keyAuthoritySubtree = "bc/authority_subtree"
)

func headerKey(h common.Hash256) string { return prefixHeaderByHash + string(h.Bytes()) }

func numberKey(n uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return prefixHashByNumber + string(b[:])
}

// HeaderRepository is C8: a bidirectional number<->hash index plus header
// CRUD, layered over the CRDT KV store.
type HeaderRepository struct {
	db    *crdtkv.DB
	cache *lru.Cache[common.Hash256, *types.Header]
}

// NewHeaderRepository wraps db as a header repository.
func NewHeaderRepository(db *crdtkv.DB) *HeaderRepository {
	cache, _ := lru.New[common.Hash256, *types.Header](headerCacheSize)
	return &HeaderRepository{db: db, cache: cache}
}

// PutBlockHeader computes hash = Blake2b-256(scale(header)) and writes both
// the hash->header and number->hash entries.
func (r *HeaderRepository) PutBlockHeader(h *types.Header) (common.Hash256, error) {
	hash := h.Hash()
	if err := r.db.Put(headerKey(hash), h.Encode()); err != nil {
		return common.Hash256{}, err
	}
	if err := r.db.Put(numberKey(h.Number), hash.Bytes()); err != nil {
		return common.Hash256{}, err
	}
	r.cache.Add(hash, h)
	return hash, nil
}

// GetHashByNumber resolves a block number to its canonical hash.
func (r *HeaderRepository) GetHashByNumber(n uint64) (common.Hash256, error) {
	raw, err := r.db.Get(numberKey(n))
	if err != nil {
		return common.Hash256{}, err
	}
	return common.BytesToHash(raw), nil
}

// GetNumberByHash resolves a block hash to its header's number.
func (r *HeaderRepository) GetNumberByHash(h common.Hash256) (uint64, error) {
	hdr, err := r.GetBlockHeader(ByHash(h))
	if err != nil {
		return 0, err
	}
	return hdr.Number, nil
}

// GetBlockHeader resolves id (by number or hash) to its stored header.
func (r *HeaderRepository) GetBlockHeader(id BlockID) (*types.Header, error) {
	hash, err := r.resolve(id)
	if err != nil {
		return nil, err
	}
	if h, ok := r.cache.Get(hash); ok {
		return h, nil
	}
	raw, err := r.db.Get(headerKey(hash))
	if err != nil {
		return nil, err
	}
	h, err := types.DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	r.cache.Add(hash, h)
	return h, nil
}

// GetBlockStatus reports whether id is known to the repository.
func (r *HeaderRepository) GetBlockStatus(id BlockID) (BlockStatus, error) {
	_, err := r.resolve(id)
	if errkind.Is(err, errkind.NotFound) {
		return StatusUnknown, nil
	}
	if err != nil {
		return StatusUnknown, err
	}
	return StatusInChain, nil
}

// RemoveBlockHeader deletes id's header entry. The number->hash entry is
// left untouched if it no longer resolves to an existing header, matching
// spec.md's treatment of pruning as storage-entry removal rather than a
// consistency-maintaining operation.
func (r *HeaderRepository) RemoveBlockHeader(id BlockID) error {
	hash, err := r.resolve(id)
	if err != nil {
		return err
	}
	r.cache.Remove(hash)
	return r.db.Delete(headerKey(hash))
}

func (r *HeaderRepository) resolve(id BlockID) (common.Hash256, error) {
	if id.HashSet {
		ok, err := r.db.Has(headerKey(id.Hash))
		if err != nil {
			return common.Hash256{}, err
		}
		if !ok {
			return common.Hash256{}, errkind.New(errkind.NotFound, errkind.ErrNotFound)
		}
		return id.Hash, nil
	}
	if id.NumberSet {
		return r.GetHashByNumber(id.Number)
	}
	return common.Hash256{}, fmt.Errorf("blockchain: BlockID has neither hash nor number set")
}
