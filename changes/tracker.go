// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package changes implements C7, ChangesTracker: it observes every
// put/remove performed inside a PersistentBatch and, on demand, builds a
// changes-trie for the block per spec.md §4.5.
package changes

import (
	"encoding/binary"

	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/trie"
)

// ExtrinsicIndexReader reads the well-known ":extrinsic_index" storage key,
// returning Sentinel when the write happened outside extrinsic execution
// (e.g. a runtime-internal call).
type ExtrinsicIndexReader interface {
	ExtrinsicIndex() uint32
}

// Sentinel is returned for writes that happen outside of extrinsic
// application.
const Sentinel uint32 = 0xFFFFFFFF

// Config controls changes-trie construction; spec.md leaves its shape
// otherwise unspecified beyond "default".
type Config struct {
	// Digest interval could widen this into a multi-level digest trie; a
	// flat per-block trie (interval=1) is this repo's default.
	DigestInterval uint32
}

// DefaultConfig is the "default" config referenced by S3 in spec.md §8.
var DefaultConfig = Config{DigestInterval: 1}

// Tracker is C7. One Tracker is scoped to a single block/extrinsic-batch
// lifetime; a fresh one is created per PersistentBatch.
type Tracker struct {
	parentHash   common.Hash256
	parentNumber uint64
	indexReader  ExtrinsicIndexReader
	changes      map[string][]uint32 // key -> ordered extrinsic indices
	knownAbsent  map[string]bool
}

// New returns a Tracker scoped to the batch building on (parentHash,
// parentNumber), reading the current extrinsic index via indexReader.
func New(parentHash common.Hash256, parentNumber uint64, indexReader ExtrinsicIndexReader) *Tracker {
	return &Tracker{
		parentHash:   parentHash,
		parentNumber: parentNumber,
		indexReader:  indexReader,
		changes:      make(map[string][]uint32),
		knownAbsent:  make(map[string]bool),
	}
}

// OnPut satisfies triestorage.WriteObserver.
func (t *Tracker) OnPut(key, value []byte) { t.record(key) }

// OnRemove satisfies triestorage.WriteObserver.
func (t *Tracker) OnRemove(key []byte) { t.record(key) }

func (t *Tracker) record(key []byte) {
	idx := Sentinel
	if t.indexReader != nil {
		idx = t.indexReader.ExtrinsicIndex()
	}
	k := string(key)
	t.changes[k] = append(t.changes[k], idx)
}

// keyVariant tags a changed storage key with the block number it changed
// in, matching spec.md §4.5's "(keyvariant{BlockNumber, key} -> ...)".
func keyVariant(blockNumber uint64, key []byte) []byte {
	out := make([]byte, 8+len(key))
	binary.BigEndian.PutUint64(out[:8], blockNumber)
	copy(out[8:], key)
	return out
}

// ConstructChangesTrie emits (keyvariant{BlockNumber,key} ->
// extrinsic-indices) into a fresh empty trie for every changed key and
// returns its Merkle root. BlockNumber is parentNumber+1, the block the
// batch builds. The value is the indices as concatenated little-endian
// u32s, with no length prefix.
func (t *Tracker) ConstructChangesTrie(parentHash common.Hash256, cfg Config) (common.Hash256, error) {
	_ = cfg // interval-based digest tries are not exercised by this repo yet
	ct := trie.New(nil)
	for key, indices := range t.changes {
		val := encodeIndices(indices)
		if err := ct.Put(keyVariant(t.parentNumber+1, []byte(key)), val); err != nil {
			return common.Hash256{}, err
		}
	}
	root, err := rootOf(ct)
	if err != nil {
		return common.Hash256{}, err
	}
	return root, nil
}

func encodeIndices(indices []uint32) []byte {
	out := make([]byte, 4*len(indices))
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}

// rootOf computes a trie's Merkle root without persisting it: a changes
// trie is a throwaway structure used only to derive its root hash. Encode
// already recurses into every child (hashing or inlining as appropriate),
// so the root's own encoding is always the full 32-byte digest in practice.
func rootOf(t *trie.Trie) (common.Hash256, error) {
	if t.Root == nil {
		return codec.EmptyTrieRoot, nil
	}
	enc, err := codec.Encode(t.Root)
	if err != nil {
		return common.Hash256{}, err
	}
	return codec.Hash256(enc), nil
}
