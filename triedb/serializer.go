// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package triedb

import (
	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
	"github.com/GeniusVentures/sgnode-go/trie"
)

// Serializer is C4, TrieSerializer: stores/loads a trie by walking its node
// graph through the codec and a Backend, demoting in-memory children to
// codec.Dummy stand-ins after a write.
type Serializer struct {
	backend *Backend
}

func NewSerializer(backend *Backend) *Serializer {
	return &Serializer{backend: backend}
}

// StoreTrie depth-first stores every node of t, replacing already-stored
// children with Dummy references in memory, and returns the new root hash.
// The root's Merkle value is always the full 32-byte Blake2b-256 per
// spec.md §4.3, even when the root encoding would otherwise be inlined.
func (s *Serializer) StoreTrie(t *trie.Trie) (common.Hash256, error) {
	batch := s.backend.NewBatch()
	if t.Root == nil {
		return codec.EmptyTrieRoot, nil
	}
	newRoot, rootEnc, err := s.storeNode(t.Root, batch)
	if err != nil {
		return common.Hash256{}, err
	}
	if rootEnc != nil && len(rootEnc) < common.HashLength {
		// a short root was stored under its inline encoding; also store it
		// under its hash so RetrieveTrie can load it by the returned root.
		batch.Put(codec.Hash256(rootEnc).Bytes(), rootEnc)
	}
	if err := batch.Commit(); err != nil {
		return common.Hash256{}, errkind.New(errkind.Transient, err)
	}
	t.Root = newRoot
	enc, err := codec.Encode(stripDummy(newRoot))
	if err != nil {
		return common.Hash256{}, err
	}
	return codec.Hash256(enc), nil
}

// storeNode stores n and everything beneath it, returning the in-memory
// replacement (children demoted to Dummy) and n's own encoding.
func (s *Serializer) storeNode(n codec.Node, batch *Batch) (codec.Node, []byte, error) {
	switch v := n.(type) {
	case *codec.Dummy:
		return v, nil, nil // already stored; encoding unused by caller
	case *codec.Leaf:
		enc, err := codec.Encode(v)
		if err != nil {
			return nil, nil, err
		}
		mv := codec.MerkleValue(enc)
		batch.Put(mv, enc)
		return v, enc, nil
	case *codec.BranchEmptyValue:
		var nc [16]codec.Node
		for i, c := range v.Children {
			if c == nil {
				continue
			}
			stored, _, err := s.storeNode(c, batch)
			if err != nil {
				return nil, nil, err
			}
			nc[i] = toDummy(stored)
		}
		demoted := &codec.BranchEmptyValue{Key: v.Key, Children: nc}
		enc, err := codec.Encode(demoted)
		if err != nil {
			return nil, nil, err
		}
		mv := codec.MerkleValue(enc)
		batch.Put(mv, enc)
		return demoted, enc, nil
	case *codec.BranchWithValue:
		var nc [16]codec.Node
		for i, c := range v.Children {
			if c == nil {
				continue
			}
			stored, _, err := s.storeNode(c, batch)
			if err != nil {
				return nil, nil, err
			}
			nc[i] = toDummy(stored)
		}
		demoted := &codec.BranchWithValue{Key: v.Key, Value: v.Value, Children: nc}
		enc, err := codec.Encode(demoted)
		if err != nil {
			return nil, nil, err
		}
		mv := codec.MerkleValue(enc)
		batch.Put(mv, enc)
		return demoted, enc, nil
	default:
		return nil, nil, errkind.New(errkind.Corruption, errkind.ErrUnknownNodeType)
	}
}

// toDummy re-encodes a freshly-stored node to compute the Dummy reference
// that should replace it in its parent's child slot.
func toDummy(n codec.Node) codec.Node {
	if d, ok := n.(*codec.Dummy); ok {
		return d
	}
	enc, err := codec.Encode(n)
	if err != nil {
		return n
	}
	return &codec.Dummy{DBKey: codec.MerkleValue(enc)}
}

// stripDummy is a no-op passthrough kept symmetric with toDummy; the root
// itself is never demoted (its caller needs the live tree), only hashed.
func stripDummy(n codec.Node) codec.Node { return n }

// RetrieveTrie loads a trie whose root Merkle value is rootHash. An empty
// root returns an empty trie; otherwise the root node is loaded eagerly and
// every Dummy child is materialized lazily via RetrieveNode.
func (s *Serializer) RetrieveTrie(rootHash common.Hash256) (*trie.Trie, error) {
	if rootHash == codec.EmptyTrieRoot {
		return trie.New(s.childLoader()), nil
	}
	root, err := s.RetrieveNode(rootHash.Bytes())
	if err != nil {
		return nil, err
	}
	return trie.NewWithRoot(root, s.childLoader()), nil
}

// RetrieveNode loads and decodes the node stored under dbKey.
func (s *Serializer) RetrieveNode(dbKey []byte) (codec.Node, error) {
	enc, err := s.backend.Get(dbKey)
	if err != nil {
		return nil, err
	}
	return codec.Decode(enc)
}

func (s *Serializer) childLoader() trie.ChildLoader {
	return func(d *codec.Dummy) (codec.Node, error) {
		// A Merkle value shorter than 32 bytes is the node's own encoding,
		// inlined rather than hashed (spec.md §4.1); decode it directly
		// instead of treating it as a database key.
		if len(d.DBKey) < common.HashLength {
			return codec.Decode(d.DBKey)
		}
		return s.RetrieveNode(d.DBKey)
	}
}
