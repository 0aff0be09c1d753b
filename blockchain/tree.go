// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package blockchain

import (
	"bytes"
	"sort"
	"sync"

	"github.com/GeniusVentures/sgnode-go/core/types"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// FinalizationObserver is notified whenever the tree advances its finalized
// tip.
type FinalizationObserver interface {
	OnFinalized(number uint64, hash common.Hash256)
}

// node is one in-memory tree entry: an ancestor chain of these runs from the
// finalized root down to every known leaf.
type node struct {
	hash     common.Hash256
	number   uint64
	parent   *node
	children []*node
}

// Tree is C10: an in-memory, fork-aware tree of block headers rooted at the
// latest finalized block, backed by Storage for persistence.
type Tree struct {
	mu        sync.RWMutex
	storage   *Storage
	root      *node
	byHash    map[common.Hash256]*node
	observers []FinalizationObserver
}

// NewTree roots a Tree at storage's current last-finalized block.
func NewTree(storage *Storage) (*Tree, error) {
	hash, err := storage.GetLastFinalized()
	if err != nil {
		return nil, err
	}
	hdr, err := storage.GetHeader(ByHash(hash))
	if err != nil {
		return nil, err
	}
	root := &node{hash: hash, number: hdr.Number}
	return &Tree{
		storage: storage,
		root:    root,
		byHash:  map[common.Hash256]*node{hash: root},
	}, nil
}

// AddObserver registers a FinalizationObserver.
func (t *Tree) AddObserver(o FinalizationObserver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// AddBlockHeader fails if the parent is not already in the tree.
func (t *Tree) AddBlockHeader(header *types.Header) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	parent, ok := t.byHash[header.ParentHash]
	if !ok {
		return errkind.New(errkind.NotFound, errkind.ErrParentMissing)
	}
	hash := header.Hash()
	if _, err := t.storage.headers.PutBlockHeader(header); err != nil {
		return err
	}
	n := &node{hash: hash, number: header.Number, parent: parent}
	parent.children = append(parent.children, n)
	t.byHash[hash] = n
	return nil
}

// AddBlockBody persists body for block (n, h) via Storage.
func (t *Tree) AddBlockBody(n uint64, h common.Hash256, body *types.Body) error {
	t.mu.RLock()
	_, ok := t.byHash[h]
	t.mu.RUnlock()
	if !ok {
		return errkind.New(errkind.NotFound, errkind.ErrParentMissing)
	}
	return t.storage.putBodyRaw(h, body)
}

// AddBlock adds header then body. The two writes are not atomic: if the
// body write fails, the header stays in the tree and in storage.
func (t *Tree) AddBlock(header *types.Header, body *types.Body) error {
	if err := t.AddBlockHeader(header); err != nil {
		return err
	}
	return t.AddBlockBody(header.Number, header.Hash(), body)
}

// Finalize walks from the current root to hash, rejecting hash if it is not
// a descendant of the finalized tip, then prunes every sibling branch and
// advances lastFinalized.
func (t *Tree) Finalize(hash common.Hash256, justification types.Justification) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	target, ok := t.byHash[hash]
	if !ok {
		return errkind.New(errkind.NotFound, errkind.ErrNotDescendant)
	}
	chain := ancestorChain(target, t.root)
	if chain == nil {
		return errkind.New(errkind.InvariantViolation, errkind.ErrNotDescendant)
	}

	// Prune every branch that isn't on the path from root to target.
	cur := t.root
	for _, next := range chain[1:] {
		for _, sib := range cur.children {
			if sib == next {
				continue
			}
			t.pruneSubtree(sib)
		}
		cur = next
	}

	t.root = target
	target.parent = nil
	if justification != nil {
		if err := t.storage.PutJustification(hash, justification); err != nil {
			return err
		}
	}
	if err := t.storage.SetLastFinalizedBlockHash(hash); err != nil {
		return err
	}
	for _, o := range t.observers {
		o.OnFinalized(target.number, hash)
	}
	return nil
}

// ancestorChain returns [root, ..., target] if target descends from root,
// else nil.
func ancestorChain(target, root *node) []*node {
	chain := []*node{target}
	cur := target
	for cur != root {
		if cur.parent == nil {
			return nil
		}
		cur = cur.parent
		chain = append(chain, cur)
	}
	// reverse into root-first order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func (t *Tree) pruneSubtree(n *node) {
	for _, c := range n.children {
		t.pruneSubtree(c)
	}
	delete(t.byHash, n.hash)
	_ = t.storage.headers.RemoveBlockHeader(ByHash(n.hash))
}

// HasDirectChain reports whether d descends from a.
func (t *Tree) HasDirectChain(a, d common.Hash256) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	dn, ok := t.byHash[d]
	if !ok {
		return false
	}
	an, ok := t.byHash[a]
	if !ok {
		return false
	}
	for cur := dn; cur != nil; cur = cur.parent {
		if cur == an {
			return true
		}
	}
	return false
}

// GetChainByBlock returns the full chain from root to hash, ascending.
func (t *Tree) GetChainByBlock(hash common.Hash256) ([]common.Hash256, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.byHash[hash]
	if !ok {
		return nil, errkind.New(errkind.NotFound, errkind.ErrNotFound)
	}
	chain := ancestorChain(n, t.root)
	if chain == nil {
		return nil, errkind.New(errkind.InvariantViolation, errkind.ErrNotDescendant)
	}
	out := make([]common.Hash256, len(chain))
	for i, cn := range chain {
		out[i] = cn.hash
	}
	return out, nil
}

// GetChainByBlockN returns up to n blocks starting at hash, walking toward
// the root if ascending is false, toward leaves (along the longest path) if
// true.
func (t *Tree) GetChainByBlockN(hash common.Hash256, ascending bool, n int) ([]common.Hash256, error) {
	full, err := t.GetChainByBlock(hash)
	if err != nil {
		return nil, err
	}
	if ascending {
		leaf, err := t.GetBestContaining(hash, nil)
		if err != nil {
			return nil, err
		}
		down, err := t.GetChainByBlocks(hash, leaf)
		if err != nil {
			return nil, err
		}
		if n < len(down) {
			down = down[:n]
		}
		return down, nil
	}
	// descending: hash back toward root
	if n < len(full) {
		full = full[len(full)-n:]
	}
	out := make([]common.Hash256, len(full))
	for i, h := range full {
		out[len(full)-1-i] = h
	}
	return out, nil
}

// GetChainByBlocks extracts the linear segment from top to bottom
// (inclusive), both assumed to lie on the same root-to-leaf path.
func (t *Tree) GetChainByBlocks(top, bottom common.Hash256) ([]common.Hash256, error) {
	chain, err := t.GetChainByBlock(bottom)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, h := range chain {
		if h == top {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errkind.New(errkind.InvariantViolation, errkind.ErrNotDescendant)
	}
	return chain[idx:], nil
}

// LongestPath returns the chain from the finalized tip to the deepest leaf,
// ties broken by hash order for determinism.
func (t *Tree) LongestPath() []common.Hash256 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	leaf := t.deepestLeafLocked()
	chain := ancestorChain(leaf, t.root)
	out := make([]common.Hash256, len(chain))
	for i, n := range chain {
		out[i] = n.hash
	}
	return out
}

// DeepestLeaf is the last element of LongestPath.
func (t *Tree) DeepestLeaf() common.Hash256 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.deepestLeafLocked().hash
}

func (t *Tree) deepestLeafLocked() *node {
	leaves := t.leavesLocked()
	best := leaves[0]
	for _, l := range leaves[1:] {
		if l.number > best.number || (l.number == best.number && bytes.Compare(l.hash.Bytes(), best.hash.Bytes()) < 0) {
			best = l
		}
	}
	return best
}

func (t *Tree) leavesLocked() []*node {
	var leaves []*node
	var walk func(n *node)
	walk = func(n *node) {
		if len(n.children) == 0 {
			leaves = append(leaves, n)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	sort.Slice(leaves, func(i, j int) bool { return bytes.Compare(leaves[i].hash.Bytes(), leaves[j].hash.Bytes()) < 0 })
	return leaves
}

// GetBestContaining returns, among leaves whose chain contains target, the
// deepest one with number <= maxNumber (if set).
func (t *Tree) GetBestContaining(target common.Hash256, maxNumber *uint64) (common.Hash256, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.byHash[target]; !ok {
		return common.Hash256{}, errkind.New(errkind.NotFound, errkind.ErrNotFound)
	}
	var best *node
	for _, l := range t.leavesLocked() {
		if maxNumber != nil && l.number > *maxNumber {
			continue
		}
		for cur := l; cur != nil; cur = cur.parent {
			if cur.hash == target {
				if best == nil || l.number > best.number ||
					(l.number == best.number && bytes.Compare(l.hash.Bytes(), best.hash.Bytes()) < 0) {
					best = l
				}
				break
			}
		}
	}
	if best == nil {
		return common.Hash256{}, errkind.New(errkind.NotFound, errkind.ErrNotFound)
	}
	return best.hash, nil
}

// GetLeaves returns every leaf hash, sorted for determinism.
func (t *Tree) GetLeaves() []common.Hash256 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	leaves := t.leavesLocked()
	out := make([]common.Hash256, len(leaves))
	for i, l := range leaves {
		out[i] = l.hash
	}
	return out
}

// GetChildren returns the direct children of h.
func (t *Tree) GetChildren(h common.Hash256) ([]common.Hash256, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.byHash[h]
	if !ok {
		return nil, errkind.New(errkind.NotFound, errkind.ErrNotFound)
	}
	out := make([]common.Hash256, len(n.children))
	for i, c := range n.children {
		out[i] = c.hash
	}
	return out, nil
}

// GetLastFinalized returns the tree's current root (number, hash).
func (t *Tree) GetLastFinalized() (uint64, common.Hash256) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.number, t.root.hash
}
