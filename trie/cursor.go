// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package trie

import (
	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
)

// pathEntry is one (branch, child_idx) frame of the DFS path stack.
type pathEntry struct {
	branch   codec.Node
	childIdx int
	prefix   []byte // accumulated nibble prefix up to and including branch.Key
}

// Cursor is a DFS iterator yielding (key, value) pairs in lexicographic
// order of packed keys, per spec.md §4.2.
type Cursor struct {
	t       *Trie
	stack   []pathEntry
	current struct {
		key   []byte
		value []byte
	}
	started bool
	done    bool
}

// NewCursor returns a cursor positioned before the first entry.
func (t *Trie) NewCursor() *Cursor {
	return &Cursor{t: t}
}

// GetPath reconstructs the (branch, child_idx) stack that would be produced
// by descending from root toward keyNibbles, so a cursor can be seeded to
// resume iteration in the middle of the trie.
func (t *Trie) GetPath(root codec.Node, keyNibbles []byte) ([]pathEntry, error) {
	var path []pathEntry
	n := root
	consumed := []byte{}
	for {
		if n == nil {
			return path, nil
		}
		rn, err := t.resolve(n)
		if err != nil {
			return nil, err
		}
		switch rn.(type) {
		case *codec.Leaf:
			return path, nil
		case *codec.BranchEmptyValue, *codec.BranchWithValue:
			nodeKey := rn.KeyNibbles()
			cp := common.CommonPrefixLen(nodeKey, keyNibbles)
			consumed = append(consumed, nodeKey[:cp]...)
			if cp < len(nodeKey) || cp == len(keyNibbles) {
				path = append(path, pathEntry{branch: rn, childIdx: -1, prefix: append([]byte(nil), consumed...)})
				return path, nil
			}
			idx := int(keyNibbles[cp])
			path = append(path, pathEntry{branch: rn, childIdx: idx, prefix: append([]byte(nil), consumed...)})
			consumed = append(consumed, keyNibbles[cp])
			children := codec.BranchChildren(rn)
			n = children[idx]
			keyNibbles = keyNibbles[cp+1:]
		default:
			return path, nil
		}
	}
}

// Next advances the cursor and reports whether a new entry is available.
func (c *Cursor) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.started = true
		c.stack = nil
		if ok := c.descendLeftmost(c.t.Root, nil); ok {
			return true
		}
		c.done = true
		return false
	}
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		children := codec.BranchChildren(top.branch)
		top.childIdx++
		found := false
		for top.childIdx < 16 {
			if children[top.childIdx] != nil {
				found = true
				break
			}
			top.childIdx++
		}
		if !found {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		prefix := append(append([]byte(nil), top.prefix...), byte(top.childIdx))
		if c.descendLeftmost(children[top.childIdx], prefix) {
			return true
		}
	}
	c.done = true
	return false
}

// descendLeftmost pushes branch/value frames from n down to the leftmost
// leaf, yielding that leaf's entry. prefix is the accumulated nibble path up
// to (not including) n's own key.
func (c *Cursor) descendLeftmost(n codec.Node, prefix []byte) bool {
	for {
		if n == nil {
			return false
		}
		rn, err := c.t.resolve(n)
		if err != nil {
			return false
		}
		switch cur := rn.(type) {
		case *codec.Leaf:
			full := append(append([]byte(nil), prefix...), cur.Key...)
			c.current.key, _ = common.NibblesToKey(full)
			c.current.value = cur.Value
			return true
		case *codec.BranchWithValue:
			full := append(append([]byte(nil), prefix...), cur.Key...)
			c.stack = append(c.stack, pathEntry{branch: rn, childIdx: -1, prefix: full})
			c.current.key, _ = common.NibblesToKey(full)
			c.current.value = cur.Value
			return true
		case *codec.BranchEmptyValue:
			full := append(append([]byte(nil), prefix...), cur.Key...)
			children := codec.BranchChildren(rn)
			idx := 0
			for idx < 16 && children[idx] == nil {
				idx++
			}
			if idx == 16 {
				return false
			}
			c.stack = append(c.stack, pathEntry{branch: rn, childIdx: idx, prefix: full})
			childPrefix := append(append([]byte(nil), full...), byte(idx))
			n = children[idx]
			prefix = childPrefix
			continue
		default:
			return false
		}
	}
}

// Key returns the packed key of the current entry.
func (c *Cursor) Key() []byte { return c.current.key }

// Value returns the value of the current entry.
func (c *Cursor) Value() []byte { return c.current.value }
