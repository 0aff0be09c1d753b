// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package trie

import (
	"bytes"

	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// Remove deletes key if present. Absence is not an error.
func (t *Trie) Remove(key []byte) error {
	nibbles := common.BytesToNibbles(key)
	newRoot, _, err := t.remove(t.Root, nibbles)
	if err != nil {
		return err
	}
	t.Root = newRoot
	return nil
}

// remove returns the replacement node (possibly nil) and whether anything
// was actually removed.
func (t *Trie) remove(n codec.Node, key []byte) (codec.Node, bool, error) {
	if n == nil {
		return nil, false, nil
	}
	n, err := t.resolve(n)
	if err != nil {
		return nil, false, err
	}
	switch cur := n.(type) {
	case *codec.Leaf:
		if bytes.Equal(cur.Key, key) {
			return nil, true, nil
		}
		return cur, false, nil

	case *codec.BranchWithValue:
		cp := common.CommonPrefixLen(cur.Key, key)
		if cp < len(cur.Key) {
			return cur, false, nil
		}
		if cp == len(key) {
			return collapseBranch(cur.Key, nil, false, &cur.Children), true, nil
		}
		idx := key[cp]
		newChild, removed, err := t.remove(cur.Children[idx], key[cp+1:])
		if err != nil {
			return nil, false, err
		}
		if !removed {
			return cur, false, nil
		}
		nc := cur.Children
		nc[idx] = newChild
		return collapseBranch(cur.Key, cur.Value, true, &nc), true, nil

	case *codec.BranchEmptyValue:
		cp := common.CommonPrefixLen(cur.Key, key)
		if cp < len(cur.Key) {
			return cur, false, nil
		}
		if cp == len(key) {
			// no value to clear at an empty-value branch; nothing removed.
			return cur, false, nil
		}
		idx := key[cp]
		newChild, removed, err := t.remove(cur.Children[idx], key[cp+1:])
		if err != nil {
			return nil, false, err
		}
		if !removed {
			return cur, false, nil
		}
		nc := cur.Children
		nc[idx] = newChild
		return collapseBranch(cur.Key, nil, false, &nc), true, nil

	default:
		return nil, false, errkind.New(errkind.Corruption, errkind.ErrUnknownNodeType)
	}
}

// collapseBranch applies the deletion-cleanup rule of spec.md §4.2 at a
// single branch after one of its children (or its own value) was cleared:
//   - no children left: collapse to a leaf carrying the branch's own value
//     (or nil if it had none, in which case the branch itself vanishes);
//   - exactly one child and no value: merge the branch's nibbles, the
//     child index and the child's nibbles into a single node.
func collapseBranch(key []byte, value []byte, hasValue bool, children *[16]codec.Node) codec.Node {
	n := codec.ChildCount(children)
	if n == 0 {
		if !hasValue {
			return nil
		}
		return &codec.Leaf{Key: append([]byte(nil), key...), Value: value}
	}
	if n == 1 && !hasValue {
		for idx, child := range children {
			if child == nil {
				continue
			}
			merged := append([]byte(nil), key...)
			merged = append(merged, byte(idx))
			merged = append(merged, child.KeyNibbles()...)
			switch c := child.(type) {
			case *codec.Leaf:
				return &codec.Leaf{Key: merged, Value: c.Value}
			case *codec.BranchWithValue:
				return &codec.BranchWithValue{Key: merged, Value: c.Value, Children: c.Children}
			case *codec.BranchEmptyValue:
				return &codec.BranchEmptyValue{Key: merged, Children: c.Children}
			case *codec.Dummy:
				// Can't merge a not-yet-materialized child without loading
				// it; remove and clearPrefix resolve only the nodes on the
				// key's path, so a lone sibling loaded from storage is still
				// a Dummy here. Keep the branch as a single-child node.
				var nc [16]codec.Node
				nc[idx] = c
				if hasValue {
					return &codec.BranchWithValue{Key: key, Value: value, Children: nc}
				}
				return &codec.BranchEmptyValue{Key: key, Children: nc}
			}
		}
	}
	if hasValue {
		return &codec.BranchWithValue{Key: key, Value: value, Children: *children}
	}
	return &codec.BranchEmptyValue{Key: key, Children: *children}
}

// ClearPrefix detaches every key under prefix, per spec.md §4.2.
func (t *Trie) ClearPrefix(prefix []byte) error {
	nibbles := common.BytesToNibbles(prefix)
	newRoot, err := t.clearPrefix(t.Root, nibbles)
	if err != nil {
		return err
	}
	t.Root = newRoot
	return nil
}

func (t *Trie) clearPrefix(n codec.Node, prefix []byte) (codec.Node, error) {
	if n == nil {
		return nil, nil
	}
	n, err := t.resolve(n)
	if err != nil {
		return nil, err
	}
	nodeKey := n.KeyNibbles()
	cp := common.CommonPrefixLen(nodeKey, prefix)
	switch cur := n.(type) {
	case *codec.Leaf:
		if cp == len(prefix) {
			return nil, nil
		}
		return cur, nil
	case *codec.BranchEmptyValue, *codec.BranchWithValue:
		children := codec.BranchChildren(n)
		value := codec.BranchValue(n)
		hasValue := value != nil
		if cp == len(prefix) {
			// entire subtree covered by prefix
			return nil, nil
		}
		if cp < len(nodeKey) {
			// prefix diverges before this node even starts: nothing to do
			return cur, nil
		}
		// prefix continues past this node's key: descend into exactly the
		// child index the remaining prefix selects.
		idx := prefix[cp]
		newChild, err := t.clearPrefix(children[idx], prefix[cp+1:])
		if err != nil {
			return nil, err
		}
		nc := *children
		nc[idx] = newChild
		return collapseBranch(nodeKey, value, hasValue, &nc), nil
	default:
		return nil, errkind.New(errkind.Corruption, errkind.ErrUnknownNodeType)
	}
}

// Clear resets the trie to empty.
func (t *Trie) Clear() { t.Root = nil }
