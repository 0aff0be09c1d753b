// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package trie implements C5, SuperGeniusTrie: the in-memory radix
// (Patricia) trie described by spec.md §3/§4.2. It knows nothing about
// persistence; a ChildLoader callback materializes codec.Dummy children on
// demand, which is how C4's TrieSerializer plugs lazily-loaded state in.
package trie

import (
	"bytes"

	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// NoValue is returned by Get when the key is absent.
var NoValue = errkind.ErrNotFound

// ChildLoader materializes a Dummy's real node from storage. Trie never
// calls it for non-dummy children.
type ChildLoader func(d *codec.Dummy) (codec.Node, error)

// Trie is a mutable radix trie over nibble-keyed entries.
type Trie struct {
	Root   codec.Node
	loader ChildLoader
}

// New returns an empty trie.
func New(loader ChildLoader) *Trie {
	return &Trie{loader: loader}
}

// NewWithRoot wraps an already-loaded root node.
func NewWithRoot(root codec.Node, loader ChildLoader) *Trie {
	return &Trie{Root: root, loader: loader}
}

func (t *Trie) resolve(n codec.Node) (codec.Node, error) {
	d, ok := n.(*codec.Dummy)
	if !ok {
		return n, nil
	}
	if t.loader == nil {
		return nil, errkind.New(errkind.Corruption, errkind.ErrNotFound)
	}
	real, err := t.loader(d)
	if err != nil {
		return nil, err
	}
	return real, nil
}

// Put inserts or overwrites key -> value.
func (t *Trie) Put(key, value []byte) error {
	nibbles := common.BytesToNibbles(key)
	newRoot, err := t.put(t.Root, nibbles, value)
	if err != nil {
		return err
	}
	t.Root = newRoot
	return nil
}

func (t *Trie) put(n codec.Node, key, value []byte) (codec.Node, error) {
	if n == nil {
		return &codec.Leaf{Key: append([]byte(nil), key...), Value: value}, nil
	}
	n, err := t.resolve(n)
	if err != nil {
		return nil, err
	}
	switch cur := n.(type) {
	case *codec.Leaf:
		return t.putIntoLeaf(cur, key, value)
	case *codec.BranchEmptyValue:
		return t.putIntoBranch(cur.Key, nil, &cur.Children, false, key, value)
	case *codec.BranchWithValue:
		return t.putIntoBranch(cur.Key, cur.Value, &cur.Children, true, key, value)
	default:
		return nil, errkind.New(errkind.Corruption, errkind.ErrUnknownNodeType)
	}
}

func (t *Trie) putIntoLeaf(cur *codec.Leaf, key, value []byte) (codec.Node, error) {
	cp := common.CommonPrefixLen(cur.Key, key)
	if cp == len(cur.Key) && cp == len(key) {
		// overwrite
		return &codec.Leaf{Key: cur.Key, Value: value}, nil
	}
	if cp == len(key) {
		// new key is a prefix of the existing leaf's key: split, new branch
		// carries the new value, old leaf becomes a child.
		idx := cur.Key[cp]
		child := &codec.Leaf{Key: append([]byte(nil), cur.Key[cp+1:]...), Value: cur.Value}
		var children [16]codec.Node
		children[idx] = child
		return &codec.BranchWithValue{Key: append([]byte(nil), cur.Key[:cp]...), Value: value, Children: children}, nil
	}
	// split into a branch at cp: either the branch inherits the old leaf's
	// value (old key ends at cp), or old leaf and new leaf both become
	// children.
	var children [16]codec.Node
	if cp == len(cur.Key) {
		// existing leaf's key is a prefix of the new key: branch inherits
		// the old value, new key becomes its only child.
		idx := key[cp]
		children[idx] = &codec.Leaf{Key: append([]byte(nil), key[cp+1:]...), Value: value}
		return &codec.BranchWithValue{Key: append([]byte(nil), cur.Key[:cp]...), Value: cur.Value, Children: children}, nil
	}
	children[cur.Key[cp]] = &codec.Leaf{Key: append([]byte(nil), cur.Key[cp+1:]...), Value: cur.Value}
	idx := key[cp]
	children[idx] = &codec.Leaf{Key: append([]byte(nil), key[cp+1:]...), Value: value}
	return &codec.BranchEmptyValue{Key: append([]byte(nil), cur.Key[:cp]...), Children: children}, nil
}

func (t *Trie) putIntoBranch(bkey []byte, bval []byte, children *[16]codec.Node, hasValue bool, key, value []byte) (codec.Node, error) {
	cp := common.CommonPrefixLen(bkey, key)
	if cp < len(bkey) {
		// split the branch on a shorter common prefix
		var newChildren [16]codec.Node
		idx := bkey[cp]
		if hasValue {
			newChildren[idx] = &codec.BranchWithValue{Key: append([]byte(nil), bkey[cp+1:]...), Value: bval, Children: *children}
		} else {
			newChildren[idx] = &codec.BranchEmptyValue{Key: append([]byte(nil), bkey[cp+1:]...), Children: *children}
		}
		if cp == len(key) {
			return &codec.BranchWithValue{Key: append([]byte(nil), key[:cp]...), Value: value, Children: newChildren}, nil
		}
		newChildren[key[cp]] = &codec.Leaf{Key: append([]byte(nil), key[cp+1:]...), Value: value}
		return &codec.BranchEmptyValue{Key: append([]byte(nil), key[:cp]...), Children: newChildren}, nil
	}
	if cp == len(key) {
		// key terminates exactly at this branch: set/replace its own value
		return &codec.BranchWithValue{Key: bkey, Value: value, Children: *children}, nil
	}
	// descend into the indicated child
	idx := key[cp]
	rest := key[cp+1:]
	newChild, err := t.put(children[idx], rest, value)
	if err != nil {
		return nil, err
	}
	nc := *children
	nc[idx] = newChild
	if hasValue {
		return &codec.BranchWithValue{Key: bkey, Value: bval, Children: nc}, nil
	}
	return &codec.BranchEmptyValue{Key: bkey, Children: nc}, nil
}

// Get returns the value stored at key, or NoValue if absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	nibbles := common.BytesToNibbles(key)
	n := t.Root
	for {
		if n == nil {
			return nil, NoValue
		}
		var err error
		n, err = t.resolve(n)
		if err != nil {
			return nil, err
		}
		switch cur := n.(type) {
		case *codec.Leaf:
			if bytes.Equal(cur.Key, nibbles) {
				return cur.Value, nil
			}
			return nil, NoValue
		case *codec.BranchEmptyValue:
			cp := common.CommonPrefixLen(cur.Key, nibbles)
			if cp < len(cur.Key) {
				return nil, NoValue
			}
			if cp == len(nibbles) {
				return nil, NoValue
			}
			n = cur.Children[nibbles[cp]]
			nibbles = nibbles[cp+1:]
		case *codec.BranchWithValue:
			cp := common.CommonPrefixLen(cur.Key, nibbles)
			if cp < len(cur.Key) {
				return nil, NoValue
			}
			if cp == len(nibbles) {
				return cur.Value, nil
			}
			n = cur.Children[nibbles[cp]]
			nibbles = nibbles[cp+1:]
		default:
			return nil, errkind.New(errkind.Corruption, errkind.ErrUnknownNodeType)
		}
	}
}
