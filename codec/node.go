// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package codec implements C2: the wire encoding of trie nodes, and the
// Merkle-value / hash256 helpers used to address them. The format is a
// from-scratch SCALE-like encoding (no third-party library in the retrieved
// corpus implements this wire format; see DESIGN.md).
package codec

import "github.com/GeniusVentures/sgnode-go/common"

// NodeKind distinguishes the four sum-type variants of spec.md §3.
type NodeKind int

const (
	KindLeaf NodeKind = iota
	KindBranchEmptyValue
	KindBranchWithValue
	KindDummy
)

// Node is the common interface implemented by every trie node variant. It is
// deliberately minimal: the codec only needs to tell nodes apart and reach
// their nibble/value/children, never to mutate them.
type Node interface {
	Kind() NodeKind
	KeyNibbles() []byte
}

// Leaf carries a value at the end of its partial key.
type Leaf struct {
	Key   []byte // nibbles
	Value []byte
}

func (l *Leaf) Kind() NodeKind    { return KindLeaf }
func (l *Leaf) KeyNibbles() []byte { return l.Key }

// BranchEmptyValue has at least two children and no value of its own.
type BranchEmptyValue struct {
	Key      []byte // nibbles
	Children [16]Node
}

func (b *BranchEmptyValue) Kind() NodeKind     { return KindBranchEmptyValue }
func (b *BranchEmptyValue) KeyNibbles() []byte { return b.Key }

// BranchWithValue additionally stores a value at its own key.
type BranchWithValue struct {
	Key      []byte // nibbles
	Value    []byte
	Children [16]Node
}

func (b *BranchWithValue) Kind() NodeKind     { return KindBranchWithValue }
func (b *BranchWithValue) KeyNibbles() []byte { return b.Key }

// Dummy is an opaque stand-in for a child that has not been loaded from
// storage yet; DBKey is the child's Merkle value.
type Dummy struct {
	DBKey []byte
}

func (d *Dummy) Kind() NodeKind     { return KindDummy }
func (d *Dummy) KeyNibbles() []byte { return nil }

// ChildCount returns how many of the 16 child slots are populated.
func ChildCount(children *[16]Node) int {
	n := 0
	for _, c := range children {
		if c != nil {
			n++
		}
	}
	return n
}

// BranchValue returns the value carried by a branch node, or nil.
func BranchValue(n Node) []byte {
	switch b := n.(type) {
	case *BranchWithValue:
		return b.Value
	default:
		return nil
	}
}

// BranchChildren returns the children array of a branch node, or nil.
func BranchChildren(n Node) *[16]Node {
	switch b := n.(type) {
	case *BranchEmptyValue:
		return &b.Children
	case *BranchWithValue:
		return &b.Children
	default:
		return nil
	}
}

// EmptyTrieRoot is hash256({0x00}), the Merkle value of an empty trie, per
// spec.md §3.
var EmptyTrieRoot = HashEmpty()

func HashEmpty() common.Hash256 {
	return hash256Impl([]byte{0x00})
}
