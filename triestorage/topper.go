// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package triestorage

import (
	"bytes"
	"sort"

	"github.com/GeniusVentures/sgnode-go/errkind"
	"github.com/GeniusVentures/sgnode-go/trie"
)

// ParentBatch is the subset of PersistentBatch/Topper a Topper can stack on.
type ParentBatch interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Remove(key []byte) error
	ClearPrefix(prefix []byte) error
}

type topperOp struct {
	key     []byte
	value   []byte
	removed bool
	seq     int
}

type clearedPrefix struct {
	prefix []byte
	seq    int
}

// Topper is a stacked batch used to contain the effects of a single
// extrinsic atomically (spec.md §4.4). It buffers writes in an ordered
// slice plus a list of cleared prefixes and falls through to its parent for
// everything it hasn't touched. Every op and clear carries the sequence
// number it was recorded at, so a clear issued after a write still wins,
// and a write issued after a clear still wins over it.
type Topper struct {
	parent        ParentBatch
	parentExpired *bool
	ops           []topperOp
	index         map[string]int // key -> index into ops, last write wins
	clearedPfx    []clearedPrefix
	seq           int
}

// NewTopper stacks a Topper on parent. parentExpired, if non-nil, is
// consulted on every access; once it reports true all further operations
// fail with PARENT_EXPIRED per spec.md §5.
func NewTopper(parent ParentBatch, parentExpired *bool) *Topper {
	return &Topper{parent: parent, parentExpired: parentExpired, index: make(map[string]int)}
}

func (t *Topper) expired() bool { return t.parentExpired != nil && *t.parentExpired }

// lastClearSeq returns the sequence number of the most recent clear-prefix
// covering key, or -1 if none covers it.
func (t *Topper) lastClearSeq(key []byte) int {
	latest := -1
	for _, c := range t.clearedPfx {
		if bytes.HasPrefix(key, c.prefix) && c.seq > latest {
			latest = c.seq
		}
	}
	return latest
}

// Get consults the buffer first (treating prefix-cleared keys as absent
// unless a later write re-introduced them) before falling through to the
// parent.
func (t *Topper) Get(key []byte) ([]byte, error) {
	if t.expired() {
		return nil, errkind.New(errkind.InvariantViolation, errkind.ErrParentExpired)
	}
	clearSeq := t.lastClearSeq(key)
	if idx, ok := t.index[string(key)]; ok {
		op := t.ops[idx]
		if op.removed || op.seq < clearSeq {
			return nil, trie.NoValue
		}
		return op.value, nil
	}
	if clearSeq >= 0 {
		return nil, trie.NoValue
	}
	return t.parent.Get(key)
}

// Contains is Get without the value, matching C6's batch contract.
func (t *Topper) Contains(key []byte) (bool, error) {
	_, err := t.Get(key)
	if err == trie.NoValue {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *Topper) Put(key, value []byte) error {
	if t.expired() {
		return errkind.New(errkind.InvariantViolation, errkind.ErrParentExpired)
	}
	t.record(key, value, false)
	return nil
}

func (t *Topper) Remove(key []byte) error {
	if t.expired() {
		return errkind.New(errkind.InvariantViolation, errkind.ErrParentExpired)
	}
	t.record(key, nil, true)
	return nil
}

func (t *Topper) record(key, value []byte, removed bool) {
	k := append([]byte(nil), key...)
	op := topperOp{key: k, value: append([]byte(nil), value...), removed: removed, seq: t.seq}
	t.seq++
	if idx, ok := t.index[string(k)]; ok {
		t.ops[idx] = op
		return
	}
	t.index[string(k)] = len(t.ops)
	t.ops = append(t.ops, op)
}

// ClearPrefix buffers a prefix clear at the current sequence position, so
// Get/WriteBack can tell whether a given write happened before or after it.
func (t *Topper) ClearPrefix(prefix []byte) error {
	if t.expired() {
		return errkind.New(errkind.InvariantViolation, errkind.ErrParentExpired)
	}
	t.clearedPfx = append(t.clearedPfx, clearedPrefix{prefix: append([]byte(nil), prefix...), seq: t.seq})
	t.seq++
	return nil
}

// WriteBack replays every buffered write and clear into the parent, in the
// same order they were recorded.
func (t *Topper) WriteBack() error {
	if t.expired() {
		return errkind.New(errkind.InvariantViolation, errkind.ErrParentExpired)
	}
	// record overwrites a re-written key in its original slot, so order the
	// ops by sequence number before merging them with the clears.
	ops := append([]topperOp(nil), t.ops...)
	sort.Slice(ops, func(i, j int) bool { return ops[i].seq < ops[j].seq })
	oi, ci := 0, 0
	for oi < len(ops) || ci < len(t.clearedPfx) {
		useOp := ci >= len(t.clearedPfx) || (oi < len(ops) && ops[oi].seq < t.clearedPfx[ci].seq)
		if useOp {
			op := ops[oi]
			oi++
			if op.removed {
				if err := t.parent.Remove(op.key); err != nil {
					return err
				}
				continue
			}
			if err := t.parent.Put(op.key, op.value); err != nil {
				return err
			}
			continue
		}
		if err := t.parent.ClearPrefix(t.clearedPfx[ci].prefix); err != nil {
			return err
		}
		ci++
	}
	return nil
}
