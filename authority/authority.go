// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package authority implements C11, AuthorityManager: a tree of pending
// authority-set transitions layered over the block tree, modeled on the
// voter-snapshot pattern of consensus/clique but generalized to spec.md
// §4.9's five transition kinds instead of clique's single-vote ballots.
package authority

import (
	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/core/types"
	"github.com/GeniusVentures/sgnode-go/crdtkv"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// ChangeKind is the discriminant of a ScheduleNode's transition.
type ChangeKind uint8

const (
	Scheduled ChangeKind = iota
	Forced
	OnDisabled
	Pause
	Resume
)

// HasDirectChainFunc answers whether d descends from a, matching
// blockchain.Tree.HasDirectChain's signature without importing it (the
// block tree and authority tree are wired together by the caller, not by a
// package dependency).
type HasDirectChainFunc func(a, d common.Hash256) bool

// ScheduleNode is one pending or applied authority-set transition.
type ScheduleNode struct {
	BlockNumber   uint64
	BlockHash     common.Hash256
	Kind          ChangeKind
	Authorities   types.AuthorityList // set for Scheduled/Forced
	ActivateAt    uint64
	DisabledIndex int // set for OnDisabled
	Parent        *ScheduleNode
	Children      []*ScheduleNode
}

// persistKey is the well-known key the current subtree is saved under so it
// survives restarts.
const persistKey = "authority_tree"

// Manager is C11.
type Manager struct {
	root          *ScheduleNode
	hasDirectChain HasDirectChainFunc
	db            *crdtkv.DB
}

// NewManager seeds the authority tree at genesis with the initial authority
// list, effective from block 0.
func NewManager(genesisHash common.Hash256, genesisAuthorities types.AuthorityList, hasDirectChain HasDirectChainFunc, db *crdtkv.DB) *Manager {
	root := &ScheduleNode{
		BlockNumber: 0,
		BlockHash:   genesisHash,
		Kind:        Scheduled,
		Authorities: genesisAuthorities.Clone(),
		ActivateAt:  0,
	}
	return &Manager{root: root, hasDirectChain: hasDirectChain, db: db}
}

// getAppropriateAncestor walks the tree from root, descending into whichever
// child is itself an ancestor of blockHash, stopping at the deepest such
// node.
func (m *Manager) getAppropriateAncestor(blockHash common.Hash256) *ScheduleNode {
	cur := m.root
	for {
		advanced := false
		for _, c := range cur.Children {
			if c.BlockHash == blockHash || m.hasDirectChain(c.BlockHash, blockHash) {
				cur = c
				advanced = true
				break
			}
		}
		if !advanced {
			return cur
		}
	}
}

// OnScheduledChange appends a scheduled-change node whose authorities apply
// to blocks numbered >= blockNumber+delay. Authorities checks only the block
// number, not finalization, so a scheduled change takes effect the same way
// a forced one does.
func (m *Manager) OnScheduledChange(blockNumber uint64, blockHash common.Hash256, authorities types.AuthorityList, delay uint64) {
	parent := m.getAppropriateAncestor(blockHash)
	node := &ScheduleNode{
		BlockNumber: blockNumber,
		BlockHash:   blockHash,
		Kind:        Scheduled,
		Authorities: authorities.Clone(),
		ActivateAt:  blockNumber + delay,
		Parent:      parent,
	}
	parent.Children = append(parent.Children, node)
}

// OnForcedChange appends a forced-change node whose authorities apply to
// blocks numbered >= activateAt. It differs from OnScheduledChange only in
// taking an absolute activation block instead of a delay.
func (m *Manager) OnForcedChange(blockNumber uint64, blockHash common.Hash256, authorities types.AuthorityList, activateAt uint64) {
	parent := m.getAppropriateAncestor(blockHash)
	node := &ScheduleNode{
		BlockNumber: blockNumber,
		BlockHash:   blockHash,
		Kind:        Forced,
		Authorities: authorities.Clone(),
		ActivateAt:  activateAt,
		Parent:      parent,
	}
	parent.Children = append(parent.Children, node)
}

// OnDisabledChange marks authorities[index].weight = 0 from block onward.
func (m *Manager) OnDisabledChange(blockNumber uint64, blockHash common.Hash256, index int) {
	parent := m.getAppropriateAncestor(blockHash)
	node := &ScheduleNode{
		BlockNumber:   blockNumber,
		BlockHash:     blockHash,
		Kind:          OnDisabled,
		DisabledIndex: index,
		ActivateAt:    blockNumber,
		Parent:        parent,
	}
	parent.Children = append(parent.Children, node)
}

// OnPause schedules emit-no-votes from activateAt onward.
func (m *Manager) OnPause(blockNumber uint64, blockHash common.Hash256, activateAt uint64) {
	parent := m.getAppropriateAncestor(blockHash)
	node := &ScheduleNode{BlockNumber: blockNumber, BlockHash: blockHash, Kind: Pause, ActivateAt: activateAt, Parent: parent}
	parent.Children = append(parent.Children, node)
}

// OnResume is the inverse of OnPause at activateAt.
func (m *Manager) OnResume(blockNumber uint64, blockHash common.Hash256, activateAt uint64) {
	parent := m.getAppropriateAncestor(blockHash)
	node := &ScheduleNode{BlockNumber: blockNumber, BlockHash: blockHash, Kind: Resume, ActivateAt: activateAt, Parent: parent}
	parent.Children = append(parent.Children, node)
}

// Authorities descends from root along hasDirectChain, applying every
// transition whose activation point is <= blockNumber, and returns the
// resulting list.
func (m *Manager) Authorities(blockNumber uint64, blockHash common.Hash256) types.AuthorityList {
	result := m.root.Authorities.Clone()
	paused := false

	cur := m.root
	for {
		var next *ScheduleNode
		for _, c := range cur.Children {
			if c.BlockHash == blockHash || m.hasDirectChain(c.BlockHash, blockHash) {
				next = c
				break
			}
		}
		if next == nil {
			break
		}
		if next.ActivateAt <= blockNumber {
			switch next.Kind {
			case Scheduled, Forced:
				result = next.Authorities.Clone()
			case OnDisabled:
				if next.DisabledIndex >= 0 && next.DisabledIndex < len(result) {
					result[next.DisabledIndex].Weight = 0
				}
			case Pause:
				paused = true
			case Resume:
				paused = false
			}
		}
		cur = next
	}
	if paused {
		for i := range result {
			result[i].Weight = 0
		}
	}
	return result
}

// OnFinalize re-roots the tree at the deepest node whose block is an
// ancestor of (or equal to) the finalized block, drops every sibling
// subtree, and persists the new subtree so it survives restarts.
func (m *Manager) OnFinalize(blockNumber uint64, blockHash common.Hash256) error {
	newRoot := m.root
	cur := m.root
	for {
		var next *ScheduleNode
		for _, c := range cur.Children {
			if c.BlockNumber <= blockNumber && (c.BlockHash == blockHash || m.hasDirectChain(c.BlockHash, blockHash)) {
				next = c
				break
			}
		}
		if next == nil {
			break
		}
		newRoot = next
		cur = next
	}
	newRoot.Parent = nil
	m.root = newRoot
	if m.db == nil {
		return nil
	}
	return m.db.Put(persistKey, encodeSubtree(newRoot))
}

// Root exposes the current root for inspection/testing.
func (m *Manager) Root() *ScheduleNode { return m.root }

// LoadPersisted restores a previously persisted subtree as the manager's
// root, if one exists; absence is not an error (fresh chain).
func LoadPersisted(db *crdtkv.DB, hasDirectChain HasDirectChainFunc) (*Manager, error) {
	raw, err := db.Get(persistKey)
	if errkind.Is(err, errkind.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	root, err := decodeSubtree(raw, nil)
	if err != nil {
		return nil, err
	}
	return &Manager{root: root, hasDirectChain: hasDirectChain, db: db}, nil
}

// encodeSubtree/decodeSubtree give the persisted authority tree a stable
// wire form, reusing the same compact-length primitives as the block header
// codec rather than inventing a second serialization scheme.
func encodeSubtree(n *ScheduleNode) []byte {
	var out []byte
	out = append(out, n.BlockHash.Bytes()...)
	out = append(out, codec.EncodeUvarint(n.BlockNumber)...)
	out = append(out, byte(n.Kind))
	out = append(out, codec.EncodeUvarint(n.ActivateAt)...)
	out = append(out, codec.EncodeUvarint(uint64(n.DisabledIndex))...)
	out = append(out, codec.EncodeUvarint(uint64(len(n.Authorities)))...)
	for _, a := range n.Authorities {
		out = append(out, a.ID[:]...)
		out = append(out, codec.EncodeUvarint(a.Weight)...)
	}
	out = append(out, codec.EncodeUvarint(uint64(len(n.Children)))...)
	for _, c := range n.Children {
		out = append(out, codec.EncodeCompactBytes(encodeSubtree(c))...)
	}
	return out
}

func decodeSubtree(data []byte, parent *ScheduleNode) (*ScheduleNode, error) {
	if len(data) < common.HashLength {
		return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	n := &ScheduleNode{Parent: parent}
	copy(n.BlockHash[:], data[:common.HashLength])
	off := common.HashLength
	bn, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return nil, err
	}
	n.BlockNumber = bn
	off += l
	n.Kind = ChangeKind(data[off])
	off++
	at, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return nil, err
	}
	n.ActivateAt = at
	off += l
	idx, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return nil, err
	}
	n.DisabledIndex = int(idx)
	off += l
	authCount, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return nil, err
	}
	off += l
	for i := uint64(0); i < authCount; i++ {
		var a types.Authority
		if len(data) < off+32 {
			return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
		}
		copy(a.ID[:], data[off:off+32])
		off += 32
		w, l, err := codec.DecodeUvarint(data[off:])
		if err != nil {
			return nil, err
		}
		a.Weight = w
		off += l
		n.Authorities = append(n.Authorities, a)
	}
	childCount, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return nil, err
	}
	off += l
	for i := uint64(0); i < childCount; i++ {
		buf, consumed, err := codec.DecodeCompactBytes(data[off:])
		if err != nil {
			return nil, err
		}
		off += consumed
		child, err := decodeSubtree(buf, n)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}
