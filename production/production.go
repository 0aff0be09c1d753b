// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package production implements C17, the Production state machine: the
// per-slot authorship lottery, the proposer loop, block-announce intake
// and epoch rollover, per spec.md §4 (table row C17). Run calls the
// proposer and announcer inline on its own ticker goroutine; no worker
// pool is used.
package production

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/GeniusVentures/sgnode-go/core/types"
	"github.com/GeniusVentures/sgnode-go/crypto"
	"github.com/GeniusVentures/sgnode-go/log"
)

// Slot identifies one authorship opportunity within an epoch.
type Slot struct {
	Number uint64
	Epoch  uint64
}

// Epoch is the authority set and per-epoch randomness seed the slot
// lottery runs against; a fresh Epoch is handed to the machine on rollover.
type Epoch struct {
	Number      uint64
	Authorities types.AuthorityList
	Randomness  [32]byte
	FirstSlot   uint64
	SlotCount   uint64
}

func (e Epoch) contains(slot uint64) bool {
	return slot >= e.FirstSlot && slot < e.FirstSlot+e.SlotCount
}

func (e Epoch) totalWeight() uint64 {
	var total uint64
	for _, a := range e.Authorities {
		total += a.Weight
	}
	return total
}

func (e Epoch) weightOf(id [32]byte) (uint64, bool) {
	for _, a := range e.Authorities {
		if a.ID == id {
			return a.Weight, true
		}
	}
	return 0, false
}

// ClaimSlot reports whether selfID wins slot under epoch's lottery: it
// hashes (randomness || slot || authority id) and compares the result,
// interpreted as a uint256, against a threshold proportional to selfID's
// share of the total authority weight. Authorities with zero weight (e.g.
// disabled, per C11) never win.
func ClaimSlot(epoch Epoch, slot uint64, selfID [32]byte) bool {
	weight, ok := epoch.weightOf(selfID)
	if !ok || weight == 0 {
		return false
	}
	total := epoch.totalWeight()
	if total == 0 {
		return false
	}

	var buf [40]byte
	copy(buf[:32], epoch.Randomness[:])
	binary.LittleEndian.PutUint64(buf[32:], slot)
	digest := crypto.Blake2b256(append(buf[:], selfID[:]...))

	value := new(uint256.Int).SetBytes(digest.Bytes())
	max := new(uint256.Int).SetAllOne()
	// threshold = max * weight / total; claim iff value < threshold.
	threshold := new(uint256.Int).Mul(max, uint256.NewInt(weight))
	threshold.Div(threshold, uint256.NewInt(total))
	return value.Cmp(threshold) < 0
}

// Proposer builds a header+body for a claimed slot.
type Proposer interface {
	ProposeBlock(ctx context.Context, slot Slot) (*types.Header, *types.Body, error)
}

// Announcer gossips a newly produced block to peers.
type Announcer interface {
	Announce(header *types.Header, body *types.Body) error
}

// State is the Production state machine's current phase.
type State int

const (
	StateIdle State = iota
	StateWaitingSlot
	StateProposing
	StateWaitingAnnounce
)

// Machine is C17.
type Machine struct {
	mu sync.Mutex

	selfID       [32]byte
	epoch        Epoch
	slotDuration time.Duration
	proposer     Proposer
	announcer    Announcer
	nextEpoch    func(afterEpoch uint64) (Epoch, error)
	state        State
	logger       log.Logger
}

// New returns a Machine authoring for selfID (the zero id if this node has
// no voting/authoring key; it will simply never win a slot).
func New(selfID [32]byte, initial Epoch, slotDuration time.Duration, proposer Proposer, announcer Announcer, nextEpoch func(afterEpoch uint64) (Epoch, error)) *Machine {
	return &Machine{
		selfID:       selfID,
		epoch:        initial,
		slotDuration: slotDuration,
		proposer:     proposer,
		announcer:    announcer,
		nextEpoch:    nextEpoch,
		logger:       log.New("component", "production"),
	}
}

// State returns the machine's current phase, for tests/diagnostics.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Run ticks every slotDuration starting at startSlot until ctx is
// cancelled, rolling epochs over as slots run past the current epoch's
// range and proposing whenever ClaimSlot wins.
func (m *Machine) Run(ctx context.Context, startSlot uint64) {
	slot := startSlot
	ticker := time.NewTicker(m.slotDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx, slot)
			slot++
		}
	}
}

func (m *Machine) tick(ctx context.Context, slotNumber uint64) {
	m.setState(StateWaitingSlot)

	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	if !epoch.contains(slotNumber) && m.nextEpoch != nil {
		next, err := m.nextEpoch(epoch.Number)
		if err != nil {
			m.logger.Warn("epoch rollover failed", "epoch", epoch.Number, "err", err)
		} else {
			m.mu.Lock()
			m.epoch = next
			epoch = next
			m.mu.Unlock()
		}
	}

	if !ClaimSlot(epoch, slotNumber, m.selfID) {
		m.setState(StateIdle)
		return
	}

	m.setState(StateProposing)
	header, body, err := m.proposer.ProposeBlock(ctx, Slot{Number: slotNumber, Epoch: epoch.Number})
	if err != nil {
		m.logger.Warn("block proposal failed", "slot", slotNumber, "err", err)
		m.setState(StateIdle)
		return
	}

	m.setState(StateWaitingAnnounce)
	if err := m.announcer.Announce(header, body); err != nil {
		m.logger.Warn("block announce failed", "slot", slotNumber, "err", err)
	}
	m.setState(StateIdle)
}

// OnBlockAnnounce is the intake side of §4's "block-announce intake": a
// block that arrived from the network rather than our own proposer is
// handed to the caller-supplied handleImport (blockchain.Tree.AddBlock has
// the matching signature). app.Node does not construct a Machine.
func (m *Machine) OnBlockAnnounce(header *types.Header, body *types.Body, handleImport func(*types.Header, *types.Body) error) error {
	return handleImport(header, body)
}
