// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package txmanager

import (
	"math"
	"sync"

	"github.com/GeniusVentures/sgnode-go/account"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
	"github.com/GeniusVentures/sgnode-go/log"
	"github.com/GeniusVentures/sgnode-go/txpool"
)

// defaultValidityWindow is how many blocks a manager-issued transaction
// stays valid for in the pool before being treated as stale.
const defaultValidityWindow = 256

// Broadcaster enqueues a signed, encoded transaction for gossip to peers,
// spec.md §4.11's "enqueue for broadcast".
type Broadcaster interface {
	Broadcast(raw []byte) error
}

// Manager is C14, TransactionManager.
type Manager struct {
	mu sync.Mutex

	account     *account.Account
	pool        *txpool.Pool
	broadcaster Broadcaster
	logger      log.Logger

	escrows map[common.Hash256]*EscrowCtrl

	processingFinishedCB func(jobID, peer string)

	lastBlockNumber uint64
}

// NewManager wires a TransactionManager to its owning account, the pool it
// appends transactions to (spec's "append to the CRDT block body" is
// modeled as pool submission, since ready pool transactions are what block
// production drains into a body) and a gossip broadcaster.
func NewManager(acct *account.Account, pool *txpool.Pool, b Broadcaster) *Manager {
	return &Manager{
		account:     acct,
		pool:        pool,
		broadcaster: b,
		logger:      log.New("component", "txmanager"),
		escrows:     make(map[common.Hash256]*EscrowCtrl),
	}
}

// SetProcessingFinishedCB installs the callback invoked when a
// ProcessingPayout matching an outstanding escrow is observed on-chain.
func (m *Manager) SetProcessingFinishedCB(cb func(jobID, peer string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processingFinishedCB = cb
}

func tag(h common.Hash256) txpool.Tag { return txpool.Tag(h.Bytes()) }

// submit signs nothing itself (callers sign before calling); it broadcasts
// and pushes the transaction into the pool.
func (m *Manager) submit(tx *Transaction, currentBlock uint64) error {
	raw := tx.Encode()
	if m.broadcaster != nil {
		if err := m.broadcaster.Broadcast(raw); err != nil {
			m.logger.Warn("broadcast failed", "err", err)
		}
	}
	if m.pool == nil {
		return nil
	}
	ptx := &txpool.Tx{
		Ext:             raw,
		Hash:            tx.Hash(),
		Priority:        1,
		ValidTill:       currentBlock + defaultValidityWindow,
		Provides:        []txpool.Tag{tag(tx.Hash())},
		ShouldPropagate: true,
	}
	for _, p := range tx.Predecessors {
		ptx.Requires = append(ptx.Requires, tag(p))
	}
	return m.pool.SubmitOne(ptx, currentBlock)
}

// TransferFunds builds, signs and submits a Transfer moving amount to dst.
func (m *Manager) TransferFunds(dst []byte, amount uint64, currentBlock uint64) (*Transaction, error) {
	selected, change, err := m.account.SelectInputs(amount, m.account.TokenID)
	if err != nil {
		return nil, err
	}
	outputs := []Output{{Addr: dst, Amount: amount, TokenID: m.account.TokenID}}
	if change > 0 {
		outputs = append(outputs, Output{Addr: m.account.PublicKey(), Amount: change, TokenID: m.account.TokenID})
	}
	tx := &Transaction{Kind: KindTransfer, Inputs: selected, Outputs: outputs}
	tx.Sign(m.account)
	if err := m.submit(tx, currentBlock); err != nil {
		m.account.UnlockAll(selected)
		return nil, err
	}
	return tx, nil
}

// MintFunds builds a self-addressed Mint transaction. Authorization (only a
// designated minter's mint is actually honored by consensus) is explicitly
// outside this package's scope per spec.md §4.11.
func (m *Manager) MintFunds(amount uint64, currentBlock uint64) (*Transaction, error) {
	tx := &Transaction{
		Kind:    KindMint,
		Outputs: []Output{{Addr: m.account.PublicKey(), Amount: amount, TokenID: m.account.TokenID}},
	}
	tx.Sign(m.account)
	if err := m.submit(tx, currentBlock); err != nil {
		return nil, err
	}
	return tx, nil
}

// HoldEscrow locks one UTXO covering amount, records the EscrowCtrl and
// emits the Escrow transaction that spends it, per spec.md §4.11.
func (m *Manager) HoldEscrow(amount uint64, numChunks int, devAddr []byte, devCut float64, jobID string, currentBlock uint64) (*Transaction, error) {
	input, err := m.account.LockUTXOAtLeast(amount, m.account.TokenID)
	if err != nil {
		return nil, err
	}
	ctrl := &EscrowCtrl{
		JobID:         jobID,
		DevAddr:       devAddr,
		DevCut:        devCut,
		JobHash:       jobHash(jobID),
		FullAmount:    amount,
		NumSubtasks:   numChunks,
		OriginalInput: input,
		SubtaskInfo:   make(map[string]string),
	}

	tx := &Transaction{Kind: KindEscrow, Inputs: []account.Ref{input}, JobHash: ctrl.JobHash}
	tx.Sign(m.account)
	if err := m.submit(tx, currentBlock); err != nil {
		m.account.UnlockAll([]account.Ref{input})
		return nil, err
	}

	m.mu.Lock()
	m.escrows[ctrl.JobHash] = ctrl
	m.mu.Unlock()
	return tx, nil
}

// ProcessingDone records a subtask completion; once every subtask has
// reported, it synthesizes and submits the ProcessingPayout transaction
// per spec.md §4.11's payout formula and returns it. While subtasks remain
// outstanding it returns (nil, nil).
func (m *Manager) ProcessingDone(jobID, subtaskID, peer string, currentBlock uint64) (*Transaction, error) {
	m.mu.Lock()
	ctrl, ok := m.escrows[jobHash(jobID)]
	if !ok {
		m.mu.Unlock()
		return nil, errkind.New(errkind.NotFound, errkind.ErrEscrowNotFound)
	}
	if _, recorded := ctrl.SubtaskInfo[subtaskID]; recorded {
		m.mu.Unlock()
		return nil, errkind.New(errkind.InvariantViolation, errkind.ErrSubtaskAlreadyPaid)
	}
	ctrl.SubtaskInfo[subtaskID] = peer
	ctrl.PayoutPeers = append(ctrl.PayoutPeers, peer)
	done := ctrl.Done()
	m.mu.Unlock()

	if !done {
		return nil, nil
	}
	return m.finalizeEscrow(ctrl, currentBlock)
}

// ReleaseEscrow either forces the payout synthesis (pay=true, used when the
// job is force-completed out of band) or emits a refund of the full amount
// back to the original owner (pay=false, an aborted job).
func (m *Manager) ReleaseEscrow(jobID string, pay bool, currentBlock uint64) (*Transaction, error) {
	m.mu.Lock()
	ctrl, ok := m.escrows[jobHash(jobID)]
	m.mu.Unlock()
	if !ok {
		return nil, errkind.New(errkind.NotFound, errkind.ErrEscrowNotFound)
	}
	if pay {
		return m.finalizeEscrow(ctrl, currentBlock)
	}

	tx := &Transaction{
		Kind:    KindProcessingPayout,
		Inputs:  []account.Ref{ctrl.OriginalInput},
		Outputs: []Output{{Addr: m.account.PublicKey(), Amount: ctrl.FullAmount, TokenID: m.account.TokenID}},
		JobHash: ctrl.JobHash,
	}
	tx.Sign(m.account)
	if err := m.submit(tx, currentBlock); err != nil {
		return nil, err
	}
	return tx, nil
}

// finalizeEscrow computes the per-peer/developer split (floor division,
// remainder to the developer address per spec.md §9's open question) and
// submits the payout transaction spending the escrowed input.
func (m *Manager) finalizeEscrow(ctrl *EscrowCtrl, currentBlock uint64) (*Transaction, error) {
	n := len(ctrl.PayoutPeers)
	if n == 0 {
		return nil, errkind.New(errkind.InvariantViolation, errkind.ErrEscrowNotFound)
	}
	workerShare := uint64(math.Floor(float64(ctrl.FullAmount) * (1 - ctrl.DevCut) / float64(ctrl.NumSubtasks)))

	outputs := make([]Output, 0, n+1)
	var distributed uint64
	for _, peer := range ctrl.PayoutPeers {
		outputs = append(outputs, Output{Addr: []byte(peer), Amount: workerShare, TokenID: m.account.TokenID})
		distributed += workerShare
	}
	remainder := ctrl.FullAmount - distributed
	outputs = append(outputs, Output{Addr: ctrl.DevAddr, Amount: remainder, TokenID: m.account.TokenID})

	tx := &Transaction{
		Kind:    KindProcessingPayout,
		Inputs:  []account.Ref{ctrl.OriginalInput},
		Outputs: outputs,
		JobHash: ctrl.JobHash,
	}
	tx.Sign(m.account)
	if err := m.submit(tx, currentBlock); err != nil {
		return nil, err
	}
	// ctrl stays registered until SyncOnce observes the confirming payout
	// on-chain, at which point reconcile fires processingFinishedCB and
	// retires the entry; this lets a second node tracking the same escrow
	// also learn of completion purely from block sync.
	return tx, nil
}

// Escrow returns the in-flight escrow control block for jobID, if any.
func (m *Manager) Escrow(jobID string) (*EscrowCtrl, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctrl, ok := m.escrows[jobHash(jobID)]
	return ctrl, ok
}
