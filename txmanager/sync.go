// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package txmanager

import (
	"context"
	"time"

	"github.com/GeniusVentures/sgnode-go/account"
	"github.com/GeniusVentures/sgnode-go/blockchain"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/core/types"
)

// ChainReader is the slice of *blockchain.Storage the sync loop needs;
// tests substitute a fake instead of standing up a full CRDT-backed store.
type ChainReader interface {
	GetLastFinalized() (common.Hash256, error)
	GetHeader(id blockchain.BlockID) (*types.Header, error)
	GetBody(hash common.Hash256) (*types.Body, error)
}

// RunSync ticks every interval, calling SyncOnce, until ctx is cancelled.
// This is spec.md §4.11's "every Δt, CheckBlockchain reads any new
// finalized blocks" loop.
func (m *Manager) RunSync(ctx context.Context, chain ChainReader, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.SyncOnce(chain); err != nil {
				m.logger.Warn("block sync pass failed", "err", err)
			}
		}
	}
}

// SyncOnce reads every finalized block after lastBlockNumber, parses every
// extrinsic with ParseTransaction, reconciles the owning account's UTXO set
// and fires the processing-finished callback for matching payouts.
func (m *Manager) SyncOnce(chain ChainReader) error {
	finalizedHash, err := chain.GetLastFinalized()
	if err != nil {
		return err
	}
	finalizedHeader, err := chain.GetHeader(blockchain.ByHash(finalizedHash))
	if err != nil {
		return err
	}

	m.mu.Lock()
	start := m.lastBlockNumber + 1
	m.mu.Unlock()

	for n := start; n <= finalizedHeader.Number; n++ {
		header, err := chain.GetHeader(blockchain.ByNumber(n))
		if err != nil {
			return err
		}
		body, err := chain.GetBody(header.Hash())
		if err != nil {
			return err
		}
		for _, ext := range body.Extrinsics {
			tx, err := ParseTransaction(ext)
			if err != nil {
				m.logger.Debug("skipping unparseable extrinsic", "block", n, "err", err)
				continue
			}
			m.reconcile(tx)
		}
		m.mu.Lock()
		m.lastBlockNumber = n
		m.mu.Unlock()
	}
	return nil
}

// reconcile applies tx's effect on the owning account: outputs addressed to
// us become new UTXOs, inputs we own are spent, and ProcessingPayouts
// matching an outstanding escrow fire the completion callback.
func (m *Manager) reconcile(tx *Transaction) {
	myKey := string(m.account.PublicKey())

	owned := make(map[account.Ref]bool)
	for _, u := range m.account.UTXOs() {
		owned[u.Ref()] = true
	}
	var spent []account.Ref
	for _, in := range tx.Inputs {
		if owned[in] {
			spent = append(spent, in)
		}
	}
	if len(spent) > 0 {
		m.account.SpendInputs(spent)
	}

	txHash := tx.Hash()
	for idx, out := range tx.Outputs {
		if string(out.Addr) != myKey {
			continue
		}
		m.account.PutUTXO(account.UTXO{
			TxidHash:  txHash,
			OutputIdx: uint32(idx),
			Amount:    out.Amount,
			TokenID:   out.TokenID,
		})
	}

	if tx.Kind != KindProcessingPayout {
		return
	}
	m.mu.Lock()
	cb := m.processingFinishedCB
	ctrl, ok := m.escrows[tx.JobHash]
	if ok {
		delete(m.escrows, tx.JobHash)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if cb != nil {
		for _, peer := range ctrl.PayoutPeers {
			cb(ctrl.JobID, peer)
		}
	}
}
