// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package txmanager

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/account"
	"github.com/GeniusVentures/sgnode-go/common"
)

func newTestManager(t *testing.T) (*Manager, *account.Account) {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	acct := account.New(key, "GNUS")
	return NewManager(acct, nil, nil), acct
}

func TestTransferFundsProducesSignedTransaction(t *testing.T) {
	m, acct := newTestManager(t)
	acct.PutUTXO(account.UTXO{TxidHash: common.Hash256{1}, OutputIdx: 0, Amount: 500, TokenID: "GNUS"})

	dst := []byte("destination-pubkey")
	tx, err := m.TransferFunds(dst, 300, 10)
	require.NoError(t, err)
	require.Equal(t, KindTransfer, tx.Kind)
	require.NoError(t, tx.Verify())
	require.Len(t, tx.Outputs, 2) // payment + change
	require.Equal(t, uint64(300), tx.Outputs[0].Amount)
	require.Equal(t, uint64(200), tx.Outputs[1].Amount)
}

// TestEscrowPayoutSplitMatchesSpecExample reproduces spec.md's S5 scenario:
// a 1000-amount escrow split across 4 workers with a 10% developer cut.
func TestEscrowPayoutSplitMatchesSpecExample(t *testing.T) {
	m, acct := newTestManager(t)
	acct.PutUTXO(account.UTXO{TxidHash: common.Hash256{7}, OutputIdx: 0, Amount: 1000, TokenID: "GNUS"})

	devAddr := []byte("dev-address")
	_, err := m.HoldEscrow(1000, 4, devAddr, 0.1, "J", 1)
	require.NoError(t, err)

	var payout *Transaction
	for i, peer := range []string{"P1", "P2", "P3", "P4"} {
		sid := "sid" + string(rune('0'+i))
		payout, err = m.ProcessingDone("J", sid, peer, 1)
		require.NoError(t, err)
	}
	require.NotNil(t, payout)
	require.Equal(t, KindProcessingPayout, payout.Kind)
	require.Equal(t, []account.Ref{{TxidHash: common.Hash256{7}, OutputIdx: 0}}, payout.Inputs)

	require.Len(t, payout.Outputs, 5)
	for _, out := range payout.Outputs[:4] {
		require.Equal(t, uint64(225), out.Amount)
	}
	require.Equal(t, devAddr, payout.Outputs[4].Addr)
	require.Equal(t, uint64(100), payout.Outputs[4].Amount)

	// escrow stays registered until block-sync observes the confirming
	// payout on-chain (see sync.go's reconcile).
	_, stillTracked := m.Escrow("J")
	require.True(t, stillTracked)
}

func TestReleaseEscrowRefundsWhenNotPaid(t *testing.T) {
	m, acct := newTestManager(t)
	acct.PutUTXO(account.UTXO{TxidHash: common.Hash256{3}, OutputIdx: 0, Amount: 400, TokenID: "GNUS"})

	_, err := m.HoldEscrow(400, 2, []byte("dev"), 0.1, "ABORTED", 1)
	require.NoError(t, err)

	tx, err := m.ReleaseEscrow("ABORTED", false, 2)
	require.NoError(t, err)
	require.Len(t, tx.Outputs, 1)
	require.Equal(t, uint64(400), tx.Outputs[0].Amount)
	require.Equal(t, acct.PublicKey(), tx.Outputs[0].Addr)
}

func TestParseTransactionRoundTrips(t *testing.T) {
	m, acct := newTestManager(t)
	acct.PutUTXO(account.UTXO{TxidHash: common.Hash256{4}, OutputIdx: 0, Amount: 50, TokenID: "GNUS"})
	tx, err := m.TransferFunds([]byte("dst"), 50, 1)
	require.NoError(t, err)

	decoded, err := ParseTransaction(tx.Encode())
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), decoded.Hash())
	require.NoError(t, decoded.Verify())
}
