// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package account

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

func newTestAccount(t *testing.T) *Account {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return New(key, "GNUS")
}

func TestBalanceSumsUnlockedOnly(t *testing.T) {
	a := newTestAccount(t)
	a.PutUTXO(UTXO{TxidHash: common.Hash256{1}, OutputIdx: 0, Amount: 100, TokenID: "GNUS"})
	a.PutUTXO(UTXO{TxidHash: common.Hash256{2}, OutputIdx: 0, Amount: 50, TokenID: "GNUS", Locked: true})
	a.PutUTXO(UTXO{TxidHash: common.Hash256{3}, OutputIdx: 0, Amount: 25, TokenID: "OTHER"})

	require.Equal(t, uint64(100), a.Balance("GNUS"))
	require.Equal(t, uint64(25), a.Balance("OTHER"))
}

func TestSelectInputsLocksAndReturnsChange(t *testing.T) {
	a := newTestAccount(t)
	a.PutUTXO(UTXO{TxidHash: common.Hash256{1}, OutputIdx: 0, Amount: 1000, TokenID: "GNUS"})

	selected, change, err := a.SelectInputs(700, "GNUS")
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.Equal(t, uint64(300), change)
	require.Equal(t, uint64(0), a.Balance("GNUS")) // the only UTXO is now locked
}

func TestSelectInputsInsufficientFundsUnlocksEverything(t *testing.T) {
	a := newTestAccount(t)
	a.PutUTXO(UTXO{TxidHash: common.Hash256{1}, OutputIdx: 0, Amount: 10, TokenID: "GNUS"})

	_, _, err := a.SelectInputs(1000, "GNUS")
	require.Error(t, err)
	require.True(t, errkind.Is(err, errkind.InvariantViolation))
	require.Equal(t, uint64(10), a.Balance("GNUS")) // unlocked again
}

func TestSpendInputsRemovesUTXO(t *testing.T) {
	a := newTestAccount(t)
	a.PutUTXO(UTXO{TxidHash: common.Hash256{9}, OutputIdx: 0, Amount: 5, TokenID: "GNUS"})
	refs, _, err := a.SelectInputs(5, "GNUS")
	require.NoError(t, err)
	a.SpendInputs(refs)
	require.Empty(t, a.UTXOs())
}
