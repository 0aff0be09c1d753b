// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package txpool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/common"
)

func hashOf(b byte) common.Hash256 {
	var h common.Hash256
	h[0] = b
	return h
}

// TestPromotionChain is spec.md §8 scenario S4: T1 provides "a"; T2
// requires "a" and provides "b". Both become ready, and removing T1 retires
// T2 back to waiting.
func TestPromotionChain(t *testing.T) {
	p := New(nil, 10)

	t1 := &Tx{Hash: hashOf(1), ValidTill: 100, Provides: []Tag{"a"}}
	require.NoError(t, p.SubmitOne(t1, 0))

	t2 := &Tx{Hash: hashOf(2), ValidTill: 100, Requires: []Tag{"a"}, Provides: []Tag{"b"}}
	require.NoError(t, p.SubmitOne(t2, 0))

	ready := p.GetReadyTransactions()
	require.Len(t, ready, 2)

	p.Remove(t1.Hash)
	ready = p.GetReadyTransactions()
	require.Len(t, ready, 0)
	require.False(t, p.ProvidedTags().Contains(Tag("b")))
}

func TestSubmitStaleTransactionIsRejected(t *testing.T) {
	p := New(nil, 10)
	tx := &Tx{Hash: hashOf(9), ValidTill: 5}
	err := p.SubmitOne(tx, 10)
	require.Error(t, err)
	require.Empty(t, p.GetReadyTransactions())
}

func TestUnresolvedRequiresStaysWaiting(t *testing.T) {
	p := New(nil, 10)
	tx := &Tx{Hash: hashOf(3), ValidTill: 100, Requires: []Tag{"missing"}}
	require.NoError(t, p.SubmitOne(tx, 0))
	require.Empty(t, p.GetReadyTransactions())
}

func TestGetReadyTransactionsIsStableByInsertionOrder(t *testing.T) {
	p := New(nil, 10)
	var hashes []common.Hash256
	for i := byte(1); i <= 3; i++ {
		tx := &Tx{Hash: hashOf(i), ValidTill: 100, Priority: 1}
		require.NoError(t, p.SubmitOne(tx, 0))
		hashes = append(hashes, tx.Hash)
	}
	ready := p.GetReadyTransactions()
	require.Len(t, ready, 3)
	for i, tx := range ready {
		require.Equal(t, hashes[i], tx.Hash)
	}
}
