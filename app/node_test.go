// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/config"
)

func testGenesis() config.Genesis {
	return config.Genesis{
		ChainName:   "test-chain",
		Authorities: []config.Authority{{ID: [32]byte{2}, Weight: 1}},
	}
}

func TestNodePrepareWiresEveryComponent(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultNode()
	cfg.BasePath = dir
	cfg.RocksDBPath = filepath.Join(dir, "trie")

	n := New(cfg)
	require.NoError(t, n.Prepare(testGenesis()))
	defer n.Stop()

	require.NotNil(t, n.Blocks)
	require.NotNil(t, n.Tree)
	require.NotNil(t, n.Authority)
	require.NotNil(t, n.Pool)
	require.NotNil(t, n.Queue)
	require.NotNil(t, n.Account)
	require.NotNil(t, n.TxMgr)
	require.NotNil(t, n.RPC)

	genesisHash, err := n.Blocks.GetGenesisBlockHash()
	require.NoError(t, err)
	last, err := n.Blocks.GetLastFinalized()
	require.NoError(t, err)
	require.Equal(t, genesisHash, last)
}

func TestNodePrepareRejectsEmptyAuthorityGenesis(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultNode()
	cfg.BasePath = dir
	cfg.RocksDBPath = filepath.Join(dir, "trie")

	n := New(cfg)
	err := n.Prepare(config.Genesis{})
	require.Error(t, err)
}

func TestNodeReopenReusesExistingGenesis(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultNode()
	cfg.BasePath = dir
	cfg.RocksDBPath = filepath.Join(dir, "trie")

	n1 := New(cfg)
	require.NoError(t, n1.Prepare(testGenesis()))
	hash1, err := n1.Blocks.GetGenesisBlockHash()
	require.NoError(t, err)
	require.NoError(t, n1.Stop())

	n2 := New(cfg)
	require.NoError(t, n2.Prepare(testGenesis()))
	defer n2.Stop()
	hash2, err := n2.Blocks.GetGenesisBlockHash()
	require.NoError(t, err)
	require.Equal(t, hash1, hash2)
}
