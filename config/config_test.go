// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadNodeFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.toml")
	require.NoError(t, os.WriteFile(path, []byte(`p2p_port = 40000`), 0o644))

	cfg, err := LoadNode(path)
	require.NoError(t, err)
	require.Equal(t, 40000, cfg.P2PPort)
	require.Equal(t, DefaultNode().RPCHTTPEndpoint, cfg.RPCHTTPEndpoint)
}

func TestLoadGenesisDecodesHexAuthorityID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.toml")
	doc := `
chain_name = "sgnode-dev"

[[authority]]
id = "0x0100000000000000000000000000000000000000000000000000000000000000"
weight = 1

[balances]
alice = 1000
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	g, err := LoadGenesis(path)
	require.NoError(t, err)
	require.Equal(t, "sgnode-dev", g.ChainName)
	require.Len(t, g.Authorities, 1)
	require.Equal(t, [32]byte{0x01}, g.Authorities[0].ID)
	require.Equal(t, uint64(1000), g.Balances["alice"])
}
