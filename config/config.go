// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package config loads node configuration and genesis data from TOML
// files, the way the teacher loads its node/config.toml, via BurntSushi/toml.
package config

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Node holds the §6 CLI-surface settings that are equally at home in a
// config file: paths, network endpoints and log verbosity.
type Node struct {
	BasePath        string `toml:"base_path"`
	RocksDBPath     string `toml:"rocksdb_path"`
	GenesisPath     string `toml:"genesis"`
	P2PPort         int    `toml:"p2p_port"`
	RPCHTTPEndpoint string `toml:"rpc_http_endpoint"`
	RPCWSEndpoint   string `toml:"rpc_ws_endpoint"`
	Verbosity       int    `toml:"verbosity"`
}

// DefaultNode matches the CLI's documented flag defaults.
func DefaultNode() Node {
	return Node{
		BasePath:        "./data",
		RocksDBPath:     "./data/trie",
		P2PPort:         30333,
		RPCHTTPEndpoint: "127.0.0.1:9933",
		RPCWSEndpoint:   "127.0.0.1:9944",
		Verbosity:       3,
	}
}

// LoadNode decodes a Node config from path, starting from DefaultNode so an
// omitted field in the file keeps its documented default.
func LoadNode(path string) (Node, error) {
	cfg := DefaultNode()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Authority is one genesis authority entry: a hex-free raw 32-byte ID and
// its voting weight.
type Authority struct {
	ID     [32]byte `toml:"-"`
	IDHex  string   `toml:"id"`
	Weight uint64   `toml:"weight"`
}

// Genesis is the genesis-from-file document of spec.md §6's --genesis flag:
// the initial authority set and per-account opening balances.
type Genesis struct {
	Authorities []Authority       `toml:"authority"`
	Balances    map[string]uint64 `toml:"balances"`
	ChainName   string            `toml:"chain_name"`
	Extra       map[string]string `toml:"extra"`
}

// LoadGenesis decodes and hex-decodes a Genesis document from path.
func LoadGenesis(path string) (Genesis, error) {
	var g Genesis
	raw, err := os.ReadFile(path)
	if err != nil {
		return g, err
	}
	if err := toml.Unmarshal(raw, &g); err != nil {
		return g, err
	}
	for i := range g.Authorities {
		raw, err := hex.DecodeString(strings.TrimPrefix(g.Authorities[i].IDHex, "0x"))
		if err != nil {
			return g, err
		}
		copy(g.Authorities[i].ID[:], raw)
	}
	return g, nil
}
