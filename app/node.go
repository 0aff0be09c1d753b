// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package app is the application-startup struct spec.md §9's design notes
// call for in place of the original repository's CComponentFactory
// singleton: one place that constructs every component in dependency
// order and hands out references, with an explicit Prepare/Start/Stop
// lifecycle (§5's "owner stops after all dependents" rule).
package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/GeniusVentures/sgnode-go/account"
	"github.com/GeniusVentures/sgnode-go/authority"
	"github.com/GeniusVentures/sgnode-go/blockchain"
	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/config"
	"github.com/GeniusVentures/sgnode-go/core/types"
	"github.com/GeniusVentures/sgnode-go/crdtkv"
	"github.com/GeniusVentures/sgnode-go/errkind"
	"github.com/GeniusVentures/sgnode-go/finality"
	"github.com/GeniusVentures/sgnode-go/jsonrpc"
	"github.com/GeniusVentures/sgnode-go/log"
	"github.com/GeniusVentures/sgnode-go/processing"
	"github.com/GeniusVentures/sgnode-go/triedb"
	"github.com/GeniusVentures/sgnode-go/triestorage"
	"github.com/GeniusVentures/sgnode-go/txmanager"
	"github.com/GeniusVentures/sgnode-go/txpool"
)

// Node owns every shared, process-wide resource (the CRDT DB, the trie
// backend) and every component built on top of them. Components never
// construct their own dependencies; Node's New/Prepare/Start/Stop is the
// only place a lifetime arrow is drawn.
type Node struct {
	cfg config.Node

	chainDB   *crdtkv.DB // blockchain + authority-tree persistence
	taskDB    *crdtkv.DB // C15 ProcessingTaskQueue CRDT backend
	trieStore *triedb.PebbleStore

	Backend    *triedb.Backend
	Serializer *triedb.Serializer
	TrieDB     *triestorage.Storage

	Blocks    *blockchain.Storage
	Tree      *blockchain.Tree
	Authority *authority.Manager

	Pool  *txpool.Pool
	Queue *processing.Queue

	Account *account.Account
	TxMgr   *txmanager.Manager

	RPC *jsonrpc.Server

	gossiper *finality.Gossiper

	log log.Logger
}

// New allocates a Node for cfg. It performs no IO that could fail
// halfway; that happens in Prepare.
func New(cfg config.Node) *Node {
	return &Node{cfg: cfg, log: log.New("component", "app.Node")}
}

// Prepare opens the persistent stores, seeds or re-opens genesis, and
// wires every component. Any failure here is an IO or genesis-mismatch
// error per spec.md §6's exit codes 2/3; the caller decides which.
func (n *Node) Prepare(genesis config.Genesis) error {
	var err error
	if n.trieStore, err = triedb.OpenPebble(filepath.Join(n.cfg.RocksDBPath)); err != nil {
		return fmt.Errorf("app: open trie backend: %w", err)
	}
	n.Backend = triedb.NewBackend(n.trieStore, []byte("trie/"))
	n.Serializer = triedb.NewSerializer(n.Backend)
	n.TrieDB = triestorage.NewStorage(n.Serializer)

	if n.chainDB, err = crdtkv.Open(filepath.Join(n.cfg.BasePath, "chain")); err != nil {
		return fmt.Errorf("app: open chain db: %w", err)
	}
	if n.taskDB, err = crdtkv.Open(filepath.Join(n.cfg.BasePath, "tasks")); err != nil {
		return fmt.Errorf("app: open task db: %w", err)
	}

	stateRoot, authorities, err := genesisRootAndAuthorities(genesis)
	if err != nil {
		return err
	}

	n.Blocks, err = blockchain.OpenStorage(n.chainDB)
	if errkind.Is(err, errkind.InvariantViolation) {
		n.Blocks, _, err = blockchain.NewStorageWithGenesis(n.chainDB, stateRoot, authorities)
	}
	if err != nil {
		return fmt.Errorf("app: open block storage: %w", err)
	}

	if n.Tree, err = blockchain.NewTree(n.Blocks); err != nil {
		return fmt.Errorf("app: build block tree: %w", err)
	}

	genesisHash, err := n.Blocks.GetGenesisBlockHash()
	if err != nil {
		return fmt.Errorf("app: read genesis hash: %w", err)
	}
	n.Authority = authority.NewManager(genesisHash, authorities, n.Tree.HasDirectChain, n.chainDB)

	n.Pool = txpool.New(chainTipValidator{}, 4096)

	n.Queue = processing.New(n.taskDB, 2*time.Minute)

	key, err := btcec.NewPrivateKey()
	if err != nil {
		return fmt.Errorf("app: generate account key: %w", err)
	}
	n.Account = account.New(key, "GNUS")
	n.TxMgr = txmanager.NewManager(n.Account, n.Pool, noopBroadcaster{})

	n.gossiper = finality.NewGossiper(noopSender{}, 256)

	n.RPC = jsonrpc.NewServer()
	return nil
}

// Start logs the configured RPC endpoints and p2p port and returns. It does
// not start any RPC listener or background loop (block-sync, ban-sweep).
func (n *Node) Start() error {
	n.log.Info("node started", "rpc_http", n.cfg.RPCHTTPEndpoint, "rpc_ws", n.cfg.RPCWSEndpoint, "p2p_port", n.cfg.P2PPort)
	return nil
}

// Stop tears down components in reverse dependency order: the owner
// (Node) stops only after every dependent has released its reference.
func (n *Node) Stop() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if n.taskDB != nil {
		record(n.taskDB.Close())
	}
	if n.chainDB != nil {
		record(n.chainDB.Close())
	}
	if n.trieStore != nil {
		record(n.trieStore.Close())
	}
	n.log.Info("node stopped")
	return firstErr
}

// chainTipValidator rejects transactions whose valid_till has already
// passed the current block, the pool-entry half of spec.md §4.10 step 1
// (signature verification is the broadcasting peer's job before the frame
// ever reaches submitOne).
type chainTipValidator struct{}

func (chainTipValidator) Validate(tx *txpool.Tx, currentBlock uint64) error {
	if tx.ValidTill <= currentBlock {
		return errkind.New(errkind.Transient, errkind.ErrStaleTransaction)
	}
	return nil
}

// noopBroadcaster and noopSender stand in for the libp2p host (out of
// scope per spec.md §1) until the application layer wires a real gossip
// transport.
type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(raw []byte) error { return nil }

type noopSender struct{}

func (noopSender) SendToPeer(finality.PeerID, []byte) error { return nil }

// genesisRootAndAuthorities returns the empty-trie root as the genesis state
// root and converts the config authority list into the core AuthorityList
// type. The genesis document's Balances map is not applied here or anywhere
// else in Prepare.
func genesisRootAndAuthorities(g config.Genesis) (common.Hash256, types.AuthorityList, error) {
	root := codec.EmptyTrieRoot
	if len(g.Authorities) == 0 {
		return common.Hash256{}, nil, fmt.Errorf("app: genesis document has no authorities")
	}
	list := make(types.AuthorityList, len(g.Authorities))
	for i, a := range g.Authorities {
		list[i] = types.Authority{ID: a.ID, Weight: a.Weight}
	}
	return root, list, nil
}
