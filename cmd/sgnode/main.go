// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Command sgnode is the node entrypoint: it parses the §6 CLI flags with
// urfave/cli/v2 (the same framework the teacher's cmd/geth uses), loads
// the genesis document, builds an app.Node, and runs it until signaled.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/GeniusVentures/sgnode-go/app"
	"github.com/GeniusVentures/sgnode-go/config"
	"github.com/GeniusVentures/sgnode-go/log"
)

var (
	genesisFlag = &cli.StringFlag{Name: "genesis", Usage: "path to the genesis TOML document", Required: true}
	basePathFlag = &cli.StringFlag{Name: "base-path", Usage: "directory for chain/task CRDT state", Value: "./data"}
	rocksdbPathFlag = &cli.StringFlag{Name: "rocksdb-path", Usage: "directory for the trie key-value store", Value: "./data/trie"}
	p2pPortFlag = &cli.IntFlag{Name: "p2p-port", Usage: "libp2p listen port", Value: 30333}
	rpcHTTPFlag = &cli.StringFlag{Name: "rpc-http-endpoint", Usage: "host:port for JSON-RPC over HTTP", Value: "127.0.0.1:9933"}
	rpcWSFlag = &cli.StringFlag{Name: "rpc-ws-endpoint", Usage: "host:port for JSON-RPC over WebSocket", Value: "127.0.0.1:9944"}
	verbosityFlag = &cli.StringFlag{Name: "verbosity", Usage: "trace|debug|info|warn|error", Value: "info"}
)

func main() {
	cliApp := &cli.App{
		Name:  "sgnode",
		Usage: "SuperGenius decentralized compute/payment node",
		Flags: []cli.Flag{genesisFlag, basePathFlag, rocksdbPathFlag, p2pPortFlag, rpcHTTPFlag, rpcWSFlag, verbosityFlag},
		Action: run,
	}
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sgnode:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitErr carries the §6 exit code alongside the error message.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var ee *exitErr
	if e, ok := err.(*exitErr); ok {
		ee = e
		return ee.code
	}
	return 1
}

func run(c *cli.Context) error {
	lvl, err := log.ParseLevel(c.String(verbosityFlag.Name))
	if err != nil {
		return &exitErr{1, fmt.Errorf("invalid --verbosity: %w", err)}
	}
	log.SetLevel(lvl)

	cfg := config.DefaultNode()
	cfg.BasePath = c.String(basePathFlag.Name)
	cfg.RocksDBPath = c.String(rocksdbPathFlag.Name)
	cfg.GenesisPath = c.String(genesisFlag.Name)
	cfg.P2PPort = c.Int(p2pPortFlag.Name)
	cfg.RPCHTTPEndpoint = c.String(rpcHTTPFlag.Name)
	cfg.RPCWSEndpoint = c.String(rpcWSFlag.Name)

	genesis, err := config.LoadGenesis(cfg.GenesisPath)
	if err != nil {
		return &exitErr{2, fmt.Errorf("loading genesis: %w", err)}
	}

	node := app.New(cfg)
	if err := node.Prepare(genesis); err != nil {
		return &exitErr{3, fmt.Errorf("preparing node: %w", err)}
	}
	if err := node.Start(); err != nil {
		return &exitErr{3, fmt.Errorf("starting node: %w", err)}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received")
	if err := node.Stop(); err != nil {
		return &exitErr{3, fmt.Errorf("stopping node: %w", err)}
	}
	return nil
}
