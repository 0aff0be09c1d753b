// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package account implements C13, GeniusAccount and UTXO: signed UTXO
// ownership, balance accounting and locking input selection. Keys are
// secp256k1 ECDSA keypairs from github.com/btcsuite/btcd/btcec/v2, the same
// curve package the teacher corpus's sibling daglabs-btcd uses for wallet
// keys (see daglabs-btcd/cmd/addsubnetwork/keys.go), generalized here to a
// UTXO ledger instead of a single address.
package account

import (
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// UTXO is spec.md §3's unspent output.
type UTXO struct {
	TxidHash  common.Hash256
	OutputIdx uint32
	Amount    uint64
	TokenID   string
	Locked    bool
}

// Ref identifies a UTXO by its producing transaction and output index,
// matching the EscrowCtrl.original_input / ProcessingPayout spend target.
type Ref struct {
	TxidHash  common.Hash256
	OutputIdx uint32
}

func (u UTXO) Ref() Ref { return Ref{TxidHash: u.TxidHash, OutputIdx: u.OutputIdx} }

// Account is spec.md §3's GeniusAccount: an ECDSA keypair, an (opaque, not
// modeled further) ElGamal public key used by the off-chain payment
// channel, a default token id, a nonce and the owned UTXO set.
type Account struct {
	mu sync.Mutex

	EthKeypair    *btcec.PrivateKey
	ElgamalPubkey []byte
	TokenID       string
	Nonce         uint64

	utxos []UTXO
}

// New returns an account keyed by key, defaulting outputs to tokenID.
func New(key *btcec.PrivateKey, tokenID string) *Account {
	return &Account{EthKeypair: key, TokenID: tokenID}
}

// PublicKey is the compressed secp256k1 public key, the address form used
// by transaction outputs.
func (a *Account) PublicKey() []byte {
	return a.EthKeypair.PubKey().SerializeCompressed()
}

// PutUTXO adds u to the account's owned set. Used both by genesis/mint
// outputs and by C14's RefreshUTXOs block-sync reconciliation.
func (a *Account) PutUTXO(u UTXO) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.utxos = append(a.utxos, u)
}

// RemoveUTXO drops the UTXO identified by ref, e.g. once a spending
// transaction it was an input to is observed as confirmed.
func (a *Account) RemoveUTXO(ref Ref) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, u := range a.utxos {
		if u.Ref() == ref {
			a.utxos = append(a.utxos[:i], a.utxos[i+1:]...)
			return
		}
	}
}

// UTXOs returns a snapshot of the owned outputs, in insertion order.
func (a *Account) UTXOs() []UTXO {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]UTXO, len(a.utxos))
	copy(out, a.utxos)
	return out
}

// Balance sums the unlocked UTXO amounts for tokenID.
func (a *Account) Balance(tokenID string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var total uint64
	for _, u := range a.utxos {
		if !u.Locked && u.TokenID == tokenID {
			total += u.Amount
		}
	}
	return total
}

// SelectInputs iterates UTXOs in insertion order, locking each selected one,
// until amount is covered. On success it returns the locked inputs and the
// change (the excess over amount); on failure every tentatively-locked
// input is atomically unlocked again, per spec.md §4.11.
func (a *Account) SelectInputs(amount uint64, tokenID string) (selected []Ref, change uint64, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var total uint64
	var locked []int
	for i := range a.utxos {
		u := &a.utxos[i]
		if u.Locked || u.TokenID != tokenID {
			continue
		}
		u.Locked = true
		locked = append(locked, i)
		total += u.Amount
		selected = append(selected, u.Ref())
		if total >= amount {
			return selected, total - amount, nil
		}
	}
	for _, i := range locked {
		a.utxos[i].Locked = false
	}
	return nil, 0, errkind.New(errkind.InvariantViolation, errkind.ErrInsufficientFunds)
}

// LockUTXOAtLeast locks and returns the ref of the first unlocked UTXO of
// tokenID whose amount is >= amount, matching the escrow rule of spec.md
// §4.11 ("Lock one UTXO >= amount"). Unlike SelectInputs it never combines
// several UTXOs; an escrow input is always a single output.
func (a *Account) LockUTXOAtLeast(amount uint64, tokenID string) (Ref, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.utxos {
		u := &a.utxos[i]
		if u.Locked || u.TokenID != tokenID || u.Amount < amount {
			continue
		}
		u.Locked = true
		return u.Ref(), nil
	}
	return Ref{}, errkind.New(errkind.InvariantViolation, errkind.ErrInsufficientFunds)
}

// UnlockAll releases the lock on every UTXO in refs, used when a build-tx
// attempt is abandoned after SelectInputs already succeeded (e.g. signing
// failed downstream).
func (a *Account) UnlockAll(refs []Ref) {
	a.mu.Lock()
	defer a.mu.Unlock()
	set := make(map[Ref]bool, len(refs))
	for _, r := range refs {
		set[r] = true
	}
	for i := range a.utxos {
		if set[a.utxos[i].Ref()] {
			a.utxos[i].Locked = false
		}
	}
}

// SpendInputs permanently removes refs from the owned set, called once a
// spending transaction is observed confirmed on-chain.
func (a *Account) SpendInputs(refs []Ref) {
	for _, r := range refs {
		a.RemoveUTXO(r)
	}
}
