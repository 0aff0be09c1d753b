// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package txmanager implements C14, TransactionManager: the four on-chain
// transaction variants of spec.md §3 (Transfer/Mint/Escrow/ProcessingPayout),
// their signing and wire encoding, the escrow lifecycle of §4.11, and the
// block-sync reconciliation loop that keeps a GeniusAccount's UTXO set in
// step with finalized blocks.
package txmanager

import (
	"bytes"

	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/GeniusVentures/sgnode-go/account"
	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/crypto"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// Kind is the first-byte dispatch tag spec.md §4.11 parses extrinsics by.
type Kind uint8

const (
	KindTransfer Kind = iota
	KindMint
	KindEscrow
	KindProcessingPayout
)

// Output is one transaction output: an amount of tokenID paid to addr (a
// compressed secp256k1 public key, the same form account.PublicKey returns).
type Output struct {
	Addr    []byte
	Amount  uint64
	TokenID string
}

// Transaction is spec.md §3's tagged transaction variant, generalized with
// a DAG descriptor (Predecessors) tying every variant to the transactions
// it logically depends on, per §3's "each carries a DAG descriptor".
type Transaction struct {
	Kind         Kind
	Inputs       []account.Ref
	Outputs      []Output
	JobHash      common.Hash256 // set for Escrow/ProcessingPayout
	Predecessors []common.Hash256
	Pubkey       []byte
	Signature    []byte
}

// signingPreimage encodes every field except Signature; this is what gets
// hashed and signed/verified.
func (tx *Transaction) signingPreimage() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(tx.Kind))
	buf.Write(codec.EncodeUvarint(uint64(len(tx.Inputs))))
	for _, in := range tx.Inputs {
		buf.Write(in.TxidHash.Bytes())
		buf.Write(codec.EncodeUvarint(uint64(in.OutputIdx)))
	}
	buf.Write(codec.EncodeUvarint(uint64(len(tx.Outputs))))
	for _, out := range tx.Outputs {
		buf.Write(codec.EncodeCompactBytes(out.Addr))
		buf.Write(codec.EncodeUvarint(out.Amount))
		buf.Write(codec.EncodeCompactBytes([]byte(out.TokenID)))
	}
	buf.Write(tx.JobHash.Bytes())
	buf.Write(codec.EncodeUvarint(uint64(len(tx.Predecessors))))
	for _, p := range tx.Predecessors {
		buf.Write(p.Bytes())
	}
	buf.Write(codec.EncodeCompactBytes(tx.Pubkey))
	return buf.Bytes()
}

// Hash is the transaction identifier used by DAG predecessor links, by the
// txpool's Tx.Hash, and as the UTXO TxidHash for its outputs: Bitcoin's
// double-SHA-256 convention, matching the secp256k1/btcec keys accounts
// sign with.
func (tx *Transaction) Hash() common.Hash256 {
	return crypto.Sha256d(tx.signingPreimage())
}

// Sign signs the transaction with acct's keypair, setting Pubkey/Signature.
func (tx *Transaction) Sign(acct *account.Account) {
	tx.Pubkey = acct.PublicKey()
	digest := tx.Hash()
	sig := btcecdsa.Sign(acct.EthKeypair, digest.Bytes())
	tx.Signature = sig.Serialize()
}

// Verify checks the transaction's signature against its own Pubkey field.
func (tx *Transaction) Verify() error {
	if len(tx.Signature) == 0 || len(tx.Pubkey) == 0 {
		return errkind.New(errkind.PermissionDenied, errkind.ErrBadSignature)
	}
	pub, err := parsePubKey(tx.Pubkey)
	if err != nil {
		return errkind.New(errkind.PermissionDenied, errkind.ErrBadSignature)
	}
	sig, err := btcecdsa.ParseDERSignature(tx.Signature)
	if err != nil {
		return errkind.New(errkind.PermissionDenied, errkind.ErrBadSignature)
	}
	digest := tx.Hash()
	if !sig.Verify(digest.Bytes(), pub) {
		return errkind.New(errkind.PermissionDenied, errkind.ErrBadSignature)
	}
	return nil
}

// Encode serializes the full transaction (preimage plus signature) into an
// extrinsic buffer, tagged by the leading Kind byte per §4.11. Counts,
// output indices and amounts are LEB128 uvarints; byte strings carry a
// SCALE compact length prefix.
func (tx *Transaction) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(tx.signingPreimage())
	buf.Write(codec.EncodeCompactBytes(tx.Signature))
	return buf.Bytes()
}

// ParseTransaction decodes an extrinsic buffer, dispatching by its leading
// Kind byte as spec.md §4.11 describes.
func ParseTransaction(data []byte) (*Transaction, error) {
	if len(data) == 0 {
		return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	tx := &Transaction{Kind: Kind(data[0])}
	off := 1
	nIn, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return nil, err
	}
	off += l
	for i := uint64(0); i < nIn; i++ {
		if len(data) < off+common.HashLength {
			return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
		}
		var ref account.Ref
		copy(ref.TxidHash[:], data[off:off+common.HashLength])
		off += common.HashLength
		idx, l, err := codec.DecodeUvarint(data[off:])
		if err != nil {
			return nil, err
		}
		ref.OutputIdx = uint32(idx)
		off += l
		tx.Inputs = append(tx.Inputs, ref)
	}
	nOut, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return nil, err
	}
	off += l
	for i := uint64(0); i < nOut; i++ {
		addr, consumed, err := codec.DecodeCompactBytes(data[off:])
		if err != nil {
			return nil, err
		}
		off += consumed
		amount, l, err := codec.DecodeUvarint(data[off:])
		if err != nil {
			return nil, err
		}
		off += l
		token, consumed, err := codec.DecodeCompactBytes(data[off:])
		if err != nil {
			return nil, err
		}
		off += consumed
		tx.Outputs = append(tx.Outputs, Output{
			Addr:    append([]byte(nil), addr...),
			Amount:  amount,
			TokenID: string(token),
		})
	}
	if len(data) < off+common.HashLength {
		return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	copy(tx.JobHash[:], data[off:off+common.HashLength])
	off += common.HashLength
	nPred, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return nil, err
	}
	off += l
	for i := uint64(0); i < nPred; i++ {
		if len(data) < off+common.HashLength {
			return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
		}
		var h common.Hash256
		copy(h[:], data[off:off+common.HashLength])
		off += common.HashLength
		tx.Predecessors = append(tx.Predecessors, h)
	}
	pub, consumed, err := codec.DecodeCompactBytes(data[off:])
	if err != nil {
		return nil, err
	}
	off += consumed
	tx.Pubkey = append([]byte(nil), pub...)
	sig, _, err := codec.DecodeCompactBytes(data[off:])
	if err != nil {
		return nil, err
	}
	tx.Signature = append([]byte(nil), sig...)
	return tx, nil
}
