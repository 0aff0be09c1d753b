// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package blockchain

import (
	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/core/types"
	"github.com/GeniusVentures/sgnode-go/crdtkv"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// Storage is C9: full block (header+body+justification) CRUD layered on the
// CRDT KV store and C8's header repository, plus the "last finalized"
// pointer.
type Storage struct {
	db       *crdtkv.DB
	headers  *HeaderRepository
}

// OpenStorage opens an existing Storage and requires the last-finalized
// pointer to resolve to a known header.
func OpenStorage(db *crdtkv.DB) (*Storage, error) {
	s := &Storage{db: db, headers: NewHeaderRepository(db)}
	hash, err := s.GetLastFinalized()
	if err != nil {
		return nil, errkind.New(errkind.InvariantViolation, errkind.ErrFinalizedNotFound)
	}
	if _, err := s.headers.GetBlockHeader(ByHash(hash)); err != nil {
		return nil, errkind.New(errkind.InvariantViolation, errkind.ErrFinalizedNotFound)
	}
	return s, nil
}

// NewStorageWithGenesis seeds a fresh Storage from a genesis state root and
// authority list, rejecting the call if a genesis already exists.
func NewStorageWithGenesis(db *crdtkv.DB, stateRoot common.Hash256, authorities types.AuthorityList) (*Storage, common.Hash256, error) {
	s := &Storage{db: db, headers: NewHeaderRepository(db)}
	if _, err := s.GetLastFinalized(); err == nil {
		return nil, common.Hash256{}, errkind.New(errkind.InvariantViolation, errkind.ErrGenesisAlreadyExists)
	}
	genesis := &types.Header{
		ParentHash:     common.Hash256{},
		Number:         0,
		StateRoot:      stateRoot,
		ExtrinsicsRoot: codec.EmptyTrieRoot,
	}
	hash, err := s.headers.PutBlockHeader(genesis)
	if err != nil {
		return nil, common.Hash256{}, err
	}
	body := &types.Body{}
	if err := s.putBodyRaw(hash, body); err != nil {
		return nil, common.Hash256{}, err
	}
	if err := s.SetLastFinalizedBlockHash(hash); err != nil {
		return nil, common.Hash256{}, err
	}
	return s, hash, nil
}

// GetGenesisBlockHash returns block 0's hash.
func (s *Storage) GetGenesisBlockHash() (common.Hash256, error) {
	return s.headers.GetHashByNumber(0)
}

func (s *Storage) putBodyRaw(hash common.Hash256, body *types.Body) error {
	return s.db.Put(prefixBodyByHash+string(hash.Bytes()), encodeBody(body))
}

// PutBlock atomically writes header+body, failing with BLOCK_EXISTS if the
// header hash is already present.
func (s *Storage) PutBlock(header *types.Header, body *types.Body) (common.Hash256, error) {
	hash := header.Hash()
	if status, err := s.headers.GetBlockStatus(ByHash(hash)); err != nil {
		return common.Hash256{}, err
	} else if status == StatusInChain {
		return common.Hash256{}, errkind.New(errkind.InvariantViolation, errkind.ErrBlockExists)
	}
	if _, err := s.headers.PutBlockHeader(header); err != nil {
		return common.Hash256{}, err
	}
	if err := s.putBodyRaw(hash, body); err != nil {
		return common.Hash256{}, err
	}
	return hash, nil
}

// GetHeader delegates to the wrapped header repository.
func (s *Storage) GetHeader(id BlockID) (*types.Header, error) { return s.headers.GetBlockHeader(id) }

// GetBody returns the block body stored for hash.
func (s *Storage) GetBody(hash common.Hash256) (*types.Body, error) {
	raw, err := s.db.Get(prefixBodyByHash + string(hash.Bytes()))
	if err != nil {
		return nil, err
	}
	return decodeBody(raw)
}

// PutJustification stores a finality justification for hash.
func (s *Storage) PutJustification(hash common.Hash256, just types.Justification) error {
	return s.db.Put(prefixJustByHash+string(hash.Bytes()), just)
}

// GetJustification returns the justification stored for hash, if any.
func (s *Storage) GetJustification(hash common.Hash256) (types.Justification, error) {
	raw, err := s.db.Get(prefixJustByHash + string(hash.Bytes()))
	if err != nil {
		return nil, err
	}
	return types.Justification(raw), nil
}

// GetBlockData assembles the composite sync-response structure for hash.
func (s *Storage) GetBlockData(hash common.Hash256) (*types.BlockData, error) {
	header, err := s.headers.GetBlockHeader(ByHash(hash))
	if err != nil {
		return nil, err
	}
	body, err := s.GetBody(hash)
	if err != nil {
		return nil, err
	}
	just, _ := s.GetJustification(hash)
	return &types.BlockData{Hash: hash, Header: header, Body: body, Justification: just}, nil
}

// GetLastFinalized returns the current last-finalized block hash.
func (s *Storage) GetLastFinalized() (common.Hash256, error) {
	raw, err := s.db.Get(keyLastFinalized)
	if err != nil {
		return common.Hash256{}, err
	}
	return common.BytesToHash(raw), nil
}

// SetLastFinalizedBlockHash advances the last-finalized pointer.
func (s *Storage) SetLastFinalizedBlockHash(hash common.Hash256) error {
	return s.db.Put(keyLastFinalized, hash.Bytes())
}

// encodeBody scale-encodes a Body as a length-prefixed list of
// length-prefixed extrinsics.
func encodeBody(b *types.Body) []byte {
	out := codec.EncodeUvarint(uint64(len(b.Extrinsics)))
	for _, e := range b.Extrinsics {
		out = append(out, codec.EncodeCompactBytes(e)...)
	}
	return out
}

func decodeBody(data []byte) (*types.Body, error) {
	count, n, err := codec.DecodeUvarint(data)
	if err != nil {
		return nil, err
	}
	off := n
	body := &types.Body{}
	for i := uint64(0); i < count; i++ {
		ext, consumed, err := codec.DecodeCompactBytes(data[off:])
		if err != nil {
			return nil, err
		}
		off += consumed
		body.Extrinsics = append(body.Extrinsics, types.Extrinsic(ext))
	}
	return body, nil
}
