// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package txpool

import (
	"sync"

	"github.com/GeniusVentures/sgnode-go/common"
)

// PoolModerator records bans by expiry block number and sweeps them once
// expired.
type PoolModerator struct {
	mu   sync.Mutex
	bans map[common.Hash256]uint64 // hash -> expiry block number
}

// NewPoolModerator returns an empty moderator.
func NewPoolModerator() *PoolModerator {
	return &PoolModerator{bans: make(map[common.Hash256]uint64)}
}

// Ban records hash as banned until expiryBlock.
func (m *PoolModerator) Ban(hash common.Hash256, expiryBlock uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bans[hash] = expiryBlock
}

// BanIfStale bans tx if it's already past its validity window.
func (m *PoolModerator) BanIfStale(currentBlock uint64, tx *Tx) bool {
	if tx.ValidTill > currentBlock {
		return false
	}
	m.Ban(tx.Hash, tx.ValidTill)
	return true
}

// IsBanned reports whether hash is currently under an active ban.
func (m *PoolModerator) IsBanned(hash common.Hash256) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bans[hash]
	return ok
}

// UpdateBan sweeps every ban whose expiry has passed currentBlock.
func (m *PoolModerator) UpdateBan(currentBlock uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, expiry := range m.bans {
		if expiry <= currentBlock {
			delete(m.bans, hash)
		}
	}
}
