// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package txmanager

import (
	"github.com/GeniusVentures/sgnode-go/account"
	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
)

// EscrowCtrl is spec.md §4.11's escrow control block, tracked in memory for
// the lifetime of a job; it is keyed by JobHash in Manager.escrows.
type EscrowCtrl struct {
	JobID         string
	DevAddr       []byte
	DevCut        float64
	JobHash       common.Hash256
	FullAmount    uint64
	NumSubtasks   int
	OriginalInput account.Ref
	PayoutPeers   []string          // peers in completion order
	SubtaskInfo   map[string]string // subtask id -> peer
}

// jobHash mirrors spec.md §4.11's "job_hash=hash(job_id)".
func jobHash(jobID string) common.Hash256 {
	return codec.Hash256([]byte(jobID))
}

// Done reports whether every subtask has reported completion.
func (e *EscrowCtrl) Done() bool { return len(e.SubtaskInfo) == e.NumSubtasks }
