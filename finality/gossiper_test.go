// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package finality

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  map[PeerID]int
	reply error
}

func (s *recordingSender) SendToPeer(peer PeerID, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[PeerID]int)
	}
	s.sent[peer]++
	return s.reply
}

func TestGossiperDedupesRepeatedVote(t *testing.T) {
	sender := &recordingSender{}
	g := NewGossiper(sender, 8)
	g.AddPeer("peer-a")

	v := VoteMessage{Round: 1, AuthorityID: [32]byte{1}, Step: StepPrevote, Block: blockAt(5)}
	g.Broadcast(v)
	g.Broadcast(v) // duplicate: same (round, authority, step)

	require.NoError(t, g.Flush("peer-a"))
	require.Equal(t, 1, sender.sent["peer-a"])
}

func TestOutboxDropsOldestOnOverflow(t *testing.T) {
	ob := newOutbox(2)
	require.False(t, ob.push([]byte("a")))
	require.False(t, ob.push([]byte("b")))
	dropped := ob.push([]byte("c"))
	require.True(t, dropped)

	items := ob.drain()
	require.Equal(t, [][]byte{[]byte("b"), []byte("c")}, items)
}

func TestGossiperCountsDroppedFramesMetric(t *testing.T) {
	sender := &recordingSender{}
	g := NewGossiper(sender, 1)
	g.AddPeer("peer-a")

	before := testCounterValue(gossipDropped)

	g.Broadcast(VoteMessage{Round: 1, AuthorityID: [32]byte{1}, Step: StepPrevote, Block: blockAt(1)})
	g.Broadcast(VoteMessage{Round: 1, AuthorityID: [32]byte{2}, Step: StepPrevote, Block: blockAt(2)})

	after := testCounterValue(gossipDropped)
	require.Greater(t, after, before)
}
