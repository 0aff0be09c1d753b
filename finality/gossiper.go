// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package finality

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GeniusVentures/sgnode-go/log"
)

// PeerID names a connected gossip peer; the transport layer (out of scope
// per spec.md §1) owns the real connection.
type PeerID string

// Sender delivers one already-encoded gossip frame to a peer; implemented
// by the libp2p host adapter in the application layer.
type Sender interface {
	SendToPeer(peer PeerID, frame []byte) error
}

// outbox is one peer's bounded, FIFO, drop-oldest-on-overflow queue, per
// spec.md §5's "bounded per-peer queues; on overflow the oldest undelivered
// message is dropped".
type outbox struct {
	mu    sync.Mutex
	items [][]byte
	cap   int
}

func newOutbox(cap int) *outbox { return &outbox{cap: cap} }

func (o *outbox) push(frame []byte) (dropped bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) >= o.cap {
		o.items = o.items[1:]
		dropped = true
	}
	o.items = append(o.items, frame)
	return dropped
}

func (o *outbox) drain() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.items
	o.items = nil
	return out
}

var gossipDropped = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "sgnode_finality_gossip_dropped_total",
	Help: "Vote/Fin gossip frames dropped because a peer's outbound queue overflowed.",
})

func init() { prometheus.MustRegister(gossipDropped) }

// Gossiper broadcasts VoteMessages and Fin announcements to every connected
// peer, deduplicating by (round, authority, step) per spec.md §4.13.
type Gossiper struct {
	mu     sync.Mutex
	peers  map[PeerID]*outbox
	seen   map[voteKey]bool
	sender Sender
	queCap int
	logger log.Logger
}

// NewGossiper returns a Gossiper with a queueCap-sized outbox per peer.
func NewGossiper(sender Sender, queueCap int) *Gossiper {
	return &Gossiper{
		peers:  make(map[PeerID]*outbox),
		seen:   make(map[voteKey]bool),
		sender: sender,
		queCap: queueCap,
		logger: log.New("component", "finality-gossip"),
	}
}

// AddPeer registers peer with a fresh outbox.
func (g *Gossiper) AddPeer(peer PeerID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.peers[peer]; !ok {
		g.peers[peer] = newOutbox(g.queCap)
	}
}

// RemovePeer drops peer and its queued-but-undelivered frames.
func (g *Gossiper) RemovePeer(peer PeerID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.peers, peer)
}

// Broadcast enqueues v for every connected peer, skipping peers (and
// recording nothing) if v was already broadcast for its (round, authority,
// step) key.
func (g *Gossiper) Broadcast(v VoteMessage) {
	g.mu.Lock()
	if g.seen[v.key()] {
		g.mu.Unlock()
		return
	}
	g.seen[v.key()] = true
	peers := make([]*outbox, 0, len(g.peers))
	ids := make([]PeerID, 0, len(g.peers))
	for id, ob := range g.peers {
		peers = append(peers, ob)
		ids = append(ids, id)
	}
	g.mu.Unlock()

	frame := encodeVote(v)
	for i, ob := range peers {
		if ob.push(frame) {
			gossipDropped.Inc()
			g.logger.Warn("dropped gossip frame, peer queue full", "peer", ids[i])
		}
	}
}

// BroadcastFin enqueues fin for every connected peer, unconditionally (Fin
// announcements are not deduped; only individual votes are).
func (g *Gossiper) BroadcastFin(fin Fin) {
	g.mu.Lock()
	peers := make([]*outbox, 0, len(g.peers))
	ids := make([]PeerID, 0, len(g.peers))
	for id, ob := range g.peers {
		peers = append(peers, ob)
		ids = append(ids, id)
	}
	g.mu.Unlock()

	frame := encodeFin(fin)
	for i, ob := range peers {
		if ob.push(frame) {
			gossipDropped.Inc()
			g.logger.Warn("dropped fin frame, peer queue full", "peer", ids[i])
		}
	}
}

// Flush delivers every queued frame for peer via the Sender, draining its
// outbox. The network layer calls this whenever the peer connection is
// ready to accept more writes, keeping gossip writes non-blocking per
// spec.md §5.
func (g *Gossiper) Flush(peer PeerID) error {
	g.mu.Lock()
	ob, ok := g.peers[peer]
	g.mu.Unlock()
	if !ok {
		return nil
	}
	for _, frame := range ob.drain() {
		if err := g.sender.SendToPeer(peer, frame); err != nil {
			return err
		}
	}
	return nil
}
