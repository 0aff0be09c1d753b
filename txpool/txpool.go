// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package txpool implements C12, TransactionPool: tag-based dependency
// resolution between ready and waiting transactions, modeled on the
// teacher's core/txpool ready/pending split but generalized to spec.md
// §4.10's explicit provides/requires tag graph instead of nonce ordering.
package txpool

import (
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// Tag is an opaque dependency tag a transaction can provide or require.
type Tag string

// Tx is spec.md §3's pool transaction.
type Tx struct {
	Ext             []byte
	Hash            common.Hash256
	Priority        uint64
	ValidTill       uint64
	Requires        []Tag
	Provides        []Tag
	ShouldPropagate bool

	seq uint64 // insertion sequence, for stable tie-break
}

// Validator checks a transaction's signature and expiry against the chain
// tip, matching C8's role in submitOne step 1. A nil Validator accepts
// everything, useful in unit tests.
type Validator interface {
	Validate(tx *Tx, currentBlock uint64) error
}

// Pool is C12.
type Pool struct {
	mu sync.Mutex

	validator    Validator
	maxReadyNum  int
	nextSeq      uint64

	imported  map[common.Hash256]*Tx
	ready     map[common.Hash256]*Tx
	waiting   map[common.Hash256]*Tx
	provides  map[Tag][]common.Hash256 // tag -> providers (ready or historical)
	dependsOn map[common.Hash256][]Tag // tx -> tags it depends on that are satisfied
	waitsOn   map[Tag][]common.Hash256 // tag -> txs still waiting on it
	postponed []common.Hash256         // overflow queue, FIFO with priority eviction

	moderator *PoolModerator
}

// New returns an empty Pool bounded by maxReadyNum ready transactions.
func New(validator Validator, maxReadyNum int) *Pool {
	return &Pool{
		validator:   validator,
		maxReadyNum: maxReadyNum,
		imported:    make(map[common.Hash256]*Tx),
		ready:       make(map[common.Hash256]*Tx),
		waiting:     make(map[common.Hash256]*Tx),
		provides:    make(map[Tag][]common.Hash256),
		dependsOn:   make(map[common.Hash256][]Tag),
		waitsOn:     make(map[Tag][]common.Hash256),
		moderator:   NewPoolModerator(),
	}
}

// SubmitOne validates, imports and attempts to ready tx.
func (p *Pool) SubmitOne(tx *Tx, currentBlock uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.moderator.IsBanned(tx.Hash) {
		return errkind.New(errkind.InvariantViolation, errkind.ErrStaleTransaction)
	}
	if p.validator != nil {
		if err := p.validator.Validate(tx, currentBlock); err != nil {
			return err
		}
	}
	if tx.ValidTill <= currentBlock {
		p.moderator.Ban(tx.Hash, tx.ValidTill)
		return errkind.New(errkind.InvariantViolation, errkind.ErrStaleTransaction)
	}

	tx.seq = p.nextSeq
	p.nextSeq++
	p.imported[tx.Hash] = tx

	unresolved := p.resolveRequires(tx)
	if len(unresolved) == 0 && len(p.ready) < p.maxReadyNum {
		p.promote(tx)
	} else {
		for _, tag := range unresolved {
			p.waitsOn[tag] = append(p.waitsOn[tag], tx.Hash)
		}
		p.waiting[tx.Hash] = tx
		p.postponed = append(p.postponed, tx.Hash)
		p.evictIfOverCapacity()
	}
	return nil
}

// resolveRequires records satisfied dependencies in dependsOn and returns
// the still-unresolved tags.
func (p *Pool) resolveRequires(tx *Tx) []Tag {
	var unresolved []Tag
	for _, tag := range tx.Requires {
		if providers, ok := p.provides[tag]; ok && len(providers) > 0 {
			p.dependsOn[tx.Hash] = append(p.dependsOn[tx.Hash], tag)
			continue
		}
		unresolved = append(unresolved, tag)
	}
	return unresolved
}

// promote marks tx ready, records its provided tags and tries to promote
// anything waiting on them.
func (p *Pool) promote(tx *Tx) {
	delete(p.waiting, tx.Hash)
	p.ready[tx.Hash] = tx
	for _, tag := range tx.Provides {
		p.provides[tag] = append(p.provides[tag], tx.Hash)
		waiters := p.waitsOn[tag]
		delete(p.waitsOn, tag)
		for _, wh := range waiters {
			wtx, ok := p.waiting[wh]
			if !ok {
				continue
			}
			still := p.resolveRequires(wtx)
			if len(still) == 0 && len(p.ready) < p.maxReadyNum {
				p.promote(wtx)
			} else {
				for _, t := range still {
					p.waitsOn[t] = append(p.waitsOn[t], wh)
				}
			}
		}
	}
}

// evictIfOverCapacity drops the lowest-priority postponed transaction when
// the waiting set exceeds maxReadyNum (spec.md's capacity-exceeded rule
// applied to the overflow queue).
func (p *Pool) evictIfOverCapacity() {
	if len(p.waiting) <= p.maxReadyNum {
		return
	}
	worstIdx := -1
	for i, h := range p.postponed {
		tx, ok := p.waiting[h]
		if !ok {
			continue
		}
		if worstIdx == -1 || tx.Priority < p.waiting[p.postponed[worstIdx]].Priority {
			worstIdx = i
		}
	}
	if worstIdx < 0 {
		return
	}
	victim := p.postponed[worstIdx]
	p.postponed = append(p.postponed[:worstIdx], p.postponed[worstIdx+1:]...)
	delete(p.waiting, victim)
	delete(p.imported, victim)
}

// Remove drops hash from every structure; if it was ready, its dependents
// retire back to waiting (S4's "removing T1 retires T2 to waiting").
func (p *Pool) Remove(hash common.Hash256) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(hash)
}

func (p *Pool) removeLocked(hash common.Hash256) {
	tx, wasReady := p.ready[hash]
	if wasReady {
		delete(p.ready, hash)
		for _, tag := range tx.Provides {
			providers := p.provides[tag]
			for i, h := range providers {
				if h == hash {
					providers = append(providers[:i], providers[i+1:]...)
					break
				}
			}
			if len(providers) == 0 {
				delete(p.provides, tag)
			} else {
				p.provides[tag] = providers
			}
		}
	}
	delete(p.imported, hash)
	delete(p.waiting, hash)
	for i, h := range p.postponed {
		if h == hash {
			p.postponed = append(p.postponed[:i], p.postponed[i+1:]...)
			break
		}
	}
	if !wasReady {
		return
	}
	// retire every tx that depended on a now-removed provider back to waiting
	for dh, tags := range p.dependsOn {
		for _, tag := range tags {
			if !tagStillProvided(p.provides, tag) {
				p.retireToWaiting(dh)
				break
			}
		}
	}
}

func tagStillProvided(provides map[Tag][]common.Hash256, tag Tag) bool {
	providers, ok := provides[tag]
	return ok && len(providers) > 0
}

func (p *Pool) retireToWaiting(hash common.Hash256) {
	tx, ok := p.ready[hash]
	if !ok {
		return
	}
	delete(p.ready, hash)
	for _, tag := range tx.Provides {
		providers := p.provides[tag]
		for i, h := range providers {
			if h == hash {
				providers = append(providers[:i], providers[i+1:]...)
				break
			}
		}
		p.provides[tag] = providers
	}
	delete(p.dependsOn, hash)
	p.waiting[hash] = tx
	p.postponed = append(p.postponed, hash)
	unresolved := p.resolveRequires(tx)
	for _, tag := range unresolved {
		p.waitsOn[tag] = append(p.waitsOn[tag], hash)
	}
}

// RemoveStale walks ready+waiting and drops any tx with validTill <=
// currentBlock.
func (p *Pool) RemoveStale(currentBlock uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var stale []common.Hash256
	for h, tx := range p.ready {
		if tx.ValidTill <= currentBlock {
			stale = append(stale, h)
		}
	}
	for h, tx := range p.waiting {
		if tx.ValidTill <= currentBlock {
			stale = append(stale, h)
		}
	}
	for _, h := range stale {
		p.removeLocked(h)
	}
	p.moderator.UpdateBan(currentBlock)
}

// GetReadyTransactions returns a stable snapshot ordered by priority
// descending, ties broken by insertion sequence ascending.
func (p *Pool) GetReadyTransactions() []*Tx {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Tx, 0, len(p.ready))
	for _, tx := range p.ready {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Moderator exposes the pool's PoolModerator.
func (p *Pool) Moderator() *PoolModerator { return p.moderator }

// ProvidedTags returns the set of tags currently satisfiable by a ready
// transaction, letting callers (e.g. the processing queue deciding whether
// a subtask's prerequisite transaction has landed) check readiness without
// walking the pool's internal maps.
func (p *Pool) ProvidedTags() mapset.Set[Tag] {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := mapset.NewThreadUnsafeSet[Tag]()
	for tag, providers := range p.provides {
		if len(providers) > 0 {
			out.Add(tag)
		}
	}
	return out
}
