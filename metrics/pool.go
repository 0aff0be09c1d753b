// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package metrics centralizes the repo's prometheus/client_golang
// instrumentation that doesn't belong to one single component, starting
// with the trie-hashing worker pool's queue-depth gauge.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// TrieHashQueueDepth tracks how many jobs are currently queued in a
// WorkerPool. triedb.Serializer hashes trie nodes on the caller's goroutine
// and does not submit them to a WorkerPool.
var TrieHashQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "sgnode_trie_hash_queue_depth",
	Help: "Trie nodes currently queued for hashing in the trie-hashing worker pool.",
})

func init() { prometheus.MustRegister(TrieHashQueueDepth) }

// WorkerPool runs submitted jobs on a fixed number of goroutines, reporting
// queue depth via TrieHashQueueDepth as jobs are enqueued and picked up.
type WorkerPool struct {
	jobs chan func()
	wg   sync.WaitGroup
}

// NewWorkerPool starts workers goroutines draining a queue of size
// queueDepth.
func NewWorkerPool(workers, queueDepth int) *WorkerPool {
	p := &WorkerPool{jobs: make(chan func(), queueDepth)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *WorkerPool) run() {
	defer p.wg.Done()
	for fn := range p.jobs {
		TrieHashQueueDepth.Dec()
		fn()
	}
}

// Submit enqueues fn, blocking if the queue is currently full.
func (p *WorkerPool) Submit(fn func()) {
	TrieHashQueueDepth.Inc()
	p.jobs <- fn
}

// Close stops accepting new jobs and waits for in-flight ones to finish.
func (p *WorkerPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
