// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package metrics

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsAllSubmittedJobs(t *testing.T) {
	pool := NewWorkerPool(4, 16)
	var done int64
	const n = 50
	for i := 0; i < n; i++ {
		pool.Submit(func() { atomic.AddInt64(&done, 1) })
	}
	pool.Close()
	require.Equal(t, int64(n), done)
}
