// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package processing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/crdtkv"
)

func newTestQueue(t *testing.T, timeout time.Duration) *Queue {
	t.Helper()
	db, err := crdtkv.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, timeout)
}

func TestEnqueueAndGetSubTasks(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	task := Task{
		IpfsBlockID: "T1",
		Params:      []byte("params"),
		Subtasks: []Subtask{
			{SubtaskID: "s1", ChunksToProcess: 4, OwnerPeer: ""},
			{SubtaskID: "s2", ChunksToProcess: 4, OwnerPeer: ""},
		},
	}
	id, err := q.EnqueueTask(task)
	require.NoError(t, err)
	require.Equal(t, "T1", id)

	subs, err := q.GetSubTasks("T1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
}

// TestLockStealingAfterTimeout reproduces spec.md's S6 scenario: a second
// worker may grab a task only after the first worker's lock has expired.
func TestLockStealingAfterTimeout(t *testing.T) {
	timeout := 50 * time.Millisecond
	q := newTestQueue(t, timeout)
	_, err := q.EnqueueTask(Task{IpfsBlockID: "T1"})
	require.NoError(t, err)

	t0 := time.Now()
	id, task, err := q.GrabTask(t0)
	require.NoError(t, err)
	require.Equal(t, "T1", id)
	require.NotNil(t, task)

	// A second worker immediately after must not see the task as free.
	_, _, err = q.GrabTask(t0.Add(time.Millisecond))
	require.Error(t, err)

	// After the timeout elapses, the lock may be stolen.
	_, stolen, err := q.GrabTask(t0.Add(timeout + time.Millisecond))
	require.NoError(t, err)
	require.NotNil(t, stolen)
}

func TestCompleteTaskReleasesLockAndRecordsResult(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	_, err := q.EnqueueTask(Task{IpfsBlockID: "T1"})
	require.NoError(t, err)
	_, _, err = q.GrabTask(time.Now())
	require.NoError(t, err)

	require.NoError(t, q.CompleteTask("T1", []byte("done")))

	result, err := q.Result("T1")
	require.NoError(t, err)
	require.Equal(t, []byte("done"), result)

	// Completed tasks are no longer grabbable.
	_, _, err = q.GrabTask(time.Now())
	require.Error(t, err)
}
