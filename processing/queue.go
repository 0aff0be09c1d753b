// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package processing implements C15, ProcessingTaskQueue: task/subtask
// enqueue, a time-bounded distributed lock built on the CRDT KV's
// last-writer-wins semantics, and completion recording, per spec.md §4.12.
package processing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/crdtkv"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

const (
	prefixTasks    = "tasks/TASK_"
	prefixSubtasks = "subtasks/TASK_"
	prefixLocks    = "lock_tasks/TASK_"
	prefixResults  = "task_results/tasks/TASK_"
)

// Task is spec.md §3's unit of off-chain compute work.
type Task struct {
	IpfsBlockID string
	Params      []byte
	Subtasks    []Subtask
}

// Subtask is one partitionable chunk of a Task.
type Subtask struct {
	SubtaskID       string
	ChunksToProcess uint64
	OwnerPeer       string
}

// TaskLock is the time-bounded distributed lock §4.12 grants whoever last
// wrote lock_tasks/TASK_<id>.
type TaskLock struct {
	TaskID        string
	LockTimestamp time.Time
}

// Queue is C15, layered directly on the CRDT KV (its last-writer-wins
// idempotent puts are exactly what §4.12's "steal expired locks by
// rewriting the lock key" relies on).
type Queue struct {
	db                *crdtkv.DB
	processingTimeout time.Duration
}

// New returns a Queue backed by db. processingTimeout bounds how long a
// lock is honored before another worker may steal the task.
func New(db *crdtkv.DB, processingTimeout time.Duration) *Queue {
	return &Queue{db: db, processingTimeout: processingTimeout}
}

// EnqueueTask writes task and every one of its subtasks. If task.IpfsBlockID
// is empty a fresh id is minted with google/uuid, matching the original
// source's use of generated job identifiers.
func (q *Queue) EnqueueTask(task Task) (string, error) {
	id := task.IpfsBlockID
	if id == "" {
		id = uuid.NewString()
	}
	if err := q.db.Put(prefixTasks+id, encodeTask(task)); err != nil {
		return "", err
	}
	for _, st := range task.Subtasks {
		if err := q.db.Put(prefixSubtasks+id+"/"+st.SubtaskID, encodeSubtask(st)); err != nil {
			return "", err
		}
	}
	return id, nil
}

// GetSubTasks returns every subtask stored under taskID, in key order.
func (q *Queue) GetSubTasks(taskID string) ([]Subtask, error) {
	var out []Subtask
	err := q.db.IteratePrefix(prefixSubtasks+taskID+"/", func(key string, value []byte) (bool, error) {
		st, err := decodeSubtask(value)
		if err != nil {
			return false, err
		}
		out = append(out, st)
		return true, nil
	})
	return out, err
}

// GrabTask scans tasks/, skipping completed tasks and tasks locked by
// another worker within processingTimeout, claims the first available one
// by rewriting its lock key, and returns it. Lock rewriting is idempotent
// and last-writer-wins under the CRDT, so a losing racer's write is simply
// superseded rather than rejected (spec.md §4.12/§5).
func (q *Queue) GrabTask(now time.Time) (string, *Task, error) {
	var claimedID string
	var claimed *Task

	err := q.db.IteratePrefix(prefixTasks, func(key string, value []byte) (bool, error) {
		id := strings.TrimPrefix(key, prefixTasks)

		if done, err := q.db.Has(prefixResults + id); err != nil {
			return false, err
		} else if done {
			return true, nil
		}

		if raw, err := q.db.Get(prefixLocks + id); err == nil {
			lock, err := decodeLock(raw)
			if err != nil {
				return false, err
			}
			if now.Sub(lock.LockTimestamp) < q.processingTimeout {
				return true, nil // still held by someone else
			}
		} else if !errkind.Is(err, errkind.NotFound) {
			return false, err
		}

		task, err := decodeTask(value)
		if err != nil {
			return false, err
		}
		if err := q.db.Put(prefixLocks+id, encodeLock(TaskLock{TaskID: id, LockTimestamp: now})); err != nil {
			return false, err
		}
		claimedID = id
		claimed = &task
		return false, nil // stop at the first claimable task
	})
	if err != nil {
		return "", nil, err
	}
	if claimed == nil {
		return "", nil, errkind.New(errkind.NotFound, errkind.ErrNotFound)
	}
	return claimedID, claimed, nil
}

// CompleteTask records result as the canonical outcome and releases the
// lock. Under the CRDT's last-writer-wins semantics the first worker whose
// CompleteTask call is delivered "wins" per spec.md §4.12/S6; a later
// duplicate completion for the same task is a harmless overwrite of an
// identical logical result in the intended usage (workers are expected to
// verify before calling CompleteTask that their own claim still stands).
func (q *Queue) CompleteTask(taskID string, result []byte) error {
	if err := q.db.Put(prefixResults+taskID, result); err != nil {
		return err
	}
	return q.db.Delete(prefixLocks + taskID)
}

// Result returns the recorded result for taskID, if completion has been
// recorded.
func (q *Queue) Result(taskID string) ([]byte, error) {
	return q.db.Get(prefixResults + taskID)
}

func encodeTask(t Task) []byte {
	out := codec.EncodeCompactBytes([]byte(t.IpfsBlockID))
	out = append(out, codec.EncodeCompactBytes(t.Params)...)
	out = append(out, codec.EncodeUvarint(uint64(len(t.Subtasks)))...)
	for _, st := range t.Subtasks {
		out = append(out, codec.EncodeCompactBytes(encodeSubtask(st))...)
	}
	return out
}

func decodeTask(data []byte) (Task, error) {
	var t Task
	id, n, err := codec.DecodeCompactBytes(data)
	if err != nil {
		return t, err
	}
	off := n
	t.IpfsBlockID = string(id)
	params, n, err := codec.DecodeCompactBytes(data[off:])
	if err != nil {
		return t, err
	}
	off += n
	t.Params = append([]byte(nil), params...)
	count, n, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return t, err
	}
	off += n
	for i := uint64(0); i < count; i++ {
		buf, consumed, err := codec.DecodeCompactBytes(data[off:])
		if err != nil {
			return t, err
		}
		off += consumed
		st, err := decodeSubtask(buf)
		if err != nil {
			return t, err
		}
		t.Subtasks = append(t.Subtasks, st)
	}
	return t, nil
}

func encodeSubtask(st Subtask) []byte {
	out := codec.EncodeCompactBytes([]byte(st.SubtaskID))
	out = append(out, codec.EncodeUvarint(st.ChunksToProcess)...)
	out = append(out, codec.EncodeCompactBytes([]byte(st.OwnerPeer))...)
	return out
}

func decodeSubtask(data []byte) (Subtask, error) {
	var st Subtask
	id, n, err := codec.DecodeCompactBytes(data)
	if err != nil {
		return st, err
	}
	off := n
	st.SubtaskID = string(id)
	chunks, n, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return st, err
	}
	off += n
	st.ChunksToProcess = chunks
	owner, _, err := codec.DecodeCompactBytes(data[off:])
	if err != nil {
		return st, err
	}
	st.OwnerPeer = string(owner)
	return st, nil
}

func encodeLock(l TaskLock) []byte {
	out := codec.EncodeCompactBytes([]byte(l.TaskID))
	out = append(out, codec.EncodeUvarint(uint64(l.LockTimestamp.UnixNano()))...)
	return out
}

func decodeLock(data []byte) (TaskLock, error) {
	var l TaskLock
	id, n, err := codec.DecodeCompactBytes(data)
	if err != nil {
		return l, err
	}
	off := n
	l.TaskID = string(id)
	ts, _, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return l, err
	}
	l.LockTimestamp = time.Unix(0, int64(ts))
	return l, nil
}
