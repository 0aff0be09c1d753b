// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package crdtkv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/errkind"
)

func TestPutGetRoundTrips(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put("k", []byte("v1")))
	v, err := db.Get("k")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get("absent")
	require.True(t, errkind.Is(err, errkind.NotFound))
}

// TestMergeIsLastWriterWins models the CRDT replay-idempotency rule of
// spec.md §5: a stale remote write (lower clock) never overwrites a
// fresher value.
func TestMergeIsLastWriterWins(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Merge("k", []byte("new"), 10))
	require.NoError(t, db.Merge("k", []byte("stale"), 5))

	v, err := db.Get("k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestIteratePrefixVisitsOnlyMatchingKeysInOrder(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put("tasks/TASK_1", []byte("a")))
	require.NoError(t, db.Put("tasks/TASK_2", []byte("b")))
	require.NoError(t, db.Put("other/key", []byte("c")))

	var keys []string
	require.NoError(t, db.IteratePrefix("tasks/", func(key string, value []byte) (bool, error) {
		keys = append(keys, key)
		return true, nil
	}))
	require.Equal(t, []string{"tasks/TASK_1", "tasks/TASK_2"}, keys)
}

func TestDeleteRemovesKey(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put("k", []byte("v")))
	require.NoError(t, db.Delete("k"))
	ok, err := db.Has("k")
	require.NoError(t, err)
	require.False(t, ok)
}
