// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatchReturnsMethodNotFound(t *testing.T) {
	s := NewServer()
	resp := s.dispatch(Request{Method: "chain_getHeader"})
	require.NotNil(t, resp.Error)
	require.Equal(t, -32601, resp.Error.Code)
}

func TestDispatchCallsRegisteredHandler(t *testing.T) {
	s := NewServer()
	s.RegisterMethod("chain_tip", func(params json.RawMessage) (interface{}, error) {
		return map[string]uint64{"number": 7}, nil
	})

	resp := s.dispatch(Request{Method: "chain_tip"})
	require.Nil(t, resp.Error)
	var out map[string]uint64
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	require.Equal(t, uint64(7), out["number"])
}
