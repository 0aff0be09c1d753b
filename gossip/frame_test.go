// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package gossip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{Type: TypeBlockAnnounce, Data: []byte("hello")}
	decoded, err := DecodeFrame(f.Encode())
	require.NoError(t, err)
	require.Equal(t, f, decoded)
}

func TestFrameUnknownTypeDegrades(t *testing.T) {
	f := Frame{Type: Type(250), Data: []byte("x")}
	decoded, err := DecodeFrame(f.Encode())
	require.NoError(t, err)
	require.Equal(t, TypeUnknown, decoded.Type)
}
