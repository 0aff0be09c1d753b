// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package txmanager

import "github.com/btcsuite/btcd/btcec/v2"

func parsePubKey(compressed []byte) (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(compressed)
}
