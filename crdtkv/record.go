// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package crdtkv

import (
	"encoding/binary"
	"fmt"
)

// encodeRecord packs a record as an 8-byte little-endian clock followed by
// the raw value bytes.
func encodeRecord(r record) []byte {
	out := make([]byte, 8+len(r.value))
	binary.LittleEndian.PutUint64(out[:8], r.clock)
	copy(out[8:], r.value)
	return out
}

func decodeRecord(data []byte) (record, error) {
	if len(data) < 8 {
		return record{}, fmt.Errorf("crdtkv: record too small")
	}
	clock := binary.LittleEndian.Uint64(data[:8])
	value := append([]byte(nil), data[8:]...)
	return record{value: value, clock: clock}, nil
}
