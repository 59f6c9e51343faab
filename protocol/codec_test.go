// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of erc4337
//
// erc4337 is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// erc4337 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with erc4337.  If not, see <https://www.gnu.org/licenses/>.

package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/test/partitiontest"
)

type codecTestObj struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	B uint64 `codec:"b"`
	A string `codec:"a"`
}

func TestEncodeCanonical(t *testing.T) {
	partitiontest.PartitionTest(t)

	x := codecTestObj{A: "x", B: 7}
	enc := Encode(&x)
	require.Equal(t, enc, Encode(&codecTestObj{B: 7, A: "x"}))

	var y codecTestObj
	require.NoError(t, Decode(enc, &y))
	require.Equal(t, x, y)

	var z codecTestObj
	require.NoError(t, DecodeStream(bytes.NewReader(enc), &z))
	require.Equal(t, x, z)

	// keys are written in sorted order, so "a" precedes "b"
	require.Less(t, bytes.Index(enc, []byte("a")), bytes.Index(enc, []byte("b")))
}

func TestDecodeUnknownField(t *testing.T) {
	partitiontest.PartitionTest(t)

	type other struct {
		C uint64 `codec:"c"`
	}
	enc := Encode(&other{C: 1})
	var x codecTestObj
	require.Error(t, Decode(enc, &x))
}

func TestJSONRoundTrip(t *testing.T) {
	partitiontest.PartitionTest(t)

	x := codecTestObj{A: "json", B: 11}
	var y codecTestObj
	require.NoError(t, DecodeJSON(EncodeJSON(&x), &y))
	require.Equal(t, x, y)

	var z codecTestObj
	require.NoError(t, NewJSONDecoder(bytes.NewReader(EncodeJSON(&x))).Decode(&z))
	require.Equal(t, x, z)
}
