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

package basics

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/test/partitiontest"
)

func TestChecksumAddressUnmarshal(t *testing.T) {
	partitiontest.PartitionTest(t)

	addr := Address{0xde, 0xad, 0xbe, 0xef, 1, 2, 3}
	parsed, err := UnmarshalChecksumAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr, parsed)

	parsed, err = UnmarshalChecksumAddress(strings.ToLower(addr.String()))
	require.NoError(t, err)
	require.Equal(t, addr, parsed)
}

func TestAddressChecksumMalformed(t *testing.T) {
	partitiontest.PartitionTest(t)

	// EIP-55 reference vector with one letter's case flipped
	_, err := UnmarshalChecksumAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)
	_, err = UnmarshalChecksumAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD")
	require.Error(t, err)

	_, err = UnmarshalChecksumAddress("")
	require.Error(t, err)
	_, err = UnmarshalChecksumAddress("0x1234")
	require.Error(t, err)
	_, err = UnmarshalChecksumAddress(" 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.Error(t, err)
}

type testOb struct {
	Aaaa Address `json:"aaaa"`
}

func TestAddressMarshalUnmarshal(t *testing.T) {
	partitiontest.PartitionTest(t)

	ob := testOb{Aaaa: Address{9, 8, 7}}
	data, err := json.Marshal(ob)
	require.NoError(t, err)

	var back testOb
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, ob, back)
	require.False(t, back.Aaaa.IsZero())
	require.True(t, Address{}.IsZero())
}
