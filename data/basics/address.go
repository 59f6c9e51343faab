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
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type (
	// Address identifies an account, a signer, a delegate or a call target.
	Address common.Address
)

// UnmarshalChecksumAddress parses a 0x-prefixed hex address. Mixed-case input
// must carry a valid EIP-55 checksum; all-lower or all-upper input is accepted as is.
func UnmarshalChecksumAddress(address string) (Address, error) {
	if !common.IsHexAddress(address) {
		return Address{}, fmt.Errorf("failed to decode address %s", address)
	}
	addr := Address(common.HexToAddress(address))
	body := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if addr.String() != "0x"+body {
			return Address{}, fmt.Errorf("address %s is malformed, checksum verification failed", address)
		}
	}
	return addr, nil
}

// IsZero checks if an address is the zero value.
func (addr Address) IsZero() bool {
	return addr == Address{}
}

// String returns the EIP-55 checksummed representation of Address
func (addr Address) String() string {
	return common.Address(addr).Hex()
}

// MarshalText returns the address string as an array of bytes
func (addr Address) MarshalText() ([]byte, error) {
	return []byte(addr.String()), nil
}

// UnmarshalText initializes the Address from an array of bytes.
func (addr *Address) UnmarshalText(text []byte) error {
	address, err := UnmarshalChecksumAddress(string(text))
	if err == nil {
		*addr = address
		return nil
	}
	return err
}
