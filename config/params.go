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

package config

import (
	"github.com/irfanm0/erc4337/data/basics"
)

// Params specifies settings that every evaluator must agree on for
// the outcome sequence to be reproducible from the same ordered input.
type Params struct {
	// MaxBatchCalls bounds the number of calls in one operation
	MaxBatchCalls int

	// MaxPayloadBytes bounds a single call's payload
	MaxPayloadBytes int

	// MaxSponsoredGas is the sponsorship gate's gas ceiling
	MaxSponsoredGas basics.Gas

	// MaxFeeRate is the sponsorship gate's fee-rate ceiling
	MaxFeeRate basics.Wei

	// CallGas is charged once per executed call
	CallGas basics.Gas

	// ZeroByteGas and NonZeroByteGas are charged per payload byte
	ZeroByteGas    basics.Gas
	NonZeroByteGas basics.Gas

	// ValidationGas is charged once per operation for signature recovery
	ValidationGas basics.Gas
}

// DefaultParams returns the parameters a fresh node runs with.
func DefaultParams() Params {
	return Params{
		MaxBatchCalls:   16,
		MaxPayloadBytes: 4096,
		MaxSponsoredGas: 1000000,
		MaxFeeRate:      basics.NewWei(100000000000),
		CallGas:         21000,
		ZeroByteGas:     4,
		NonZeroByteGas:  16,
		ValidationGas:   3000,
	}
}
