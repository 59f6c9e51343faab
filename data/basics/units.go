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

	"github.com/holiman/uint256"
)

// Wei is an unsigned 256-bit amount of the native currency. It is a value type:
// two Wei are equal iff == holds.
type Wei uint256.Int

// Gas counts execution units. Declared and actual operation costs are expressed in Gas.
type Gas uint64

// NewWei returns v as a Wei amount.
func NewWei(v uint64) Wei {
	return Wei(*uint256.NewInt(v))
}

// ParseWei parses a decimal or 0x-prefixed hex amount.
func ParseWei(s string) (Wei, error) {
	var w Wei
	if err := w.UnmarshalText([]byte(s)); err != nil {
		return Wei{}, err
	}
	return w, nil
}

func (w *Wei) u() *uint256.Int {
	return (*uint256.Int)(w)
}

// Cmp compares w and o and returns -1, 0 or +1.
func (w Wei) Cmp(o Wei) int {
	return w.u().Cmp(o.u())
}

// LessThan reports whether w < o.
func (w Wei) LessThan(o Wei) bool {
	return w.u().Lt(o.u())
}

// LessEq reports whether w <= o.
func (w Wei) LessEq(o Wei) bool {
	return !o.u().Lt(w.u())
}

// IsZero reports whether w is zero.
func (w Wei) IsZero() bool {
	return w.u().IsZero()
}

// Bytes32 returns the big-endian 32-byte encoding of w.
func (w Wei) Bytes32() [32]byte {
	return w.u().Bytes32()
}

// Uint64 returns the low 64 bits and whether w fits in a uint64.
func (w Wei) Uint64() (uint64, bool) {
	return w.u().Uint64(), w.u().IsUint64()
}

// String returns the decimal representation of w.
func (w Wei) String() string {
	return w.u().Dec()
}

// MarshalText encodes w as a decimal string.
func (w Wei) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText accepts decimal or 0x-prefixed hex.
func (w *Wei) UnmarshalText(text []byte) error {
	s := string(text)
	var parsed *uint256.Int
	var err error
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		parsed, err = uint256.FromHex(s)
	} else {
		parsed, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return fmt.Errorf("bad amount %q: %w", s, err)
	}
	*w = Wei(*parsed)
	return nil
}

// Cost returns gas*rate, the amount charged for gas units at a given fee rate.
func (g Gas) Cost(rate Wei) (Wei, bool) {
	return OMulW(rate, uint64(g))
}

// WeiFromBytes interprets b as a big-endian unsigned integer of at most 32 bytes.
func WeiFromBytes(b []byte) (Wei, error) {
	if len(b) > 32 {
		return Wei{}, fmt.Errorf("amount of %d bytes does not fit in 256 bits", len(b))
	}
	var u uint256.Int
	u.SetBytes(b)
	return Wei(u), nil
}
