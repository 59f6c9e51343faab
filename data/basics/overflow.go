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
	"github.com/holiman/uint256"
	"golang.org/x/exp/constraints"
)

// OverflowTracker is used to track when an operation causes an overflow
type OverflowTracker struct {
	Overflowed bool
}

// OAdd adds 2 values with overflow detection
func OAdd[T constraints.Unsigned](a, b T) (res T, overflowed bool) {
	res = a + b
	overflowed = res < a
	return
}

// OSub subtracts b from a with overflow detection
func OSub[T constraints.Unsigned](a, b T) (res T, overflowed bool) {
	res = a - b
	overflowed = res > a
	return
}

// OMul multiplies 2 values with overflow detection
func OMul[T constraints.Unsigned](a, b T) (res T, overflowed bool) {
	if b == 0 {
		return 0, false
	}

	c := a * b
	if c/b != a {
		return 0, true
	}
	return c, false
}

// MulSaturate multiplies 2 values with saturation on overflow
func MulSaturate[T constraints.Unsigned](a, b T) T {
	res, overflowed := OMul(a, b)
	if overflowed {
		var defaultT T
		return ^defaultT
	}
	return res
}

// AddSaturate adds 2 values with saturation on overflow
func AddSaturate[T constraints.Unsigned](a, b T) T {
	res, overflowed := OAdd(a, b)
	if overflowed {
		var defaultT T
		return ^defaultT
	}
	return res
}

// Add adds 2 values with overflow detection
func (t *OverflowTracker) Add(a, b uint64) uint64 {
	res, overflowed := OAdd(a, b)
	if overflowed {
		t.Overflowed = true
	}
	return res
}

// Mul multiplies b by a with overflow detection
func (t *OverflowTracker) Mul(a, b uint64) uint64 {
	res, overflowed := OMul(a, b)
	if overflowed {
		t.Overflowed = true
	}
	return res
}

// OAddW adds 2 Wei values with overflow detection
func OAddW(a, b Wei) (res Wei, overflowed bool) {
	_, overflowed = (*uint256.Int)(&res).AddOverflow(a.u(), b.u())
	return
}

// OSubW subtracts b from a with underflow detection
func OSubW(a, b Wei) (res Wei, overflowed bool) {
	_, overflowed = (*uint256.Int)(&res).SubOverflow(a.u(), b.u())
	return
}

// OMulW multiplies a Wei amount by a scalar with overflow detection
func OMulW(a Wei, b uint64) (res Wei, overflowed bool) {
	_, overflowed = (*uint256.Int)(&res).MulOverflow(a.u(), uint256.NewInt(b))
	return
}

// AddW adds 2 Wei values with overflow tracking
func (t *OverflowTracker) AddW(a, b Wei) Wei {
	res, overflowed := OAddW(a, b)
	if overflowed {
		t.Overflowed = true
	}
	return res
}

// SubW subtracts b from a with overflow tracking
func (t *OverflowTracker) SubW(a, b Wei) Wei {
	res, overflowed := OSubW(a, b)
	if overflowed {
		t.Overflowed = true
	}
	return res
}

// MinW returns the smaller of 2 Wei values
func MinW(a, b Wei) Wei {
	if a.LessThan(b) {
		return a
	}
	return b
}
