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

package ledgercore

import (
	"github.com/irfanm0/erc4337/data/basics"
)

// AccountData describes a programmable account. Accounts are created once by
// the registry and never deleted.
type AccountData struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	// Merchant is the owning authority.
	Merchant basics.Address `codec:"merchant"`

	// Platform is the secondary authority, accepted as a fallback signer.
	Platform basics.Address `codec:"platform"`

	// Label is an opaque registry key, e.g. an email address.
	Label string `codec:"label"`

	// Counter is the replay counter. It only moves forward, by one per accepted batch.
	Counter uint64 `codec:"ctr"`

	// Coordinator is the entry point the account accepts operations from.
	Coordinator basics.Address `codec:"coord"`
}

// SessionKey is a delegated authority granted by an account to one delegate.
// Revocation clears Active and keeps the record.
type SessionKey struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	// ValidUntil is a unix timestamp in seconds, inclusive.
	ValidUntil uint64 `codec:"until"`

	// MaxValue caps the value of each individual call. It is not a budget.
	MaxValue basics.Wei `codec:"max"`

	Active bool `codec:"active"`
}

// Valid reports whether the key is usable at now.
func (sk SessionKey) Valid(now uint64) bool {
	return sk.Active && now <= sk.ValidUntil
}

// SessionKeyRef locates a session key.
type SessionKeyRef struct {
	Account  basics.Address
	Delegate basics.Address
}

// SponsorshipRecord is a sponsor's view of one account.
type SponsorshipRecord struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Whitelisted bool       `codec:"wl"`
	Consumed    basics.Gas `codec:"used"`
}
