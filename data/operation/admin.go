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

package operation

import (
	"bytes"
	"fmt"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/protocol"
)

// AdminAction names a self-administration entry point of an account.
type AdminAction string

const (
	// GrantSessionKey creates or overwrites the session key of Delegate.
	GrantSessionKey AdminAction = "grantSessionKey"
	// RevokeSessionKey deactivates the session key of Delegate.
	RevokeSessionKey AdminAction = "revokeSessionKey"
	// SetPlatform replaces the platform authority with Authority.
	SetPlatform AdminAction = "setPlatform"
	// SetMerchant replaces the owning authority with Authority.
	SetMerchant AdminAction = "setMerchant"
)

// AdminCall is the payload of a call an account makes to itself.
type AdminCall struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Action     AdminAction    `codec:"act"`
	Delegate   basics.Address `codec:"dlg"`
	ValidUntil uint64         `codec:"until"`
	MaxValue   basics.Wei     `codec:"max"`
	Authority  basics.Address `codec:"auth"`
}

// Encode returns the call payload: the AdminCall hash id followed by the canonical encoding.
func (ac AdminCall) Encode() []byte {
	return append([]byte(protocol.AdminCall), protocol.Encode(&ac)...)
}

// SelfCall wraps the admin call into a zero-value call targeting account.
func (ac AdminCall) SelfCall(account basics.Address) Call {
	return Call{Target: account, Payload: ac.Encode()}
}

// DecodeAdminCall parses a self-call payload.
func DecodeAdminCall(payload []byte) (AdminCall, error) {
	prefix := []byte(protocol.AdminCall)
	if !bytes.HasPrefix(payload, prefix) {
		return AdminCall{}, MalformedError("self-call payload is not an admin call")
	}
	var ac AdminCall
	if err := protocol.Decode(payload[len(prefix):], &ac); err != nil {
		return AdminCall{}, makeMalformedErrorf("self-call payload: %v", err)
	}
	switch ac.Action {
	case GrantSessionKey, RevokeSessionKey:
		if ac.Delegate.IsZero() {
			return AdminCall{}, makeMalformedErrorf("%s without delegate", ac.Action)
		}
	case SetPlatform, SetMerchant:
		if ac.Authority.IsZero() {
			return AdminCall{}, makeMalformedErrorf("%s without authority", ac.Action)
		}
	default:
		return AdminCall{}, makeMalformedErrorf("unknown admin action %q", ac.Action)
	}
	return ac, nil
}

// String describes the call for logs.
func (ac AdminCall) String() string {
	switch ac.Action {
	case GrantSessionKey:
		return fmt.Sprintf("%s(%v, until=%d, max=%v)", ac.Action, ac.Delegate, ac.ValidUntil, ac.MaxValue)
	case RevokeSessionKey:
		return fmt.Sprintf("%s(%v)", ac.Action, ac.Delegate)
	default:
		return fmt.Sprintf("%s(%v)", ac.Action, ac.Authority)
	}
}
