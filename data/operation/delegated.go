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
	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/crypto"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/protocol"
)

// DelegatedCall is a single call a session delegate asks an account to make.
// The delegate is identified by the key that signs it, never by a field.
//
// Delegated calls do not use the account's replay counter. Each one is
// executed at most once: its ID is remembered until ValidUntil passes, and
// after that the call is refused as expired.
type DelegatedCall struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Account basics.Address `codec:"acct"`
	Call    Call           `codec:"call"`

	// Nonce is chosen by the delegate so that two otherwise equal calls
	// have different IDs.
	Nonce uint64 `codec:"nonce"`

	// ValidUntil is the last unix second the call may be executed at.
	ValidUntil uint64 `codec:"until"`
}

// SignedDelegatedCall carries the delegate's signature.
type SignedDelegatedCall struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Call DelegatedCall    `codec:"dc"`
	Sig  crypto.Signature `codec:"sig"`
}

// ToBeHashed implements the crypto.Hashable interface.
func (dc DelegatedCall) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.DelegatedCall, protocol.Encode(&dc)
}

// ID identifies the call for replay detection.
func (dc DelegatedCall) ID() OpID {
	return OpID(crypto.HashObj(dc))
}

// WellFormed checks the shape of the call without looking at any state.
func (dc DelegatedCall) WellFormed(params config.Params) error {
	if dc.Account.IsZero() {
		return MalformedError("delegated call has no account")
	}
	if dc.ValidUntil == 0 {
		return MalformedError("delegated call has no expiry")
	}
	return dc.Call.WellFormed(params)
}

// Sign signs the delegated call with the delegate's key.
func (dc DelegatedCall) Sign(secrets *crypto.SignatureSecrets) (SignedDelegatedCall, error) {
	sig, err := secrets.Sign(dc)
	if err != nil {
		return SignedDelegatedCall{}, err
	}
	return SignedDelegatedCall{Call: dc, Sig: sig}, nil
}

// Caller recovers the identity that signed the delegated call.
func (sdc SignedDelegatedCall) Caller() (basics.Address, bool) {
	return crypto.RecoverSigner(crypto.HashObj(sdc.Call), sdc.Sig)
}
