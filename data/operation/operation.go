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
	"fmt"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/crypto"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/protocol"
)

// OpID is a hash used to uniquely identify individual operations
type OpID crypto.Digest

// String converts the id to a pretty-printable string
func (id OpID) String() string {
	return crypto.Digest(id).String()
}

// Call is one external call: a value transfer to Target together with an
// opaque payload. A call whose Target is the executing account itself carries
// an AdminCall payload.
type Call struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Target  basics.Address `codec:"to"`
	Value   basics.Wei     `codec:"val"`
	Payload []byte         `codec:"data"`
}

// Operation is what the coordinator presents on behalf of an account: an
// ordered batch of calls, the cost bounds the submitter declares and an
// optional sponsor that underwrites the cost.
type Operation struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	// Account is the programmable account the calls run as.
	Account basics.Address `codec:"acct"`

	// Coordinator is the entry point submitting the operation. It is part of
	// the signed hash so an operation cannot be replayed through another coordinator.
	Coordinator basics.Address `codec:"coord"`

	// Nonce must equal the account's replay counter.
	Nonce uint64 `codec:"nonce"`

	Calls []Call `codec:"calls"`

	// DeclaredCost is the gas bound the submitter commits to.
	DeclaredCost basics.Gas `codec:"gas"`

	// FeeRate is the declared price per unit of gas.
	FeeRate basics.Wei `codec:"fee"`

	// MissingFunds is the execution-funding shortfall to settle to the coordinator.
	MissingFunds basics.Wei `codec:"prefund"`

	// Sponsor, if nonzero, is asked to underwrite the operation's cost.
	Sponsor basics.Address `codec:"sponsor"`
}

// SignedOperation is an Operation together with the signature over its hash.
type SignedOperation struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Op  Operation        `codec:"op"`
	Sig crypto.Signature `codec:"sig"`
}

// ToBeHashed implements the crypto.Hashable interface.
func (op Operation) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.Operation, protocol.Encode(&op)
}

// ID returns the hash that signatures are computed over.
func (op Operation) ID() OpID {
	return OpID(crypto.HashObj(op))
}

// Sponsored reports whether the operation names a sponsor.
func (op Operation) Sponsored() bool {
	return !op.Sponsor.IsZero()
}

// Sign signs the operation and returns the SignedOperation.
func (op Operation) Sign(secrets *crypto.SignatureSecrets) (SignedOperation, error) {
	sig, err := secrets.Sign(op)
	if err != nil {
		return SignedOperation{}, err
	}
	return SignedOperation{Op: op, Sig: sig}, nil
}

// WellFormed checks the operation for structural problems that need no state.
func (op Operation) WellFormed(params config.Params) error {
	if op.Account.IsZero() {
		return MalformedError("operation has no account")
	}
	if len(op.Calls) > params.MaxBatchCalls {
		return makeMalformedErrorf("operation has %d calls, limit %d", len(op.Calls), params.MaxBatchCalls)
	}
	for i, call := range op.Calls {
		if err := call.WellFormed(params); err != nil {
			return fmt.Errorf("call %d: %w", i, err)
		}
	}
	return nil
}

// WellFormed checks a single call.
func (c Call) WellFormed(params config.Params) error {
	if c.Target.IsZero() {
		return MalformedError("call has no target")
	}
	if len(c.Payload) > params.MaxPayloadBytes {
		return makeMalformedErrorf("payload of %d bytes exceeds %d", len(c.Payload), params.MaxPayloadBytes)
	}
	return nil
}
