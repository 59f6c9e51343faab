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
	"github.com/irfanm0/erc4337/crypto"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/protocol"
)

// SponsorAction names an administrative action on a sponsorship gate.
type SponsorAction string

const (
	// WhitelistAdd lets the sponsor underwrite Account.
	WhitelistAdd SponsorAction = "whitelist"
	// WhitelistRemove stops underwriting Account.
	WhitelistRemove SponsorAction = "unwhitelist"
	// ShutdownSponsor refuses every admission until resumed.
	ShutdownSponsor SponsorAction = "shutdown"
	// ResumeSponsor lifts a shutdown.
	ResumeSponsor SponsorAction = "resume"
	// WithdrawFunds moves Amount from the sponsor to Recipient.
	WithdrawFunds SponsorAction = "withdraw"
)

// SponsorCommand is an administrative request to a sponsorship gate. The
// admin is whoever signed it.
type SponsorCommand struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Sponsor   basics.Address `codec:"sponsor"`
	Action    SponsorAction  `codec:"act"`
	Account   basics.Address `codec:"acct"`
	Recipient basics.Address `codec:"rcv"`
	Amount    basics.Wei     `codec:"amt"`

	// ValidUntil is the last unix second the command may be executed at.
	ValidUntil uint64 `codec:"until"`
}

// SignedSponsorCommand carries the admin's signature.
type SignedSponsorCommand struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Cmd SponsorCommand   `codec:"cmd"`
	Sig crypto.Signature `codec:"sig"`
}

// ToBeHashed implements the crypto.Hashable interface.
func (c SponsorCommand) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.SponsorAdmin, protocol.Encode(&c)
}

// ID identifies the command for replay detection.
func (c SponsorCommand) ID() OpID {
	return OpID(crypto.HashObj(c))
}

// Sign signs the command with the admin key.
func (c SponsorCommand) Sign(secrets *crypto.SignatureSecrets) (SignedSponsorCommand, error) {
	sig, err := secrets.Sign(c)
	if err != nil {
		return SignedSponsorCommand{}, err
	}
	return SignedSponsorCommand{Cmd: c, Sig: sig}, nil
}

// Admin recovers the identity that signed the command.
func (s SignedSponsorCommand) Admin() (basics.Address, bool) {
	return crypto.RecoverSigner(crypto.HashObj(s.Cmd), s.Sig)
}

// WellFormed checks the command's fields against its action.
func (c SponsorCommand) WellFormed() error {
	if c.Sponsor.IsZero() {
		return MalformedError("sponsor command has no sponsor")
	}
	switch c.Action {
	case WhitelistAdd, WhitelistRemove:
		if c.Account.IsZero() {
			return makeMalformedErrorf("%s without account", c.Action)
		}
	case ShutdownSponsor, ResumeSponsor:
	case WithdrawFunds:
		if c.Recipient.IsZero() {
			return makeMalformedErrorf("%s without recipient", c.Action)
		}
	default:
		return makeMalformedErrorf("unknown sponsor action %q", c.Action)
	}
	return nil
}
