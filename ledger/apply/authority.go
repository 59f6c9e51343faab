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

package apply

import (
	"fmt"

	"github.com/irfanm0/erc4337/crypto"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
)

// AuthorityClass is the permission level a caller resolves to for an account.
type AuthorityClass int

const (
	// Unauthorized is the zero value so an unset class never grants anything.
	Unauthorized AuthorityClass = iota
	// Owner signed with the account's merchant key.
	Owner
	// Platform signed with the account's platform key.
	Platform
	// Self is the account calling itself.
	Self
	// SessionDelegate holds an active, unexpired session key of the account.
	SessionDelegate
)

func (c AuthorityClass) String() string {
	switch c {
	case Owner:
		return "Owner"
	case Platform:
		return "Platform"
	case Self:
		return "Self"
	case SessionDelegate:
		return "SessionDelegate"
	default:
		return "Unauthorized"
	}
}

// AuthRequest is what a caller presents for an account. The signer is never
// taken from the request; it is recovered from Digest and Signature.
type AuthRequest struct {
	Digest    crypto.Digest
	Signature crypto.Signature
	Caller    basics.Address
	Now       uint64
}

// Resolution is the outcome of ResolveAuthority.
type Resolution struct {
	Class AuthorityClass

	// Signer is the recovered signer, if the signature recovered at all.
	Signer basics.Address

	// Replenish asks for the resolving operation's funding shortfall to be
	// paid from the account to the immediate caller. Only signer classes set it.
	Replenish bool

	// SessionKey is the key that made the caller a SessionDelegate.
	SessionKey ledgercore.SessionKey

	// Reason explains an Unauthorized resolution.
	Reason string
}

type resolveContext struct {
	balances Balances
	account  basics.Address
	data     ledgercore.AccountData
	req      AuthRequest

	signer    basics.Address
	recovered bool
	key       ledgercore.SessionKey
}

type authorityRule struct {
	class     AuthorityClass
	replenish bool
	match     func(ctx *resolveContext) (bool, error)
}

// authorityPrecedence is evaluated top to bottom; the first matching rule wins.
// The platform key is accepted as a second owner-equivalent signer so that an
// account whose merchant key is lost can still be operated.
var authorityPrecedence = []authorityRule{
	{class: Owner, replenish: true, match: signedBy(func(ad ledgercore.AccountData) basics.Address { return ad.Merchant })},
	{class: Platform, replenish: true, match: signedBy(func(ad ledgercore.AccountData) basics.Address { return ad.Platform })},
	{class: Self, match: callerIsAccount},
	{class: SessionDelegate, match: callerHoldsSessionKey},
}

func signedBy(authority func(ledgercore.AccountData) basics.Address) func(*resolveContext) (bool, error) {
	return func(ctx *resolveContext) (bool, error) {
		want := authority(ctx.data)
		return ctx.recovered && !want.IsZero() && ctx.signer == want, nil
	}
}

func callerIsAccount(ctx *resolveContext) (bool, error) {
	return ctx.req.Caller == ctx.account, nil
}

func callerHoldsSessionKey(ctx *resolveContext) (bool, error) {
	if ctx.req.Caller.IsZero() {
		return false, nil
	}
	key, ok, err := ctx.balances.GetSessionKey(ctx.account, ctx.req.Caller)
	if err != nil || !ok {
		return false, err
	}
	ctx.key = key
	return key.Valid(ctx.req.Now), nil
}

// ResolveAuthority classifies req for account. An Unauthorized resolution is a
// normal result; the error is reserved for failures to read state.
func ResolveAuthority(balances Balances, account basics.Address, req AuthRequest) (Resolution, error) {
	data, ok, err := balances.Get(account)
	if err != nil {
		return Resolution{}, ledgercore.StoreError{Err: err}
	}
	if !ok {
		return Resolution{Class: Unauthorized, Reason: "unknown account"}, nil
	}

	ctx := resolveContext{balances: balances, account: account, data: data, req: req}
	if len(req.Signature) > 0 {
		ctx.signer, ctx.recovered = crypto.RecoverSigner(req.Digest, req.Signature)
	}

	for _, rule := range authorityPrecedence {
		matched, err := rule.match(&ctx)
		if err != nil {
			return Resolution{}, ledgercore.StoreError{Err: err}
		}
		if matched {
			return Resolution{
				Class:      rule.class,
				Signer:     ctx.signer,
				Replenish:  rule.replenish,
				SessionKey: ctx.key,
			}, nil
		}
	}

	res := Resolution{Class: Unauthorized, Signer: ctx.signer}
	switch {
	case len(req.Signature) > 0 && !ctx.recovered:
		res.Reason = "signature does not recover"
	case ctx.recovered:
		res.Reason = fmt.Sprintf("signer %v is not an authority of the account", ctx.signer)
	case ctx.key != (ledgercore.SessionKey{}):
		res.Reason = "session key inactive or expired"
	default:
		res.Reason = "caller has no authority over the account"
	}
	return res, nil
}

// SettleShortfall pays amount from account to caller. It is only used for the
// operation whose resolution asked for it.
func SettleShortfall(balances Balances, account, caller basics.Address, amount basics.Wei) error {
	if amount.IsZero() {
		return nil
	}
	if err := balances.Move(account, caller, amount); err != nil {
		return ledgercore.PolicyError{Constraint: ledgercore.ConstraintPrefund, Detail: err.Error()}
	}
	return nil
}
