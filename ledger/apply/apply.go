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
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
)

// Balances gives access to account records, session keys and native balances.
// After a call to Put (or Move), future calls to Get or BalanceOf reflect the update.
type Balances interface {
	// Get looks up an account. ok is false if the registry never created it.
	// A non-nil error means the lookup is impossible.
	Get(addr basics.Address) (data ledgercore.AccountData, ok bool, err error)

	Put(addr basics.Address, data ledgercore.AccountData) error

	// GetSessionKey returns the key of delegate on account, including tombstones.
	GetSessionKey(account, delegate basics.Address) (ledgercore.SessionKey, bool, error)

	PutSessionKey(account, delegate basics.Address, key ledgercore.SessionKey) error

	// BalanceOf returns the native balance of any address.
	BalanceOf(addr basics.Address) (basics.Wei, error)

	// Move transfers amount from src to dst, doing all necessary overflow checking.
	Move(src, dst basics.Address, amount basics.Wei) error

	// Child returns a copy-on-write view whose writes stay invisible to the
	// receiver until the child is committed.
	Child() Child
}

// Child is a Balances view created by Balances.Child.
type Child interface {
	Balances

	// Commit writes the child's changes into its parent.
	// A child that is never committed is simply dropped.
	Commit()
}

// Runtime executes the external calls of a batch. Errors returned by Call are
// the callee's own failure and must reach the submitter unchanged.
type Runtime interface {
	// Call transfers call.Value from caller to call.Target and runs the target's code, if any.
	Call(balances Balances, caller basics.Address, call operation.Call) (basics.Gas, error)

	// IntrinsicGas is the cost of a call that does not reach the runtime, e.g. a self-call.
	IntrinsicGas(call operation.Call) basics.Gas
}
