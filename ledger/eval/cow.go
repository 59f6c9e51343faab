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

package eval

import (
	"fmt"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/apply"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
)

//   ___________________
// < cow = Copy On Write >
//   -------------------
//          \   ^__^
//           \  (oo)\_______
//              (__)\       )\/\
//                  ||----w |
//                  ||     ||

type opCowParent interface {
	lookup(addr basics.Address) (ledgercore.AccountData, bool, error)
	lookupSessionKey(account, delegate basics.Address) (ledgercore.SessionKey, bool, error)
	balance(addr basics.Address) (basics.Wei, error)
}

// opCowState is the state an operation runs against. Writes land in mods;
// reads fall through to lookupParent.
type opCowState struct {
	lookupParent opCowParent
	commitParent *opCowState
	mods         ledgercore.StateDelta
}

func makeOpCowState(b opCowParent) *opCowState {
	return &opCowState{
		lookupParent: b,
		commitParent: nil,
		mods:         ledgercore.MakeStateDelta(4),
	}
}

func (cb *opCowState) deltas() ledgercore.StateDelta {
	return cb.mods
}

func (cb *opCowState) lookup(addr basics.Address) (ledgercore.AccountData, bool, error) {
	d, ok := cb.mods.Accounts[addr]
	if ok {
		return d, true, nil
	}
	return cb.lookupParent.lookup(addr)
}

func (cb *opCowState) lookupSessionKey(account, delegate basics.Address) (ledgercore.SessionKey, bool, error) {
	sk, ok := cb.mods.SessionKeys[ledgercore.SessionKeyRef{Account: account, Delegate: delegate}]
	if ok {
		return sk, true, nil
	}
	return cb.lookupParent.lookupSessionKey(account, delegate)
}

func (cb *opCowState) balance(addr basics.Address) (basics.Wei, error) {
	bal, ok := cb.mods.Balances[addr]
	if ok {
		return bal, nil
	}
	return cb.lookupParent.balance(addr)
}

// Get implements apply.Balances.
func (cb *opCowState) Get(addr basics.Address) (ledgercore.AccountData, bool, error) {
	return cb.lookup(addr)
}

// Put implements apply.Balances. Accounts are only created by the registry,
// so Put refuses addresses that do not exist yet.
func (cb *opCowState) Put(addr basics.Address, data ledgercore.AccountData) error {
	_, ok, err := cb.lookup(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("put %v: %w", addr, ledgercore.ErrAccountNotFound)
	}
	cb.mods.Accounts[addr] = data
	return nil
}

// GetSessionKey implements apply.Balances.
func (cb *opCowState) GetSessionKey(account, delegate basics.Address) (ledgercore.SessionKey, bool, error) {
	return cb.lookupSessionKey(account, delegate)
}

// PutSessionKey implements apply.Balances.
func (cb *opCowState) PutSessionKey(account, delegate basics.Address, key ledgercore.SessionKey) error {
	cb.mods.SessionKeys[ledgercore.SessionKeyRef{Account: account, Delegate: delegate}] = key
	return nil
}

// BalanceOf implements apply.Balances.
func (cb *opCowState) BalanceOf(addr basics.Address) (basics.Wei, error) {
	return cb.balance(addr)
}

// Move implements apply.Balances.
func (cb *opCowState) Move(src, dst basics.Address, amount basics.Wei) error {
	if src == dst || amount.IsZero() {
		return nil
	}
	from, err := cb.balance(src)
	if err != nil {
		return ledgercore.StoreError{Err: err}
	}
	newFrom, overflowed := basics.OSubW(from, amount)
	if overflowed {
		return fmt.Errorf("overspend (account %v, balance %v, amount %v)", src, from, amount)
	}
	to, err := cb.balance(dst)
	if err != nil {
		return ledgercore.StoreError{Err: err}
	}
	newTo, overflowed := basics.OAddW(to, amount)
	if overflowed {
		return ledgercore.InvariantError{Invariant: ledgercore.InvariantBalanceOverflow, Account: dst}
	}
	cb.mods.Balances[src] = newFrom
	cb.mods.Balances[dst] = newTo
	return nil
}

// Child implements apply.Balances.
func (cb *opCowState) Child() apply.Child {
	return cb.child()
}

func (cb *opCowState) child() *opCowState {
	return &opCowState{
		lookupParent: cb,
		commitParent: cb,
		mods:         ledgercore.MakeStateDelta(2),
	}
}

// Commit implements apply.Child.
func (cb *opCowState) Commit() {
	cb.commitToParent()
}

func (cb *opCowState) commitToParent() {
	cb.commitParent.mods.MergeFrom(cb.mods)
}

// markExecuted remembers a one-shot request until validUntil, committed with
// the rest of the operation's effects.
func (cb *opCowState) markExecuted(id operation.OpID, validUntil uint64) {
	cb.mods.Executed[id] = validUntil
}

func (cb *opCowState) modifiedAccounts() []basics.Address {
	res := make([]basics.Address, 0, len(cb.mods.Accounts))
	for addr := range cb.mods.Accounts {
		res = append(res, addr)
	}
	return res
}
