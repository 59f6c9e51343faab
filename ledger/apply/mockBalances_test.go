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
	"errors"
	"fmt"
	"maps"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
)

type mockBalances struct {
	parent *mockBalances
	accts  map[basics.Address]ledgercore.AccountData
	keys   map[ledgercore.SessionKeyRef]ledgercore.SessionKey
	bals   map[basics.Address]basics.Wei
}

// makeMockBalances returns an empty mocked balances with no parent
func makeMockBalances() *mockBalances {
	return &mockBalances{
		accts: make(map[basics.Address]ledgercore.AccountData),
		keys:  make(map[ledgercore.SessionKeyRef]ledgercore.SessionKey),
		bals:  make(map[basics.Address]basics.Wei),
	}
}

func (mb *mockBalances) Get(addr basics.Address) (ledgercore.AccountData, bool, error) {
	ad, ok := mb.accts[addr]
	return ad, ok, nil
}

func (mb *mockBalances) Put(addr basics.Address, ad ledgercore.AccountData) error {
	mb.accts[addr] = ad
	return nil
}

func (mb *mockBalances) GetSessionKey(account, delegate basics.Address) (ledgercore.SessionKey, bool, error) {
	sk, ok := mb.keys[ledgercore.SessionKeyRef{Account: account, Delegate: delegate}]
	return sk, ok, nil
}

func (mb *mockBalances) PutSessionKey(account, delegate basics.Address, sk ledgercore.SessionKey) error {
	mb.keys[ledgercore.SessionKeyRef{Account: account, Delegate: delegate}] = sk
	return nil
}

func (mb *mockBalances) BalanceOf(addr basics.Address) (basics.Wei, error) {
	return mb.bals[addr], nil
}

func (mb *mockBalances) Move(src, dst basics.Address, amount basics.Wei) error {
	from, overflowed := basics.OSubW(mb.bals[src], amount)
	if overflowed {
		return fmt.Errorf("overspend: %v has %v, needs %v", src, mb.bals[src], amount)
	}
	mb.bals[src] = from
	to, overflowed := basics.OAddW(mb.bals[dst], amount)
	if overflowed {
		return errors.New("balance overflow")
	}
	mb.bals[dst] = to
	return nil
}

func (mb *mockBalances) Child() Child {
	return &mockBalances{
		parent: mb,
		accts:  maps.Clone(mb.accts),
		keys:   maps.Clone(mb.keys),
		bals:   maps.Clone(mb.bals),
	}
}

func (mb *mockBalances) Commit() {
	mb.parent.accts = mb.accts
	mb.parent.keys = mb.keys
	mb.parent.bals = mb.bals
}

// mockRuntime moves value and fails calls to targets listed in fail.
type mockRuntime struct {
	fail  map[basics.Address]error
	hooks map[basics.Address]func(Balances) error
	calls int
}

func makeMockRuntime() *mockRuntime {
	return &mockRuntime{
		fail:  make(map[basics.Address]error),
		hooks: make(map[basics.Address]func(Balances) error),
	}
}

func (rt *mockRuntime) Call(balances Balances, caller basics.Address, call operation.Call) (basics.Gas, error) {
	rt.calls++
	if err := balances.Move(caller, call.Target, call.Value); err != nil {
		return 21000, err
	}
	if hook, ok := rt.hooks[call.Target]; ok {
		if err := hook(balances); err != nil {
			return 21000, err
		}
	}
	return 21000, rt.fail[call.Target]
}

func (rt *mockRuntime) IntrinsicGas(call operation.Call) basics.Gas {
	return 21000
}
