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

// Package contracts is the in-process runtime that executes the calls of a
// batch: plain value transfers, and Go contracts registered at an address.
package contracts

import (
	"errors"
	"fmt"

	"github.com/algorand/go-deadlock"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/apply"
)

// maxCallDepth bounds nested calls made by contracts.
const maxCallDepth = 64

// ErrCallDepth is returned when contracts nest calls too deep.
var ErrCallDepth = errors.New("call depth exceeded")

// ErrOutOfGas is returned when a contract charges more gas than a call may use.
var ErrOutOfGas = errors.New("out of gas")

// Contract is code bound to an address. A returned error fails the call, and
// its text is what the submitter sees.
type Contract interface {
	Run(env *Env, caller basics.Address, value basics.Wei, payload []byte) error
}

// ContractFunc adapts a function to the Contract interface.
type ContractFunc func(env *Env, caller basics.Address, value basics.Wei, payload []byte) error

// Run implements Contract.
func (f ContractFunc) Run(env *Env, caller basics.Address, value basics.Wei, payload []byte) error {
	return f(env, caller, value, payload)
}

// Delegator runs a call on behalf of an account for a caller holding
// authority over it. *apply.Executor implements it.
type Delegator interface {
	ExecuteDelegated(balances apply.Balances, account, caller basics.Address, call operation.Call, now uint64) (basics.Gas, error)
}

// Machine holds the registered contracts and the gas schedule.
type Machine struct {
	params config.Params

	mu        deadlock.RWMutex
	contracts map[basics.Address]Contract
}

// MakeMachine creates a Machine with no contracts.
func MakeMachine(params config.Params) *Machine {
	return &Machine{
		params:    params,
		contracts: make(map[basics.Address]Contract),
	}
}

// Register binds c to addr. Calls to addr run c after the value moved.
func (m *Machine) Register(addr basics.Address, c Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[addr] = c
}

func (m *Machine) lookup(addr basics.Address) (Contract, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contracts[addr]
	return c, ok
}

// IntrinsicGas is the flat cost of a call plus its payload bytes.
func (m *Machine) IntrinsicGas(call operation.Call) basics.Gas {
	var ot basics.OverflowTracker
	gas := uint64(m.params.CallGas)
	for _, b := range call.Payload {
		if b == 0 {
			gas = ot.Add(gas, uint64(m.params.ZeroByteGas))
		} else {
			gas = ot.Add(gas, uint64(m.params.NonZeroByteGas))
		}
	}
	if ot.Overflowed {
		return basics.Gas(^uint64(0))
	}
	return basics.Gas(gas)
}

// At returns a runtime that runs calls at time now. A runtime serves one
// operation; contracts acting for accounts go through delegator, which may be
// set after creation with SetDelegator.
func (m *Machine) At(now uint64) *Runtime {
	return &Runtime{machine: m, now: now}
}

// Runtime implements apply.Runtime for one operation.
type Runtime struct {
	machine   *Machine
	now       uint64
	delegator Delegator
	depth     int
}

// SetDelegator wires the executor contracts reach accounts through.
func (rt *Runtime) SetDelegator(d Delegator) {
	rt.delegator = d
}

// IntrinsicGas implements apply.Runtime.
func (rt *Runtime) IntrinsicGas(call operation.Call) basics.Gas {
	return rt.machine.IntrinsicGas(call)
}

// Call implements apply.Runtime. The value moves first; a contract at the
// target then runs against a child view that is only committed if it succeeds.
func (rt *Runtime) Call(balances apply.Balances, caller basics.Address, call operation.Call) (basics.Gas, error) {
	gas := rt.IntrinsicGas(call)
	if rt.depth >= maxCallDepth {
		return gas, ErrCallDepth
	}
	rt.depth++
	defer func() { rt.depth-- }()

	cow := balances.Child()
	if err := cow.Move(caller, call.Target, call.Value); err != nil {
		return gas, fmt.Errorf("transfer to %v: %w", call.Target, err)
	}

	if c, ok := rt.machine.lookup(call.Target); ok {
		env := &Env{Balances: cow, Self: call.Target, Now: rt.now, rt: rt}
		err := c.Run(env, caller, call.Value, call.Payload)
		gas = basics.AddSaturate(gas, env.used)
		if err != nil {
			return gas, err
		}
	}
	cow.Commit()
	return gas, nil
}

// Env is what a running contract sees.
type Env struct {
	// Balances is the state the contract runs against.
	Balances apply.Balances

	// Self is the address the contract is bound to.
	Self basics.Address

	// Now is the time of the operation, in unix seconds.
	Now uint64

	rt   *Runtime
	used basics.Gas
}

// UseGas charges gas to the running call.
func (e *Env) UseGas(gas basics.Gas) error {
	used, overflowed := basics.OAdd(e.used, gas)
	if overflowed {
		return ErrOutOfGas
	}
	e.used = used
	return nil
}

// Call makes a nested call from the contract. A failed nested call leaves no
// trace; the contract decides whether that fails its own call.
func (e *Env) Call(call operation.Call) error {
	gas, err := e.rt.Call(e.Balances, e.Self, call)
	e.used = basics.AddSaturate(e.used, gas)
	return err
}

// Act runs call on behalf of account, using whatever authority the contract
// holds over it, usually a session key.
func (e *Env) Act(account basics.Address, call operation.Call) error {
	if e.rt.delegator == nil {
		return fmt.Errorf("contract %v cannot act for %v: no delegator", e.Self, account)
	}
	gas, err := e.rt.delegator.ExecuteDelegated(e.Balances, account, e.Self, call, e.Now)
	e.used = basics.AddSaturate(e.used, gas)
	return err
}
