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

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/logging"
)

// Executor runs batches and delegated calls against a Balances view.
//
// Calls may re-enter the executor through the runtime before a batch has
// finished. Reentry for an account with a batch in flight is rejected: the
// replay counter of that account is not final yet. The in-flight set is an
// ordering guard for a single-threaded caller, not a lock.
type Executor struct {
	runtime  Runtime
	log      logging.Logger
	inFlight map[basics.Address]struct{}
}

// MakeExecutor creates an Executor calling out through rt.
func MakeExecutor(rt Runtime, log logging.Logger) *Executor {
	return &Executor{
		runtime:  rt,
		log:      log,
		inFlight: make(map[basics.Address]struct{}),
	}
}

// InFlight reports whether account has a batch that has not finished yet.
func (ex *Executor) InFlight(account basics.Address) bool {
	_, busy := ex.inFlight[account]
	return busy
}

func (ex *Executor) enter(account basics.Address) error {
	if ex.InFlight(account) {
		return ledgercore.InvariantError{Invariant: ledgercore.InvariantReentrantBatch, Account: account}
	}
	ex.inFlight[account] = struct{}{}
	return nil
}

func (ex *Executor) leave(account basics.Address) {
	delete(ex.inFlight, account)
}

// ExecuteBatch runs calls in order as account. Only Self may batch: a batch
// has no per-call value cap. Either every call succeeds, the replay counter
// advances by exactly one and the changes reach balances, or nothing does and
// the failing call's error is returned as is.
func (ex *Executor) ExecuteBatch(balances Balances, account basics.Address, authority AuthorityClass, calls []operation.Call) (ledgercore.CompletionRecord, basics.Gas, error) {
	if authority != Self {
		return ledgercore.CompletionRecord{}, 0, ledgercore.UnauthorizedError{Account: account, Reason: fmt.Sprintf("batch requires Self authority, have %v", authority)}
	}
	if err := ex.enter(account); err != nil {
		return ledgercore.CompletionRecord{}, 0, err
	}
	defer ex.leave(account)

	cow := balances.Child()
	var gasUsed basics.Gas
	for i, call := range calls {
		used, err := ex.execute(cow, account, call)
		gasUsed = basics.AddSaturate(gasUsed, used)
		if err != nil {
			ex.log.Debugf("batch for %v aborted at call %d of %d: %v", account, i, len(calls), err)
			return ledgercore.CompletionRecord{}, gasUsed, err
		}
	}

	data, ok, err := cow.Get(account)
	if err != nil {
		return ledgercore.CompletionRecord{}, gasUsed, ledgercore.StoreError{Err: err}
	}
	if !ok {
		return ledgercore.CompletionRecord{}, gasUsed, ledgercore.UnauthorizedError{Account: account, Reason: "unknown account"}
	}
	next, overflowed := basics.OAdd(data.Counter, 1)
	if overflowed {
		return ledgercore.CompletionRecord{}, gasUsed, ledgercore.InvariantError{Invariant: ledgercore.InvariantCounterOverflow, Account: account}
	}

	record := ledgercore.CompletionRecord{Account: account, Counter: data.Counter, Calls: len(calls)}
	data.Counter = next
	if err := cow.Put(account, data); err != nil {
		return ledgercore.CompletionRecord{}, gasUsed, ledgercore.StoreError{Err: err}
	}
	cow.Commit()
	return record, gasUsed, nil
}

// ExecuteDelegated runs one call for caller, who must resolve to Self or
// SessionDelegate on account at now. A SessionDelegate's call value must not
// exceed the key's MaxValue and may not target the account itself, so a
// session key can never grant further keys. The replay counter is untouched.
func (ex *Executor) ExecuteDelegated(balances Balances, account, caller basics.Address, call operation.Call, now uint64) (basics.Gas, error) {
	res, err := ResolveAuthority(balances, account, AuthRequest{Caller: caller, Now: now})
	if err != nil {
		return 0, err
	}
	switch res.Class {
	case Self:
	case SessionDelegate:
		if call.Target == account {
			return 0, ledgercore.UnauthorizedError{Account: account, Reason: "session delegate cannot call the account itself"}
		}
		if !call.Value.LessEq(res.SessionKey.MaxValue) {
			return 0, ledgercore.PolicyError{
				Constraint: ledgercore.ConstraintSessionValueCap,
				Detail:     fmt.Sprintf("value %v > max %v", call.Value, res.SessionKey.MaxValue),
			}
		}
	default:
		return 0, ledgercore.UnauthorizedError{Account: account, Reason: res.Reason}
	}

	if err := ex.enter(account); err != nil {
		return 0, err
	}
	defer ex.leave(account)

	cow := balances.Child()
	used, err := ex.execute(cow, account, call)
	if err != nil {
		return used, err
	}
	cow.Commit()
	return used, nil
}

func (ex *Executor) execute(balances Balances, account basics.Address, call operation.Call) (basics.Gas, error) {
	if call.Target == account {
		return ex.runtime.IntrinsicGas(call), applySelfCall(balances, account, call)
	}
	return ex.runtime.Call(balances, account, call)
}
