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

// Package eval applies operations to the ledger: it admits, authorizes,
// executes and commits them one at a time.
package eval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/crypto"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/apply"
	"github.com/irfanm0/erc4337/ledger/contracts"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/ledger/sponsor"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/util/metrics"
)

var operationsTotal = metrics.MakeCounter(metrics.OperationsTotal)
var delegatedCallsTotal = metrics.MakeCounter(metrics.DelegatedCallsTotal)
var batchCallsTotal = metrics.MakeCounter(metrics.BatchCallsTotal)

// LedgerForEvaluator defines the ledger interface needed by the evaluator.
type LedgerForEvaluator interface {
	LookupAccount(addr basics.Address) (ledgercore.AccountData, bool, error)
	LookupSessionKey(account, delegate basics.Address) (ledgercore.SessionKey, bool, error)
	BalanceOf(addr basics.Address) (basics.Wei, error)
	LookupExecuted(id operation.OpID) (uint64, bool, error)
	CommitDelta(ctx context.Context, delta ledgercore.StateDelta) error
}

// SponsorGates finds the gate of a sponsor.
type SponsorGates interface {
	Gate(sponsor basics.Address) (*sponsor.Gate, bool)
}

// ledgerBase adapts a LedgerForEvaluator to the bottom of a cow stack.
type ledgerBase struct {
	l LedgerForEvaluator
}

func (x ledgerBase) lookup(addr basics.Address) (ledgercore.AccountData, bool, error) {
	return x.l.LookupAccount(addr)
}

func (x ledgerBase) lookupSessionKey(account, delegate basics.Address) (ledgercore.SessionKey, bool, error) {
	return x.l.LookupSessionKey(account, delegate)
}

func (x ledgerBase) balance(addr basics.Address) (basics.Wei, error) {
	return x.l.BalanceOf(addr)
}

// Evaluator applies operations. It is not safe for concurrent use: callers
// provide the total order operations are applied in.
type Evaluator struct {
	ledger   LedgerForEvaluator
	sponsors SponsorGates
	machine  *contracts.Machine
	params   config.Params
	log      logging.Logger
}

// MakeEvaluator creates an Evaluator over l.
func MakeEvaluator(l LedgerForEvaluator, sponsors SponsorGates, machine *contracts.Machine, params config.Params, log logging.Logger) *Evaluator {
	return &Evaluator{
		ledger:   l,
		sponsors: sponsors,
		machine:  machine,
		params:   params,
		log:      log,
	}
}

// session is the per-operation wiring of runtime and executor.
type session struct {
	cow      *opCowState
	executor *apply.Executor
}

func (e *Evaluator) newSession(now uint64) session {
	rt := e.machine.At(now)
	ex := apply.MakeExecutor(rt, e.log)
	rt.SetDelegator(ex)
	return session{cow: makeOpCowState(ledgerBase{l: e.ledger}), executor: ex}
}

func newReceipt(account basics.Address) ledgercore.Receipt {
	return ledgercore.Receipt{ID: uuid.NewString(), Account: account}
}

func (e *Evaluator) finish(counter *metrics.Counter, r ledgercore.Receipt, err error) ledgercore.Receipt {
	r.Code, r.Reason = ledgercore.ClassifyError(err)
	counter.Inc(map[string]string{"code": r.Code.String()})
	fields := logging.Fields{"account": r.Account.String(), "receipt": r.ID, "code": r.Code.String()}
	if r.Code == ledgercore.Success {
		e.log.WithFields(fields).Debug("operation applied")
	} else {
		fields["reason"] = r.Reason
		e.log.WithFields(fields).Info("operation not applied")
	}
	return r
}

// Apply runs a signed operation at time now and commits its effects. The
// outcome, including every rejection, is reported in the receipt.
//
// Validation (shape, sponsorship, authority, replay counter) happens before
// anything is written. A batch that fails leaves no trace except what the
// coordinator was paid: the account's shortfall, or for a sponsored operation
// the actual cost, taken from the sponsor.
func (e *Evaluator) Apply(ctx context.Context, sop operation.SignedOperation, now uint64) ledgercore.Receipt {
	op := sop.Op
	r := newReceipt(op.Account)
	r.OpID = op.ID()
	r.Sponsored = op.Sponsored()

	if err := op.WellFormed(e.params); err != nil {
		return e.finish(operationsTotal, r, err)
	}

	var gate *sponsor.Gate
	if op.Sponsored() {
		var ok bool
		gate, ok = e.sponsors.Gate(op.Sponsor)
		if !ok {
			return e.finish(operationsTotal, r, ledgercore.PolicyError{Constraint: ledgercore.ConstraintUnknownSponsor, Detail: op.Sponsor.String()})
		}
		if err := gate.Admit(op.Account, op.DeclaredCost, op.FeeRate); err != nil {
			return e.finish(operationsTotal, r, err)
		}
	}

	s := e.newSession(now)
	res, err := apply.ResolveAuthority(s.cow, op.Account, apply.AuthRequest{
		Digest:    crypto.Digest(r.OpID),
		Signature: sop.Sig,
		Caller:    op.Coordinator,
		Now:       now,
	})
	if err != nil {
		return e.finish(operationsTotal, r, err)
	}
	if res.Class != apply.Owner && res.Class != apply.Platform {
		reason := res.Reason
		if reason == "" {
			reason = fmt.Sprintf("operations must be signed by an authority, caller resolved to %v", res.Class)
		}
		return e.finish(operationsTotal, r, ledgercore.UnauthorizedError{Account: op.Account, Reason: reason})
	}

	data, _, err := s.cow.Get(op.Account)
	if err != nil {
		return e.finish(operationsTotal, r, ledgercore.StoreError{Err: err})
	}
	if !data.Coordinator.IsZero() && data.Coordinator != op.Coordinator {
		return e.finish(operationsTotal, r, ledgercore.UnauthorizedError{Account: op.Account, Reason: fmt.Sprintf("coordinator %v is not the account's entry point", op.Coordinator)})
	}
	if op.Nonce != data.Counter {
		e.log.Debugf("operation for %v has nonce %d, counter is %d", op.Account, op.Nonce, data.Counter)
		return e.finish(operationsTotal, r, ledgercore.InvariantError{Invariant: ledgercore.InvariantCounterMismatch, Account: op.Account})
	}

	// a sponsored operation is funded by the sponsor, the account's own
	// shortfall is only settled when nobody underwrites it
	if gate != nil {
		if err := gate.ChargePrefund(s.cow, op.Coordinator, op.DeclaredCost); err != nil {
			return e.finish(operationsTotal, r, err)
		}
	} else if res.Replenish {
		if err := apply.SettleShortfall(s.cow, op.Account, op.Coordinator, op.MissingFunds); err != nil {
			return e.finish(operationsTotal, r, err)
		}
	}

	completion, gasUsed, execErr := s.executor.ExecuteBatch(s.cow, op.Account, apply.Self, op.Calls)
	cost := basics.AddSaturate(e.params.ValidationGas, gasUsed)
	if cost > op.DeclaredCost {
		cost = op.DeclaredCost
	}
	r.ActualCost = cost

	if gate != nil {
		if err := gate.RefundUnused(s.cow, op.Coordinator, op.DeclaredCost, cost); err != nil {
			return e.finish(operationsTotal, r, err)
		}
	}

	if err := e.ledger.CommitDelta(ctx, s.cow.deltas()); err != nil {
		return e.finish(operationsTotal, r, ledgercore.StoreError{Err: err})
	}
	if execErr != nil {
		return e.finish(operationsTotal, r, execErr)
	}
	r.Completion = &completion
	batchCallsTotal.AddUint64(uint64(completion.Calls), nil)

	if gate != nil {
		gate.RecordUsage(ctx, op.Account, cost)
	}
	e.log.Debugf("operation %v touched %d accounts", r.OpID, len(s.cow.modifiedAccounts()))
	return e.finish(operationsTotal, r, nil)
}

// ApplyDelegated runs a single call a session delegate (or the account
// itself) signed, at time now. The replay counter does not move; instead the
// call's ID is recorded with its effects and refused until the call expires.
func (e *Evaluator) ApplyDelegated(ctx context.Context, sdc operation.SignedDelegatedCall, now uint64) ledgercore.Receipt {
	dc := sdc.Call
	r := newReceipt(dc.Account)
	id := dc.ID()
	r.OpID = id

	if err := dc.WellFormed(e.params); err != nil {
		return e.finish(delegatedCallsTotal, r, err)
	}
	if now > dc.ValidUntil {
		return e.finish(delegatedCallsTotal, r, ledgercore.PolicyError{Constraint: ledgercore.ConstraintCallExpired, Detail: fmt.Sprintf("valid until %d, now %d", dc.ValidUntil, now)})
	}
	_, seen, err := e.ledger.LookupExecuted(id)
	if err != nil {
		return e.finish(delegatedCallsTotal, r, ledgercore.StoreError{Err: err})
	}
	if seen {
		return e.finish(delegatedCallsTotal, r, ledgercore.InvariantError{Invariant: ledgercore.InvariantCallReplayed, Account: dc.Account})
	}
	caller, ok := sdc.Caller()
	if !ok {
		return e.finish(delegatedCallsTotal, r, ledgercore.UnauthorizedError{Account: dc.Account, Reason: "signature does not recover"})
	}

	s := e.newSession(now)
	gas, err := s.executor.ExecuteDelegated(s.cow, dc.Account, caller, dc.Call, now)
	r.ActualCost = gas
	if err != nil {
		return e.finish(delegatedCallsTotal, r, err)
	}
	s.cow.markExecuted(id, dc.ValidUntil)
	if err := e.ledger.CommitDelta(ctx, s.cow.deltas()); err != nil {
		return e.finish(delegatedCallsTotal, r, ledgercore.StoreError{Err: err})
	}
	return e.finish(delegatedCallsTotal, r, nil)
}
