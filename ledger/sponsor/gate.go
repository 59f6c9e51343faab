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

// Package sponsor decides which operations a sponsor underwrites and keeps
// its accounting.
package sponsor

import (
	"context"
	"fmt"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/ledger/usage"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/util/metrics"
	"github.com/irfanm0/erc4337/util/timers"
)

var refusalsTotal = metrics.MakeCounter(metrics.SponsorRefusalsTotal)
var sponsoredGasTotal = metrics.MakeCounter(metrics.SponsoredGasTotal)
var usageFailuresTotal = metrics.MakeCounter(metrics.UsageRecordFailuresTotal)

// Store is what a Gate reads and writes.
type Store interface {
	usage.Store

	IsShutdown(sponsor basics.Address) (bool, error)
	SetShutdown(ctx context.Context, sponsor basics.Address, shutdown bool) error
	SetWhitelisted(ctx context.Context, sponsor, account basics.Address, whitelisted bool) error

	BalanceOf(addr basics.Address) (basics.Wei, error)
	Transfer(ctx context.Context, from, to basics.Address, amount basics.Wei) error
}

// Gate is the sponsorship gate of one sponsor.
type Gate struct {
	sponsor basics.Address
	admin   basics.Address

	maxGas     basics.Gas
	maxFeeRate basics.Wei

	store Store
	usage *usage.Ledger
	log   logging.Logger
}

// MakeGate creates the gate of sponsor, administered by admin.
func MakeGate(sponsor, admin basics.Address, params config.Params, st Store, clock timers.Clock, log logging.Logger) *Gate {
	log = log.With("sponsor", sponsor.String())
	return &Gate{
		sponsor:    sponsor,
		admin:      admin,
		maxGas:     params.MaxSponsoredGas,
		maxFeeRate: params.MaxFeeRate,
		store:      st,
		usage:      usage.MakeLedger(sponsor, st, clock, log),
		log:        log,
	}
}

// Sponsor returns the address whose balance underwrites admitted operations.
func (g *Gate) Sponsor() basics.Address {
	return g.sponsor
}

// Usage returns the usage ledger the gate records into.
func (g *Gate) Usage() *usage.Ledger {
	return g.usage
}

type admission struct {
	gate         *Gate
	account      basics.Address
	declaredCost basics.Gas
	feeRate      basics.Wei
}

type admissionCheck struct {
	constraint ledgercore.Constraint
	check      func(a *admission) (ok bool, detail string, err error)
}

// admissionChecks run in order; the first failing check is the reported reason.
var admissionChecks = []admissionCheck{
	{constraint: ledgercore.ConstraintShutdown, check: notShutdown},
	{constraint: ledgercore.ConstraintGasCeiling, check: withinGasCeiling},
	{constraint: ledgercore.ConstraintFeeRateCeiling, check: withinFeeRateCeiling},
	{constraint: ledgercore.ConstraintFundedBalance, check: funded},
	{constraint: ledgercore.ConstraintWhitelist, check: whitelisted},
}

func notShutdown(a *admission) (bool, string, error) {
	down, err := a.gate.store.IsShutdown(a.gate.sponsor)
	return !down, "", err
}

func withinGasCeiling(a *admission) (bool, string, error) {
	return a.declaredCost <= a.gate.maxGas, fmt.Sprintf("%d > %d", a.declaredCost, a.gate.maxGas), nil
}

func withinFeeRateCeiling(a *admission) (bool, string, error) {
	return a.feeRate.LessEq(a.gate.maxFeeRate), fmt.Sprintf("%v > %v", a.feeRate, a.gate.maxFeeRate), nil
}

// funded compares the sponsor's balance with the declared cost itself. The
// fee rate only bounds the price; it does not scale the requirement.
func funded(a *admission) (bool, string, error) {
	bal, err := a.gate.store.BalanceOf(a.gate.sponsor)
	if err != nil {
		return false, "", err
	}
	need := basics.NewWei(uint64(a.declaredCost))
	return need.LessEq(bal), fmt.Sprintf("balance %v < cost %d", bal, a.declaredCost), nil
}

func whitelisted(a *admission) (bool, string, error) {
	rec, err := a.gate.store.LookupSponsorship(a.gate.sponsor, a.account)
	return rec.Whitelisted, a.account.String(), err
}

// Admit decides whether the sponsor underwrites an operation of account. It
// returns a ledgercore.PolicyError naming the first failing check, or a
// ledgercore.StoreError if the decision could not be made.
func (g *Gate) Admit(account basics.Address, declaredCost basics.Gas, feeRate basics.Wei) error {
	a := admission{gate: g, account: account, declaredCost: declaredCost, feeRate: feeRate}
	for _, c := range admissionChecks {
		ok, detail, err := c.check(&a)
		if err != nil {
			return ledgercore.StoreError{Err: err}
		}
		if !ok {
			refusalsTotal.Inc(map[string]string{"constraint": string(c.constraint)})
			g.log.WithFields(logging.Fields{"account": account.String(), "reason": string(c.constraint)}).Info("sponsorship refused")
			return ledgercore.PolicyError{Constraint: c.constraint, Detail: detail}
		}
	}
	return nil
}

// Payer moves native funds inside the state an operation runs against, so
// that the sponsor's payment commits or rolls back with the operation.
type Payer interface {
	Move(src, dst basics.Address, amount basics.Wei) error
}

// gasWei prices gas for the sponsor. It uses the same unit as the
// funded-balance check: one wei per unit of declared gas.
func gasWei(g basics.Gas) basics.Wei {
	return basics.NewWei(uint64(g))
}

// ChargePrefund pays the declared cost of an admitted operation from the
// sponsor to the coordinator before the batch runs. The account pays nothing
// for an operation the sponsor underwrites.
func (g *Gate) ChargePrefund(p Payer, coordinator basics.Address, declaredCost basics.Gas) error {
	if err := p.Move(g.sponsor, coordinator, gasWei(declaredCost)); err != nil {
		return ledgercore.PolicyError{Constraint: ledgercore.ConstraintPrefund, Detail: err.Error()}
	}
	return nil
}

// RefundUnused returns the part of the prefund the operation did not use, so
// the sponsor ends up paying exactly the actual cost.
func (g *Gate) RefundUnused(p Payer, coordinator basics.Address, declaredCost, actualCost basics.Gas) error {
	if actualCost >= declaredCost {
		return nil
	}
	if err := p.Move(coordinator, g.sponsor, gasWei(declaredCost-actualCost)); err != nil {
		return fmt.Errorf("refund to sponsor %v: %w", g.sponsor, err)
	}
	return nil
}

// RecordUsage adds the actual cost of an executed operation to the usage of
// account. It is called once per sponsored success. A failure is logged and
// dropped: the operation it accounts for already committed.
func (g *Gate) RecordUsage(ctx context.Context, account basics.Address, actualCost basics.Gas) {
	_, err := g.usage.Add(ctx, account, actualCost)
	if err != nil {
		usageFailuresTotal.Inc(nil)
		g.log.WithFields(logging.Fields{"account": account.String(), "cost": uint64(actualCost)}).Errorf("usage not recorded: %v", err)
		return
	}
	sponsoredGasTotal.AddUint64(uint64(actualCost), nil)
}

func (g *Gate) authorize(caller basics.Address, action string) error {
	if g.admin.IsZero() || caller != g.admin {
		g.log.WithFields(logging.Fields{"caller": caller.String(), "action": action}).Warn("sponsor admin action refused")
		return ledgercore.UnauthorizedError{Account: g.sponsor, Reason: fmt.Sprintf("%v is not the sponsor admin", caller)}
	}
	return nil
}

// AddToWhitelist lets the sponsor underwrite operations of account.
func (g *Gate) AddToWhitelist(ctx context.Context, caller, account basics.Address) error {
	if err := g.authorize(caller, "whitelist"); err != nil {
		return err
	}
	return g.store.SetWhitelisted(ctx, g.sponsor, account, true)
}

// RemoveFromWhitelist stops underwriting account. Its recorded usage stays.
func (g *Gate) RemoveFromWhitelist(ctx context.Context, caller, account basics.Address) error {
	if err := g.authorize(caller, "unwhitelist"); err != nil {
		return err
	}
	return g.store.SetWhitelisted(ctx, g.sponsor, account, false)
}

// Shutdown makes every further admission fail until Resume.
func (g *Gate) Shutdown(ctx context.Context, caller basics.Address) error {
	if err := g.authorize(caller, "shutdown"); err != nil {
		return err
	}
	g.log.Warn("sponsorship shut down")
	return g.store.SetShutdown(ctx, g.sponsor, true)
}

// Resume lifts a shutdown.
func (g *Gate) Resume(ctx context.Context, caller basics.Address) error {
	if err := g.authorize(caller, "resume"); err != nil {
		return err
	}
	g.log.Info("sponsorship resumed")
	return g.store.SetShutdown(ctx, g.sponsor, false)
}

// Withdraw moves amount out of the sponsor's funded balance.
func (g *Gate) Withdraw(ctx context.Context, caller, to basics.Address, amount basics.Wei) error {
	if err := g.authorize(caller, "withdraw"); err != nil {
		return err
	}
	if err := g.store.Transfer(ctx, g.sponsor, to, amount); err != nil {
		return fmt.Errorf("withdraw %v to %v: %w", amount, to, err)
	}
	g.log.WithFields(logging.Fields{"to": to.String(), "amount": amount.String()}).Info("sponsor funds withdrawn")
	return nil
}
