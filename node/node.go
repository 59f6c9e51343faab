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

// Package node wires the ledger, the evaluator and the sponsorship gates into
// the service the daemon exposes.
package node

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger"
	"github.com/irfanm0/erc4337/ledger/contracts"
	"github.com/irfanm0/erc4337/ledger/eval"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/ledger/sponsor"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/util/metrics"
	"github.com/irfanm0/erc4337/util/timers"
)

var registeredAccounts = metrics.MakeGauge(metrics.RegisteredAccounts)

// StatusReport represents the current basic status of the node
type StatusReport struct {
	StoreBackend      string           `json:"storeBackend"`
	Sponsors          []basics.Address `json:"sponsors"`
	OperationsApplied uint64           `json:"operationsApplied"`
	LastOperationTime time.Time        `json:"lastOperationTime"`
	Now               uint64           `json:"now"`
}

// SessionKeyStatus is a session key together with its validity at the time it was read.
type SessionKeyStatus struct {
	ledgercore.SessionKey
	Valid bool `json:"valid"`
}

// AccountNode applies operations for the programmable accounts in its ledger.
// Submissions are serialized: the order the node's mutex admits them in is
// the order they are applied in.
type AccountNode struct {
	mu     deadlock.Mutex
	config config.Local
	params config.Params

	ledger    *ledger.Ledger
	machine   *contracts.Machine
	sponsors  *sponsor.Registry
	sponsorsL []basics.Address
	evaluator *eval.Evaluator

	clock   timers.Clock
	rootDir string
	log     logging.Logger

	operationsApplied uint64
	lastOperationTime time.Time
}

// MakeAccountNode opens the ledger under rootDir and sets up the gate of the
// configured sponsor, if any.
func MakeAccountNode(log logging.Logger, rootDir string, cfg config.Local, clock timers.Clock) (*AccountNode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	node := new(AccountNode)
	node.rootDir = rootDir
	node.config = cfg
	node.params = cfg.Params()
	node.clock = clock
	node.log = log

	ledgerPathnamePrefix := filepath.Join(rootDir, config.LedgerFilenamePrefix)
	var err error
	node.ledger, err = ledger.OpenLedger(node.log, ledgerPathnamePrefix, false, cfg)
	if err != nil {
		log.Errorf("Cannot initialize ledger (%s): %v", ledgerPathnamePrefix, err)
		return nil, err
	}

	node.machine = contracts.MakeMachine(node.params)
	node.sponsors = sponsor.MakeRegistry()
	node.evaluator = eval.MakeEvaluator(node.ledger, node.sponsors, node.machine, node.params, node.log)

	if cfg.SponsorAddress != "" {
		sp, _ := basics.UnmarshalChecksumAddress(cfg.SponsorAddress)
		var admin basics.Address
		if cfg.SponsorAdmin != "" {
			admin, _ = basics.UnmarshalChecksumAddress(cfg.SponsorAdmin)
		} else {
			log.Warnf("sponsor %v has no admin configured, its gate cannot be administered", sp)
		}
		node.AddSponsor(sp, admin)
	}
	return node, nil
}

// Config returns a copy of the node's Local configuration
func (node *AccountNode) Config() config.Local {
	return node.config
}

// Ledger exposes the node's ledger.
func (node *AccountNode) Ledger() *ledger.Ledger {
	return node.ledger
}

// Machine exposes the runtime, so contracts can be registered on it.
func (node *AccountNode) Machine() *contracts.Machine {
	return node.machine
}

// AddSponsor starts a gate for sponsor, administered by admin.
func (node *AccountNode) AddSponsor(sp, admin basics.Address) {
	node.mu.Lock()
	defer node.mu.Unlock()
	if _, ok := node.sponsors.Gate(sp); !ok {
		node.sponsorsL = append(node.sponsorsL, sp)
	}
	node.sponsors.Add(sponsor.MakeGate(sp, admin, node.params, node.ledger, node.clock, node.log))
	node.log.WithFields(logging.Fields{"sponsor": sp.String(), "admin": admin.String()}).Info("sponsorship gate started")
}

// Stop closes the ledger. Once a node is stopped, it can never start again.
func (node *AccountNode) Stop() {
	node.mu.Lock()
	defer node.mu.Unlock()
	node.ledger.Close()
}

func (node *AccountNode) now() uint64 {
	return timers.Unix(node.clock)
}

// pruneExecuted drops expired entries of the ledger's replay window. A
// failure only delays the cleanup.
func (node *AccountNode) pruneExecuted(ctx context.Context, now uint64) {
	if err := node.ledger.PruneExecuted(ctx, now); err != nil {
		node.log.Warnf("pruning executed requests: %v", err)
	}
}

func (node *AccountNode) applied() {
	node.operationsApplied++
	node.lastOperationTime = node.clock.Now()
}

// Submit applies a signed operation. The receipt reports every outcome.
func (node *AccountNode) Submit(ctx context.Context, sop operation.SignedOperation) ledgercore.Receipt {
	node.mu.Lock()
	defer node.mu.Unlock()
	r := node.evaluator.Apply(ctx, sop, node.now())
	node.applied()
	return r
}

// SubmitDelegated applies a single call signed by a session delegate.
func (node *AccountNode) SubmitDelegated(ctx context.Context, sdc operation.SignedDelegatedCall) ledgercore.Receipt {
	node.mu.Lock()
	defer node.mu.Unlock()
	now := node.now()
	node.pruneExecuted(ctx, now)
	r := node.evaluator.ApplyDelegated(ctx, sdc, now)
	node.applied()
	return r
}

// RegisterAccount adds a programmable account to the registry.
func (node *AccountNode) RegisterAccount(ctx context.Context, addr basics.Address, data ledgercore.AccountData) error {
	node.mu.Lock()
	defer node.mu.Unlock()
	if err := node.ledger.RegisterAccount(ctx, addr, data); err != nil {
		return err
	}
	registeredAccounts.Add(1)
	return nil
}

// Deposit credits amount to addr and returns the new balance.
func (node *AccountNode) Deposit(ctx context.Context, addr basics.Address, amount basics.Wei) (basics.Wei, error) {
	node.mu.Lock()
	defer node.mu.Unlock()
	return node.ledger.Deposit(ctx, addr, amount)
}

// Account returns the record and native balance of addr.
func (node *AccountNode) Account(addr basics.Address) (ledgercore.AccountData, basics.Wei, bool, error) {
	ad, ok, err := node.ledger.LookupAccount(addr)
	if err != nil || !ok {
		return ledgercore.AccountData{}, basics.Wei{}, ok, err
	}
	bal, err := node.ledger.BalanceOf(addr)
	return ad, bal, true, err
}

// AccountByLabel resolves a registry label.
func (node *AccountNode) AccountByLabel(label string) (basics.Address, bool, error) {
	return node.ledger.LookupLabel(label)
}

// Balance returns the native balance of any address.
func (node *AccountNode) Balance(addr basics.Address) (basics.Wei, error) {
	return node.ledger.BalanceOf(addr)
}

// SessionKey returns the key of delegate on account and whether it is valid now.
func (node *AccountNode) SessionKey(account, delegate basics.Address) (SessionKeyStatus, bool, error) {
	sk, ok, err := node.ledger.LookupSessionKey(account, delegate)
	if err != nil || !ok {
		return SessionKeyStatus{}, ok, err
	}
	return SessionKeyStatus{SessionKey: sk, Valid: sk.Valid(node.now())}, true, nil
}

// Usage returns the usage history of account under sponsor and its total.
func (node *AccountNode) Usage(sp, account basics.Address) ([]ledgercore.UsageEntry, basics.Gas, error) {
	gate, ok := node.sponsors.Gate(sp)
	if !ok {
		return nil, 0, MakeUnknownSponsorError(sp)
	}
	entries, err := gate.Usage().Entries(account)
	if err != nil {
		return nil, 0, err
	}
	total, err := gate.Usage().Total(account)
	return entries, total, err
}

// SponsorCommand runs an administrative command on a sponsorship gate. The
// admin identity is recovered from the signature; the gate decides whether
// it is the right one. A command runs at most once: its ID is kept in the
// ledger until the command expires, so a restart does not reopen it.
func (node *AccountNode) SponsorCommand(ctx context.Context, scmd operation.SignedSponsorCommand) error {
	cmd := scmd.Cmd
	if err := cmd.WellFormed(); err != nil {
		return err
	}
	caller, ok := scmd.Admin()
	if !ok {
		return ledgercore.UnauthorizedError{Account: cmd.Sponsor, Reason: "signature does not recover"}
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	gate, ok := node.sponsors.Gate(cmd.Sponsor)
	if !ok {
		return MakeUnknownSponsorError(cmd.Sponsor)
	}
	now := node.now()
	if now > cmd.ValidUntil {
		return MakeCommandRejectedError("sponsor command expired at %d, now %d", cmd.ValidUntil, now)
	}
	node.pruneExecuted(ctx, now)
	id := cmd.ID()
	_, seen, err := node.ledger.LookupExecuted(id)
	if err != nil {
		return err
	}
	if seen {
		return MakeCommandRejectedError("sponsor command %v already executed", id)
	}

	switch cmd.Action {
	case operation.WhitelistAdd:
		err = gate.AddToWhitelist(ctx, caller, cmd.Account)
	case operation.WhitelistRemove:
		err = gate.RemoveFromWhitelist(ctx, caller, cmd.Account)
	case operation.ShutdownSponsor:
		err = gate.Shutdown(ctx, caller)
	case operation.ResumeSponsor:
		err = gate.Resume(ctx, caller)
	case operation.WithdrawFunds:
		err = gate.Withdraw(ctx, caller, cmd.Recipient, cmd.Amount)
	default:
		err = fmt.Errorf("unknown sponsor action %q", cmd.Action)
	}
	if err != nil {
		return err
	}
	delta := ledgercore.MakeStateDelta(0)
	delta.Executed[id] = cmd.ValidUntil
	if err := node.ledger.CommitDelta(ctx, delta); err != nil {
		node.log.WithFields(logging.Fields{"sponsor": cmd.Sponsor.String(), "command": id.String()}).Errorf("executed sponsor command not recorded: %v", err)
		return err
	}
	return nil
}

// Status returns a StatusReport structure reporting our status
func (node *AccountNode) Status() StatusReport {
	node.mu.Lock()
	defer node.mu.Unlock()
	return StatusReport{
		StoreBackend:      node.config.StoreBackend,
		Sponsors:          append([]basics.Address(nil), node.sponsorsL...),
		OperationsApplied: node.operationsApplied,
		LastOperationTime: node.lastOperationTime,
		Now:               node.now(),
	}
}
