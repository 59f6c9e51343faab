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

package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/algorand/go-deadlock"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/ledger/store"
	"github.com/irfanm0/erc4337/ledger/store/memorydriver"
	"github.com/irfanm0/erc4337/ledger/store/pebbledriver"
	"github.com/irfanm0/erc4337/ledger/store/sqlitedriver"
	"github.com/irfanm0/erc4337/logging"
)

// Ledger is the account store of a node: registered accounts, their session
// keys, native balances and the sponsorship records.
type Ledger struct {
	store store.Store

	log logging.Logger

	// balanceMu serializes the read-modify-write balance updates made outside
	// of the evaluator (deposits and transfers).
	balanceMu deadlock.Mutex
}

// ErrInvalidRegistration is returned for account records the registry refuses.
var ErrInvalidRegistration = errors.New("invalid account registration")

// OpenLedger creates a Ledger object backed by cfg.StoreBackend, using file
// names based on dbPathPrefix (in-memory if dbMem is true).
func OpenLedger(log logging.Logger, dbPathPrefix string, dbMem bool, cfg config.Local) (*Ledger, error) {
	var st store.Store
	var err error
	switch cfg.StoreBackend {
	case "sqlite":
		st, err = sqlitedriver.Open(dbPathPrefix+".sqlite", dbMem, log)
	case "pebble":
		st, err = pebbledriver.Open(dbPathPrefix+".pebble", dbMem, log)
	case "memory":
		st = memorydriver.Open()
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("OpenLedger: %w", err)
	}
	log.Infof("ledger opened with %s backend at %s", cfg.StoreBackend, dbPathPrefix)
	return MakeLedger(log, st), nil
}

// MakeLedger wraps an already opened store.
func MakeLedger(log logging.Logger, st store.Store) *Ledger {
	return &Ledger{store: st, log: log}
}

// Close shuts down the underlying store.
func (l *Ledger) Close() {
	l.store.Close()
}

// LookupAccount returns the account record of addr.
func (l *Ledger) LookupAccount(addr basics.Address) (ledgercore.AccountData, bool, error) {
	return l.store.LookupAccount(addr)
}

// LookupLabel resolves a registry label to the account address.
func (l *Ledger) LookupLabel(label string) (basics.Address, bool, error) {
	return l.store.LookupLabel(label)
}

// LookupSessionKey returns the key of delegate on account, tombstones included.
func (l *Ledger) LookupSessionKey(account, delegate basics.Address) (ledgercore.SessionKey, bool, error) {
	return l.store.LookupSessionKey(account, delegate)
}

// BalanceOf returns the native balance of addr.
func (l *Ledger) BalanceOf(addr basics.Address) (basics.Wei, error) {
	return l.store.LookupBalance(addr)
}

// RegisterAccount creates a programmable account. The replay counter of a new
// account always starts at zero.
func (l *Ledger) RegisterAccount(ctx context.Context, addr basics.Address, data ledgercore.AccountData) error {
	if addr.IsZero() {
		return fmt.Errorf("%w: zero address", ErrInvalidRegistration)
	}
	if data.Merchant.IsZero() {
		return fmt.Errorf("%w: account %v has no merchant", ErrInvalidRegistration, addr)
	}
	data.Counter = 0
	if err := l.store.RegisterAccount(ctx, addr, data); err != nil {
		return err
	}
	l.log.WithFields(logging.Fields{"account": addr.String(), "label": data.Label}).Info("account registered")
	return nil
}

// CommitDelta persists the changes of one applied operation.
func (l *Ledger) CommitDelta(ctx context.Context, delta ledgercore.StateDelta) error {
	if delta.Empty() {
		return nil
	}
	return l.store.CommitDelta(ctx, delta)
}

// LookupExecuted reports whether the one-shot request id was executed and
// until when it is remembered.
func (l *Ledger) LookupExecuted(id operation.OpID) (uint64, bool, error) {
	return l.store.LookupExecuted(id)
}

// PruneExecuted forgets executed requests that expired before now.
func (l *Ledger) PruneExecuted(ctx context.Context, now uint64) error {
	return l.store.PruneExecuted(ctx, now)
}

// Deposit credits amount to addr. It stands in for funding that arrives from
// outside the engine.
func (l *Ledger) Deposit(ctx context.Context, addr basics.Address, amount basics.Wei) (basics.Wei, error) {
	l.balanceMu.Lock()
	defer l.balanceMu.Unlock()

	bal, err := l.store.LookupBalance(addr)
	if err != nil {
		return basics.Wei{}, err
	}
	next, overflowed := basics.OAddW(bal, amount)
	if overflowed {
		return basics.Wei{}, ledgercore.InvariantError{Invariant: ledgercore.InvariantBalanceOverflow, Account: addr}
	}
	delta := ledgercore.MakeStateDelta(1)
	delta.Balances[addr] = next
	if err := l.store.CommitDelta(ctx, delta); err != nil {
		return basics.Wei{}, err
	}
	return next, nil
}

// Transfer moves amount from one address to another.
func (l *Ledger) Transfer(ctx context.Context, from, to basics.Address, amount basics.Wei) error {
	l.balanceMu.Lock()
	defer l.balanceMu.Unlock()

	if from == to || amount.IsZero() {
		return nil
	}
	src, err := l.store.LookupBalance(from)
	if err != nil {
		return err
	}
	dst, err := l.store.LookupBalance(to)
	if err != nil {
		return err
	}
	src, overflowed := basics.OSubW(src, amount)
	if overflowed {
		return fmt.Errorf("overspend: %v has less than %v", from, amount)
	}
	dst, overflowed = basics.OAddW(dst, amount)
	if overflowed {
		return ledgercore.InvariantError{Invariant: ledgercore.InvariantBalanceOverflow, Account: to}
	}
	delta := ledgercore.MakeStateDelta(2)
	delta.Balances[from] = src
	delta.Balances[to] = dst
	return l.store.CommitDelta(ctx, delta)
}

// LookupSponsorship returns the record sponsor keeps for account.
func (l *Ledger) LookupSponsorship(sponsor, account basics.Address) (ledgercore.SponsorshipRecord, error) {
	return l.store.LookupSponsorship(sponsor, account)
}

// IsShutdown reports whether sponsor stopped admitting operations.
func (l *Ledger) IsShutdown(sponsor basics.Address) (bool, error) {
	return l.store.IsShutdown(sponsor)
}

// UsageEntries returns the usage history of account under sponsor, oldest first.
func (l *Ledger) UsageEntries(sponsor, account basics.Address) ([]ledgercore.UsageEntry, error) {
	return l.store.UsageEntries(sponsor, account)
}

// SetWhitelisted adds account to, or removes it from, the whitelist of sponsor.
func (l *Ledger) SetWhitelisted(ctx context.Context, sponsor, account basics.Address, whitelisted bool) error {
	return l.store.SetWhitelisted(ctx, sponsor, account, whitelisted)
}

// SetShutdown flips the shutdown flag of sponsor.
func (l *Ledger) SetShutdown(ctx context.Context, sponsor basics.Address, shutdown bool) error {
	return l.store.SetShutdown(ctx, sponsor, shutdown)
}

// AppendUsage records a usage entry and returns it with the running total.
func (l *Ledger) AppendUsage(ctx context.Context, entry ledgercore.UsageEntry) (ledgercore.UsageEntry, error) {
	return l.store.AppendUsage(ctx, entry)
}
