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

// Package usage keeps the append-only record of what a sponsor paid for.
package usage

import (
	"context"

	"github.com/google/uuid"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/util/timers"
)

// Store persists usage entries.
type Store interface {
	AppendUsage(ctx context.Context, entry ledgercore.UsageEntry) (ledgercore.UsageEntry, error)
	UsageEntries(sponsor, account basics.Address) ([]ledgercore.UsageEntry, error)
	LookupSponsorship(sponsor, account basics.Address) (ledgercore.SponsorshipRecord, error)
}

// Ledger accumulates the cost one sponsor consumed per account. It only
// ever adds: there is no way to remove or lower an entry.
type Ledger struct {
	sponsor basics.Address
	store   Store
	clock   timers.Clock
	log     logging.Logger
}

// MakeLedger creates the usage ledger of sponsor.
func MakeLedger(sponsor basics.Address, st Store, clock timers.Clock, log logging.Logger) *Ledger {
	return &Ledger{sponsor: sponsor, store: st, clock: clock, log: log}
}

// Add appends cost to the usage of account and returns the written entry. A
// zero cost writes nothing and returns the zero entry.
func (l *Ledger) Add(ctx context.Context, account basics.Address, cost basics.Gas) (ledgercore.UsageEntry, error) {
	if cost == 0 {
		return ledgercore.UsageEntry{}, nil
	}
	entry, err := l.store.AppendUsage(ctx, ledgercore.UsageEntry{
		ID:       uuid.NewString(),
		Sponsor:  l.sponsor,
		Account:  account,
		Cost:     cost,
		Recorded: l.clock.Now().Unix(),
	})
	if err != nil {
		return ledgercore.UsageEntry{}, err
	}
	l.log.WithFields(logging.Fields{
		"sponsor": l.sponsor.String(),
		"account": account.String(),
		"cost":    uint64(cost),
		"total":   uint64(entry.Total),
	}).Debug("usage recorded")
	return entry, nil
}

// Entries returns the usage history of account, oldest first.
func (l *Ledger) Entries(account basics.Address) ([]ledgercore.UsageEntry, error) {
	return l.store.UsageEntries(l.sponsor, account)
}

// Total returns the cumulative cost consumed by account.
func (l *Ledger) Total(account basics.Address) (basics.Gas, error) {
	rec, err := l.store.LookupSponsorship(l.sponsor, account)
	if err != nil {
		return 0, err
	}
	return rec.Consumed, nil
}
