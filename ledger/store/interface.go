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

// Package store defines the persistence interface of the account engine and
// the backends implementing it.
package store

import (
	"context"
	"errors"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
)

// ErrLabelTaken is returned when registering an account under a label that is already in use.
var ErrLabelTaken = errors.New("label already registered")

// ErrAccountExists is returned when registering an address twice.
var ErrAccountExists = errors.New("account already registered")

// AccountsReader is the read interface for:
// - accounts, labels, session keys, native balances
type AccountsReader interface {
	LookupAccount(addr basics.Address) (data ledgercore.AccountData, ok bool, err error)
	LookupLabel(label string) (addr basics.Address, ok bool, err error)
	LookupSessionKey(account, delegate basics.Address) (key ledgercore.SessionKey, ok bool, err error)
	LookupBalance(addr basics.Address) (basics.Wei, error)
}

// AccountsWriter is the write interface for:
// - account registration, operation deltas
type AccountsWriter interface {
	// RegisterAccount creates an account. Labels are unique.
	RegisterAccount(ctx context.Context, addr basics.Address, data ledgercore.AccountData) error

	// CommitDelta writes every entry of delta, or none of them.
	CommitDelta(ctx context.Context, delta ledgercore.StateDelta) error
}

// SponsorReader is the read interface for:
// - sponsorship records, sponsor status, usage history
type SponsorReader interface {
	LookupSponsorship(sponsor, account basics.Address) (ledgercore.SponsorshipRecord, error)
	IsShutdown(sponsor basics.Address) (bool, error)

	// UsageEntries returns the usage history of account under sponsor, oldest first.
	UsageEntries(sponsor, account basics.Address) ([]ledgercore.UsageEntry, error)
}

// SponsorWriter is the write interface for:
// - whitelist, sponsor status, usage history
type SponsorWriter interface {
	SetWhitelisted(ctx context.Context, sponsor, account basics.Address, whitelisted bool) error
	SetShutdown(ctx context.Context, sponsor basics.Address, shutdown bool) error

	// AppendUsage adds entry.Cost to the consumed counter of the sponsorship
	// record and appends entry, with Total filled in, atomically.
	AppendUsage(ctx context.Context, entry ledgercore.UsageEntry) (ledgercore.UsageEntry, error)
}

// ReplayWindow remembers executed one-shot requests until they expire.
// Entries are written through CommitDelta, together with the effects of the
// request they belong to.
type ReplayWindow interface {
	// LookupExecuted reports whether id was executed and the last second it
	// could be replayed at.
	LookupExecuted(id operation.OpID) (validUntil uint64, ok bool, err error)

	// PruneExecuted forgets every entry whose validUntil is before now.
	PruneExecuted(ctx context.Context, now uint64) error
}

// Store is the full persistence interface.
type Store interface {
	AccountsReader
	AccountsWriter
	SponsorReader
	SponsorWriter
	ReplayWindow

	Close()
}
