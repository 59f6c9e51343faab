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

// Package memorydriver keeps the whole store in process memory. It backs
// tests and throwaway daemons.
package memorydriver

import (
	"context"
	"maps"
	"slices"

	"github.com/algorand/go-deadlock"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/ledger/store"
)

type sponsorshipRef struct {
	sponsor basics.Address
	account basics.Address
}

type memoryStore struct {
	mu deadlock.RWMutex

	accounts     map[basics.Address]ledgercore.AccountData
	labels       map[string]basics.Address
	sessionKeys  map[ledgercore.SessionKeyRef]ledgercore.SessionKey
	balances     map[basics.Address]basics.Wei
	sponsorships map[sponsorshipRef]ledgercore.SponsorshipRecord
	shutdown     map[basics.Address]bool
	usage        map[sponsorshipRef][]ledgercore.UsageEntry
	executed     map[operation.OpID]uint64
}

// Open returns an empty in-memory store.
func Open() store.Store {
	return &memoryStore{
		accounts:     make(map[basics.Address]ledgercore.AccountData),
		labels:       make(map[string]basics.Address),
		sessionKeys:  make(map[ledgercore.SessionKeyRef]ledgercore.SessionKey),
		balances:     make(map[basics.Address]basics.Wei),
		sponsorships: make(map[sponsorshipRef]ledgercore.SponsorshipRecord),
		shutdown:     make(map[basics.Address]bool),
		usage:        make(map[sponsorshipRef][]ledgercore.UsageEntry),
		executed:     make(map[operation.OpID]uint64),
	}
}

func (ms *memoryStore) LookupAccount(addr basics.Address) (ledgercore.AccountData, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	ad, ok := ms.accounts[addr]
	return ad, ok, nil
}

func (ms *memoryStore) LookupLabel(label string) (basics.Address, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	addr, ok := ms.labels[label]
	return addr, ok, nil
}

func (ms *memoryStore) LookupSessionKey(account, delegate basics.Address) (ledgercore.SessionKey, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	sk, ok := ms.sessionKeys[ledgercore.SessionKeyRef{Account: account, Delegate: delegate}]
	return sk, ok, nil
}

func (ms *memoryStore) LookupBalance(addr basics.Address) (basics.Wei, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.balances[addr], nil
}

func (ms *memoryStore) RegisterAccount(ctx context.Context, addr basics.Address, data ledgercore.AccountData) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.accounts[addr]; ok {
		return store.ErrAccountExists
	}
	if data.Label != "" {
		if _, ok := ms.labels[data.Label]; ok {
			return store.ErrLabelTaken
		}
		ms.labels[data.Label] = addr
	}
	ms.accounts[addr] = data
	return nil
}

func (ms *memoryStore) CommitDelta(ctx context.Context, delta ledgercore.StateDelta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	// labels are fixed at registration; a delta never renames an account
	maps.Copy(ms.accounts, delta.Accounts)
	maps.Copy(ms.sessionKeys, delta.SessionKeys)
	maps.Copy(ms.balances, delta.Balances)
	maps.Copy(ms.executed, delta.Executed)
	return nil
}

func (ms *memoryStore) LookupExecuted(id operation.OpID) (uint64, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	until, ok := ms.executed[id]
	return until, ok, nil
}

func (ms *memoryStore) PruneExecuted(ctx context.Context, now uint64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	maps.DeleteFunc(ms.executed, func(_ operation.OpID, until uint64) bool {
		return until < now
	})
	return nil
}

func (ms *memoryStore) LookupSponsorship(sponsor, account basics.Address) (ledgercore.SponsorshipRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.sponsorships[sponsorshipRef{sponsor, account}], nil
}

func (ms *memoryStore) IsShutdown(sponsor basics.Address) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.shutdown[sponsor], nil
}

func (ms *memoryStore) UsageEntries(sponsor, account basics.Address) ([]ledgercore.UsageEntry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return slices.Clone(ms.usage[sponsorshipRef{sponsor, account}]), nil
}

func (ms *memoryStore) SetWhitelisted(ctx context.Context, sponsor, account basics.Address, whitelisted bool) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ref := sponsorshipRef{sponsor, account}
	rec := ms.sponsorships[ref]
	rec.Whitelisted = whitelisted
	ms.sponsorships[ref] = rec
	return nil
}

func (ms *memoryStore) SetShutdown(ctx context.Context, sponsor basics.Address, shutdown bool) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.shutdown[sponsor] = shutdown
	return nil
}

func (ms *memoryStore) AppendUsage(ctx context.Context, entry ledgercore.UsageEntry) (ledgercore.UsageEntry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ref := sponsorshipRef{entry.Sponsor, entry.Account}
	rec := ms.sponsorships[ref]
	total, overflowed := basics.OAdd(rec.Consumed, entry.Cost)
	if overflowed {
		return ledgercore.UsageEntry{}, ledgercore.InvariantError{Invariant: ledgercore.InvariantUsageOverflow, Account: entry.Account}
	}
	rec.Consumed = total
	entry.Total = total
	ms.sponsorships[ref] = rec
	ms.usage[ref] = append(ms.usage[ref], entry)
	return entry, nil
}

func (ms *memoryStore) Close() {}
