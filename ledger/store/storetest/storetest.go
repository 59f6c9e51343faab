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

// Package storetest is a conformance suite run against every store backend.
package storetest

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/ledger/store"
)

// Factory opens a fresh, empty store for one test.
type Factory func(t *testing.T) store.Store

type testEntry struct {
	name string
	f    func(t *testing.T, s store.Store)
}

// list of tests to be run on each backend
var storeTests = []testEntry{
	{"RegisterAndLookup", testRegisterAndLookup},
	{"UniqueLabel", testUniqueLabel},
	{"CommitDelta", testCommitDelta},
	{"SessionKeyTombstone", testSessionKeyTombstone},
	{"Sponsorship", testSponsorship},
	{"UsageHistory", testUsageHistory},
	{"ReplayWindow", testReplayWindow},
}

// RunStoreTests runs the suite, each test against its own store.
func RunStoreTests(t *testing.T, open Factory) {
	for _, entry := range storeTests {
		t.Run(entry.name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			entry.f(t, s)
		})
	}
}

var (
	acct     = basics.Address{0xaa}
	merchant = basics.Address{0x01}
	platform = basics.Address{0x02}
	sponsor  = basics.Address{0x5b}
)

// ignoreUnexported skips the codec marker fields.
var ignoreUnexported = cmpopts.IgnoreUnexported(ledgercore.AccountData{}, ledgercore.SessionKey{}, ledgercore.SponsorshipRecord{}, ledgercore.UsageEntry{})

func requireEqual(t *testing.T, want, got interface{}) {
	t.Helper()
	if diff := cmp.Diff(want, got, ignoreUnexported); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func testRegisterAndLookup(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, ok, err := s.LookupAccount(acct)
	require.NoError(t, err)
	require.False(t, ok)

	data := ledgercore.AccountData{Merchant: merchant, Platform: platform, Label: "a@example.com", Coordinator: basics.Address{0xc0}}
	require.NoError(t, s.RegisterAccount(ctx, acct, data))

	got, ok, err := s.LookupAccount(acct)
	require.NoError(t, err)
	require.True(t, ok)
	requireEqual(t, data, got)

	addr, ok, err := s.LookupLabel("a@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, acct, addr)

	_, ok, err = s.LookupLabel("b@example.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, s.RegisterAccount(ctx, acct, ledgercore.AccountData{Label: "c@example.com"}), store.ErrAccountExists)
}

func testUniqueLabel(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.RegisterAccount(ctx, acct, ledgercore.AccountData{Merchant: merchant, Label: "a@example.com"}))
	err := s.RegisterAccount(ctx, basics.Address{0xab}, ledgercore.AccountData{Merchant: merchant, Label: "a@example.com"})
	require.ErrorIs(t, err, store.ErrLabelTaken)

	_, ok, err := s.LookupAccount(basics.Address{0xab})
	require.NoError(t, err)
	require.False(t, ok)
}

func testCommitDelta(t *testing.T, s store.Store) {
	ctx := context.Background()
	data := ledgercore.AccountData{Merchant: merchant, Platform: platform, Label: "a@example.com"}
	require.NoError(t, s.RegisterAccount(ctx, acct, data))

	bal, err := s.LookupBalance(acct)
	require.NoError(t, err)
	require.True(t, bal.IsZero())

	delta := ledgercore.MakeStateDelta(2)
	data.Counter = 1
	data.Platform = basics.Address{0x03}
	delta.Accounts[acct] = data
	delta.Balances[acct] = basics.NewWei(900)
	delta.Balances[basics.Address{0x11}] = basics.NewWei(100)
	delta.SessionKeys[ledgercore.SessionKeyRef{Account: acct, Delegate: basics.Address{0xdd}}] = ledgercore.SessionKey{ValidUntil: 10, MaxValue: basics.NewWei(5), Active: true}
	require.NoError(t, s.CommitDelta(ctx, delta))

	got, ok, err := s.LookupAccount(acct)
	require.NoError(t, err)
	require.True(t, ok)
	requireEqual(t, data, got)

	bal, err = s.LookupBalance(acct)
	require.NoError(t, err)
	require.Equal(t, basics.NewWei(900), bal)
	bal, err = s.LookupBalance(basics.Address{0x11})
	require.NoError(t, err)
	require.Equal(t, basics.NewWei(100), bal)

	sk, ok, err := s.LookupSessionKey(acct, basics.Address{0xdd})
	require.NoError(t, err)
	require.True(t, ok)
	requireEqual(t, ledgercore.SessionKey{ValidUntil: 10, MaxValue: basics.NewWei(5), Active: true}, sk)

	// an empty delta is fine
	require.NoError(t, s.CommitDelta(ctx, ledgercore.MakeStateDelta(0)))

	// the label still resolves after updates
	addr, ok, err := s.LookupLabel("a@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, acct, addr)
}

func testSessionKeyTombstone(t *testing.T, s store.Store) {
	ctx := context.Background()
	ref := ledgercore.SessionKeyRef{Account: acct, Delegate: basics.Address{0xdd}}

	delta := ledgercore.MakeStateDelta(1)
	delta.SessionKeys[ref] = ledgercore.SessionKey{ValidUntil: 10, MaxValue: basics.NewWei(5)}
	require.NoError(t, s.CommitDelta(ctx, delta))

	sk, ok, err := s.LookupSessionKey(acct, basics.Address{0xdd})
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, sk.Active)
	require.Equal(t, uint64(10), sk.ValidUntil)

	_, ok, err = s.LookupSessionKey(basics.Address{0xab}, basics.Address{0xdd})
	require.NoError(t, err)
	require.False(t, ok)
}

func testSponsorship(t *testing.T, s store.Store) {
	ctx := context.Background()

	rec, err := s.LookupSponsorship(sponsor, acct)
	require.NoError(t, err)
	requireEqual(t, ledgercore.SponsorshipRecord{}, rec)

	require.NoError(t, s.SetWhitelisted(ctx, sponsor, acct, true))
	rec, err = s.LookupSponsorship(sponsor, acct)
	require.NoError(t, err)
	require.True(t, rec.Whitelisted)

	// whitelists are per sponsor
	rec, err = s.LookupSponsorship(basics.Address{0x5c}, acct)
	require.NoError(t, err)
	require.False(t, rec.Whitelisted)

	down, err := s.IsShutdown(sponsor)
	require.NoError(t, err)
	require.False(t, down)

	require.NoError(t, s.SetShutdown(ctx, sponsor, true))
	down, err = s.IsShutdown(sponsor)
	require.NoError(t, err)
	require.True(t, down)

	require.NoError(t, s.SetShutdown(ctx, sponsor, false))
	down, err = s.IsShutdown(sponsor)
	require.NoError(t, err)
	require.False(t, down)
}

func testUsageHistory(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SetWhitelisted(ctx, sponsor, acct, true))

	e1, err := s.AppendUsage(ctx, ledgercore.UsageEntry{ID: "one", Sponsor: sponsor, Account: acct, Cost: 30000, Recorded: 100})
	require.NoError(t, err)
	require.Equal(t, basics.Gas(30000), e1.Total)

	e2, err := s.AppendUsage(ctx, ledgercore.UsageEntry{ID: "two", Sponsor: sponsor, Account: acct, Cost: 12000, Recorded: 101})
	require.NoError(t, err)
	require.Equal(t, basics.Gas(42000), e2.Total)

	rec, err := s.LookupSponsorship(sponsor, acct)
	require.NoError(t, err)
	require.True(t, rec.Whitelisted)
	require.Equal(t, basics.Gas(42000), rec.Consumed)

	entries, err := s.UsageEntries(sponsor, acct)
	require.NoError(t, err)
	requireEqual(t, []ledgercore.UsageEntry{e1, e2}, entries)

	// removing an account from the whitelist keeps its history
	require.NoError(t, s.SetWhitelisted(ctx, sponsor, acct, false))
	rec, err = s.LookupSponsorship(sponsor, acct)
	require.NoError(t, err)
	require.Equal(t, basics.Gas(42000), rec.Consumed)

	_, err = s.AppendUsage(ctx, ledgercore.UsageEntry{ID: "three", Sponsor: sponsor, Account: acct, Cost: ^basics.Gas(0), Recorded: 102})
	var invariant ledgercore.InvariantError
	require.ErrorAs(t, err, &invariant)

	entries, err = s.UsageEntries(sponsor, acct)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func testReplayWindow(t *testing.T, s store.Store) {
	ctx := context.Background()
	early, late := operation.OpID{1}, operation.OpID{2}

	_, ok, err := s.LookupExecuted(early)
	require.NoError(t, err)
	require.False(t, ok)

	delta := ledgercore.MakeStateDelta(0)
	delta.Executed[early] = 100
	delta.Executed[late] = 200
	require.NoError(t, s.CommitDelta(ctx, delta))

	until, ok, err := s.LookupExecuted(early)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(100), until)

	// an entry stays through its last valid second
	require.NoError(t, s.PruneExecuted(ctx, 100))
	_, ok, err = s.LookupExecuted(early)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.PruneExecuted(ctx, 101))
	_, ok, err = s.LookupExecuted(early)
	require.NoError(t, err)
	require.False(t, ok)
	until, ok, err = s.LookupExecuted(late)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(200), until)

	// nothing left to prune is not an error
	require.NoError(t, s.PruneExecuted(ctx, 101))
}
