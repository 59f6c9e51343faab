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

package sqlitedriver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/ledger/store"
	"github.com/irfanm0/erc4337/ledger/store/storetest"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/test/partitiontest"
)

func TestSQLiteStore(t *testing.T) {
	partitiontest.PartitionTest(t)
	storetest.RunStoreTests(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "ledger.sqlite"), false, logging.TestingLog(t))
		require.NoError(t, err)
		return s
	})
}

func TestSQLiteStoreReopen(t *testing.T) {
	partitiontest.PartitionTest(t)

	fn := filepath.Join(t.TempDir(), "ledger.sqlite")
	s, err := Open(fn, false, logging.TestingLog(t))
	require.NoError(t, err)

	acct := basics.Address{0xaa}
	ctx := context.Background()
	require.NoError(t, s.RegisterAccount(ctx, acct, ledgercore.AccountData{Merchant: basics.Address{1}, Label: "x@example.com"}))
	delta := ledgercore.MakeStateDelta(1)
	delta.Accounts[acct] = ledgercore.AccountData{Merchant: basics.Address{1}, Label: "x@example.com", Counter: ^uint64(0) - 1}
	delta.Balances[acct] = basics.NewWei(5)
	delta.Executed[operation.OpID{7}] = ^uint64(0)
	require.NoError(t, s.CommitDelta(ctx, delta))
	s.Close()

	// the schema version is kept, migrations do not run twice
	s, err = Open(fn, false, logging.TestingLog(t))
	require.NoError(t, err)
	defer s.Close()

	ad, ok, err := s.LookupAccount(acct)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ^uint64(0)-1, ad.Counter)
	require.Equal(t, "x@example.com", ad.Label)

	bal, err := s.LookupBalance(acct)
	require.NoError(t, err)
	require.Equal(t, basics.NewWei(5), bal)

	// executed requests survive a restart, far-future expiries are not pruned
	require.NoError(t, s.PruneExecuted(ctx, 1<<40))
	_, ok, err = s.LookupExecuted(operation.OpID{7})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSQLiteStoreInMemory(t *testing.T) {
	partitiontest.PartitionTest(t)

	s, err := Open(t.Name(), true, logging.TestingLog(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetWhitelisted(context.Background(), basics.Address{0x5b}, basics.Address{0xaa}, true))
	rec, err := s.LookupSponsorship(basics.Address{0x5b}, basics.Address{0xaa})
	require.NoError(t, err)
	require.True(t, rec.Whitelisted)
}
