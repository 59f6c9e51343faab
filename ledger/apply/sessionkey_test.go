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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/test/partitiontest"
)

func TestGrantRevokeRegrant(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := require.New(t)

	mb := makeMockBalances()
	account, delegate := basics.Address{1}, basics.Address{2}

	a.NoError(GrantSessionKey(mb, account, delegate, 500, basics.NewWei(100)))
	valid, err := SessionKeyValid(mb, account, delegate, 400)
	a.NoError(err)
	a.True(valid)

	a.NoError(RevokeSessionKey(mb, account, delegate))
	valid, err = SessionKeyValid(mb, account, delegate, 400)
	a.NoError(err)
	a.False(valid)

	// the tombstone keeps the old fields
	sk, ok, err := mb.GetSessionKey(account, delegate)
	a.NoError(err)
	a.True(ok)
	a.Equal(ledgercore.SessionKey{ValidUntil: 500, MaxValue: basics.NewWei(100)}, sk)

	// re-grant overwrites every field, active included
	a.NoError(GrantSessionKey(mb, account, delegate, 900, basics.NewWei(7)))
	sk, _, err = mb.GetSessionKey(account, delegate)
	a.NoError(err)
	a.Equal(ledgercore.SessionKey{ValidUntil: 900, MaxValue: basics.NewWei(7), Active: true}, sk)
	valid, err = SessionKeyValid(mb, account, delegate, 900)
	a.NoError(err)
	a.True(valid)
}

func TestRevokeIsIdempotent(t *testing.T) {
	partitiontest.PartitionTest(t)

	mb := makeMockBalances()
	account, delegate := basics.Address{1}, basics.Address{2}

	require.NoError(t, RevokeSessionKey(mb, account, delegate))
	require.NoError(t, RevokeSessionKey(mb, account, delegate))

	sk, ok, err := mb.GetSessionKey(account, delegate)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, sk.Active)
}

func TestGrantInThePast(t *testing.T) {
	partitiontest.PartitionTest(t)

	mb := makeMockBalances()
	account, delegate := basics.Address{1}, basics.Address{2}

	require.NoError(t, GrantSessionKey(mb, account, delegate, 5, basics.NewWei(1)))
	valid, err := SessionKeyValid(mb, account, delegate, 6)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestSessionKeysAreScopedToAccount(t *testing.T) {
	partitiontest.PartitionTest(t)

	mb := makeMockBalances()
	delegate := basics.Address{2}
	require.NoError(t, GrantSessionKey(mb, basics.Address{1}, delegate, 100, basics.NewWei(1)))

	valid, err := SessionKeyValid(mb, basics.Address{3}, delegate, 0)
	require.NoError(t, err)
	require.False(t, valid)
}
