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

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/test/partitiontest"
)

func TestCommandTree(t *testing.T) {
	partitiontest.PartitionTest(t)

	for _, path := range [][]string{
		{"init"}, {"run"}, {"keygen"}, {"status"},
		{"account", "register"}, {"account", "info"}, {"account", "session-key"}, {"account", "deposit"},
		{"sponsor", "whitelist"}, {"sponsor", "unwhitelist"}, {"sponsor", "shutdown"},
		{"sponsor", "resume"}, {"sponsor", "withdraw"}, {"sponsor", "usage"},
	} {
		cmd, rest, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		require.Empty(t, rest)
		require.Equal(t, path[len(path)-1], cmd.Name())
	}

	withdraw, _, err := rootCmd.Find([]string{"sponsor", "withdraw"})
	require.NoError(t, err)
	require.NotNil(t, withdraw.Flags().Lookup("to"))
	require.Nil(t, withdraw.Flags().Lookup("account"))
}

func TestParseHelpers(t *testing.T) {
	partitiontest.PartitionTest(t)

	addr := basics.Address{0xaa}
	require.Equal(t, addr, parseAddr(addr.String()))
	require.True(t, parseOptionalAddr("").IsZero())
	require.Equal(t, basics.NewWei(255), parseAmount("0xff"))
}
