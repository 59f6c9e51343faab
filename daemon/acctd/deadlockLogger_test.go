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

package acctd

import (
	"testing"

	"github.com/algorand/go-deadlock"
	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/test/partitiontest"
)

func TestDeadlockLoggerReportsOnce(t *testing.T) {
	partitiontest.PartitionTest(t)

	logBuf, onDeadlock := deadlock.Opts.LogBuf, deadlock.Opts.OnPotentialDeadlock
	defer func() {
		deadlock.Opts.LogBuf, deadlock.Opts.OnPotentialDeadlock = logBuf, onDeadlock
	}()

	dl := setupDeadlockLogger(logging.TestingLog(t))
	reports := make(chan string, 2)
	dl.report = func(s string) { reports <- s }

	_, err := dl.Write([]byte("lock held too long"))
	require.NoError(t, err)
	dl.onPotentialDeadlock()
	dl.onPotentialDeadlock()

	require.Equal(t, "lock held too long", <-reports)
	require.Empty(t, reports)
}
