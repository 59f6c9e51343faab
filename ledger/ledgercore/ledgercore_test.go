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

package ledgercore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/test/partitiontest"
)

func TestSessionKeyValid(t *testing.T) {
	partitiontest.PartitionTest(t)

	sk := SessionKey{ValidUntil: 100, MaxValue: basics.NewWei(1), Active: true}
	require.True(t, sk.Valid(0))
	require.True(t, sk.Valid(100))
	require.False(t, sk.Valid(101))

	sk.Active = false
	require.False(t, sk.Valid(0))
}

func TestInactiveSessionKeyNeverValid(t *testing.T) {
	partitiontest.PartitionTest(t)

	rapid.Check(t, func(t1 *rapid.T) {
		sk := SessionKey{
			ValidUntil: rapid.Uint64().Draw(t1, "validUntil"),
			MaxValue:   basics.NewWei(rapid.Uint64().Draw(t1, "maxValue")),
		}
		now := rapid.Uint64().Draw(t1, "now")
		require.False(t1, sk.Valid(now))
	})
}

func TestExpiredSessionKeyNeverValid(t *testing.T) {
	partitiontest.PartitionTest(t)

	rapid.Check(t, func(t1 *rapid.T) {
		validUntil := rapid.Uint64Range(0, math.MaxUint64-1).Draw(t1, "validUntil")
		now := rapid.Uint64Range(validUntil+1, math.MaxUint64).Draw(t1, "now")
		sk := SessionKey{ValidUntil: validUntil, Active: true}
		require.False(t1, sk.Valid(now))
	})
}

func TestClassifyError(t *testing.T) {
	partitiontest.PartitionTest(t)

	code, reason := ClassifyError(nil)
	require.Equal(t, Success, code)
	require.Empty(t, reason)

	code, reason = ClassifyError(UnauthorizedError{Reason: "signer unknown"})
	require.Equal(t, Unauthorized, code)
	require.Equal(t, "signer unknown", reason)

	code, reason = ClassifyError(fmt.Errorf("admit: %w", PolicyError{Constraint: ConstraintFundedBalance}))
	require.Equal(t, PolicyRejected, code)
	require.Equal(t, "insufficient funded balance", reason)

	code, _ = ClassifyError(operation.MalformedError("bad"))
	require.Equal(t, PolicyRejected, code)

	code, reason = ClassifyError(InvariantError{Invariant: InvariantCounterMismatch})
	require.Equal(t, InvariantViolation, code)
	require.Equal(t, "replay counter mismatch", reason)

	code, _ = ClassifyError(StoreError{Err: errors.New("disk")})
	require.Equal(t, SystemFault, code)

	// call failures come back verbatim
	code, reason = ClassifyError(errors.New("revert: out of stock"))
	require.Equal(t, ExecutionFailed, code)
	require.Equal(t, "revert: out of stock", reason)
}

func TestOutcomeCodeText(t *testing.T) {
	partitiontest.PartitionTest(t)

	require.Equal(t, "PolicyRejected", PolicyRejected.String())
	require.Equal(t, "OutcomeCode(42)", OutcomeCode(42).String())

	data, err := json.Marshal(Receipt{Code: InvariantViolation})
	require.NoError(t, err)
	require.Contains(t, string(data), `"code":"InvariantViolation"`)

	var r Receipt
	require.NoError(t, json.Unmarshal(data, &r))
	require.Equal(t, InvariantViolation, r.Code)
	require.Error(t, json.Unmarshal([]byte(`{"code":"Maybe"}`), &r))
}

func TestStateDeltaMerge(t *testing.T) {
	partitiontest.PartitionTest(t)

	base := MakeStateDelta(1)
	require.True(t, base.Empty())
	base.Balances[basics.Address{1}] = basics.NewWei(1)
	base.Accounts[basics.Address{1}] = AccountData{Counter: 1}

	child := MakeStateDelta(1)
	child.Balances[basics.Address{1}] = basics.NewWei(2)
	child.SessionKeys[SessionKeyRef{Account: basics.Address{1}, Delegate: basics.Address{2}}] = SessionKey{Active: true}

	base.MergeFrom(child)
	require.Equal(t, basics.NewWei(2), base.Balances[basics.Address{1}])

	executed := MakeStateDelta(0)
	require.True(t, executed.Empty())
	executed.Executed[operation.OpID{9}] = 60
	require.False(t, executed.Empty())
	base.MergeFrom(executed)
	require.Equal(t, uint64(60), base.Executed[operation.OpID{9}])
	require.Equal(t, uint64(1), base.Accounts[basics.Address{1}].Counter)
	require.Len(t, base.SessionKeys, 1)
	require.False(t, base.Empty())
}
