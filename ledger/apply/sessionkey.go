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
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
)

// The functions below assume the caller already resolved to Self for account.

// GrantSessionKey creates or fully overwrites the key of delegate. Re-granting
// a revoked key makes it active again. validUntil is not bounded; a past value
// produces a key that is never valid.
func GrantSessionKey(balances Balances, account, delegate basics.Address, validUntil uint64, maxValue basics.Wei) error {
	return balances.PutSessionKey(account, delegate, ledgercore.SessionKey{
		ValidUntil: validUntil,
		MaxValue:   maxValue,
		Active:     true,
	})
}

// RevokeSessionKey marks the key of delegate inactive. It is idempotent, and
// revoking a delegate that never had a key writes an inactive tombstone.
func RevokeSessionKey(balances Balances, account, delegate basics.Address) error {
	key, _, err := balances.GetSessionKey(account, delegate)
	if err != nil {
		return err
	}
	key.Active = false
	return balances.PutSessionKey(account, delegate, key)
}

// SessionKeyValid reports whether delegate holds a usable key on account at now.
func SessionKeyValid(balances Balances, account, delegate basics.Address, now uint64) (bool, error) {
	key, ok, err := balances.GetSessionKey(account, delegate)
	if err != nil || !ok {
		return false, err
	}
	return key.Valid(now), nil
}
