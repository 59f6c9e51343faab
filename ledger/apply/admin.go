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
	"fmt"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
)

// applySelfCall runs the administrative entry point carried by a call from
// account to itself. Only the batch executor reaches it, with Self authority.
func applySelfCall(balances Balances, account basics.Address, call operation.Call) error {
	ac, err := operation.DecodeAdminCall(call.Payload)
	if err != nil {
		return fmt.Errorf("self-call rejected: %v", err)
	}

	switch ac.Action {
	case operation.GrantSessionKey:
		return GrantSessionKey(balances, account, ac.Delegate, ac.ValidUntil, ac.MaxValue)
	case operation.RevokeSessionKey:
		return RevokeSessionKey(balances, account, ac.Delegate)
	case operation.SetPlatform, operation.SetMerchant:
		return setAuthority(balances, account, ac)
	default:
		return fmt.Errorf("unknown admin action %q", ac.Action)
	}
}

func setAuthority(balances Balances, account basics.Address, ac operation.AdminCall) error {
	data, ok, err := balances.Get(account)
	if err != nil {
		return ledgercore.StoreError{Err: err}
	}
	if !ok {
		return ledgercore.ErrAccountNotFound
	}
	if ac.Action == operation.SetPlatform {
		data.Platform = ac.Authority
	} else {
		data.Merchant = ac.Authority
	}
	return balances.Put(account, data)
}
