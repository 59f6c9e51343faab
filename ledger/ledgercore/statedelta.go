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
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
)

// StateDelta describes the changes one operation makes to the account store.
// Entries hold full new values, not differences.
type StateDelta struct {
	Accounts    map[basics.Address]AccountData
	SessionKeys map[SessionKeyRef]SessionKey
	Balances    map[basics.Address]basics.Wei

	// Executed maps the IDs of one-shot requests (delegated calls, sponsor
	// commands) to the last second they could be replayed at.
	Executed map[operation.OpID]uint64
}

// MakeStateDelta creates a new instance of StateDelta.
// hint is amount of accounts the delta is expected to touch.
func MakeStateDelta(hint int) StateDelta {
	return StateDelta{
		Accounts:    make(map[basics.Address]AccountData, hint),
		SessionKeys: make(map[SessionKeyRef]SessionKey),
		Balances:    make(map[basics.Address]basics.Wei, hint*2),
		Executed:    make(map[operation.OpID]uint64),
	}
}

// MergeFrom overlays other on top of sd.
func (sd *StateDelta) MergeFrom(other StateDelta) {
	for addr, ad := range other.Accounts {
		sd.Accounts[addr] = ad
	}
	for ref, sk := range other.SessionKeys {
		sd.SessionKeys[ref] = sk
	}
	for addr, bal := range other.Balances {
		sd.Balances[addr] = bal
	}
	for id, until := range other.Executed {
		sd.Executed[id] = until
	}
}

// Empty reports whether the delta changes nothing.
func (sd StateDelta) Empty() bool {
	return len(sd.Accounts) == 0 && len(sd.SessionKeys) == 0 && len(sd.Balances) == 0 && len(sd.Executed) == 0
}
