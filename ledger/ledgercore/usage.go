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
)

// UsageEntry is one line of a sponsor's usage history. Entries are never
// changed or removed once written.
type UsageEntry struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	ID      string         `codec:"id" json:"id"`
	Sponsor basics.Address `codec:"sponsor" json:"sponsor"`
	Account basics.Address `codec:"acct" json:"account"`
	Cost    basics.Gas     `codec:"cost" json:"cost"`

	// Total is the account's cumulative consumed cost after this entry.
	Total basics.Gas `codec:"total" json:"total"`

	// Recorded is a unix timestamp in seconds.
	Recorded int64 `codec:"ts" json:"recorded"`
}
