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

// CompletionRecord is emitted by every successful batch.
type CompletionRecord struct {
	Account basics.Address `json:"account"`
	// Counter is the replay counter value before the increment.
	Counter uint64 `json:"counter"`
	Calls   int    `json:"calls"`
}

// Receipt is what the coordinator gets back for a submitted operation.
type Receipt struct {
	ID         string            `json:"id"`
	OpID       operation.OpID    `json:"-"`
	Account    basics.Address    `json:"account"`
	Code       OutcomeCode       `json:"code"`
	Reason     string            `json:"reason,omitempty"`
	Completion *CompletionRecord `json:"completion,omitempty"`
	ActualCost basics.Gas        `json:"actualCost"`
	Sponsored  bool              `json:"sponsored"`
}

// Succeeded reports whether the operation was committed.
func (r Receipt) Succeeded() bool {
	return r.Code == Success
}
