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

package api

import (
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
)

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Message string `json:"message"`
}

// RegisterAccountRequest is the body of POST /v1/accounts
type RegisterAccountRequest struct {
	Address     basics.Address `json:"address"`
	Merchant    basics.Address `json:"merchant"`
	Platform    basics.Address `json:"platform,omitempty"`
	Label       string         `json:"label"`
	Coordinator basics.Address `json:"coordinator,omitempty"`
}

// AccountResponse describes a programmable account
type AccountResponse struct {
	Address     basics.Address  `json:"address"`
	Merchant    basics.Address  `json:"merchant"`
	Platform    *basics.Address `json:"platform,omitempty"`
	Label       string          `json:"label"`
	Counter     uint64          `json:"counter"`
	Coordinator *basics.Address `json:"coordinator,omitempty"`
	Balance     basics.Wei      `json:"balance"`
}

// DepositRequest is the body of POST /v1/balances/:address/deposit
type DepositRequest struct {
	Amount basics.Wei `json:"amount"`
}

// BalanceResponse carries the native balance of an address
type BalanceResponse struct {
	Address basics.Address `json:"address"`
	Balance basics.Wei     `json:"balance"`
}

// SessionKeyResponse describes the session key of a delegate
type SessionKeyResponse struct {
	Account    basics.Address `json:"account"`
	Delegate   basics.Address `json:"delegate"`
	ValidUntil uint64         `json:"validUntil"`
	MaxValue   basics.Wei     `json:"maxValue"`
	Active     bool           `json:"active"`
	Valid      bool           `json:"valid"`
}

// UsageRequest holds the query parameters of GET /v1/sponsors/:sponsor/usage/:address
type UsageRequest struct {
	// Limit caps the number of entries returned, most recent last. Zero returns all.
	Limit uint64 `query:"limit" url:"limit,omitempty"`
}

// UsageResponse is the usage history of one account under one sponsor
type UsageResponse struct {
	Sponsor basics.Address          `json:"sponsor"`
	Account basics.Address          `json:"account"`
	Total   basics.Gas              `json:"total"`
	Entries []ledgercore.UsageEntry `json:"entries"`
}

// StatusResponse is the node status
type StatusResponse struct {
	StoreBackend      string           `json:"storeBackend"`
	Sponsors          []basics.Address `json:"sponsors"`
	OperationsApplied uint64           `json:"operationsApplied"`
	LastOperationTime int64            `json:"lastOperationTime"`
	Now               uint64           `json:"now"`
}
