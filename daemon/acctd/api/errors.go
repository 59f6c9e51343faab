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

var (
	errFailedToParseAddress   = "failed to parse the address"
	errFailedToParseBody      = "failed to parse the request body"
	errFailedToParseQuery     = "failed to parse the query"
	errFailedLookingUpLedger  = "failed to retrieve information from the ledger"
	errAccountNotFound        = "account not found"
	errLabelNotFound          = "label not found"
	errSessionKeyNotFound     = "session key not found"
	errRESTPayloadZeroLength  = "payload was of zero length"
	errServiceShuttingDown    = "operation aborted as server is shutting down"
	errFailedToRegister       = "failed to register the account: %v"
	errFailedToDeposit        = "failed to deposit: %v"
	errSponsorCommandRejected = "sponsor command rejected: %v"
)
