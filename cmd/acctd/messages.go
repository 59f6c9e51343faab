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

const (
	// General
	errorNoDataDirectory  = "Data directory not specified.  Please use -d or set $ACCTD_DATA in your environment. Exiting."
	errorDirectoryInvalid = "Data directory %s does not appear to be valid"
	errorRequestFail      = "Error processing command: %s"
	errorParseAddr        = "Failed to parse addr: %v"
	errorParseAmount      = "Failed to parse amount: %v"
	errorNodeNotRunning   = "Cannot reach the node in %s: %v. Is acctd running?"
	errorLoadKey          = "Failed to load the signing key: %v"

	// Init and run
	infoInitialized   = "Initialized data directory %s"
	errorAlreadyInit  = "Data directory %s already has a %s"
	errorLockFailed   = "failed to lock %s; is an instance of acctd already running in this data directory?"
	errorLockUnexpect = "unexpected failure in establishing %s: %v"

	// Accounts
	infoRegistered = "Registered account %s (%s)"
	infoDeposited  = "Balance of %s is now %s"

	// Sponsor
	infoSponsorCommand = "Sponsor %s: %s done"
)
