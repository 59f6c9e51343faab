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

package node

import (
	"fmt"

	"github.com/irfanm0/erc4337/data/basics"
)

// Unknown sponsor error

// UnknownSponsorError indicates that the node runs no gate for the named sponsor
type UnknownSponsorError struct {
	sponsor basics.Address
}

// MakeUnknownSponsorError creates the error
func MakeUnknownSponsorError(sponsor basics.Address) *UnknownSponsorError {
	return &UnknownSponsorError{sponsor: sponsor}
}

// Error satisfies builtin interface `error`
func (e *UnknownSponsorError) Error() string {
	return fmt.Sprintf("no sponsorship gate for %v", e.sponsor)
}

// Sponsor command rejected error

// CommandRejectedError indicates that a sponsor command was refused before reaching its gate
type CommandRejectedError struct {
	message string
}

// MakeCommandRejectedError creates the error
func MakeCommandRejectedError(format string, args ...interface{}) *CommandRejectedError {
	return &CommandRejectedError{message: fmt.Sprintf(format, args...)}
}

// Error satisfies builtin interface `error`
func (e *CommandRejectedError) Error() string {
	return e.message
}
