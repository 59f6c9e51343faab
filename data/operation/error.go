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

package operation

import (
	"fmt"
)

// MalformedError defines an error type which could be returned from the method WellFormed
type MalformedError string

func (err MalformedError) Error() string {
	return string(err)
}

func makeMalformedErrorf(format string, args ...interface{}) MalformedError {
	return MalformedError(fmt.Sprintf(format, args...))
}
