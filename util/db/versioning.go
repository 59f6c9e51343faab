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
package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migration upgrades the schema by one version.
type Migration func(ctx context.Context, tx *sqlx.Tx) error

// GetUserVersion returns the user version field stored in the sqlite database.
func GetUserVersion(ctx context.Context, tx *sqlx.Tx) (userVersion int32, err error) {
	err = tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&userVersion)
	if err != nil {
		return 0, err
	}
	return
}

// SetUserVersion sets the userVersion as the new user version, returning the previous one.
func SetUserVersion(ctx context.Context, tx *sqlx.Tx, userVersion int32) (previousUserVersion int32, err error) {
	previousUserVersion, err = GetUserVersion(ctx, tx)
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", userVersion))
	if err != nil {
		return 0, err
	}
	return
}

// Initialize brings the schema up to date by running, in order, every
// migration past the stored user version.
func Initialize(ctx context.Context, accessor Accessor, migrations []Migration) error {
	return accessor.AtomicContext(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		version, err := GetUserVersion(ctx, tx)
		if err != nil {
			return err
		}
		if int(version) > len(migrations) {
			return fmt.Errorf("database schema version %d is newer than supported %d", version, len(migrations))
		}
		for v := int(version); v < len(migrations); v++ {
			if err := migrations[v](ctx, tx); err != nil {
				return fmt.Errorf("migration to version %d: %w", v+1, err)
			}
		}
		_, err = SetUserVersion(ctx, tx, int32(len(migrations)))
		return err
	})
}
