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

package sqlitedriver

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/irfanm0/erc4337/util/db"
)

// Amounts are stored as 32-byte big-endian blobs. Counters and gas are
// uint64 values stored bit for bit in sqlite's signed INTEGER.
var accountsSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		address BLOB PRIMARY KEY,
		merchant BLOB NOT NULL,
		platform BLOB NOT NULL,
		label TEXT UNIQUE,
		counter INTEGER NOT NULL DEFAULT 0,
		coordinator BLOB NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS sessionkeys (
		account BLOB NOT NULL,
		delegate BLOB NOT NULL,
		validuntil INTEGER NOT NULL,
		maxvalue BLOB NOT NULL,
		active INTEGER NOT NULL,
		PRIMARY KEY (account, delegate))`,
	`CREATE TABLE IF NOT EXISTS balances (
		address BLOB PRIMARY KEY,
		amount BLOB NOT NULL)`,
}

var sponsorSchema = []string{
	`CREATE TABLE IF NOT EXISTS sponsorships (
		sponsor BLOB NOT NULL,
		account BLOB NOT NULL,
		whitelisted INTEGER NOT NULL DEFAULT 0,
		consumed INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (sponsor, account))`,
	`CREATE TABLE IF NOT EXISTS sponsorstatus (
		sponsor BLOB PRIMARY KEY,
		shutdown INTEGER NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS usage (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		sponsor BLOB NOT NULL,
		account BLOB NOT NULL,
		cost INTEGER NOT NULL,
		total INTEGER NOT NULL,
		recorded INTEGER NOT NULL)`,
	`CREATE INDEX IF NOT EXISTS usage_sponsor_account ON usage (sponsor, account, seq)`,
}

var replaySchema = []string{
	`CREATE TABLE IF NOT EXISTS executed (
		id BLOB PRIMARY KEY,
		validuntil INTEGER NOT NULL)`,
	`CREATE INDEX IF NOT EXISTS executed_validuntil ON executed (validuntil)`,
}

// migrations brings an empty database to the current schema, one version per entry.
var migrations = []db.Migration{
	execAll(accountsSchema),
	execAll(sponsorSchema),
	execAll(replaySchema),
}

func execAll(stmts []string) db.Migration {
	return func(ctx context.Context, tx *sqlx.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}
