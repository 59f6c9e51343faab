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

// Package sqlitedriver implements the store on a sqlite database.
package sqlitedriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/ledger/store"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/util/db"
)

type sqliteStore struct {
	pair db.Pair
	log  logging.Logger
}

// Open opens (creating if needed) the sqlite store in filename and brings its
// schema up to date.
func Open(filename string, inMemory bool, log logging.Logger) (store.Store, error) {
	pair, err := db.OpenPair(filename, inMemory)
	if err != nil {
		return nil, err
	}
	err = db.Initialize(context.Background(), pair.Wdb, migrations)
	if err != nil {
		pair.Close()
		return nil, fmt.Errorf("initializing %s: %w", filename, err)
	}
	log.Debugf("sqlite store opened at %s", filename)
	return &sqliteStore{pair: pair, log: log}, nil
}

type accountRow struct {
	Address     []byte         `db:"address"`
	Merchant    []byte         `db:"merchant"`
	Platform    []byte         `db:"platform"`
	Label       sql.NullString `db:"label"`
	Counter     int64          `db:"counter"`
	Coordinator []byte         `db:"coordinator"`
}

type sessionKeyRow struct {
	Account    []byte `db:"account"`
	Delegate   []byte `db:"delegate"`
	ValidUntil int64  `db:"validuntil"`
	MaxValue   []byte `db:"maxvalue"`
	Active     bool   `db:"active"`
}

type sponsorshipRow struct {
	Whitelisted bool  `db:"whitelisted"`
	Consumed    int64 `db:"consumed"`
}

type usageRow struct {
	ID       string `db:"id"`
	Sponsor  []byte `db:"sponsor"`
	Account  []byte `db:"account"`
	Cost     int64  `db:"cost"`
	Total    int64  `db:"total"`
	Recorded int64  `db:"recorded"`
}

func toAddress(b []byte) (addr basics.Address) {
	copy(addr[:], b)
	return
}

func amountBytes(w basics.Wei) []byte {
	b := w.Bytes32()
	return b[:]
}

func makeAccountRow(addr basics.Address, data ledgercore.AccountData) accountRow {
	return accountRow{
		Address:     addr[:],
		Merchant:    data.Merchant[:],
		Platform:    data.Platform[:],
		Label:       sql.NullString{String: data.Label, Valid: data.Label != ""},
		Counter:     int64(data.Counter),
		Coordinator: data.Coordinator[:],
	}
}

func (row accountRow) accountData() ledgercore.AccountData {
	return ledgercore.AccountData{
		Merchant:    toAddress(row.Merchant),
		Platform:    toAddress(row.Platform),
		Label:       row.Label.String,
		Counter:     uint64(row.Counter),
		Coordinator: toAddress(row.Coordinator),
	}
}

func (s *sqliteStore) LookupAccount(addr basics.Address) (ledgercore.AccountData, bool, error) {
	var row accountRow
	err := s.pair.Rdb.Handle.Get(&row, "SELECT * FROM accounts WHERE address = ?", addr[:])
	if errors.Is(err, sql.ErrNoRows) {
		return ledgercore.AccountData{}, false, nil
	}
	if err != nil {
		return ledgercore.AccountData{}, false, err
	}
	return row.accountData(), true, nil
}

func (s *sqliteStore) LookupLabel(label string) (basics.Address, bool, error) {
	var addr []byte
	err := s.pair.Rdb.Handle.Get(&addr, "SELECT address FROM accounts WHERE label = ?", label)
	if errors.Is(err, sql.ErrNoRows) {
		return basics.Address{}, false, nil
	}
	if err != nil {
		return basics.Address{}, false, err
	}
	return toAddress(addr), true, nil
}

func (s *sqliteStore) LookupSessionKey(account, delegate basics.Address) (ledgercore.SessionKey, bool, error) {
	var row sessionKeyRow
	err := s.pair.Rdb.Handle.Get(&row, "SELECT * FROM sessionkeys WHERE account = ? AND delegate = ?", account[:], delegate[:])
	if errors.Is(err, sql.ErrNoRows) {
		return ledgercore.SessionKey{}, false, nil
	}
	if err != nil {
		return ledgercore.SessionKey{}, false, err
	}
	maxValue, err := basics.WeiFromBytes(row.MaxValue)
	if err != nil {
		return ledgercore.SessionKey{}, false, err
	}
	return ledgercore.SessionKey{ValidUntil: uint64(row.ValidUntil), MaxValue: maxValue, Active: row.Active}, true, nil
}

func (s *sqliteStore) LookupBalance(addr basics.Address) (basics.Wei, error) {
	var amount []byte
	err := s.pair.Rdb.Handle.Get(&amount, "SELECT amount FROM balances WHERE address = ?", addr[:])
	if errors.Is(err, sql.ErrNoRows) {
		return basics.Wei{}, nil
	}
	if err != nil {
		return basics.Wei{}, err
	}
	return basics.WeiFromBytes(amount)
}

func (s *sqliteStore) RegisterAccount(ctx context.Context, addr basics.Address, data ledgercore.AccountData) error {
	return s.pair.Wdb.AtomicContext(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM accounts WHERE address = ?", addr[:]); err != nil {
			return err
		}
		if n > 0 {
			return store.ErrAccountExists
		}
		if data.Label != "" {
			if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM accounts WHERE label = ?", data.Label); err != nil {
				return err
			}
			if n > 0 {
				return store.ErrLabelTaken
			}
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO accounts (address, merchant, platform, label, counter, coordinator)
			VALUES (:address, :merchant, :platform, :label, :counter, :coordinator)`, makeAccountRow(addr, data))
		return err
	})
}

func (s *sqliteStore) CommitDelta(ctx context.Context, delta ledgercore.StateDelta) error {
	if delta.Empty() {
		return nil
	}
	return s.pair.Wdb.AtomicContext(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for addr, data := range delta.Accounts {
			// labels are fixed at registration
			_, err := tx.NamedExecContext(ctx, `INSERT INTO accounts (address, merchant, platform, label, counter, coordinator)
				VALUES (:address, :merchant, :platform, :label, :counter, :coordinator)
				ON CONFLICT(address) DO UPDATE SET merchant = excluded.merchant, platform = excluded.platform,
					counter = excluded.counter, coordinator = excluded.coordinator`, makeAccountRow(addr, data))
			if err != nil {
				return err
			}
		}
		for ref, sk := range delta.SessionKeys {
			row := sessionKeyRow{
				Account:    ref.Account[:],
				Delegate:   ref.Delegate[:],
				ValidUntil: int64(sk.ValidUntil),
				MaxValue:   amountBytes(sk.MaxValue),
				Active:     sk.Active,
			}
			_, err := tx.NamedExecContext(ctx, `INSERT OR REPLACE INTO sessionkeys (account, delegate, validuntil, maxvalue, active)
				VALUES (:account, :delegate, :validuntil, :maxvalue, :active)`, row)
			if err != nil {
				return err
			}
		}
		for addr, amount := range delta.Balances {
			_, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO balances (address, amount) VALUES (?, ?)", addr[:], amountBytes(amount))
			if err != nil {
				return err
			}
		}
		for id, until := range delta.Executed {
			_, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO executed (id, validuntil) VALUES (?, ?)", id[:], clampUnix(until))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// clampUnix keeps far-future expiries positive in sqlite's signed INTEGER, so
// that pruning by comparison never drops them early.
func clampUnix(t uint64) int64 {
	if t > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(t)
}

func (s *sqliteStore) LookupExecuted(id operation.OpID) (uint64, bool, error) {
	var until int64
	err := s.pair.Rdb.Handle.Get(&until, "SELECT validuntil FROM executed WHERE id = ?", id[:])
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return uint64(until), true, nil
}

func (s *sqliteStore) PruneExecuted(ctx context.Context, now uint64) error {
	return s.pair.Wdb.AtomicContext(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM executed WHERE validuntil < ?", clampUnix(now))
		return err
	})
}

func (s *sqliteStore) LookupSponsorship(sponsor, account basics.Address) (ledgercore.SponsorshipRecord, error) {
	var row sponsorshipRow
	err := s.pair.Rdb.Handle.Get(&row, "SELECT whitelisted, consumed FROM sponsorships WHERE sponsor = ? AND account = ?", sponsor[:], account[:])
	if errors.Is(err, sql.ErrNoRows) {
		return ledgercore.SponsorshipRecord{}, nil
	}
	if err != nil {
		return ledgercore.SponsorshipRecord{}, err
	}
	return ledgercore.SponsorshipRecord{Whitelisted: row.Whitelisted, Consumed: basics.Gas(row.Consumed)}, nil
}

func (s *sqliteStore) IsShutdown(sponsor basics.Address) (bool, error) {
	var shutdown bool
	err := s.pair.Rdb.Handle.Get(&shutdown, "SELECT shutdown FROM sponsorstatus WHERE sponsor = ?", sponsor[:])
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return shutdown, err
}

func (s *sqliteStore) UsageEntries(sponsor, account basics.Address) ([]ledgercore.UsageEntry, error) {
	var rows []usageRow
	err := s.pair.Rdb.Handle.Select(&rows, "SELECT id, sponsor, account, cost, total, recorded FROM usage WHERE sponsor = ? AND account = ? ORDER BY seq", sponsor[:], account[:])
	if err != nil {
		return nil, err
	}
	var entries []ledgercore.UsageEntry
	for _, row := range rows {
		entries = append(entries, ledgercore.UsageEntry{
			ID:       row.ID,
			Sponsor:  toAddress(row.Sponsor),
			Account:  toAddress(row.Account),
			Cost:     basics.Gas(row.Cost),
			Total:    basics.Gas(row.Total),
			Recorded: row.Recorded,
		})
	}
	return entries, nil
}

func (s *sqliteStore) SetWhitelisted(ctx context.Context, sponsor, account basics.Address, whitelisted bool) error {
	return s.pair.Wdb.AtomicContext(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO sponsorships (sponsor, account, whitelisted) VALUES (?, ?, ?)
			ON CONFLICT(sponsor, account) DO UPDATE SET whitelisted = excluded.whitelisted`, sponsor[:], account[:], whitelisted)
		return err
	})
}

func (s *sqliteStore) SetShutdown(ctx context.Context, sponsor basics.Address, shutdown bool) error {
	return s.pair.Wdb.AtomicContext(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO sponsorstatus (sponsor, shutdown) VALUES (?, ?)", sponsor[:], shutdown)
		return err
	})
}

func (s *sqliteStore) AppendUsage(ctx context.Context, entry ledgercore.UsageEntry) (written ledgercore.UsageEntry, err error) {
	err = s.pair.Wdb.AtomicContext(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var consumed int64
		err := tx.GetContext(ctx, &consumed, "SELECT consumed FROM sponsorships WHERE sponsor = ? AND account = ?", entry.Sponsor[:], entry.Account[:])
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		total, overflowed := basics.OAdd(basics.Gas(consumed), entry.Cost)
		if overflowed {
			return ledgercore.InvariantError{Invariant: ledgercore.InvariantUsageOverflow, Account: entry.Account}
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO sponsorships (sponsor, account, consumed) VALUES (?, ?, ?)
			ON CONFLICT(sponsor, account) DO UPDATE SET consumed = excluded.consumed`, entry.Sponsor[:], entry.Account[:], int64(total))
		if err != nil {
			return err
		}
		row := usageRow{
			ID:       entry.ID,
			Sponsor:  entry.Sponsor[:],
			Account:  entry.Account[:],
			Cost:     int64(entry.Cost),
			Total:    int64(total),
			Recorded: entry.Recorded,
		}
		_, err = tx.NamedExecContext(ctx, `INSERT INTO usage (id, sponsor, account, cost, total, recorded)
			VALUES (:id, :sponsor, :account, :cost, :total, :recorded)`, row)
		if err != nil {
			return err
		}
		written = entry
		written.Total = total
		return nil
	})
	return
}

func (s *sqliteStore) Close() {
	s.pair.Close()
}
