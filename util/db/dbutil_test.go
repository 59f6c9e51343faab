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
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/test/partitiontest"
)

func TestInMemoryDisposal(t *testing.T) {
	partitiontest.PartitionTest(t)

	acc, err := MakeAccessor("fn.db", false, true)
	require.NoError(t, err)
	err = acc.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.Exec("create table Service (data blob)")
		return err
	})
	require.NoError(t, err)

	err = acc.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
		raw := []byte{0, 1, 2}
		_, err := tx.Exec("insert or replace into Service (rowid, data) values (1, ?)", raw)
		return err
	})
	require.NoError(t, err)

	anotherAcc, err := MakeAccessor("fn.db", false, true)
	require.NoError(t, err)
	err = anotherAcc.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
		var nrows int
		return tx.Get(&nrows, "select count(*) from Service")
	})
	require.NoError(t, err)
	anotherAcc.Close()

	acc.Close()

	acc, err = MakeAccessor("fn.db", false, true)
	require.NoError(t, err)
	err = acc.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
		var nrows int
		if tx.Get(&nrows, "select count(*) from Service") == nil {
			return errors.New("table `Service` presents while it should not")
		}
		return nil
	})
	require.NoError(t, err)

	acc.Close()
}

func TestAtomicRollsBackOnError(t *testing.T) {
	partitiontest.PartitionTest(t)

	acc, err := MakeAccessor(t.Name()+".db", false, true)
	require.NoError(t, err)
	defer acc.Close()

	require.NoError(t, acc.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.Exec("CREATE TABLE foo (a INTEGER)")
		return err
	}))

	boom := errors.New("boom")
	err = acc.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.Exec("INSERT INTO foo (a) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = acc.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
		panic("inside tx")
	})
	require.EqualError(t, err, "inside tx")

	var n int
	require.NoError(t, acc.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.Get(&n, "SELECT COUNT(*) FROM foo")
	}))
	require.Zero(t, n)
}

func TestAtomicCanceledContext(t *testing.T) {
	partitiontest.PartitionTest(t)

	acc, err := MakeAccessor(t.Name()+".db", false, true)
	require.NoError(t, err)
	defer acc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = acc.AtomicContext(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestDBConcurrencyRW(t *testing.T) {
	partitiontest.PartitionTest(t)

	fn := filepath.Join(t.TempDir(), fmt.Sprintf("%s.sqlite3", t.Name()))
	acc, err := MakeAccessor(fn, false, false)
	require.NoError(t, err)
	defer acc.Close()

	acc2, err := MakeAccessor(fn, true, false)
	require.NoError(t, err)
	defer acc2.Close()

	err = acc.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.Exec("CREATE TABLE t (a INTEGER PRIMARY KEY)")
		return err
	})
	require.NoError(t, err)

	var lastInsert int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer atomic.StoreInt64(&lastInsert, -1)
		for i := int64(1); i <= 500; i++ {
			errw := acc.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
				_, err := tx.Exec("INSERT INTO t (a) VALUES (?)", i)
				return err
			})
			atomic.StoreInt64(&lastInsert, i)
			require.NoError(t, errw)
		}
	}()

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				id := atomic.LoadInt64(&lastInsert)
				if id == 0 {
					continue
				}
				if id < 0 {
					break
				}
				var x int64
				errsel := acc2.Atomic(func(ctx context.Context, tx *sqlx.Tx) error {
					return tx.Get(&x, "SELECT a FROM t WHERE a=?", id)
				})
				if errsel != nil {
					t.Errorf("selecting %d: %v", id, errsel)
					return
				}
				require.Equal(t, x, id)
			}
		}()
	}

	wg.Wait()
}
