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

// Package pebbledriver implements the store on a pebble key-value database.
package pebbledriver

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"

	"github.com/algorand/go-deadlock"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/ledger/store"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/protocol"
)

// key prefixes
const (
	prefixAccount     = "a/"
	prefixLabel       = "l/"
	prefixSessionKey  = "k/"
	prefixBalance     = "b/"
	prefixSponsorship = "s/"
	prefixShutdown    = "x/"
	prefixUsage       = "u/"
	prefixExecuted    = "e/"
	keyUsageSeq       = "m/useq"
)

type pebbleStore struct {
	// writeMu serializes read-modify-write sequences; pebble batches only
	// make the final writes atomic.
	writeMu deadlock.Mutex

	pdb *pebble.DB
	wo  *pebble.WriteOptions
}

// Open opens a pebble database in dbdir. With inMem the files live in memory
// and dbdir only names the database.
func Open(dbdir string, inMem bool, log logging.Logger) (store.Store, error) {
	opts := &pebble.Options{
		Logger: log,
	}
	if inMem {
		opts.FS = vfs.NewMem()
	}
	pdb, err := pebble.Open(dbdir, opts)
	if err != nil {
		return nil, err
	}
	return &pebbleStore{pdb: pdb, wo: pebble.Sync}, nil
}

func makeKey(prefix string, parts ...[]byte) []byte {
	key := []byte(prefix)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// upperBound returns the smallest key greater than every key with the given prefix.
func upperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// get decodes the value under key into objptr and reports whether it existed.
func (s *pebbleStore) get(key []byte, objptr interface{}) (bool, error) {
	value, closer, err := s.pdb.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()
	return true, protocol.Decode(value, objptr)
}

func (s *pebbleStore) getRaw(key []byte) ([]byte, bool, error) {
	value, closer, err := s.pdb.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	return bytes.Clone(value), true, nil
}

func (s *pebbleStore) LookupAccount(addr basics.Address) (data ledgercore.AccountData, ok bool, err error) {
	ok, err = s.get(makeKey(prefixAccount, addr[:]), &data)
	return
}

func (s *pebbleStore) LookupLabel(label string) (basics.Address, bool, error) {
	raw, ok, err := s.getRaw(makeKey(prefixLabel, []byte(label)))
	if err != nil || !ok {
		return basics.Address{}, false, err
	}
	var addr basics.Address
	copy(addr[:], raw)
	return addr, true, nil
}

func (s *pebbleStore) LookupSessionKey(account, delegate basics.Address) (sk ledgercore.SessionKey, ok bool, err error) {
	ok, err = s.get(makeKey(prefixSessionKey, account[:], delegate[:]), &sk)
	return
}

func (s *pebbleStore) LookupBalance(addr basics.Address) (basics.Wei, error) {
	raw, ok, err := s.getRaw(makeKey(prefixBalance, addr[:]))
	if err != nil || !ok {
		return basics.Wei{}, err
	}
	return basics.WeiFromBytes(raw)
}

func (s *pebbleStore) RegisterAccount(ctx context.Context, addr basics.Address, data ledgercore.AccountData) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, exists, err := s.LookupAccount(addr)
	if err != nil {
		return err
	}
	if exists {
		return store.ErrAccountExists
	}
	wb := s.pdb.NewBatch()
	defer wb.Close()
	if data.Label != "" {
		_, taken, err := s.LookupLabel(data.Label)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrLabelTaken
		}
		if err := wb.Set(makeKey(prefixLabel, []byte(data.Label)), addr[:], nil); err != nil {
			return err
		}
	}
	if err := wb.Set(makeKey(prefixAccount, addr[:]), protocol.Encode(&data), nil); err != nil {
		return err
	}
	return wb.Commit(s.wo)
}

func (s *pebbleStore) CommitDelta(ctx context.Context, delta ledgercore.StateDelta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	wb := s.pdb.NewBatch()
	defer wb.Close()
	for addr, data := range delta.Accounts {
		if err := wb.Set(makeKey(prefixAccount, addr[:]), protocol.Encode(&data), nil); err != nil {
			return err
		}
	}
	for ref, sk := range delta.SessionKeys {
		if err := wb.Set(makeKey(prefixSessionKey, ref.Account[:], ref.Delegate[:]), protocol.Encode(&sk), nil); err != nil {
			return err
		}
	}
	for addr, amount := range delta.Balances {
		b := amount.Bytes32()
		if err := wb.Set(makeKey(prefixBalance, addr[:]), b[:], nil); err != nil {
			return err
		}
	}
	for id, until := range delta.Executed {
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], until)
		if err := wb.Set(makeKey(prefixExecuted, id[:]), v[:], nil); err != nil {
			return err
		}
	}
	return wb.Commit(s.wo)
}

func (s *pebbleStore) LookupExecuted(id operation.OpID) (uint64, bool, error) {
	raw, ok, err := s.getRaw(makeKey(prefixExecuted, id[:]))
	if err != nil || !ok {
		return 0, false, err
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

func (s *pebbleStore) PruneExecuted(ctx context.Context, now uint64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prefix := []byte(prefixExecuted)
	iter, err := s.pdb.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return err
	}
	defer iter.Close()

	wb := s.pdb.NewBatch()
	defer wb.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if binary.BigEndian.Uint64(iter.Value()) >= now {
			continue
		}
		if err := wb.Delete(bytes.Clone(iter.Key()), nil); err != nil {
			return err
		}
	}
	if wb.Empty() {
		return nil
	}
	return wb.Commit(s.wo)
}

func (s *pebbleStore) LookupSponsorship(sponsor, account basics.Address) (rec ledgercore.SponsorshipRecord, err error) {
	_, err = s.get(makeKey(prefixSponsorship, sponsor[:], account[:]), &rec)
	return
}

func (s *pebbleStore) IsShutdown(sponsor basics.Address) (bool, error) {
	raw, ok, err := s.getRaw(makeKey(prefixShutdown, sponsor[:]))
	if err != nil || !ok {
		return false, err
	}
	return len(raw) == 1 && raw[0] == 1, nil
}

func (s *pebbleStore) UsageEntries(sponsor, account basics.Address) ([]ledgercore.UsageEntry, error) {
	prefix := makeKey(prefixUsage, sponsor[:], account[:])
	iter, err := s.pdb.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []ledgercore.UsageEntry
	for iter.First(); iter.Valid(); iter.Next() {
		var entry ledgercore.UsageEntry
		if err := protocol.Decode(iter.Value(), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *pebbleStore) SetWhitelisted(ctx context.Context, sponsor, account basics.Address, whitelisted bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.LookupSponsorship(sponsor, account)
	if err != nil {
		return err
	}
	rec.Whitelisted = whitelisted
	return s.pdb.Set(makeKey(prefixSponsorship, sponsor[:], account[:]), protocol.Encode(&rec), s.wo)
}

func (s *pebbleStore) SetShutdown(ctx context.Context, sponsor basics.Address, shutdown bool) error {
	var v byte
	if shutdown {
		v = 1
	}
	return s.pdb.Set(makeKey(prefixShutdown, sponsor[:]), []byte{v}, s.wo)
}

func (s *pebbleStore) AppendUsage(ctx context.Context, entry ledgercore.UsageEntry) (ledgercore.UsageEntry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.LookupSponsorship(entry.Sponsor, entry.Account)
	if err != nil {
		return ledgercore.UsageEntry{}, err
	}
	total, overflowed := basics.OAdd(rec.Consumed, entry.Cost)
	if overflowed {
		return ledgercore.UsageEntry{}, ledgercore.InvariantError{Invariant: ledgercore.InvariantUsageOverflow, Account: entry.Account}
	}
	rec.Consumed = total
	entry.Total = total

	var seq uint64
	raw, ok, err := s.getRaw([]byte(keyUsageSeq))
	if err != nil {
		return ledgercore.UsageEntry{}, err
	}
	if ok {
		seq = binary.BigEndian.Uint64(raw)
	}
	seq++
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)

	wb := s.pdb.NewBatch()
	defer wb.Close()
	if err := wb.Set(makeKey(prefixSponsorship, entry.Sponsor[:], entry.Account[:]), protocol.Encode(&rec), nil); err != nil {
		return ledgercore.UsageEntry{}, err
	}
	if err := wb.Set(makeKey(prefixUsage, entry.Sponsor[:], entry.Account[:], seqBytes[:]), protocol.Encode(&entry), nil); err != nil {
		return ledgercore.UsageEntry{}, err
	}
	if err := wb.Set([]byte(keyUsageSeq), seqBytes[:], nil); err != nil {
		return ledgercore.UsageEntry{}, err
	}
	if err := wb.Commit(s.wo); err != nil {
		return ledgercore.UsageEntry{}, err
	}
	return entry, nil
}

func (s *pebbleStore) Close() {
	s.pdb.Close()
}
