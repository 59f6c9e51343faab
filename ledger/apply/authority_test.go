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

package apply

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/crypto"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/test/partitiontest"
)

type authFixture struct {
	balances *mockBalances
	account  basics.Address
	merchant *crypto.SignatureSecrets
	platform *crypto.SignatureSecrets
	stranger *crypto.SignatureSecrets
	delegate basics.Address
}

func makeAuthFixture(t *testing.T) authFixture {
	var f authFixture
	var err error
	f.merchant, err = crypto.GenerateSignatureSecrets()
	require.NoError(t, err)
	f.platform, err = crypto.GenerateSignatureSecrets()
	require.NoError(t, err)
	f.stranger, err = crypto.GenerateSignatureSecrets()
	require.NoError(t, err)

	f.account = basics.Address{0xaa}
	f.delegate = basics.Address{0xdd}
	f.balances = makeMockBalances()
	f.balances.accts[f.account] = ledgercore.AccountData{
		Merchant: f.merchant.Address,
		Platform: f.platform.Address,
		Label:    "shop@example.com",
	}
	return f
}

func signedRequest(t *testing.T, s *crypto.SignatureSecrets, caller basics.Address) AuthRequest {
	d := crypto.Hash([]byte("operation"))
	sig, err := s.SignDigest(d)
	require.NoError(t, err)
	return AuthRequest{Digest: d, Signature: sig, Caller: caller, Now: 1000}
}

func TestResolveOwnerAndPlatform(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeAuthFixture(t)
	coordinator := basics.Address{0xc0}

	res, err := ResolveAuthority(f.balances, f.account, signedRequest(t, f.merchant, coordinator))
	require.NoError(t, err)
	require.Equal(t, Owner, res.Class)
	require.True(t, res.Replenish)
	require.Equal(t, f.merchant.Address, res.Signer)

	res, err = ResolveAuthority(f.balances, f.account, signedRequest(t, f.platform, coordinator))
	require.NoError(t, err)
	require.Equal(t, Platform, res.Class)
	require.True(t, res.Replenish)

	res, err = ResolveAuthority(f.balances, f.account, signedRequest(t, f.stranger, coordinator))
	require.NoError(t, err)
	require.Equal(t, Unauthorized, res.Class)
	require.False(t, res.Replenish)
	require.Contains(t, res.Reason, "not an authority")
}

func TestResolveOwnerBeatsPlatformWhenSameKey(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeAuthFixture(t)

	ad := f.balances.accts[f.account]
	ad.Platform = ad.Merchant
	f.balances.accts[f.account] = ad

	res, err := ResolveAuthority(f.balances, f.account, signedRequest(t, f.merchant, basics.Address{}))
	require.NoError(t, err)
	require.Equal(t, Owner, res.Class)
}

func TestResolveSignerBeatsSelf(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeAuthFixture(t)

	res, err := ResolveAuthority(f.balances, f.account, signedRequest(t, f.merchant, f.account))
	require.NoError(t, err)
	require.Equal(t, Owner, res.Class)

	res, err = ResolveAuthority(f.balances, f.account, AuthRequest{Caller: f.account})
	require.NoError(t, err)
	require.Equal(t, Self, res.Class)
	require.False(t, res.Replenish)
}

func TestResolveSessionDelegate(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeAuthFixture(t)

	res, err := ResolveAuthority(f.balances, f.account, AuthRequest{Caller: f.delegate, Now: 10})
	require.NoError(t, err)
	require.Equal(t, Unauthorized, res.Class)

	require.NoError(t, GrantSessionKey(f.balances, f.account, f.delegate, 100, basics.NewWei(5)))
	res, err = ResolveAuthority(f.balances, f.account, AuthRequest{Caller: f.delegate, Now: 10})
	require.NoError(t, err)
	require.Equal(t, SessionDelegate, res.Class)
	require.Equal(t, basics.NewWei(5), res.SessionKey.MaxValue)
	require.False(t, res.Replenish)

	res, err = ResolveAuthority(f.balances, f.account, AuthRequest{Caller: f.delegate, Now: 101})
	require.NoError(t, err)
	require.Equal(t, Unauthorized, res.Class)
	require.Contains(t, res.Reason, "expired")
}

func TestResolveIgnoresClaimedIdentity(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeAuthFixture(t)

	// the merchant's address as the caller is not a signature
	res, err := ResolveAuthority(f.balances, f.account, AuthRequest{Caller: f.merchant.Address})
	require.NoError(t, err)
	require.Equal(t, Unauthorized, res.Class)

	// a signature over another digest does not recover the merchant
	req := signedRequest(t, f.merchant, basics.Address{})
	req.Digest = crypto.Hash([]byte("something else"))
	res, err = ResolveAuthority(f.balances, f.account, req)
	require.NoError(t, err)
	require.Equal(t, Unauthorized, res.Class)

	req.Signature = []byte{1, 2, 3}
	res, err = ResolveAuthority(f.balances, f.account, req)
	require.NoError(t, err)
	require.Equal(t, Unauthorized, res.Class)
	require.Equal(t, "signature does not recover", res.Reason)
}

func TestResolveUnknownAccount(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeAuthFixture(t)

	res, err := ResolveAuthority(f.balances, basics.Address{0x99}, signedRequest(t, f.merchant, basics.Address{}))
	require.NoError(t, err)
	require.Equal(t, Unauthorized, res.Class)
	require.Equal(t, "unknown account", res.Reason)
}

func TestAuthorityPrecedenceIsExhaustive(t *testing.T) {
	partitiontest.PartitionTest(t)

	seen := make(map[AuthorityClass]bool)
	for _, rule := range authorityPrecedence {
		require.False(t, seen[rule.class], "duplicate rule for %v", rule.class)
		seen[rule.class] = true
		require.Equal(t, rule.class == Owner || rule.class == Platform, rule.replenish)
	}
	for _, class := range []AuthorityClass{Owner, Platform, Self, SessionDelegate} {
		require.True(t, seen[class], "missing rule for %v", class)
	}
	require.False(t, seen[Unauthorized])
	require.Equal(t, Owner, authorityPrecedence[0].class)
	require.Equal(t, Platform, authorityPrecedence[1].class)
}

func TestSettleShortfall(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeAuthFixture(t)
	coordinator := basics.Address{0xc0}

	require.NoError(t, SettleShortfall(f.balances, f.account, coordinator, basics.NewWei(0)))

	err := SettleShortfall(f.balances, f.account, coordinator, basics.NewWei(10))
	var policy ledgercore.PolicyError
	require.ErrorAs(t, err, &policy)
	require.Equal(t, ledgercore.ConstraintPrefund, policy.Constraint)

	f.balances.bals[f.account] = basics.NewWei(15)
	require.NoError(t, SettleShortfall(f.balances, f.account, coordinator, basics.NewWei(10)))
	require.Equal(t, basics.NewWei(5), f.balances.bals[f.account])
	require.Equal(t, basics.NewWei(10), f.balances.bals[coordinator])
}
