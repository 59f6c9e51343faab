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

package client

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/crypto"
	"github.com/irfanm0/erc4337/daemon/acctd/api"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/node"
	"github.com/irfanm0/erc4337/test/partitiontest"
	"github.com/irfanm0/erc4337/util/timers"
)

const (
	testNow   = 1700000000
	testToken = "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210"
)

func makeTestClient(t *testing.T, admin *crypto.SignatureSecrets, sponsor basics.Address) RestClient {
	cfg := config.GetDefaultLocal()
	cfg.StoreBackend = "memory"
	cfg.SponsorAddress = sponsor.String()
	cfg.SponsorAdmin = admin.Address.String()
	log := logging.TestingLog(t)
	n, err := node.MakeAccountNode(log, t.TempDir(), cfg, timers.MakeFrozenClock(time.Unix(testNow, 0)))
	require.NoError(t, err)
	t.Cleanup(n.Stop)

	srv := httptest.NewServer(api.NewRouter(log, n, make(chan struct{}), testToken, nil, nil))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return MakeRestClient(*u, testToken)
}

func TestClientRoundTrip(t *testing.T) {
	partitiontest.PartitionTest(t)
	ctx := context.Background()

	merchant, err := crypto.GenerateSignatureSecrets()
	require.NoError(t, err)
	admin, err := crypto.GenerateSignatureSecrets()
	require.NoError(t, err)
	account, coordinator, sponsor, shop := basics.Address{0xaa}, basics.Address{0xc0}, basics.Address{0x5b}, basics.Address{0x50}
	c := makeTestClient(t, admin, sponsor)

	require.NoError(t, c.HealthCheck(ctx))

	acct, err := c.RegisterAccount(ctx, api.RegisterAccountRequest{
		Address:     account,
		Merchant:    merchant.Address,
		Label:       "shop@example.com",
		Coordinator: coordinator,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(0), acct.Counter)

	_, err = c.Deposit(ctx, account, basics.NewWei(500))
	require.NoError(t, err)
	_, err = c.Deposit(ctx, sponsor, basics.NewWei(1000000))
	require.NoError(t, err)

	cmd := operation.SponsorCommand{Sponsor: sponsor, Action: operation.WhitelistAdd, Account: account, ValidUntil: testNow + 60}
	scmd, err := cmd.Sign(admin)
	require.NoError(t, err)
	require.NoError(t, c.SponsorCommand(ctx, scmd))

	op := operation.Operation{
		Account:      account,
		Coordinator:  coordinator,
		Calls:        []operation.Call{{Target: shop, Value: basics.NewWei(25)}},
		DeclaredCost: 50000,
		FeeRate:      basics.NewWei(1),
		Sponsor:      sponsor,
	}
	sop, err := op.Sign(merchant)
	require.NoError(t, err)
	r, err := c.Submit(ctx, sop)
	require.NoError(t, err)
	require.Equal(t, ledgercore.Success, r.Code, r.Reason)
	require.True(t, r.Sponsored)

	bal, err := c.Balance(ctx, shop)
	require.NoError(t, err)
	require.Equal(t, basics.NewWei(25), bal.Balance)

	acct, err = c.AccountByLabel(ctx, "shop@example.com")
	require.NoError(t, err)
	require.Equal(t, uint64(1), acct.Counter)

	usage, err := c.SponsorUsage(ctx, sponsor, account, 0)
	require.NoError(t, err)
	require.Len(t, usage.Entries, 1)
	require.Equal(t, r.ActualCost, usage.Total)

	// a delegate without a key
	delegate, err := crypto.GenerateSignatureSecrets()
	require.NoError(t, err)
	dc := operation.DelegatedCall{Account: account, Call: operation.Call{Target: shop, Value: basics.NewWei(1)}, ValidUntil: testNow + 60}
	sdc, err := dc.Sign(delegate)
	require.NoError(t, err)
	r, err = c.SubmitDelegated(ctx, sdc)
	require.NoError(t, err)
	require.Equal(t, ledgercore.Unauthorized, r.Code)

	_, err = c.SessionKey(ctx, account, delegate.Address)
	var httpErr HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, 404, httpErr.StatusCode)
	require.Equal(t, "session key not found", httpErr.ErrorString)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), st.OperationsApplied)
}

func TestClientUnauthorized(t *testing.T) {
	partitiontest.PartitionTest(t)

	admin, err := crypto.GenerateSignatureSecrets()
	require.NoError(t, err)
	c := makeTestClient(t, admin, basics.Address{0x5b})
	c.apiToken = "wrong"

	require.NoError(t, c.HealthCheck(context.Background()))
	_, err = c.Status(context.Background())
	var unauthorized unauthorizedRequestError
	require.ErrorAs(t, err, &unauthorized)
}
