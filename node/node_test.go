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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/crypto"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/test/partitiontest"
	"github.com/irfanm0/erc4337/util/timers"
)

const testNow = 1700000000

var (
	testAccount     = basics.Address{0xaa}
	testCoordinator = basics.Address{0xc0}
	testSponsor     = basics.Address{0x5b}
	testShop        = basics.Address{0x50}
)

type nodeFixture struct {
	node     *AccountNode
	clock    *timers.Frozen
	merchant *crypto.SignatureSecrets
	admin    *crypto.SignatureSecrets
}

func makeTestNode(t *testing.T) nodeFixture {
	var f nodeFixture
	var err error
	f.merchant, err = crypto.GenerateSignatureSecrets()
	require.NoError(t, err)
	f.admin, err = crypto.GenerateSignatureSecrets()
	require.NoError(t, err)

	cfg := config.GetDefaultLocal()
	cfg.StoreBackend = "memory"
	cfg.SponsorAddress = testSponsor.String()
	cfg.SponsorAdmin = f.admin.Address.String()

	f.clock = timers.MakeFrozenClock(time.Unix(testNow, 0))
	f.node, err = MakeAccountNode(logging.TestingLog(t), t.TempDir(), cfg, f.clock)
	require.NoError(t, err)
	t.Cleanup(f.node.Stop)

	ctx := context.Background()
	require.NoError(t, f.node.RegisterAccount(ctx, testAccount, ledgercore.AccountData{
		Merchant:    f.merchant.Address,
		Label:       "shop@example.com",
		Coordinator: testCoordinator,
	}))
	_, err = f.node.Deposit(ctx, testAccount, basics.NewWei(1000))
	require.NoError(t, err)
	return f
}

func (f nodeFixture) command(t *testing.T, signer *crypto.SignatureSecrets, cmd operation.SponsorCommand) operation.SignedSponsorCommand {
	cmd.Sponsor = testSponsor
	if cmd.ValidUntil == 0 {
		cmd.ValidUntil = testNow + 60
	}
	scmd, err := cmd.Sign(signer)
	require.NoError(t, err)
	return scmd
}

func TestNodeSubmit(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeTestNode(t)

	op := operation.Operation{
		Account:      testAccount,
		Coordinator:  testCoordinator,
		Calls:        []operation.Call{{Target: testShop, Value: basics.NewWei(10)}},
		DeclaredCost: 100000,
		FeeRate:      basics.NewWei(1),
	}
	sop, err := op.Sign(f.merchant)
	require.NoError(t, err)

	r := f.node.Submit(context.Background(), sop)
	require.Equal(t, ledgercore.Success, r.Code, r.Reason)

	// same nonce again
	r = f.node.Submit(context.Background(), sop)
	require.Equal(t, ledgercore.InvariantViolation, r.Code)

	ad, bal, ok, err := f.node.Account(testAccount)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), ad.Counter)
	require.Equal(t, basics.NewWei(990), bal)

	addr, ok, err := f.node.AccountByLabel("shop@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, testAccount, addr)

	st := f.node.Status()
	require.Equal(t, uint64(2), st.OperationsApplied)
	require.Equal(t, []basics.Address{testSponsor}, st.Sponsors)
	require.Equal(t, uint64(testNow), st.Now)
	require.Equal(t, "memory", st.StoreBackend)
}

func TestNodeSponsorCommands(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeTestNode(t)
	ctx := context.Background()

	require.NoError(t, f.node.SponsorCommand(ctx, f.command(t, f.admin, operation.SponsorCommand{
		Action:  operation.WhitelistAdd,
		Account: testAccount,
	})))
	rec, err := f.node.Ledger().LookupSponsorship(testSponsor, testAccount)
	require.NoError(t, err)
	require.True(t, rec.Whitelisted)

	// anybody else signing is refused by the gate
	stranger, err := crypto.GenerateSignatureSecrets()
	require.NoError(t, err)
	err = f.node.SponsorCommand(ctx, f.command(t, stranger, operation.SponsorCommand{Action: operation.ShutdownSponsor}))
	var unauthorized ledgercore.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)

	shutdown := f.command(t, f.admin, operation.SponsorCommand{Action: operation.ShutdownSponsor})
	require.NoError(t, f.node.SponsorCommand(ctx, shutdown))
	down, err := f.node.Ledger().IsShutdown(testSponsor)
	require.NoError(t, err)
	require.True(t, down)

	// a command runs once
	var rejected *CommandRejectedError
	require.ErrorAs(t, f.node.SponsorCommand(ctx, shutdown), &rejected)
	require.Contains(t, rejected.Error(), "already executed")

	// and not after it expires
	f.clock.Advance(2 * time.Minute)
	resume := f.command(t, f.admin, operation.SponsorCommand{Action: operation.ResumeSponsor, ValidUntil: testNow + 60})
	require.ErrorAs(t, f.node.SponsorCommand(ctx, resume), &rejected)
	require.Contains(t, rejected.Error(), "expired")

	var unknown *UnknownSponsorError
	cmd := operation.SponsorCommand{Sponsor: basics.Address{0x77}, Action: operation.ResumeSponsor, ValidUntil: testNow + 600}
	scmd, err := cmd.Sign(f.admin)
	require.NoError(t, err)
	require.ErrorAs(t, f.node.SponsorCommand(ctx, scmd), &unknown)

	var malformed operation.MalformedError
	require.ErrorAs(t, f.node.SponsorCommand(ctx, f.command(t, f.admin, operation.SponsorCommand{Action: operation.WhitelistAdd})), &malformed)
}

func TestNodeSponsorCommandSurvivesRestart(t *testing.T) {
	partitiontest.PartitionTest(t)

	admin, err := crypto.GenerateSignatureSecrets()
	require.NoError(t, err)
	cfg := config.GetDefaultLocal()
	cfg.StoreBackend = "sqlite"
	cfg.SponsorAddress = testSponsor.String()
	cfg.SponsorAdmin = admin.Address.String()
	clock := timers.MakeFrozenClock(time.Unix(testNow, 0))
	dir := t.TempDir()
	ctx := context.Background()

	node, err := MakeAccountNode(logging.TestingLog(t), dir, cfg, clock)
	require.NoError(t, err)
	_, err = node.Deposit(ctx, testSponsor, basics.NewWei(100))
	require.NoError(t, err)

	cmd := operation.SponsorCommand{Sponsor: testSponsor, Action: operation.WithdrawFunds, Recipient: testShop, Amount: basics.NewWei(40), ValidUntil: testNow + 60}
	withdraw, err := cmd.Sign(admin)
	require.NoError(t, err)
	require.NoError(t, node.SponsorCommand(ctx, withdraw))
	node.Stop()

	node, err = MakeAccountNode(logging.TestingLog(t), dir, cfg, clock)
	require.NoError(t, err)
	defer node.Stop()

	var rejected *CommandRejectedError
	require.ErrorAs(t, node.SponsorCommand(ctx, withdraw), &rejected)
	require.Contains(t, rejected.Error(), "already executed")

	bal, err := node.Balance(testSponsor)
	require.NoError(t, err)
	require.Equal(t, basics.NewWei(60), bal)
	bal, err = node.Balance(testShop)
	require.NoError(t, err)
	require.Equal(t, basics.NewWei(40), bal)
}

func TestNodeDelegatedCallRunsOnce(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeTestNode(t)
	ctx := context.Background()

	delegate, err := crypto.GenerateSignatureSecrets()
	require.NoError(t, err)
	grant := operation.AdminCall{
		Action:     operation.GrantSessionKey,
		Delegate:   delegate.Address,
		ValidUntil: testNow + 3600,
		MaxValue:   basics.NewWei(100),
	}.SelfCall(testAccount)
	op := operation.Operation{
		Account:      testAccount,
		Coordinator:  testCoordinator,
		Calls:        []operation.Call{grant},
		DeclaredCost: 100000,
	}
	sop, err := op.Sign(f.merchant)
	require.NoError(t, err)
	r := f.node.Submit(ctx, sop)
	require.Equal(t, ledgercore.Success, r.Code, r.Reason)

	dc := operation.DelegatedCall{Account: testAccount, Call: operation.Call{Target: testShop, Value: basics.NewWei(50)}, Nonce: 9, ValidUntil: testNow + 60}
	sdc, err := dc.Sign(delegate)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		r = f.node.SubmitDelegated(ctx, sdc)
		if i == 0 {
			require.Equal(t, ledgercore.Success, r.Code, r.Reason)
		} else {
			require.Equal(t, ledgercore.InvariantViolation, r.Code)
		}
	}
	bal, err := f.node.Balance(testAccount)
	require.NoError(t, err)
	require.Equal(t, basics.NewWei(950), bal)
}

func TestNodeSessionKeyStatus(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeTestNode(t)

	delegate := basics.Address{0xdd}
	_, ok, err := f.node.SessionKey(testAccount, delegate)
	require.NoError(t, err)
	require.False(t, ok)

	grant := operation.AdminCall{
		Action:     operation.GrantSessionKey,
		Delegate:   delegate,
		ValidUntil: testNow + 30,
		MaxValue:   basics.NewWei(5),
	}
	op := operation.Operation{
		Account:      testAccount,
		Coordinator:  testCoordinator,
		Calls:        []operation.Call{grant.SelfCall(testAccount)},
		DeclaredCost: 100000,
		FeeRate:      basics.NewWei(1),
	}
	sop, err := op.Sign(f.merchant)
	require.NoError(t, err)
	r := f.node.Submit(context.Background(), sop)
	require.Equal(t, ledgercore.Success, r.Code, r.Reason)

	sk, ok, err := f.node.SessionKey(testAccount, delegate)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, sk.Valid)

	f.clock.Advance(time.Minute)
	sk, _, err = f.node.SessionKey(testAccount, delegate)
	require.NoError(t, err)
	require.False(t, sk.Valid)
	require.True(t, sk.Active)
}

func TestNodeUsageUnknownSponsor(t *testing.T) {
	partitiontest.PartitionTest(t)
	f := makeTestNode(t)

	entries, total, err := f.node.Usage(testSponsor, testAccount)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Zero(t, total)

	_, _, err = f.node.Usage(basics.Address{0x77}, testAccount)
	var unknown *UnknownSponsorError
	require.ErrorAs(t, err, &unknown)
}
