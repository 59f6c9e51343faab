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

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/ledger/store"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/node"
)

// NodeInterface represents the node methods used by the REST handlers
type NodeInterface interface {
	Submit(ctx context.Context, sop operation.SignedOperation) ledgercore.Receipt
	SubmitDelegated(ctx context.Context, sdc operation.SignedDelegatedCall) ledgercore.Receipt
	RegisterAccount(ctx context.Context, addr basics.Address, data ledgercore.AccountData) error
	Deposit(ctx context.Context, addr basics.Address, amount basics.Wei) (basics.Wei, error)
	Account(addr basics.Address) (ledgercore.AccountData, basics.Wei, bool, error)
	AccountByLabel(label string) (basics.Address, bool, error)
	Balance(addr basics.Address) (basics.Wei, error)
	SessionKey(account, delegate basics.Address) (node.SessionKeyStatus, bool, error)
	SponsorCommand(ctx context.Context, scmd operation.SignedSponsorCommand) error
	Usage(sponsor, account basics.Address) ([]ledgercore.UsageEntry, basics.Gas, error)
	Status() node.StatusReport
}

// Handlers is an implementation of the acctd REST API
type Handlers struct {
	Node     NodeInterface
	Log      logging.Logger
	Shutdown <-chan struct{}
}

func (h *Handlers) shuttingDown() bool {
	select {
	case <-h.Shutdown:
		return true
	default:
		return false
	}
}

// HealthCheck returns OK if healthy.
// (GET /health)
func (h *Handlers) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, nil)
}

// GetStatus gets the current node status.
// (GET /v1/status)
func (h *Handlers) GetStatus(ctx echo.Context) error {
	st := h.Node.Status()
	resp := StatusResponse{
		StoreBackend:      st.StoreBackend,
		Sponsors:          st.Sponsors,
		OperationsApplied: st.OperationsApplied,
		Now:               st.Now,
	}
	if !st.LastOperationTime.IsZero() {
		resp.LastOperationTime = st.LastOperationTime.Unix()
	}
	return ctx.JSON(http.StatusOK, resp)
}

// SubmitOperation applies a msgpack encoded SignedOperation. Every outcome is
// reported in the receipt with a 200 status.
// (POST /v1/operations)
func (h *Handlers) SubmitOperation(ctx echo.Context) error {
	if h.shuttingDown() {
		return serviceUnavailable(ctx, errors.New(errServiceShuttingDown), errServiceShuttingDown, h.Log)
	}
	var sop operation.SignedOperation
	if err := decodeMsgpackBody(ctx, &sop); err != nil {
		return badRequest(ctx, err, err.Error(), h.Log)
	}
	return ctx.JSON(http.StatusOK, h.Node.Submit(ctx.Request().Context(), sop))
}

// SubmitDelegated applies a msgpack encoded SignedDelegatedCall.
// (POST /v1/operations/delegated)
func (h *Handlers) SubmitDelegated(ctx echo.Context) error {
	if h.shuttingDown() {
		return serviceUnavailable(ctx, errors.New(errServiceShuttingDown), errServiceShuttingDown, h.Log)
	}
	var sdc operation.SignedDelegatedCall
	if err := decodeMsgpackBody(ctx, &sdc); err != nil {
		return badRequest(ctx, err, err.Error(), h.Log)
	}
	return ctx.JSON(http.StatusOK, h.Node.SubmitDelegated(ctx.Request().Context(), sdc))
}

// RegisterAccount adds an account to the registry.
// (POST /v1/accounts)
func (h *Handlers) RegisterAccount(ctx echo.Context) error {
	var req RegisterAccountRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, err, errFailedToParseBody, h.Log)
	}
	ad := ledgercore.AccountData{
		Merchant:    req.Merchant,
		Platform:    req.Platform,
		Label:       req.Label,
		Coordinator: req.Coordinator,
	}
	err := h.Node.RegisterAccount(ctx.Request().Context(), req.Address, ad)
	if errors.Is(err, ledger.ErrInvalidRegistration) || errors.Is(err, store.ErrAccountExists) || errors.Is(err, store.ErrLabelTaken) {
		return badRequest(ctx, err, fmt.Sprintf(errFailedToRegister, err), h.Log)
	}
	if err != nil {
		return internalError(ctx, err, fmt.Sprintf(errFailedToRegister, err), h.Log)
	}
	return h.writeAccount(ctx, req.Address)
}

// AccountInformation gets the account record and its balance.
// (GET /v1/accounts/:address)
func (h *Handlers) AccountInformation(ctx echo.Context) error {
	addr, err := parseAddress(ctx.Param("address"))
	if err != nil {
		return badRequest(ctx, err, errFailedToParseAddress, h.Log)
	}
	return h.writeAccount(ctx, addr)
}

// AccountByLabel resolves a registry label to its account.
// (GET /v1/labels/:label)
func (h *Handlers) AccountByLabel(ctx echo.Context) error {
	addr, ok, err := h.Node.AccountByLabel(ctx.Param("label"))
	if err != nil {
		return internalError(ctx, err, errFailedLookingUpLedger, h.Log)
	}
	if !ok {
		return notFound(ctx, errors.New(errLabelNotFound), errLabelNotFound, h.Log)
	}
	return h.writeAccount(ctx, addr)
}

func (h *Handlers) writeAccount(ctx echo.Context, addr basics.Address) error {
	ad, bal, ok, err := h.Node.Account(addr)
	if err != nil {
		return internalError(ctx, err, errFailedLookingUpLedger, h.Log)
	}
	if !ok {
		return notFound(ctx, errors.New(errAccountNotFound), errAccountNotFound, h.Log)
	}
	return ctx.JSON(http.StatusOK, AccountResponse{
		Address:     addr,
		Merchant:    ad.Merchant,
		Platform:    addrOrNil(ad.Platform),
		Label:       ad.Label,
		Counter:     ad.Counter,
		Coordinator: addrOrNil(ad.Coordinator),
		Balance:     bal,
	})
}

// SessionKey gets the session key a delegate holds on an account.
// (GET /v1/accounts/:address/session-keys/:delegate)
func (h *Handlers) SessionKey(ctx echo.Context) error {
	account, err := parseAddress(ctx.Param("address"))
	if err != nil {
		return badRequest(ctx, err, errFailedToParseAddress, h.Log)
	}
	delegate, err := parseAddress(ctx.Param("delegate"))
	if err != nil {
		return badRequest(ctx, err, errFailedToParseAddress, h.Log)
	}
	sk, ok, err := h.Node.SessionKey(account, delegate)
	if err != nil {
		return internalError(ctx, err, errFailedLookingUpLedger, h.Log)
	}
	if !ok {
		return notFound(ctx, errors.New(errSessionKeyNotFound), errSessionKeyNotFound, h.Log)
	}
	return ctx.JSON(http.StatusOK, SessionKeyResponse{
		Account:    account,
		Delegate:   delegate,
		ValidUntil: sk.ValidUntil,
		MaxValue:   sk.MaxValue,
		Active:     sk.Active,
		Valid:      sk.Valid,
	})
}

// GetBalance gets the native balance of any address.
// (GET /v1/balances/:address)
func (h *Handlers) GetBalance(ctx echo.Context) error {
	addr, err := parseAddress(ctx.Param("address"))
	if err != nil {
		return badRequest(ctx, err, errFailedToParseAddress, h.Log)
	}
	bal, err := h.Node.Balance(addr)
	if err != nil {
		return internalError(ctx, err, errFailedLookingUpLedger, h.Log)
	}
	return ctx.JSON(http.StatusOK, BalanceResponse{Address: addr, Balance: bal})
}

// Deposit credits an address.
// (POST /v1/balances/:address/deposit)
func (h *Handlers) Deposit(ctx echo.Context) error {
	addr, err := parseAddress(ctx.Param("address"))
	if err != nil {
		return badRequest(ctx, err, errFailedToParseAddress, h.Log)
	}
	var req DepositRequest
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, err, errFailedToParseBody, h.Log)
	}
	bal, err := h.Node.Deposit(ctx.Request().Context(), addr, req.Amount)
	var inv ledgercore.InvariantError
	if errors.As(err, &inv) {
		return badRequest(ctx, err, fmt.Sprintf(errFailedToDeposit, err), h.Log)
	}
	if err != nil {
		return internalError(ctx, err, fmt.Sprintf(errFailedToDeposit, err), h.Log)
	}
	return ctx.JSON(http.StatusOK, BalanceResponse{Address: addr, Balance: bal})
}

// SponsorCommand runs a msgpack encoded SignedSponsorCommand on the sponsor's gate.
// (POST /v1/sponsors/:sponsor/commands)
func (h *Handlers) SponsorCommand(ctx echo.Context) error {
	sp, err := parseAddress(ctx.Param("sponsor"))
	if err != nil {
		return badRequest(ctx, err, errFailedToParseAddress, h.Log)
	}
	var scmd operation.SignedSponsorCommand
	if err = decodeMsgpackBody(ctx, &scmd); err != nil {
		return badRequest(ctx, err, err.Error(), h.Log)
	}
	if scmd.Cmd.Sponsor != sp {
		err = fmt.Errorf("command is for sponsor %v", scmd.Cmd.Sponsor)
		return badRequest(ctx, err, fmt.Sprintf(errSponsorCommandRejected, err), h.Log)
	}

	err = h.Node.SponsorCommand(ctx.Request().Context(), scmd)
	if err == nil {
		return ctx.NoContent(http.StatusOK)
	}
	external := fmt.Sprintf(errSponsorCommandRejected, err)
	var unauthorized ledgercore.UnauthorizedError
	var unknown *node.UnknownSponsorError
	var rejected *node.CommandRejectedError
	var policy ledgercore.PolicyError
	var malformed operation.MalformedError
	switch {
	case errors.As(err, &unauthorized):
		return forbidden(ctx, err, external, h.Log)
	case errors.As(err, &unknown):
		return notFound(ctx, err, external, h.Log)
	case errors.As(err, &rejected), errors.As(err, &policy), errors.As(err, &malformed):
		return badRequest(ctx, err, external, h.Log)
	default:
		return internalError(ctx, err, external, h.Log)
	}
}

// SponsorUsage gets the usage history of an account under a sponsor.
// (GET /v1/sponsors/:sponsor/usage/:address)
func (h *Handlers) SponsorUsage(ctx echo.Context) error {
	sp, err := parseAddress(ctx.Param("sponsor"))
	if err != nil {
		return badRequest(ctx, err, errFailedToParseAddress, h.Log)
	}
	account, err := parseAddress(ctx.Param("address"))
	if err != nil {
		return badRequest(ctx, err, errFailedToParseAddress, h.Log)
	}
	var req UsageRequest
	if err = (&echo.DefaultBinder{}).BindQueryParams(ctx, &req); err != nil {
		return badRequest(ctx, err, errFailedToParseQuery, h.Log)
	}

	entries, total, err := h.Node.Usage(sp, account)
	var unknown *node.UnknownSponsorError
	if errors.As(err, &unknown) {
		return notFound(ctx, err, err.Error(), h.Log)
	}
	if err != nil {
		return internalError(ctx, err, errFailedLookingUpLedger, h.Log)
	}
	if req.Limit > 0 && uint64(len(entries)) > req.Limit {
		entries = entries[uint64(len(entries))-req.Limit:]
	}
	if entries == nil {
		entries = []ledgercore.UsageEntry{}
	}
	return ctx.JSON(http.StatusOK, UsageResponse{Sponsor: sp, Account: account, Total: total, Entries: entries})
}
