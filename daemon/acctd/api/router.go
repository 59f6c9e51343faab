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

// Package api is the acctd REST API.
//
// Submission routes take canonical msgpack bodies, the same bytes that are
// signed. Everything else speaks JSON. Every route but /health and /metrics
// requires the API token in the X-Acct-API-Token header or as a bearer token.
package api

import (
	"net"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/irfanm0/erc4337/daemon/acctd/api/middlewares"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/util/metrics"
)

const apiV1Tag = "/v1"

// Route describes one REST endpoint
type Route struct {
	Name    string
	Method  string
	Path    string
	Handler func(*Handlers) echo.HandlerFunc
}

// V1Routes are the routes served under /v1
var V1Routes = []Route{
	{"status", http.MethodGet, "/status", func(h *Handlers) echo.HandlerFunc { return h.GetStatus }},
	{"submit", http.MethodPost, "/operations", func(h *Handlers) echo.HandlerFunc { return h.SubmitOperation }},
	{"submit-delegated", http.MethodPost, "/operations/delegated", func(h *Handlers) echo.HandlerFunc { return h.SubmitDelegated }},
	{"register", http.MethodPost, "/accounts", func(h *Handlers) echo.HandlerFunc { return h.RegisterAccount }},
	{"account", http.MethodGet, "/accounts/:address", func(h *Handlers) echo.HandlerFunc { return h.AccountInformation }},
	{"session-key", http.MethodGet, "/accounts/:address/session-keys/:delegate", func(h *Handlers) echo.HandlerFunc { return h.SessionKey }},
	{"label", http.MethodGet, "/labels/:label", func(h *Handlers) echo.HandlerFunc { return h.AccountByLabel }},
	{"balance", http.MethodGet, "/balances/:address", func(h *Handlers) echo.HandlerFunc { return h.GetBalance }},
	{"deposit", http.MethodPost, "/balances/:address/deposit", func(h *Handlers) echo.HandlerFunc { return h.Deposit }},
	{"sponsor-command", http.MethodPost, "/sponsors/:sponsor/commands", func(h *Handlers) echo.HandlerFunc { return h.SponsorCommand }},
	{"sponsor-usage", http.MethodGet, "/sponsors/:sponsor/usage/:address", func(h *Handlers) echo.HandlerFunc { return h.SponsorUsage }},
}

// NewRouter builds and returns a new router with our REST handlers registered.
// An empty apiToken disables authentication. A nil registry disables /metrics.
func NewRouter(logger logging.Logger, node NodeInterface, shutdown <-chan struct{}, apiToken string, registry *metrics.Registry, listener net.Listener) *echo.Echo {
	e := echo.New()

	e.Listener = listener
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middlewares.MakeLogger(logger))
	e.Use(middlewares.MakeCORS(middlewares.TokenHeader))
	if apiToken != "" {
		e.Use(middlewares.MakeAuth(middlewares.TokenHeader, []string{apiToken}))
	}

	h := &Handlers{Node: node, Log: logger, Shutdown: shutdown}
	e.GET("/health", h.HealthCheck)
	if registry != nil {
		e.GET("/metrics", echo.WrapHandler(registry.Handler()))
	}

	v1 := e.Group(apiV1Tag)
	for _, route := range V1Routes {
		r := v1.Add(route.Method, route.Path, route.Handler(h))
		r.Name = route.Name
	}
	return e
}
