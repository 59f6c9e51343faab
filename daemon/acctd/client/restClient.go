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

// Package client is a REST client for acctd.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/go-querystring/query"

	"github.com/irfanm0/erc4337/daemon/acctd/api"
	"github.com/irfanm0/erc4337/daemon/acctd/api/middlewares"
	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
	"github.com/irfanm0/erc4337/ledger/ledgercore"
	"github.com/irfanm0/erc4337/protocol"
)

const (
	healthCheckEndpoint = "/health"
	maxRawResponseBytes = 50e6
	msgpackContentType  = "application/msgpack"
)

// unauthorizedRequestError is generated when we receive 401 error from the server.
type unauthorizedRequestError struct {
	errorString string
	url         string
}

// Error format an error string for the unauthorizedRequestError error.
func (e unauthorizedRequestError) Error() string {
	return fmt.Sprintf("Unauthorized request to `%s` : %s", e.url, e.errorString)
}

// HTTPError is generated when we receive an unhandled error from the server. This error contains the error string.
type HTTPError struct {
	StatusCode  int
	Status      string
	ErrorString string
}

// Error formats an error string.
func (e HTTPError) Error() string {
	return fmt.Sprintf("HTTP %s: %s", e.Status, e.ErrorString)
}

// RestClient manages the REST interface for a calling user.
type RestClient struct {
	serverURL  url.URL
	apiToken   string
	httpClient *http.Client
}

// MakeRestClient is the factory for constructing a RestClient for a given endpoint
func MakeRestClient(url url.URL, apiToken string) RestClient {
	return RestClient{
		serverURL:  url,
		apiToken:   apiToken,
		httpClient: &http.Client{},
	}
}

// filterASCII filter out the non-ascii printable characters out of the given input string.
// It's used as a security qualifier before adding network provided data into an error message.
func filterASCII(unfilteredString string) (filteredString string) {
	for i, r := range unfilteredString {
		if int(r) >= 0x20 && int(r) <= 0x7e {
			filteredString += string(unfilteredString[i])
		}
	}
	return
}

// extractError checks if the response signifies an error.
// If so, it returns the error.
// Otherwise, it returns nil.
func extractError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	errorBuf, _ := io.ReadAll(resp.Body) // ignore returned error
	var errorJSON api.ErrorResponse
	var errorString string
	if json.Unmarshal(errorBuf, &errorJSON) == nil && errorJSON.Message != "" {
		errorString = errorJSON.Message
	} else {
		errorString = string(errorBuf)
	}
	errorString = filterASCII(errorString)

	if resp.StatusCode == http.StatusUnauthorized {
		return unauthorizedRequestError{errorString, resp.Request.URL.String()}
	}
	return HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, ErrorString: errorString}
}

// submitForm is a helper used for submitting GETs and POSTs to the server.
// params are encoded as the query string; body is sent as JSON, or as is
// when it is a msgpack payload.
func (client RestClient) submitForm(ctx context.Context, response interface{}, path string, params interface{}, body interface{}, requestMethod string) error {
	queryURL := client.serverURL
	queryURL.Path = path

	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return err
		}
		queryURL.RawQuery = v.Encode()
	}

	var bodyReader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case []byte:
		bodyReader = bytes.NewReader(b)
		contentType = msgpackContentType
	default:
		jsonValue, err := json.Marshal(b)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonValue)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, requestMethod, queryURL.String(), bodyReader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if path != healthCheckEndpoint && client.apiToken != "" {
		req.Header.Set(middlewares.TokenHeader, client.apiToken)
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return err
	}

	// Ensure response isn't too large
	resp.Body = http.MaxBytesReader(nil, resp.Body, maxRawResponseBytes)
	defer resp.Body.Close()

	if err = extractError(resp); err != nil {
		return err
	}
	if response == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(response)
}

// get performs a GET request to the specific path against the server
func (client RestClient) get(ctx context.Context, response interface{}, path string, params interface{}) error {
	return client.submitForm(ctx, response, path, params, nil, http.MethodGet)
}

// post sends a POST request to the given path with the given body.
func (client RestClient) post(ctx context.Context, response interface{}, path string, body interface{}) error {
	return client.submitForm(ctx, response, path, nil, body, http.MethodPost)
}

// HealthCheck does a health check on the running server
func (client RestClient) HealthCheck(ctx context.Context) error {
	return client.get(ctx, nil, healthCheckEndpoint, nil)
}

// Status retrieves the StatusResponse from the running node
func (client RestClient) Status(ctx context.Context) (response api.StatusResponse, err error) {
	err = client.get(ctx, &response, "/v1/status", nil)
	return
}

// Submit sends a signed operation and returns its receipt
func (client RestClient) Submit(ctx context.Context, sop operation.SignedOperation) (response ledgercore.Receipt, err error) {
	err = client.post(ctx, &response, "/v1/operations", protocol.Encode(&sop))
	return
}

// SubmitDelegated sends a call signed by a session delegate and returns its receipt
func (client RestClient) SubmitDelegated(ctx context.Context, sdc operation.SignedDelegatedCall) (response ledgercore.Receipt, err error) {
	err = client.post(ctx, &response, "/v1/operations/delegated", protocol.Encode(&sdc))
	return
}

// RegisterAccount adds an account to the registry
func (client RestClient) RegisterAccount(ctx context.Context, req api.RegisterAccountRequest) (response api.AccountResponse, err error) {
	err = client.post(ctx, &response, "/v1/accounts", req)
	return
}

// AccountInformation gets the account record and its balance
func (client RestClient) AccountInformation(ctx context.Context, addr basics.Address) (response api.AccountResponse, err error) {
	err = client.get(ctx, &response, "/v1/accounts/"+addr.String(), nil)
	return
}

// AccountByLabel resolves a registry label
func (client RestClient) AccountByLabel(ctx context.Context, label string) (response api.AccountResponse, err error) {
	err = client.get(ctx, &response, "/v1/labels/"+url.PathEscape(label), nil)
	return
}

// SessionKey gets the session key of delegate on account
func (client RestClient) SessionKey(ctx context.Context, account, delegate basics.Address) (response api.SessionKeyResponse, err error) {
	err = client.get(ctx, &response, fmt.Sprintf("/v1/accounts/%s/session-keys/%s", account, delegate), nil)
	return
}

// Balance gets the native balance of addr
func (client RestClient) Balance(ctx context.Context, addr basics.Address) (response api.BalanceResponse, err error) {
	err = client.get(ctx, &response, "/v1/balances/"+addr.String(), nil)
	return
}

// Deposit credits amount to addr
func (client RestClient) Deposit(ctx context.Context, addr basics.Address, amount basics.Wei) (response api.BalanceResponse, err error) {
	err = client.post(ctx, &response, fmt.Sprintf("/v1/balances/%s/deposit", addr), api.DepositRequest{Amount: amount})
	return
}

// SponsorCommand sends a signed administrative command to a sponsorship gate
func (client RestClient) SponsorCommand(ctx context.Context, scmd operation.SignedSponsorCommand) error {
	return client.post(ctx, nil, fmt.Sprintf("/v1/sponsors/%s/commands", scmd.Cmd.Sponsor), protocol.Encode(&scmd))
}

// SponsorUsage gets the usage history of account under sponsor. A zero limit returns every entry.
func (client RestClient) SponsorUsage(ctx context.Context, sponsor, account basics.Address, limit uint64) (response api.UsageResponse, err error) {
	err = client.get(ctx, &response, fmt.Sprintf("/v1/sponsors/%s/usage/%s", sponsor, account), api.UsageRequest{Limit: limit})
	return
}
