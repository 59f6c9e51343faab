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

package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TokenHeader defines the http header that includes the auth token
const TokenHeader = "X-Acct-API-Token"

// InvalidTokenMessage is the message set when an invalid / missing token is found.
const InvalidTokenMessage = "Invalid API Token"

// Paths that never require a token
var noneAuthPaths = map[string]bool{"/health": true, "/metrics": true}

// AuthMiddleware provides some extra state to the auth middleware
type AuthMiddleware struct {
	header string
	tokens [][]byte
}

// MakeAuth constructs the auth middleware function. Any of tokens is accepted.
func MakeAuth(header string, tokens []string) echo.MiddlewareFunc {
	auth := AuthMiddleware{header: header}
	for _, token := range tokens {
		auth.tokens = append(auth.tokens, []byte(token))
	}
	return auth.handler
}

func (auth *AuthMiddleware) handler(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()

		// OPTIONS responses never require auth
		if req.Method == http.MethodOptions || noneAuthPaths[ctx.Path()] {
			return next(ctx)
		}

		providedToken := []byte(req.Header.Get(auth.header))
		if len(providedToken) == 0 {
			// Accept tokens provided in a bearer token format.
			authentication := strings.SplitN(req.Header.Get("Authorization"), " ", 2)
			if len(authentication) == 2 && strings.EqualFold("Bearer", authentication[0]) {
				providedToken = []byte(authentication[1])
			}
		}

		// Check every token in constant time
		match := 0
		for _, token := range auth.tokens {
			match |= subtle.ConstantTimeCompare(providedToken, token)
		}
		if match == 1 {
			return next(ctx)
		}
		return echo.NewHTTPError(http.StatusUnauthorized, InvalidTokenMessage)
	}
}
