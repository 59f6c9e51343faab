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
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/protocol"
)

// maxBodyBytes bounds the msgpack payloads accepted on submission routes
const maxBodyBytes = 1 << 20

func returnError(ctx echo.Context, code int, internal error, external string, logger logging.Logger) error {
	logger.Info(internal)
	return ctx.JSON(code, ErrorResponse{Message: external})
}

func badRequest(ctx echo.Context, internal error, external string, log logging.Logger) error {
	return returnError(ctx, http.StatusBadRequest, internal, external, log)
}

func forbidden(ctx echo.Context, internal error, external string, log logging.Logger) error {
	return returnError(ctx, http.StatusForbidden, internal, external, log)
}

func serviceUnavailable(ctx echo.Context, internal error, external string, log logging.Logger) error {
	return returnError(ctx, http.StatusServiceUnavailable, internal, external, log)
}

func internalError(ctx echo.Context, internal error, external string, log logging.Logger) error {
	return returnError(ctx, http.StatusInternalServerError, internal, external, log)
}

func notFound(ctx echo.Context, internal error, external string, log logging.Logger) error {
	return returnError(ctx, http.StatusNotFound, internal, external, log)
}

func addrOrNil(addr basics.Address) *basics.Address {
	if addr.IsZero() {
		return nil
	}
	return &addr
}

// decodeMsgpackBody reads a canonical msgpack object from the request body
func decodeMsgpackBody(ctx echo.Context, objptr interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, ctx.Request().Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New(errRESTPayloadZeroLength)
	}
	if err := protocol.Decode(body, objptr); err != nil {
		return fmt.Errorf("msgpack decode: %w", err)
	}
	return nil
}

func parseAddress(s string) (basics.Address, error) {
	return basics.UnmarshalChecksumAddress(s)
}
