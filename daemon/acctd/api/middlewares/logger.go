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
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/util/metrics"
)

var restRequestsTotal = metrics.MakeCounter(metrics.RestRequestsTotal)

// LoggerMiddleware provides some extra state to the logger middleware
type LoggerMiddleware struct {
	log logging.Logger
}

// MakeLogger initializes the logger middleware function. Every request is
// logged and counted by method, route and status.
func MakeLogger(log logging.Logger) echo.MiddlewareFunc {
	logger := LoggerMiddleware{
		log: log,
	}

	return logger.handler
}

func (logger *LoggerMiddleware) handler(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) (err error) {
		start := time.Now()

		res := ctx.Response()
		req := ctx.Request()

		// Propagate the error if the next middleware has a problem
		if err = next(ctx); err != nil {
			ctx.Error(err)
		}

		restRequestsTotal.Inc(map[string]string{
			"method": req.Method,
			"route":  ctx.Path(),
			"status": strconv.Itoa(res.Status),
		})
		logger.log.Infof("%s \"%s %s %s\" %d %s \"%s\" %s",
			req.RemoteAddr,
			req.Method,
			req.RequestURI,
			req.Proto,
			res.Status,
			strconv.FormatInt(res.Size, 10),
			req.UserAgent(),
			time.Since(start),
		)

		return
	}
}
