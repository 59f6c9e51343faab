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

package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the collectors exposed on /metrics.
type Registry struct {
	reg *prometheus.Registry
}

var defaultRegistry = makeDefaultRegistry()

func makeDefaultRegistry() *Registry {
	r := MakeRegistry()
	r.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	r.Register(prometheus.NewGoCollector())
	return r
}

// MakeRegistry creates an empty Registry.
func MakeRegistry() *Registry {
	return &Registry{reg: prometheus.NewRegistry()}
}

// DefaultRegistry returns the registry package level metrics register with.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds c. Registering the same collector twice is not an error.
func (r *Registry) Register(c prometheus.Collector) {
	err := r.reg.Register(c)
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		panic(err)
	}
}

// Deregister removes c.
func (r *Registry) Deregister(c prometheus.Collector) {
	r.reg.Unregister(c)
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
