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
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Gauge represent a single gauge variable.
type Gauge struct {
	g prometheus.Gauge
}

// MakeGauge create a new gauge with the provided name and description.
func MakeGauge(metric MetricName) *Gauge {
	g := &Gauge{g: prometheus.NewGauge(prometheus.GaugeOpts{
		Name: metric.Name,
		Help: metric.Description,
	})}
	g.Register(nil)
	return g
}

// Register registers the gauge with the default/specific registry
func (gauge *Gauge) Register(reg *Registry) {
	if reg == nil {
		DefaultRegistry().Register(gauge.g)
	} else {
		reg.Register(gauge.g)
	}
}

// Deregister deregisters the gauge with the default/specific registry
func (gauge *Gauge) Deregister(reg *Registry) {
	if reg == nil {
		DefaultRegistry().Deregister(gauge.g)
	} else {
		reg.Deregister(gauge.g)
	}
}

// Add increases gauge by x
func (gauge *Gauge) Add(x float64) {
	gauge.g.Add(x)
}

// Set sets gauge to x
func (gauge *Gauge) Set(x float64) {
	gauge.g.Set(x)
}

// Value returns the current value of the gauge.
func (gauge *Gauge) Value() float64 {
	return metricValue(gauge.g)
}

// metricValue reads the single value of a counter or gauge.
func metricValue(m prometheus.Metric) float64 {
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		return 0
	}
	switch {
	case pb.Counter != nil:
		return pb.Counter.GetValue()
	case pb.Gauge != nil:
		return pb.Gauge.GetValue()
	}
	return 0
}
