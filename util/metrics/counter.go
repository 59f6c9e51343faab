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
)

// Counter represent a single counter variable.
type Counter struct {
	vec *prometheus.CounterVec
}

// MakeCounter create a new counter with the provided name and description.
func MakeCounter(metric MetricName) *Counter {
	c := &Counter{vec: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metric.Name,
		Help: metric.Description,
	}, metric.Labels)}
	c.Register(nil)
	return c
}

// NewCounter is a shortcut to MakeCounter in one shorter line.
func NewCounter(name, desc string) *Counter {
	return MakeCounter(MetricName{Name: name, Description: desc})
}

// Register registers the counter with the default/specific registry
func (counter *Counter) Register(reg *Registry) {
	if reg == nil {
		DefaultRegistry().Register(counter.vec)
	} else {
		reg.Register(counter.vec)
	}
}

// Deregister deregisters the counter with the default/specific registry
func (counter *Counter) Deregister(reg *Registry) {
	if reg == nil {
		DefaultRegistry().Deregister(counter.vec)
	} else {
		reg.Deregister(counter.vec)
	}
}

// Inc increases counter by 1
func (counter *Counter) Inc(labels map[string]string) {
	counter.vec.With(labels).Inc()
}

// AddUint64 increases counter by x
func (counter *Counter) AddUint64(x uint64, labels map[string]string) {
	counter.vec.With(labels).Add(float64(x))
}

// GetUint64ValueForLabels returns the value of the counter for the given labels.
func (counter *Counter) GetUint64ValueForLabels(labels map[string]string) uint64 {
	return uint64(metricValue(counter.vec.With(labels)))
}
