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
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/test/partitiontest"
)

func TestCounterLabels(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := MakeCounter(MetricName{Name: "test_counter_labels_total", Description: "test", Labels: []string{"code"}})
	defer c.Deregister(nil)

	c.Inc(map[string]string{"code": "Success"})
	c.Inc(map[string]string{"code": "Success"})
	c.AddUint64(5, map[string]string{"code": "Unauthorized"})

	require.Equal(t, uint64(2), c.GetUint64ValueForLabels(map[string]string{"code": "Success"}))
	require.Equal(t, uint64(5), c.GetUint64ValueForLabels(map[string]string{"code": "Unauthorized"}))
}

func TestCounterWithoutLabels(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := NewCounter("test_counter_plain_total", "test")
	defer c.Deregister(nil)
	c.Inc(nil)
	c.AddUint64(41, nil)
	require.Equal(t, uint64(42), c.GetUint64ValueForLabels(nil))
}

func TestGauge(t *testing.T) {
	partitiontest.PartitionTest(t)

	g := MakeGauge(MetricName{Name: "test_gauge", Description: "test"})
	defer g.Deregister(nil)
	g.Set(3)
	g.Add(2)
	require.Equal(t, 5.0, g.Value())
}

func TestRegistryHandler(t *testing.T) {
	partitiontest.PartitionTest(t)

	reg := MakeRegistry()
	c := NewCounter("test_handler_total", "served")
	c.Register(reg)
	c.Register(reg)
	c.AddUint64(7, nil)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "test_handler_total 7")
}
