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

// Package metrics provides metric wrappers for the Prometheus registry the daemon exposes.
package metrics

// MetricName describes the name and description of a single metric
type MetricName struct {
	Name        string
	Description string
	// Labels are the label names the metric is partitioned by, if any
	Labels []string
}

var (
	// OperationsTotal counts applied operations by outcome code
	OperationsTotal = MetricName{Name: "acctd_operations_total", Description: "Number of operations applied, by outcome", Labels: []string{"code"}}
	// DelegatedCallsTotal counts delegated calls by outcome code
	DelegatedCallsTotal = MetricName{Name: "acctd_delegated_calls_total", Description: "Number of delegated calls applied, by outcome", Labels: []string{"code"}}
	// BatchCallsTotal counts calls executed inside committed batches
	BatchCallsTotal = MetricName{Name: "acctd_batch_calls_total", Description: "Number of calls executed in committed batches"}
	// SponsorRefusalsTotal counts sponsorship refusals by the failing check
	SponsorRefusalsTotal = MetricName{Name: "acctd_sponsor_refusals_total", Description: "Number of operations a sponsor refused, by constraint", Labels: []string{"constraint"}}
	// SponsoredGasTotal sums the actual cost of sponsored operations
	SponsoredGasTotal = MetricName{Name: "acctd_sponsored_gas_total", Description: "Total gas recorded against sponsors"}
	// UsageRecordFailuresTotal counts usage entries that could not be written
	UsageRecordFailuresTotal = MetricName{Name: "acctd_usage_record_failures_total", Description: "Number of sponsored usages that could not be recorded"}
	// RegisteredAccounts tracks accounts registered since start
	RegisteredAccounts = MetricName{Name: "acctd_registered_accounts", Description: "Number of accounts registered since the daemon started"}
	// RestRequestsTotal counts REST requests by route and status
	RestRequestsTotal = MetricName{Name: "acctd_rest_requests_total", Description: "Number of REST requests handled", Labels: []string{"method", "route", "status"}}
)
