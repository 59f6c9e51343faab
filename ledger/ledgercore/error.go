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

package ledgercore

import (
	"errors"
	"fmt"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/data/operation"
)

// OutcomeCode classifies how an operation ended.
type OutcomeCode int

const (
	// Success means every call ran and the state was committed.
	Success OutcomeCode = iota
	// Unauthorized means no sufficient authority could be established for the caller.
	Unauthorized
	// PolicyRejected means a sponsorship or session constraint was violated.
	PolicyRejected
	// ExecutionFailed means a call failed; the reason is the call's own error text.
	ExecutionFailed
	// InvariantViolation means an overflow, counter inconsistency or ordering breach.
	InvariantViolation
	// SystemFault means the store or another collaborator failed.
	SystemFault
)

var outcomeNames = [...]string{
	Success:            "Success",
	Unauthorized:       "Unauthorized",
	PolicyRejected:     "PolicyRejected",
	ExecutionFailed:    "ExecutionFailed",
	InvariantViolation: "InvariantViolation",
	SystemFault:        "SystemFault",
}

func (c OutcomeCode) String() string {
	if c < 0 || int(c) >= len(outcomeNames) {
		return fmt.Sprintf("OutcomeCode(%d)", int(c))
	}
	return outcomeNames[c]
}

// MarshalText makes outcome codes readable in API responses.
func (c OutcomeCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses the name MarshalText writes.
func (c *OutcomeCode) UnmarshalText(text []byte) error {
	for code, name := range outcomeNames {
		if name == string(text) {
			*c = OutcomeCode(code)
			return nil
		}
	}
	return fmt.Errorf("unknown outcome code %q", text)
}

// Constraint names the policy check that rejected an operation.
type Constraint string

// Policy constraints, in the order the sponsorship gate checks them, followed by the session and operation constraints.
const (
	ConstraintShutdown        Constraint = "sponsorship shut down"
	ConstraintGasCeiling      Constraint = "declared cost exceeds gas ceiling"
	ConstraintFeeRateCeiling  Constraint = "declared fee rate exceeds fee-rate ceiling"
	ConstraintFundedBalance   Constraint = "insufficient funded balance"
	ConstraintWhitelist       Constraint = "account not whitelisted"
	ConstraintSessionValueCap Constraint = "value exceeds session key cap"
	ConstraintPrefund         Constraint = "prefund transfer failed"
	ConstraintMalformed       Constraint = "malformed operation"
	ConstraintUnknownSponsor  Constraint = "unknown sponsor"
	ConstraintCallExpired     Constraint = "delegated call expired"
)

// UnauthorizedError is returned when the caller cannot act for the account.
type UnauthorizedError struct {
	Account basics.Address
	Reason  string
}

// Error satisfies builtin interface `error`
func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized for %v: %s", e.Account, e.Reason)
}

// PolicyError is returned when a sponsorship or session constraint is violated.
type PolicyError struct {
	Constraint Constraint
	Detail     string
}

// Error satisfies builtin interface `error`
func (e PolicyError) Error() string {
	if e.Detail == "" {
		return string(e.Constraint)
	}
	return fmt.Sprintf("%s: %s", e.Constraint, e.Detail)
}

// Invariant names a broken state invariant.
type Invariant string

// Invariants the engine refuses to break.
const (
	InvariantCounterMismatch Invariant = "replay counter mismatch"
	InvariantCounterOverflow Invariant = "replay counter overflow"
	InvariantReentrantBatch  Invariant = "batch already in flight for account"
	InvariantBalanceOverflow Invariant = "balance overflow"
	InvariantUsageOverflow   Invariant = "usage counter overflow"
	InvariantCallReplayed    Invariant = "delegated call already executed"
)

// InvariantError aborts an operation without touching persisted state.
type InvariantError struct {
	Invariant Invariant
	Account   basics.Address
}

// Error satisfies builtin interface `error`
func (e InvariantError) Error() string {
	return fmt.Sprintf("%s: %v", e.Invariant, e.Account)
}

// StoreError wraps a failure of the account store or another collaborator.
type StoreError struct {
	Err error
}

// Error satisfies builtin interface `error`
func (e StoreError) Error() string {
	return fmt.Sprintf("store fault: %v", e.Err)
}

// Unwrap returns the underlying error
func (e StoreError) Unwrap() error {
	return e.Err
}

// ErrAccountNotFound is returned by stores for an unknown account.
var ErrAccountNotFound = errors.New("account not found")

// ClassifyError maps err onto the outcome taxonomy. Errors that are not one of
// the typed errors above are call failures; their text is returned verbatim.
func ClassifyError(err error) (OutcomeCode, string) {
	if err == nil {
		return Success, ""
	}
	var unauthorized UnauthorizedError
	var policy PolicyError
	var invariant InvariantError
	var malformed operation.MalformedError
	var storeErr StoreError
	switch {
	case errors.As(err, &unauthorized):
		return Unauthorized, unauthorized.Reason
	case errors.As(err, &policy):
		return PolicyRejected, policy.Error()
	case errors.As(err, &malformed):
		return PolicyRejected, PolicyError{Constraint: ConstraintMalformed, Detail: err.Error()}.Error()
	case errors.As(err, &invariant):
		return InvariantViolation, string(invariant.Invariant)
	case errors.As(err, &storeErr):
		return SystemFault, storeErr.Error()
	default:
		return ExecutionFailed, err.Error()
	}
}
