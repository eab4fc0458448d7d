package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the local, non-retryable failure categories.
// VenueError and SystemError are typed because they carry context.
var (
	// ErrInvalidParameters is a caller error. Never retried.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrNoVenueAvailable means no candidate venue passed eligibility filtering.
	ErrNoVenueAvailable = errors.New("no venue available")

	// ErrOrderNotFound means the order id is not in the active table.
	ErrOrderNotFound = errors.New("order not found")
)

// RiskRejectedError is a policy veto from the risk engine. Never retried.
type RiskRejectedError struct {
	Reason     string
	MaxAllowed float64
	RiskScore  float64
}

func (e *RiskRejectedError) Error() string {
	if e.MaxAllowed > 0 {
		return fmt.Sprintf("risk rejected: %s (max allowed: %.2f)", e.Reason, e.MaxAllowed)
	}
	return fmt.Sprintf("risk rejected: %s", e.Reason)
}

// CircuitBreakerActiveError means the global trading halt is in effect.
type CircuitBreakerActiveError struct {
	Reason            string
	RemainingCooldown time.Duration
}

func (e *CircuitBreakerActiveError) Error() string {
	return fmt.Sprintf("circuit breaker active: %s (cooldown remaining: %s)",
		e.Reason, e.RemainingCooldown.Round(time.Second))
}

// VenueErrorCategory classifies adapter failures for circuit-breaker counters.
type VenueErrorCategory string

const (
	ErrCategoryAPI     VenueErrorCategory = "api"
	ErrCategoryNetwork VenueErrorCategory = "network"
	ErrCategoryTimeout VenueErrorCategory = "timeout"
	ErrCategorySystem  VenueErrorCategory = "system"
)

// VenueError is an adapter-reported failure. Retried up to the configured
// budget with exponential backoff and optional failover.
type VenueError struct {
	Venue    string
	Category VenueErrorCategory
	Err      error
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue %s: %s error: %v", e.Venue, e.Category, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

// NewVenueError wraps an adapter failure with its venue and category.
func NewVenueError(venue string, category VenueErrorCategory, err error) *VenueError {
	return &VenueError{Venue: venue, Category: category, Err: err}
}

// SystemError is an unexpected internal fault. Reported to the circuit breaker
// immediately and surfaced without retry.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("system error in %s: %v", e.Op, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }
