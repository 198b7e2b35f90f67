package domain

import "errors"

// Failure conditions shared across packages. Wrap with %w and match with errors.Is.
var (
	// ErrNoIdentifier means the asset has no mapping for a provider; never retried
	ErrNoIdentifier = errors.New("no identifier for provider")
	// ErrCircuitOpen means the provider breaker is tripped; no I/O was attempted
	ErrCircuitOpen = errors.New("circuit open")
	// ErrTransientFetch covers network, HTTP status and decode failures
	ErrTransientFetch = errors.New("transient fetch error")
	// ErrAllProvidersFailed means every provider in order was exhausted
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrNotifyFailure means an alert could not be delivered
	ErrNotifyFailure = errors.New("notify failure")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
