package search

import (
	"context"
	"errors"
	"fmt"
)

// Candidate is a raw business result from an upstream search provider,
// before dedup and normalization.
type Candidate struct {
	CompanyName string
	Website     string
	Phone       string
	Email       string
	Address     string
}

// Query describes one campaign search.
type Query struct {
	Sector     string
	Location   string
	RadiusKM   int
	MaxResults int
	Prompt     string
}

// Provider is the upstream search port.
type Provider interface {
	Search(ctx context.Context, query Query) ([]Candidate, error)
}

// ProviderError carries the retry classification decided where the failure
// was observed. Callers branch on the Transient flag, never on error text.
type ProviderError struct {
	Provider  string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewTransientError marks a failure worth retrying (network faults, upstream
// overload, 5xx).
func NewTransientError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Transient: true, Err: err}
}

// NewPermanentError marks a failure a retry cannot fix (rejected request,
// bad configuration).
func NewPermanentError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Transient: false, Err: err}
}

// IsTransient reports whether err is classified as retryable. Unclassified
// errors (context cancellation, programming faults) are not retryable.
func IsTransient(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Transient
	}
	return false
}
