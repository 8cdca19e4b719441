package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateIdempotencyKey is returned by PaymentIntentRepository.Create
// when the idempotency key is already reserved by another intent.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already reserved")

// ValidationError rejects malformed input before any adapter call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// StateError rejects an operation that is illegal in the intent's current state.
type StateError struct {
	Current Status
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal state transition from %s: %s", e.Current, e.Message)
}

// NotFoundError reports an unknown payment, refund or provider reference.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ProviderError reports a failed adapter call. Transport-level failures carry
// the underlying error and must never be used to mark an intent failed; only
// an explicit provider rejection moves status to FAILED.
type ProviderError struct {
	Provider Provider
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s call failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider %s rejected: %s %s", e.Provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// SignatureError reports an inbound webhook whose signature did not verify.
// The event is logged but never applied.
type SignatureError struct {
	Provider Provider
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid webhook signature for provider %s", e.Provider)
}
