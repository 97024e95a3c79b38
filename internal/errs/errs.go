// Package errs holds the error types surfaced at the operation boundary.
//
// Every failure a user can see maps to one of five types. They are plain
// structs so callers match them with errors.As and render Error() verbatim.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or malformed input caught before dispatch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Missing returns a ValidationError for an empty required field.
func Missing(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "required"}
}

// Invalid returns a ValidationError for a malformed field value.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConnectionError reports a wallet connect or disconnect failure.
type ConnectionError struct {
	Connector string
	Err       error
}

func (e *ConnectionError) Error() string {
	if e.Connector == "" {
		return fmt.Sprintf("connection failed: %v", e.Err)
	}
	return fmt.Sprintf("connect %s: %v", e.Connector, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SignatureRejected reports that the user declined to sign.
type SignatureRejected struct {
	Err error
}

func (e *SignatureRejected) Error() string {
	if e.Err == nil {
		return "user rejected the request"
	}
	return fmt.Sprintf("user rejected the request: %v", e.Err)
}

func (e *SignatureRejected) Unwrap() error { return e.Err }

// CallReverted reports an on-chain failure, with the provider's message.
// Hash is empty when the revert was detected before broadcast.
type CallReverted struct {
	Hash   string
	Reason string
}

func (e *CallReverted) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "execution reverted"
	}
	if e.Hash == "" {
		return reason
	}
	return fmt.Sprintf("%s (tx %s)", reason, e.Hash)
}

// NetworkError reports an RPC failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Class names the taxonomy bucket of err, or "unknown".
func Class(err error) string {
	var (
		ve *ValidationError
		ce *ConnectionError
		sr *SignatureRejected
		cr *CallReverted
		ne *NetworkError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ce):
		return "connection"
	case errors.As(err, &sr):
		return "rejected"
	case errors.As(err, &cr):
		return "reverted"
	case errors.As(err, &ne):
		return "network"
	default:
		return "unknown"
	}
}
