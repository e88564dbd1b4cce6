package resource

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by Store implementations. The controller wraps
// them into the typed errors below before they reach the transport layer.
var (
	// ErrNotFound signals that no record matched the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrConflict signals a store-reported unique-constraint violation.
	ErrConflict = errors.New("record conflict")
)

// StatusCodeError is implemented by errors that map to an HTTP status.
type StatusCodeError interface {
	error
	StatusCode() int
}

// ClientError is a malformed-request error: bad id, missing required
// query parameter. Never retried, surfaced verbatim to the caller.
type ClientError struct {
	Message string
}

func (e *ClientError) Error() string { return e.Message }

// StatusCode returns the HTTP status code for this error.
func (e *ClientError) StatusCode() int { return http.StatusBadRequest }

// NotFoundError is returned when an id is well-formed but no record
// matches it.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Resource, e.ID)
}

// StatusCode returns the HTTP status code for this error.
func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

// ConflictError is returned on a store-reported duplicate or
// unique-constraint violation.
type ConflictError struct {
	Resource string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code for this error.
func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// StoreError wraps any other store failure. The transport layer logs the
// full detail and sends a generic message to the client.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code for this error.
func (e *StoreError) StatusCode() int { return http.StatusInternalServerError }

// wrapStoreErr converts a store failure into the typed error taxonomy.
func wrapStoreErr(op, resource string, id int64, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return &NotFoundError{Resource: resource, ID: id}
	case errors.Is(err, ErrConflict):
		return &ConflictError{Resource: resource, Err: err}
	default:
		return &StoreError{Op: op, Err: err}
	}
}
