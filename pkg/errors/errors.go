package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base interface for all application errors
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// NotFoundError represents a resource that was not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

func (e *NotFoundError) Code() string {
	return "NOT_FOUND"
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents invalid input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *ValidationError) Code() string {
	return "VALIDATION_ERROR"
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotConfiguredError signals a flow was triggered before its required
// configuration (remote URL, credentials, columns) was present.
type NotConfiguredError struct {
	What string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s not configured", e.What)
}

func (e *NotConfiguredError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *NotConfiguredError) Code() string {
	return "NOT_CONFIGURED"
}

// NewNotConfiguredError creates a new NotConfiguredError
func NewNotConfiguredError(what string) *NotConfiguredError {
	return &NotConfiguredError{What: what}
}

// TransportError means every proxy strategy was exhausted without reaching
// the remote endpoint. Retryable by its nature.
type TransportError struct {
	Endpoint string
	LastErr  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("all proxies failed for %s: %s", e.Endpoint, e.LastErr)
}

func (e *TransportError) HTTPStatus() int {
	return http.StatusBadGateway
}

func (e *TransportError) Code() string {
	return "TRANSPORT_FAILED"
}

// NewTransportError creates a new TransportError
func NewTransportError(endpoint, lastErr string) *TransportError {
	return &TransportError{Endpoint: endpoint, LastErr: lastErr}
}

// RemoteRejectionError is a definitive remote 4xx: the proxy was reachable
// but the remote refused the request. Not retried within a call.
type RemoteRejectionError struct {
	Status  int
	Message string
}

func (e *RemoteRejectionError) Error() string {
	return fmt.Sprintf("remote rejected request (%d): %s", e.Status, e.Message)
}

func (e *RemoteRejectionError) HTTPStatus() int {
	if e.Status >= 400 && e.Status < 500 {
		return e.Status
	}
	return http.StatusBadGateway
}

func (e *RemoteRejectionError) Code() string {
	return "REMOTE_REJECTED"
}

// NewRemoteRejectionError creates a new RemoteRejectionError
func NewRemoteRejectionError(status int, message string) *RemoteRejectionError {
	return &RemoteRejectionError{Status: status, Message: message}
}

// InternalError represents unexpected server errors
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s (caused by: %v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *InternalError) HTTPStatus() int {
	return http.StatusInternalServerError
}

func (e *InternalError) Code() string {
	return "INTERNAL_ERROR"
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}

// Helper functions for error checking

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

// IsTransport checks if an error is a TransportError
func IsTransport(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport)
}

// IsRemoteRejection checks if an error is a RemoteRejectionError
func IsRemoteRejection(err error) bool {
	var rejection *RemoteRejectionError
	return errors.As(err, &rejection)
}

// IsNotConfigured checks if an error is a NotConfiguredError
func IsNotConfigured(err error) bool {
	var notConfigured *NotConfiguredError
	return errors.As(err, &notConfigured)
}

// GetHTTPStatus returns the HTTP status code for an error
// Returns 500 if the error doesn't implement AppError
func GetHTTPStatus(err error) int {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the error code for an error
// Returns "UNKNOWN_ERROR" if the error doesn't implement AppError
func GetErrorCode(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return "UNKNOWN_ERROR"
}
