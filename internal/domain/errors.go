package domain

import (
	"errors"
	"fmt"
	"time"
)

// AppError represents a standardized error response of the API and MCP surfaces
type AppError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput         = "INVALID_INPUT"
	ErrValidation           = "VALIDATION_ERROR"
	ErrUnknownCondition     = "UNKNOWN_CONDITION"
	ErrGatewayTimeout       = "GATEWAY_TIMEOUT"
	ErrGatewayNetwork       = "GATEWAY_NETWORK_ERROR"
	ErrGatewayServer        = "GATEWAY_SERVER_ERROR"
	ErrHeuristicUnavailable = "HEURISTIC_UNAVAILABLE"
	ErrStorage              = "STORAGE_ERROR"
	ErrNotFound             = "NOT_FOUND"
	ErrInternalServer       = "INTERNAL_SERVER_ERROR"
)

// NewAppError creates a new AppError with timestamp
func NewAppError(code, message, details, requestID string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MissingFieldError reports a required feature that is absent, empty or not a finite number
type MissingFieldError struct {
	ValidationError
}

// NewMissingFieldError creates a MissingFieldError for the given field
func NewMissingFieldError(field, message string, value interface{}) *MissingFieldError {
	return &MissingFieldError{ValidationError{Field: field, Message: message, Value: value}}
}

// Unwrap exposes the embedded ValidationError to errors.As
func (e *MissingFieldError) Unwrap() error {
	return &e.ValidationError
}

// GatewayErrorKind classifies a failed prediction request
type GatewayErrorKind string

const (
	GatewayTimeout      GatewayErrorKind = "timeout"
	GatewayNetwork      GatewayErrorKind = "network"
	GatewayServer       GatewayErrorKind = "server"
	GatewayUnavailable  GatewayErrorKind = "unavailable"
	GatewayUnconfigured GatewayErrorKind = "unconfigured"
)

// GatewayError is returned by the remote prediction gateway. Every kind is
// recoverable by the local heuristic where one exists.
type GatewayError struct {
	Kind      GatewayErrorKind
	Condition ConditionKind
	Status    int
	Err       error
}

func (e *GatewayError) Error() string {
	msg := e.UserMessage()
	if e.Err != nil {
		return fmt.Sprintf("%s prediction failed: %s: %v", e.Condition, msg, e.Err)
	}
	return fmt.Sprintf("%s prediction failed: %s", e.Condition, msg)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// UserMessage is the human-readable text shown for the failure
func (e *GatewayError) UserMessage() string {
	switch e.Kind {
	case GatewayTimeout:
		return "connection timed out, please try again"
	case GatewayNetwork:
		return "network unreachable, please check your connection"
	case GatewayServer:
		if e.Status != 0 {
			return fmt.Sprintf("server rejected request (status %d)", e.Status)
		}
		return "server rejected request"
	case GatewayUnavailable:
		return "prediction service temporarily unavailable"
	case GatewayUnconfigured:
		return "no prediction endpoint configured"
	default:
		return "prediction request failed"
	}
}

// Code maps the gateway failure onto an AppError code
func (e *GatewayError) Code() string {
	switch e.Kind {
	case GatewayTimeout:
		return ErrGatewayTimeout
	case GatewayServer:
		return ErrGatewayServer
	default:
		return ErrGatewayNetwork
	}
}

// HeuristicUnavailableError is returned when a condition has no local formula
type HeuristicUnavailableError struct {
	Condition ConditionKind
	// Cause is the gateway failure that made the heuristic necessary, if any.
	Cause error
}

func (e *HeuristicUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no local heuristic for %s: %v", e.Condition, e.Cause)
	}
	return fmt.Sprintf("no local heuristic for %s", e.Condition)
}

func (e *HeuristicUnavailableError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether err is caused by invalid input
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsGatewayError reports whether err originates from the prediction gateway
// and returns it
func IsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
