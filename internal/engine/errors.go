package engine

import (
	"errors"
	"fmt"
)

// Error is the error type returned by engine operations.
//
// The taxonomy:
//   - CONFIGURATION: malformed waterfall or tier; fatal to the affected execution
//   - STALE_RESPONSE: response to an offer that is no longer pending; ignored
//   - NOTIFICATION: one carrier could not be notified; sibling offers proceed
//   - NOT_FOUND: unknown load, offer or waterfall
//   - INVALID_STATE: command not allowed in the execution's current state
//   - INVALID_ARGUMENT: malformed input
//
// Every Error is appended to the execution log before it is returned.
// Errors not tied to an execution are logged with an empty load ID.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// LoadID identifies the affected execution, if any.
	LoadID string

	// OfferID identifies the affected offer, if any.
	OfferID string

	// CarrierID identifies the affected carrier, if any.
	CarrierID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	ErrCodeConfiguration   ErrorCode = "CONFIGURATION"
	ErrCodeStaleResponse   ErrorCode = "STALE_RESPONSE"
	ErrCodeNotification    ErrorCode = "NOTIFICATION"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeInvalidState    ErrorCode = "INVALID_STATE"
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.LoadID != "" && e.CarrierID != "":
		msg = fmt.Sprintf("%s (load=%s, carrier=%s)", msg, e.LoadID, e.CarrierID)
	case e.LoadID != "":
		msg = fmt.Sprintf("%s (load=%s)", msg, e.LoadID)
	case e.OfferID != "":
		msg = fmt.Sprintf("%s (offer=%s)", msg, e.OfferID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsConfigurationError reports whether err is a CONFIGURATION error.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsStaleResponse reports whether err is a STALE_RESPONSE error.
func IsStaleResponse(err error) bool {
	return hasCode(err, ErrCodeStaleResponse)
}

// IsNotificationError reports whether err is a NOTIFICATION error.
func IsNotificationError(err error) bool {
	return hasCode(err, ErrCodeNotification)
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsInvalidState reports whether err is an INVALID_STATE error.
func IsInvalidState(err error) bool {
	return hasCode(err, ErrCodeInvalidState)
}

// NewConfigurationError creates a CONFIGURATION error for a waterfall.
func NewConfigurationError(waterfallID, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if waterfallID != "" {
		msg = fmt.Sprintf("waterfall %s: %s", waterfallID, msg)
	}
	return &Error{Code: ErrCodeConfiguration, Message: msg}
}

// NewStaleResponseError creates a STALE_RESPONSE error.
func NewStaleResponseError(loadID, offerID, carrierID, reason string) *Error {
	return &Error{
		Code:      ErrCodeStaleResponse,
		Message:   reason,
		LoadID:    loadID,
		OfferID:   offerID,
		CarrierID: carrierID,
	}
}

// NewNotificationError wraps a notifier failure for one carrier.
func NewNotificationError(loadID, offerID, carrierID string, err error) *Error {
	return &Error{
		Code:      ErrCodeNotification,
		Message:   "carrier notification failed",
		LoadID:    loadID,
		OfferID:   offerID,
		CarrierID: carrierID,
		Err:       err,
	}
}

func notFound(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalidState(loadID, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidState, Message: fmt.Sprintf(format, args...), LoadID: loadID}
}

func invalidArgument(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}
