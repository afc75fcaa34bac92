package api

import (
	"fmt"
	"time"
)

// ErrorKind categorizes a gate rejection.
type ErrorKind string

const (
	// KindBlocked: the client is inside a block period.
	KindBlocked ErrorKind = "blocked"

	// KindRateLimitExceeded: the request crossed the window threshold and
	// started a new block period.
	KindRateLimitExceeded ErrorKind = "rate_limit_exceeded"

	// KindUnauthorized: credential missing, invalid, or of the wrong scheme.
	KindUnauthorized ErrorKind = "unauthorized"

	// KindMissingTenantContext: no tenant was resolved upstream. Rendered
	// to the caller exactly like KindUnauthorized.
	KindMissingTenantContext ErrorKind = "missing_tenant_context"

	KindNotFound         ErrorKind = "not_found"
	KindMethodNotAllowed ErrorKind = "method_not_allowed"
	KindServerError      ErrorKind = "server_error"
	KindBadGateway       ErrorKind = "bad_gateway"
)

// Messages shared with the user-management API's envelope.
const (
	MessageBlocked           = "IP address temporarily blocked due to rate limit violation"
	MessageRateLimitExceeded = "Rate limit exceeded"
	MessageUnauthorized      = "Unauthorized"
)

// GateError is a terminal rejection of the current request.
type GateError struct {
	Kind    ErrorKind
	Message string
	Details string

	// RetryAfter, when positive, is sent as the Retry-After header (seconds).
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *GateError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewBlockedError reports a client still inside its block period.
func NewBlockedError(remainingSeconds int64) *GateError {
	return &GateError{
		Kind:    KindBlocked,
		Message: MessageBlocked,
		Details: fmt.Sprintf("Try again in %d seconds", remainingSeconds),
	}
}

// NewRateLimitExceededError reports a threshold crossing that blocked the
// client for blockDuration.
func NewRateLimitExceededError(blockDuration time.Duration) *GateError {
	secs := int64(blockDuration / time.Second)
	return &GateError{
		Kind:       KindRateLimitExceeded,
		Message:    MessageRateLimitExceeded,
		Details:    fmt.Sprintf("Too many requests. IP blocked for %d seconds", secs),
		RetryAfter: blockDuration,
	}
}

// NewUnauthorizedError reports a credential failure.
func NewUnauthorizedError() *GateError {
	return &GateError{Kind: KindUnauthorized, Message: MessageUnauthorized}
}

// NewMissingTenantContextError reports an upstream wiring defect. The
// caller sees a plain Unauthorized.
func NewMissingTenantContextError() *GateError {
	return &GateError{Kind: KindMissingTenantContext, Message: MessageUnauthorized}
}

// NewNotFoundError reports a path no route serves.
func NewNotFoundError() *GateError {
	return &GateError{Kind: KindNotFound, Message: "Route not found"}
}

// NewMethodNotAllowedError reports a known path hit with an unsupported method.
func NewMethodNotAllowedError() *GateError {
	return &GateError{Kind: KindMethodNotAllowed, Message: "Method not allowed"}
}

// NewServerError creates a GateError for internal failures.
func NewServerError(message string) *GateError {
	return &GateError{Kind: KindServerError, Message: message}
}

// NewBadGatewayError creates a GateError for upstream failures.
func NewBadGatewayError(message string) *GateError {
	return &GateError{Kind: KindBadGateway, Message: message}
}
