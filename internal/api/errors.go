package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when the device redirects a request to
	// its login page.
	ErrNotAuthenticated = errors.New("not authenticated: device session missing or expired")

	// ErrInvalidCredentials is returned when the login form is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TransportError wraps network-level failures: the request never produced a
// usable response.
type TransportError struct {
	Op  string `json:"op"`
	Err error  `json:"-"`
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is an application-level failure reported by the device,
// either {"success": false, "error": ...} or a non-2xx status.
type RemoteError struct {
	Op      string `json:"op"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if e.Status >= 300 {
		return fmt.Sprintf("%s: status=%d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// ValidationError is returned before any request is sent.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsTransportError checks if err is a network failure
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsValidationError checks if err was raised before sending a request
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RemoteMessage returns the device supplied reason when err is a RemoteError.
func RemoteMessage(err error) (string, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Message, true
	}
	return "", false
}
