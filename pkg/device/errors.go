package device

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError is returned when a Builder cannot be constructed.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "device: configuration: " + e.Reason
}

// ValidationError is returned before any request is sent when a submission
// is missing a required value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("device: %s %s", e.Field, e.Reason)
}

// TransportError describes a request that was handed to the API client and
// failed: connectivity, a non-2xx status or an undecodable response.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Errors     []string
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "onesignal %s %s", e.Method, e.Path)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if len(e.Errors) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Errors, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Rejected reports whether the service answered with a 4xx status. Resending
// the same request will not change the answer.
func (e *TransportError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsNotSent reports whether err guarantees that no request reached the
// network, so retrying after fixing the input is safe.
func IsNotSent(err error) bool {
	var cfgErr *ConfigurationError
	var valErr *ValidationError
	return errors.As(err, &cfgErr) || errors.As(err, &valErr)
}
