package submit

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is matched by every *ConfigurationError.
	ErrNotConfigured = errors.New("submission endpoint is not configured")

	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("submission transport failed")
)

// ConfigurationError means no dispatch can be attempted.
type ConfigurationError struct {
	URL    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%v: %s", ErrNotConfigured, e.Reason)
	}
	return fmt.Sprintf("%v: %s (%q)", ErrNotConfigured, e.Reason, e.URL)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrNotConfigured }

// TransportError wraps a failure to complete the HTTP exchange.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
