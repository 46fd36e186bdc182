package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	// Configuration is the error code for settings that are missing or unusable at startup.
	Configuration = iota
	// Upstream wraps failures of the blob storage behind the OAuth stores.
	Upstream
)

// ConfigurationError is returned when the adapter cannot start because required settings are absent.
type ConfigurationError struct {
	Err         string
	MissingKeys []string
}

// Error returns the message string
func (e ConfigurationError) Error() string {
	if len(e.MissingKeys) == 0 {
		return e.Err
	}
	return fmt.Sprintf("%s (missing: %s)", e.Err, strings.Join(e.MissingKeys, ", "))
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(text string, missingKeys ...string) *ConfigurationError {
	return &ConfigurationError{
		Err:         text,
		MissingKeys: missingKeys,
	}
}

// AdapterError carries a code so callers can decide how to surface it.
type AdapterError struct {
	Err   string
	Code  int32
	Inner error
}

// Error returns the message string
func (e AdapterError) Error() string {
	if e.Inner == nil {
		return e.Err
	}
	return fmt.Sprintf("%s: %v", e.Err, e.Inner)
}

// Unwrap returns the wrapped error
func (e AdapterError) Unwrap() error {
	return e.Inner
}

// Status is the HTTP status the host answers with when the error reaches it.
func (e AdapterError) Status() int {
	if e.Code == Upstream {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(text string, code int32, inner error) *AdapterError {
	return &AdapterError{
		Err:   text,
		Code:  code,
		Inner: inner,
	}
}

// NewUpstreamError wraps a storage failure.
func NewUpstreamError(text string, inner error) *AdapterError {
	return NewAdapterError(text, Upstream, inner)
}

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return true
	}
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Code == Configuration
}

// IsUpstream reports whether err is, or wraps, an Upstream AdapterError.
func IsUpstream(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Code == Upstream
}
