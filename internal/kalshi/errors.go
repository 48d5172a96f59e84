package kalshi

import (
	"errors"
	"fmt"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ERROR TAXONOMY
// ═══════════════════════════════════════════════════════════════════════════════
//
// Callers branch on error kind, never on message text:
//   ConfigError     - bad/missing credentials, fatal at startup
//   ValidationError - bad caller input, no request is sent
//   NetworkError    - transport failure after all retries
//   BusinessError   - exchange rejected the request (HTTP 4xx/5xx)
//   DecodeError     - malformed response body
//
// ═══════════════════════════════════════════════════════════════════════════════

// ConfigError indicates invalid or missing credential material.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kalshi config: %s: %v", e.Msg, e.Err)
	}
	return "kalshi config: " + e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ValidationError indicates a request was rejected before any network call.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// NetworkError indicates a transport-level failure that survived all retries.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BusinessError carries the exchange's rejection. Never retried.
type BusinessError struct {
	Status int
	Code   string
	Detail string
}

func (e *BusinessError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
}

// DecodeError indicates a 2xx response whose body is not valid JSON.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid JSON response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsFatalAPIError reports whether err is an exchange-side or transport
// failure that must propagate instead of degrading to an empty default.
func IsFatalAPIError(err error) bool {
	var be *BusinessError
	var ne *NetworkError
	return errors.As(err, &be) || errors.As(err, &ne)
}
