// Package server defines the error taxonomy shared by the event handlers and
// utility helpers for classifying connection teardown errors.
package server

import (
	"errors"
	"strings"
)

// ValidationError rejects a malformed or incomplete event payload. It carries
// the code reported back to the originating session; the connection stays
// open.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// ErrUnknownSession marks a registry miss. Handlers that hit it abort and
// report to the requester without touching any other session.
var ErrUnknownSession = errors.New("unknown session")

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
