// Package server implements the core of the Agent Hub: a WebSocket session
// registry and message-dispatch engine.
//
// The implementation is organized into specialized files for configuration,
// the hub lifecycle manager, sessions, the registry, the dispatcher, and the
// typed event handlers to keep the codebase maintainable and testable as the
// project grows.
package server
