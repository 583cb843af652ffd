package domain

import "errors"

var (
	// ErrMissingIdentity is returned when no participant identity is available.
	ErrMissingIdentity = errors.New("participant identity missing")
	// ErrNotConnected is returned when a channel command is issued while the
	// duplex channel is not open.
	ErrNotConnected = errors.New("channel not connected")
)
