// Package server declares the sentinel errors of the presence protocol.
package server

import "errors"

var (
	// ErrInvalidIdentity marks a registration whose username is empty after
	// normalization.
	ErrInvalidIdentity = errors.New("invalid username")

	// ErrNotRegistered marks an event arriving on a connection that has no
	// session in the registry.
	ErrNotRegistered = errors.New("connection not registered")
)
