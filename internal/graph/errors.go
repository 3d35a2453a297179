package graph

import "errors"

var (
	// ErrInvalidConnection rejects a connection: incompatible types, an
	// occupied input, a self-loop or a missing endpoint.
	ErrInvalidConnection = errors.New("invalid connection")
	// ErrUnknownEntity reports a stale or never-issued id.
	ErrUnknownEntity = errors.New("unknown entity")
	ErrEmptyGroup    = errors.New("empty group")
	ErrUnknownModel  = errors.New("unknown node model")
	ErrInvalidPort   = errors.New("invalid port")
	// ErrInvalidRecord rejects a record that cannot be applied as a whole.
	ErrInvalidRecord = errors.New("invalid record")
)
