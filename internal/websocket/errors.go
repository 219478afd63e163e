package websocket

import "errors"

var (
	ErrMalformedFrame      = errors.New("malformed frame")
	ErrParticipantMismatch = errors.New("participant does not match authenticated user")
	ErrNotSetUp            = errors.New("connection has not completed setup")
	ErrSenderMismatch      = errors.New("sender does not match authenticated user")
)
