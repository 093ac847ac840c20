package live

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidValue      = errors.New("invalid value")
	ErrOutOfOrderEvent   = errors.New("event precedes the last recorded event")
	ErrSessionOverflow   = errors.New("session outbound buffer overflow")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrSessionClosed     = errors.New("session closed")
)
