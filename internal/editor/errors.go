package editor

import "errors"

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrGestureActive    = errors.New("a gesture is in progress")
	ErrNoGesture        = errors.New("no gesture in progress")
	ErrEmptyFigure      = errors.New("figure has no size")
)
