package command

import "errors"

var (
	// ErrTimeout is returned when a command outlives its Timeout.
	ErrTimeout = errors.New("command timed out")
	// ErrLaunch is returned when the executable could not be started.
	ErrLaunch = errors.New("command could not be started")
)
