// Package headset turns a device name into a connected, capability-verified
// Bluetooth audio endpoint: adapter bring-up, discovery, pair/connect with
// independent verification, and a switch to a microphone-capable profile.
//
// Steps never panic or abort on tool failures. Each returns a result value
// whose Status says whether it was skipped, succeeded or failed, and whose
// Err carries one of the sentinel errors below.
package headset

import (
	"errors"
	"fmt"

	"github.com/mil-ad/budsmic/internal/command"
)

var (
	ErrToolUnavailable      = errors.New("external tool unavailable")
	ErrTimeout              = errors.New("external tool timed out")
	ErrDeviceNotFound       = errors.New("device not found")
	ErrConnectionUnverified = errors.New("connection not verified")
	ErrProfileSwitchFailed  = errors.New("profile switch failed")
)

// Status is the outcome of one workflow step.
type Status int

const (
	StatusSkipped Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// classify maps executor errors onto the step taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, command.ErrLaunch):
		return fmt.Errorf("%w: %w", ErrToolUnavailable, err)
	case errors.Is(err, command.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return err
	}
}
