// Package command runs external tools and hands their text output back as data.
//
// A non-zero exit status is never an error: several callers expect specific
// failures (for example a pair request on an already paired device). Errors
// are reserved for processes that could not be started or did not finish.
package command

//go:generate mockgen -destination=mock_command.go -package=command github.com/mil-ad/budsmic/internal/command Runner,Process

import (
	"context"
	"strings"
	"time"
)

// Command describes one external invocation.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration // zero means no hard timeout; ctx still applies
}

// New builds a Command with no timeout.
func New(path string, args ...string) Command {
	return Command{Path: path, Args: args}
}

// WithTimeout returns a copy of c bounded by d.
func (c Command) WithTimeout(d time.Duration) Command {
	c.Timeout = d
	return c
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}

	return c.Path + " " + strings.Join(c.Args, " ")
}

// Result is the captured outcome of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports a zero exit status.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Combined returns stdout followed by stderr.
func (r Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}

	if r.Stdout == "" {
		return r.Stderr
	}

	return r.Stdout + "\n" + r.Stderr
}

// Runner executes commands.
type Runner interface {
	// Run blocks until the process exits. It fails with ErrTimeout or
	// ErrLaunch, never because of the exit status.
	Run(ctx context.Context, cmd Command) (Result, error)

	// Start launches cmd in the background and returns immediately.
	Start(ctx context.Context, cmd Command) (Process, error)
}

// Process is a running background command.
type Process interface {
	// Stop asks the process to terminate. It is safe to call more than once
	// and after the process has already exited.
	Stop() error

	// Output returns the most recent output of the process, bounded in size.
	Output() string
}
