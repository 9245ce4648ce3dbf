package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/mil-ad/budsmic/internal/logger"
)

const (
	// DefaultTailSize bounds the output kept for background processes.
	DefaultTailSize = 16 * 1024

	waitDelay = time.Second
	stopGrace = 2 * time.Second
)

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	log      logger.Logger
	tailSize int
}

// NewExecRunner returns a Runner backed by real processes.
func NewExecRunner(log logger.Logger) *ExecRunner {
	return &ExecRunner{log: log.WithComponent("command"), tailSize: DefaultTailSize}
}

// Available reports whether name resolves to an executable on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug().Str("cmd", c.String()).Dur("timeout", c.Timeout).Msg("running")

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, fmt.Errorf("%w: %s after %s", ErrTimeout, c, c.Timeout)
		}

		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		r.log.Debug().Str("cmd", c.String()).Int("exit_code", res.ExitCode).Msg("non-zero exit")

		return res, nil
	}

	return res, fmt.Errorf("%w: %s: %w", ErrLaunch, c.Path, err)
}

func (r *ExecRunner) Start(ctx context.Context, c Command) (Process, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.WaitDelay = waitDelay
	cmd.Cancel = func() error { return terminate(cmd) }
	setProcessGroup(cmd)

	out := newTail(r.tailSize)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLaunch, c.Path, err)
	}

	r.log.Debug().Str("cmd", c.String()).Int("pid", cmd.Process.Pid).Msg("started background process")

	p := &execProcess{cmd: cmd, out: out, done: make(chan struct{})}

	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	out  *tail
	done chan struct{}

	once    sync.Once
	stopErr error
}

func (p *execProcess) Stop() error {
	p.once.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}

		p.stopErr = terminate(p.cmd)

		select {
		case <-p.done:
		case <-time.After(stopGrace):
		}
	})

	return p.stopErr
}

func (p *execProcess) Output() string {
	return p.out.String()
}
