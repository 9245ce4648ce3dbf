package headset

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mil-ad/budsmic/internal/bluetoothctl"
	"github.com/mil-ad/budsmic/internal/command"
	"github.com/mil-ad/budsmic/internal/logger"
	"github.com/mil-ad/budsmic/internal/pactl"
	"github.com/mil-ad/budsmic/internal/poll"
)

// Options tunes the whole acquisition.
type Options struct {
	Scan          poll.Policy
	ConnectSettle time.Duration
	Trust         bool
	Discoverable  bool
	Profile       ProfileOptions
}

// DefaultOptions polls every 2s for up to 10 attempts, settles 2s after
// connecting and 3s after a profile switch.
func DefaultOptions() Options {
	return Options{
		Scan:          poll.Policy{Interval: 2 * time.Second, MaxAttempts: 10},
		ConnectSettle: 2 * time.Second,
		Trust:         true,
		Discoverable:  true,
		Profile:       DefaultProfileOptions(),
	}
}

// Report collects every step of one run.
type Report struct {
	RunID      string
	Device     string
	Adapter    AdapterResult
	Discovery  DiscoveryResult
	Connection ConnectionAttempt
	Profile    ProfileResult
}

// Acquired reports a verified connection.
func (r Report) Acquired() bool {
	return r.Connection.Status == StatusSucceeded
}

// Microphone returns the capture source when the profile switch succeeded.
func (r Report) Microphone() (pactl.Source, bool) {
	return r.Profile.Source, r.Profile.Status == StatusSucceeded
}

// Err is the condition that halted the run, if any: a missing device or an
// unverified connection. Profile failures do not halt.
func (r Report) Err() error {
	if r.Discovery.Status() != StatusSucceeded {
		return r.Discovery.Err
	}

	if !r.Acquired() {
		return r.Connection.Err
	}

	return nil
}

// Workflow wires the steps together in order.
type Workflow struct {
	Adapter    *AdapterController
	Discoverer *Discoverer
	Negotiator *Negotiator
	Switcher   *ProfileSwitcher
	log        logger.Logger
}

// NewWorkflow builds every step around one runner and clock. service may be nil.
func NewWorkflow(runner command.Runner, timeouts bluetoothctl.Timeouts, service ServiceStarter,
	clock poll.Clock, opts Options, log logger.Logger) *Workflow {
	bt := bluetoothctl.NewClient(runner, timeouts)
	pa := pactl.NewClient(runner, timeouts.Query)

	return &Workflow{
		Adapter:    NewAdapterController(bt, runner, service, opts.Discoverable, log),
		Discoverer: NewDiscoverer(bt, opts.Scan, clock, log),
		Negotiator: NewNegotiator(bt, clock, opts.ConnectSettle, opts.Trust, log),
		Switcher:   NewProfileSwitcher(pa, clock, opts.Profile, log),
		log:        log.WithComponent("workflow"),
	}
}

// Run acquires the device called name. A missing device or an unverified
// connection short-circuits the remaining steps, which stay Skipped.
func (w *Workflow) Run(ctx context.Context, name string) Report {
	report := Report{RunID: uuid.NewString(), Device: name}
	log := w.log.WithField("run_id", report.RunID)

	log.Info().Str("device", name).Msg("acquiring device")

	report.Adapter = w.Adapter.Ensure(ctx)

	report.Discovery = w.Discoverer.Discover(ctx, name)
	if report.Discovery.Status() != StatusSucceeded {
		log.Error().Err(report.Discovery.Err).Msg("giving up: device not found")
		return report
	}

	report.Connection = w.Negotiator.Acquire(ctx, report.Discovery.Device)
	if !report.Acquired() {
		log.Error().Err(report.Connection.Err).Msg("giving up: connection not verified")
		return report
	}

	report.Profile = w.Switcher.Switch(ctx, report.Discovery.Device.Address)
	if report.Profile.Status != StatusSucceeded {
		log.Warn().Err(report.Profile.Err).Msg("continuing without microphone")
	}

	return report
}
