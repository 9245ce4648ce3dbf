package headset

import (
	"context"
	"errors"
	"fmt"

	"github.com/mil-ad/budsmic/internal/bluetoothctl"
	"github.com/mil-ad/budsmic/internal/logger"
	"github.com/mil-ad/budsmic/internal/poll"
)

// DiscoveryState is the terminal state of Discover.
type DiscoveryState int

const (
	DiscoveryInit DiscoveryState = iota
	DiscoveryCheckKnown
	DiscoveryScanning
	DiscoveryFound
	DiscoveryTimedOut
)

func (s DiscoveryState) String() string {
	switch s {
	case DiscoveryCheckKnown:
		return "check-known"
	case DiscoveryScanning:
		return "scanning"
	case DiscoveryFound:
		return "found"
	case DiscoveryTimedOut:
		return "timed-out"
	default:
		return "init"
	}
}

// DiscoveryResult is the outcome of Discover. On TimedOut, Listing holds the
// last device directory seen and ScanOutput the tail of the scan's output.
type DiscoveryResult struct {
	State      DiscoveryState
	Device     bluetoothctl.DeviceRecord
	Scanned    bool
	Polls      int
	Listing    []bluetoothctl.DeviceRecord
	ScanOutput string
	Err        error
}

func (r DiscoveryResult) Status() Status {
	switch r.State {
	case DiscoveryFound:
		return StatusSucceeded
	case DiscoveryTimedOut:
		return StatusFailed
	default:
		return StatusSkipped
	}
}

// Discoverer locates a device by name, scanning only when it is not already known.
type Discoverer struct {
	bt     *bluetoothctl.Client
	policy poll.Policy
	clock  poll.Clock
	log    logger.Logger
}

func NewDiscoverer(bt *bluetoothctl.Client, policy poll.Policy, clock poll.Clock, log logger.Logger) *Discoverer {
	return &Discoverer{bt: bt, policy: policy, clock: clock, log: log.WithComponent("discovery")}
}

// Discover moves Init -> CheckKnown -> (Found | Scanning) -> (Found | TimedOut).
func (d *Discoverer) Discover(ctx context.Context, name string) DiscoveryResult {
	res := DiscoveryResult{State: DiscoveryCheckKnown}
	log := d.log.WithField("device", name)

	listing, err := d.bt.Devices(ctx)
	if err != nil {
		log.Warn().Err(classify(err)).Msg("listing known devices failed")
	}

	res.Listing = listing

	if rec, ok := bluetoothctl.Find(listing, name); ok {
		log.Info().Str("address", rec.Address).Msg("device already known")

		res.State = DiscoveryFound
		res.Device = rec

		return res
	}

	res.State = DiscoveryScanning
	res.Scanned = true

	scan, err := d.bt.StartScan(ctx)
	if err != nil {
		log.Warn().Err(classify(err)).Msg("could not start scan, polling anyway")
	}

	log.Info().
		Dur("interval", d.policy.Interval).
		Int("max_attempts", d.policy.MaxAttempts).
		Msg("scanning")

	polls, pollErr := d.policy.Run(ctx, d.clock, func(attempt int) (bool, error) {
		current, err := d.bt.Devices(ctx)
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Msg("poll failed")
			return false, nil
		}

		res.Listing = current

		rec, ok := bluetoothctl.Find(current, name)
		if ok {
			res.Device = rec
		}

		return ok, nil
	})

	res.Polls = polls

	if scan != nil {
		if stopErr := scan.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			log.Debug().Err(stopErr).Msg("stopping scan")
		}
	}

	if pollErr == nil {
		log.Info().Str("address", res.Device.Address).Int("polls", polls).Msg("device found")

		res.State = DiscoveryFound

		return res
	}

	res.State = DiscoveryTimedOut
	if scan != nil {
		res.ScanOutput = scan.Output()
	}

	res.Err = fmt.Errorf("%w: %q after %d polls", ErrDeviceNotFound, name, polls)
	if !errors.Is(pollErr, poll.ErrExhausted) {
		res.Err = errors.Join(res.Err, pollErr)
	}

	log.Warn().
		Int("polls", polls).
		Interface("listing", res.Listing).
		Msg("device not found")

	return res
}
