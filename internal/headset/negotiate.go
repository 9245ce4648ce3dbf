package headset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mil-ad/budsmic/internal/bluetoothctl"
	"github.com/mil-ad/budsmic/internal/logger"
	"github.com/mil-ad/budsmic/internal/poll"
)

// ConnectionOutcome is what the last connect command claimed.
type ConnectionOutcome int

const (
	OutcomeUnknown ConnectionOutcome = iota
	OutcomeConnected
	OutcomeFailed
)

func (o ConnectionOutcome) String() string {
	switch o {
	case OutcomeConnected:
		return "connected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func outcomeOf(s bluetoothctl.ConnectStatus) ConnectionOutcome {
	switch s {
	case bluetoothctl.ConnectSucceeded:
		return OutcomeConnected
	case bluetoothctl.ConnectFailed:
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

// ConnectionAttempt records one acquisition. Verified comes from the info
// query alone; Outcome is only what connect reported.
type ConnectionAttempt struct {
	Target   bluetoothctl.DeviceRecord
	Outcome  ConnectionOutcome
	Verified bool
	Pairing  bluetoothctl.PairStatus
	Retried  bool
	Info     bluetoothctl.Info
	Status   Status
	Err      error
}

// Negotiator connects, pairing first when the initial connect fails.
type Negotiator struct {
	bt     *bluetoothctl.Client
	clock  poll.Clock
	settle time.Duration
	trust  bool
	log    logger.Logger
}

func NewNegotiator(bt *bluetoothctl.Client, clock poll.Clock, settle time.Duration, trust bool,
	log logger.Logger) *Negotiator {
	return &Negotiator{bt: bt, clock: clock, settle: settle, trust: trust, log: log.WithComponent("negotiator")}
}

// Acquire runs connect, then pair and a single connect retry on failure,
// waits for the link to settle and verifies it with an info query.
func (n *Negotiator) Acquire(ctx context.Context, target bluetoothctl.DeviceRecord) ConnectionAttempt {
	attempt := ConnectionAttempt{Target: target}
	log := n.log.WithField("address", target.Address)

	status, _, err := n.bt.Connect(ctx, target.Address)
	if err != nil {
		log.Warn().Err(classify(err)).Msg("connect did not complete")
	}

	if status == bluetoothctl.ConnectFailed {
		log.Info().Msg("connect failed, pairing")

		pairing, out, err := n.bt.Pair(ctx, target.Address)
		if err != nil {
			log.Warn().Err(classify(err)).Msg("pair did not complete")
		}

		attempt.Pairing = pairing

		if pairing.Accepted() {
			attempt.Retried = true

			status, _, err = n.bt.Connect(ctx, target.Address)
			if err != nil {
				log.Warn().Err(classify(err)).Msg("connect retry did not complete")
			}
		} else {
			log.Warn().Str("pairing", pairing.String()).Str("output", out.Combined()).Msg("pairing rejected")
		}
	}

	attempt.Outcome = outcomeOf(status)

	if n.trust && (attempt.Outcome == OutcomeConnected || attempt.Pairing.Accepted()) {
		if ok, err := n.bt.Trust(ctx, target.Address); err != nil || !ok {
			log.Debug().Err(err).Msg("trust not acknowledged")
		}
	}

	if err := n.clock.Sleep(ctx, n.settle); err != nil {
		attempt.Status = StatusFailed
		attempt.Err = errors.Join(ErrConnectionUnverified, err)

		return attempt
	}

	info, _, err := n.bt.Info(ctx, target.Address)
	if err != nil {
		err = classify(err)
		log.Warn().Err(err).Msg("info query failed")
	}

	attempt.Info = info
	attempt.Verified = info.Connected

	if !attempt.Verified {
		attempt.Status = StatusFailed
		attempt.Err = fmt.Errorf("%w: %s reported %s", ErrConnectionUnverified, target.Address, attempt.Outcome)

		if err != nil {
			attempt.Err = errors.Join(attempt.Err, err)
		}

		log.Warn().Str("outcome", attempt.Outcome.String()).Msg("device not connected")

		return attempt
	}

	if !info.HasMicrophoneProfile() {
		log.Warn().Strs("uuids", info.UUIDs).Msg("device advertises no headset or handsfree profile")
	}

	attempt.Status = StatusSucceeded

	log.Info().
		Str("outcome", attempt.Outcome.String()).
		Bool("retried", attempt.Retried).
		Msg("device connected")

	return attempt
}
