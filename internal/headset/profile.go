package headset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mil-ad/budsmic/internal/logger"
	"github.com/mil-ad/budsmic/internal/pactl"
	"github.com/mil-ad/budsmic/internal/poll"
)

// ProfileOptions configures the profile switch.
type ProfileOptions struct {
	Preferred string
	Fallback  string
	Settle    time.Duration
	Matcher   pactl.SourceMatcher
}

// DefaultProfileOptions prefers mSBC and falls back to CVSD.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{
		Preferred: pactl.ProfileHeadsetUnitMsbc.Name(),
		Fallback:  pactl.ProfileHeadsetUnitCvsd.Name(),
		Settle:    3 * time.Second,
		Matcher:   pactl.SourceMatcher{Markers: pactl.DefaultSourceMarkers},
	}
}

// ProfileResult reports the switch. Source is set only on success.
type ProfileResult struct {
	Card      string
	Profile   pactl.AudioProfile
	Attempted []string
	Source    pactl.Source
	Status    Status
	Err       error
}

// ProfileSwitcher moves a connected device's card to a microphone-capable profile.
type ProfileSwitcher struct {
	pa    *pactl.Client
	clock poll.Clock
	opts  ProfileOptions
	log   logger.Logger
}

func NewProfileSwitcher(pa *pactl.Client, clock poll.Clock, opts ProfileOptions, log logger.Logger) *ProfileSwitcher {
	return &ProfileSwitcher{pa: pa, clock: clock, opts: opts, log: log.WithComponent("profile")}
}

// Switch tries the preferred profile, then the fallback only if the
// preferred one failed, and then waits for a matching capture source.
// Failure is soft: the device stays usable for playback.
func (p *ProfileSwitcher) Switch(ctx context.Context, address string) ProfileResult {
	res := ProfileResult{Card: pactl.CardName(address)}
	log := p.log.WithField("card", res.Card)

	switch {
	case p.try(ctx, &res, log, p.opts.Preferred):
		res.Profile = pactl.ProfileHeadsetUnitMsbc
	case p.try(ctx, &res, log, p.opts.Fallback):
		res.Profile = pactl.ProfileHeadsetUnitCvsd
	default:
		res.Status = StatusFailed
		res.Err = errors.Join(fmt.Errorf("%w: no profile accepted by %s", ErrProfileSwitchFailed, res.Card), res.Err)

		log.Warn().Strs("attempted", res.Attempted).Msg("no headset profile could be set")

		return res
	}

	if err := p.clock.Sleep(ctx, p.opts.Settle); err != nil {
		res.Status = StatusFailed
		res.Err = errors.Join(ErrProfileSwitchFailed, err)

		return res
	}

	sources, err := p.pa.Sources(ctx)
	if err != nil {
		res.Status = StatusFailed
		res.Err = errors.Join(ErrProfileSwitchFailed, classify(err))

		log.Warn().Err(err).Msg("listing sources failed")

		return res
	}

	src, ok := p.opts.Matcher.Match(sources, address)
	if !ok {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("%w: no capture source for %s after %s", ErrProfileSwitchFailed, address, res.Profile)

		log.Warn().Str("profile", res.Profile.String()).Msg("profile set but no capture source appeared")

		return res
	}

	res.Source = src
	res.Status = StatusSucceeded

	log.Info().Str("profile", res.Profile.String()).Str("source", src.Name).Msg("microphone available")

	return res
}

func (p *ProfileSwitcher) try(ctx context.Context, res *ProfileResult, log logger.Logger, profile string) bool {
	if profile == "" {
		return false
	}

	res.Attempted = append(res.Attempted, profile)

	out, err := p.pa.SetCardProfile(ctx, res.Card, profile)
	if err != nil {
		err = classify(err)
		res.Err = errors.Join(res.Err, err)

		log.Warn().Err(err).Str("profile", profile).Msg("set-card-profile did not complete")

		return false
	}

	if !out.OK() {
		log.Info().Str("profile", profile).Int("exit_code", out.ExitCode).Str("output", out.Combined()).
			Msg("profile rejected")

		return false
	}

	return true
}
