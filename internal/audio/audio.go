// Package audio plays files to and records from the current audio server,
// falling back to ALSA tools when the PulseAudio utilities are missing.
package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mil-ad/budsmic/internal/command"
	"github.com/mil-ad/budsmic/internal/logger"
	"github.com/mil-ad/budsmic/internal/poll"
)

var (
	ErrNoPlayer     = errors.New("no player could play the file")
	ErrNoRecorder   = errors.New("no recorder could capture audio")
	ErrBadRecording = errors.New("recording is not a valid capture")
)

// Capture parameters shared by every recorder.
const (
	SampleRate = 44100
	Channels   = 1
)

// Player tries each candidate tool in turn.
type Player struct {
	runner command.Runner
	log    logger.Logger
}

func NewPlayer(runner command.Runner, log logger.Logger) *Player {
	return &Player{runner: runner, log: log.WithComponent("player")}
}

func playCandidates(path string) []command.Command {
	cmds := []command.Command{command.New("paplay", path)}

	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		cmds = append(cmds, command.New("mpg123", "-q", path))
	}

	return append(cmds, command.New("aplay", "-q", path))
}

// Play blocks until the file has been played and returns the tool that played it.
func (p *Player) Play(ctx context.Context, path string) (string, error) {
	var errs []error

	for _, cmd := range playCandidates(path) {
		res, err := p.runner.Run(ctx, cmd)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}

			p.log.Debug().Err(err).Str("tool", cmd.Path).Msg("player unavailable")
			errs = append(errs, err)

			continue
		}

		if !res.OK() {
			p.log.Debug().Str("tool", cmd.Path).Int("exit_code", res.ExitCode).Str("output", res.Combined()).
				Msg("player failed")
			errs = append(errs, fmt.Errorf("%s exited %d", cmd.Path, res.ExitCode))

			continue
		}

		p.log.Info().Str("tool", cmd.Path).Str("file", path).Msg("playback finished")

		return cmd.Path, nil
	}

	return "", errors.Join(append([]error{fmt.Errorf("%w: %s", ErrNoPlayer, path)}, errs...)...)
}

// Recorder captures mono 16-bit audio at 44.1kHz into a WAV file.
type Recorder struct {
	runner command.Runner
	clock  poll.Clock
	log    logger.Logger
}

func NewRecorder(runner command.Runner, clock poll.Clock, log logger.Logger) *Recorder {
	return &Recorder{runner: runner, clock: clock, log: log.WithComponent("recorder")}
}

func parecord(path, source string) command.Command {
	args := make([]string, 0, 7)
	if source != "" {
		args = append(args, "--device="+source)
	}

	args = append(args,
		"--channels="+strconv.Itoa(Channels),
		"--rate="+strconv.Itoa(SampleRate),
		"--format=s16le",
		"--file-format=wav",
		path,
	)

	return command.New("parecord", args...)
}

func arecord(path string, d time.Duration) command.Command {
	secs := max(int((d+time.Second-1)/time.Second), 1)

	return command.New("arecord", "-q",
		"-d", strconv.Itoa(secs),
		"-f", "S16_LE",
		"-r", strconv.Itoa(SampleRate),
		"-c", strconv.Itoa(Channels),
		path,
	).WithTimeout(d + 5*time.Second)
}

// Record captures d of audio from source into path. An empty source records
// from the server's default input. The file is checked before returning.
func (r *Recorder) Record(ctx context.Context, d time.Duration, path, source string) (Format, error) {
	log := r.log.WithField("file", path)

	err := r.recordPulse(ctx, d, path, source)
	if errors.Is(err, command.ErrLaunch) {
		log.Info().Msg("parecord unavailable, using arecord")

		err = r.recordALSA(ctx, d, path)
	}

	if err != nil {
		return Format{}, err
	}

	f, err := Verify(path)
	if err != nil {
		return f, err
	}

	log.Info().
		Int("sample_rate", f.SampleRate).
		Int("bit_depth", f.BitDepth).
		Dur("duration", f.Duration).
		Msg("recording saved")

	return f, nil
}

func (r *Recorder) recordPulse(ctx context.Context, d time.Duration, path, source string) error {
	proc, err := r.runner.Start(ctx, parecord(path, source))
	if err != nil {
		return err
	}

	r.log.Info().Str("source", source).Dur("duration", d).Msg("recording")

	sleepErr := r.clock.Sleep(ctx, d)

	if err := proc.Stop(); err != nil {
		r.log.Debug().Err(err).Str("output", proc.Output()).Msg("stopping parecord")
	}

	return sleepErr
}

func (r *Recorder) recordALSA(ctx context.Context, d time.Duration, path string) error {
	res, err := r.runner.Run(ctx, arecord(path, d))
	if err != nil {
		return errors.Join(ErrNoRecorder, err)
	}

	if !res.OK() {
		return fmt.Errorf("%w: arecord exited %d: %s", ErrNoRecorder, res.ExitCode, res.Combined())
	}

	return nil
}
