package audio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mil-ad/budsmic/internal/command"
	"github.com/mil-ad/budsmic/internal/logger"
	"github.com/mil-ad/budsmic/internal/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const source = "bluez_input.AA_BB_CC_DD_EE_FF"

func TestPlayUsesFirstWorkingTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	p := NewPlayer(runner, logger.NewTestLogger())

	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), command.Argv{"paplay", "test.mp3"}).
			Return(command.Result{ExitCode: 1, Stderr: "Failed to open audio file.\n"}, nil),
		runner.EXPECT().Run(gomock.Any(), command.Argv{"mpg123", "-q", "test.mp3"}).
			Return(command.Result{}, nil),
	)

	tool, err := p.Play(context.Background(), "test.mp3")
	require.NoError(t, err)
	assert.Equal(t, "mpg123", tool)
}

func TestPlaySkipsMpg123ForWav(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	p := NewPlayer(runner, logger.NewTestLogger())

	runner.EXPECT().Run(gomock.Any(), command.Argv{"paplay", "chime.wav"}).Return(command.Result{}, command.ErrLaunch)
	runner.EXPECT().Run(gomock.Any(), command.Argv{"aplay", "-q", "chime.wav"}).Return(command.Result{ExitCode: 1}, nil)

	_, err := p.Play(context.Background(), "chime.wav")
	assert.ErrorIs(t, err, ErrNoPlayer)
	assert.ErrorIs(t, err, command.ErrLaunch)
}

func TestRecordWithParecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	clock := poll.NewMockClock(ctrl)
	proc := command.NewMockProcess(ctrl)
	r := NewRecorder(runner, clock, logger.NewTestLogger())

	path := filepath.Join(t.TempDir(), "mic.wav")
	argv := command.Argv{"parecord", "--device=" + source, "--channels=1", "--rate=44100",
		"--format=s16le", "--file-format=wav", path}

	gomock.InOrder(
		runner.EXPECT().Start(gomock.Any(), argv).DoAndReturn(
			func(context.Context, command.Command) (command.Process, error) {
				writeWAV(t, path, SampleRate, 16, 1)
				return proc, nil
			}),
		clock.EXPECT().Sleep(gomock.Any(), 5*time.Second).Return(nil),
		proc.EXPECT().Stop().Return(nil),
	)

	f, err := r.Record(context.Background(), 5*time.Second, path, source)
	require.NoError(t, err)
	assert.Equal(t, SampleRate, f.SampleRate)
}

func TestRecordFallsBackToArecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	clock := poll.NewMockClock(ctrl)
	r := NewRecorder(runner, clock, logger.NewTestLogger())

	path := filepath.Join(t.TempDir(), "mic.wav")

	runner.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil, command.ErrLaunch)
	runner.EXPECT().Run(gomock.Any(), command.Argv{"arecord", "-q", "-d", "3", "-f", "S16_LE", "-r", "44100", "-c", "1", path}).
		DoAndReturn(func(_ context.Context, cmd command.Command) (command.Result, error) {
			assert.Equal(t, 7500*time.Millisecond, cmd.Timeout)
			writeWAV(t, path, SampleRate, 16, 1)
			return command.Result{}, nil
		})

	_, err := r.Record(context.Background(), 2500*time.Millisecond, path, "")
	require.NoError(t, err)
}

func TestRecordReportsMissingRecorders(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	r := NewRecorder(runner, poll.NewMockClock(ctrl), logger.NewTestLogger())

	runner.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil, command.ErrLaunch)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(command.Result{}, command.ErrLaunch)

	_, err := r.Record(context.Background(), time.Second, filepath.Join(t.TempDir(), "mic.wav"), "")
	assert.ErrorIs(t, err, ErrNoRecorder)
}

func TestRecordRejectsUnusableFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	clock := poll.NewMockClock(ctrl)
	proc := command.NewMockProcess(ctrl)
	r := NewRecorder(runner, clock, logger.NewTestLogger())

	path := filepath.Join(t.TempDir(), "mic.wav")

	runner.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, command.Command) (command.Process, error) {
			writeWAV(t, path, SampleRate, 16, 2)
			return proc, nil
		})
	clock.EXPECT().Sleep(gomock.Any(), time.Second).Return(nil)
	proc.EXPECT().Stop().Return(nil)

	_, err := r.Record(context.Background(), time.Second, path, "")
	assert.ErrorIs(t, err, ErrBadRecording)
}
