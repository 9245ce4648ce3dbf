package bluetoothctl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mil-ad/budsmic/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const addr = "AA:BB:CC:DD:EE:FF"

func TestClientAppliesTimeouts(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	client := NewClient(runner, DefaultTimeouts())

	runner.EXPECT().
		Run(gomock.Any(), command.New(Binary, "connect", addr).WithTimeout(10*time.Second)).
		Return(command.Result{Stdout: "Connection successful\n"}, nil)
	runner.EXPECT().
		Run(gomock.Any(), command.New(Binary, "pair", addr).WithTimeout(15*time.Second)).
		Return(command.Result{Stdout: "Pairing successful\n"}, nil)

	status, _, err := client.Connect(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, ConnectSucceeded, status)

	pair, _, err := client.Pair(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, PairSucceeded, pair)
}

func TestClientConnectTimeoutIsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	client := NewClient(runner, DefaultTimeouts())

	runner.EXPECT().Run(gomock.Any(), command.Argv{Binary, "connect", addr}).
		Return(command.Result{}, command.ErrTimeout)

	status, _, err := client.Connect(context.Background(), addr)
	require.ErrorIs(t, err, command.ErrTimeout)
	assert.Equal(t, ConnectFailed, status)
}

func TestScanStopIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	proc := command.NewMockProcess(ctrl)
	client := NewClient(runner, DefaultTimeouts())

	runner.EXPECT().Start(gomock.Any(), command.Argv{Binary, "scan", "on"}).Return(proc, nil)
	proc.EXPECT().Stop().Return(errors.New("no such process")).Times(1)
	runner.EXPECT().Run(gomock.Any(), command.Argv{Binary, "scan", "off"}).
		Return(command.Result{Stdout: "Discovery stopped\n"}, nil).Times(1)

	scan, err := client.StartScan(context.Background())
	require.NoError(t, err)

	assert.Error(t, scan.Stop(context.Background()))
	assert.NoError(t, scan.Stop(context.Background()))
}

func TestDevicesPropagatesLaunchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	client := NewClient(runner, DefaultTimeouts())

	runner.EXPECT().Run(gomock.Any(), command.Argv{Binary, "devices"}).
		Return(command.Result{}, command.ErrLaunch)

	_, err := client.Devices(context.Background())
	assert.ErrorIs(t, err, command.ErrLaunch)
}
