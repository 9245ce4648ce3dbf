package headset

import (
	"context"
	"testing"
	"time"

	"github.com/mil-ad/budsmic/internal/bluetoothctl"
	"github.com/mil-ad/budsmic/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const settle = 2 * time.Second

func TestAcquireConnectExitZeroIsNotTrusted(t *testing.T) {
	h := newHarness(t)
	n := NewNegotiator(h.bt, h.clock, settle, false, h.log)

	h.bluetoothctl("connect", testAddr).Return(out("Attempting to connect to AA:BB:CC:DD:EE:FF\nConnection successful\n"), nil)
	h.sleeps(settle)
	h.bluetoothctl("info", testAddr).Return(out(infoDisconnected), nil)

	a := n.Acquire(context.Background(), testTarget)

	assert.Equal(t, OutcomeConnected, a.Outcome)
	assert.False(t, a.Verified)
	assert.False(t, a.Retried)
	assert.Equal(t, StatusFailed, a.Status)
	assert.ErrorIs(t, a.Err, ErrConnectionUnverified)
}

func TestAcquirePairsAndRetriesAfterFailedConnect(t *testing.T) {
	h := newHarness(t)
	n := NewNegotiator(h.bt, h.clock, settle, false, h.log)

	gomock.InOrder(
		h.bluetoothctl("connect", testAddr).
			Return(exit(1, "Attempting to connect to AA:BB:CC:DD:EE:FF\nFailed to connect: org.bluez.Error.Failed\n"), nil),
		h.bluetoothctl("pair", testAddr).
			Return(out("Attempting to pair with AA:BB:CC:DD:EE:FF\nPairing successful\n"), nil),
		h.bluetoothctl("connect", testAddr).
			Return(out("Attempting to connect to AA:BB:CC:DD:EE:FF\nConnection successful\n"), nil),
		h.sleeps(settle),
		h.bluetoothctl("info", testAddr).Return(out(infoConnected), nil),
	)

	a := n.Acquire(context.Background(), testTarget)

	require.NoError(t, a.Err)
	assert.True(t, a.Verified)
	assert.True(t, a.Retried)
	assert.Equal(t, bluetoothctl.PairSucceeded, a.Pairing)
	assert.Equal(t, OutcomeConnected, a.Outcome)
	assert.Equal(t, testAddr, a.Target.Address)
	assert.Equal(t, StatusSucceeded, a.Status)
}

func TestAcquireAlreadyPairedStillRetries(t *testing.T) {
	h := newHarness(t)
	n := NewNegotiator(h.bt, h.clock, settle, false, h.log)

	gomock.InOrder(
		h.bluetoothctl("connect", testAddr).Return(exit(1, "Failed to connect: org.bluez.Error.Failed\n"), nil),
		h.bluetoothctl("pair", testAddr).Return(exit(1, "Failed to pair: org.bluez.Error.AlreadyExists\n"), nil),
		h.bluetoothctl("connect", testAddr).Return(out("Connection successful\n"), nil),
		h.sleeps(settle),
		h.bluetoothctl("info", testAddr).Return(out(infoConnected), nil),
	)

	a := n.Acquire(context.Background(), testTarget)

	assert.True(t, a.Verified)
	assert.True(t, a.Retried)
	assert.Equal(t, bluetoothctl.PairAlreadyPaired, a.Pairing)
}

func TestAcquireRejectedPairingSkipsRetry(t *testing.T) {
	h := newHarness(t)
	n := NewNegotiator(h.bt, h.clock, settle, true, h.log)

	h.bluetoothctl("connect", testAddr).Return(exit(1, "Failed to connect: org.bluez.Error.Failed\n"), nil).Times(1)
	h.bluetoothctl("pair", testAddr).Return(exit(1, "Failed to pair: org.bluez.Error.AuthenticationFailed\n"), nil)
	h.sleeps(settle)
	h.bluetoothctl("info", testAddr).Return(out(infoDisconnected), nil)

	a := n.Acquire(context.Background(), testTarget)

	assert.False(t, a.Retried)
	assert.False(t, a.Verified)
	assert.Equal(t, OutcomeFailed, a.Outcome)
	assert.ErrorIs(t, a.Err, ErrConnectionUnverified)
}

func TestAcquireVerifiesEvenWhenConnectTimesOut(t *testing.T) {
	h := newHarness(t)
	n := NewNegotiator(h.bt, h.clock, settle, false, h.log)

	gomock.InOrder(
		h.bluetoothctl("connect", testAddr).Return(command.Result{}, command.ErrTimeout),
		h.bluetoothctl("pair", testAddr).Return(out("Pairing successful\n"), nil),
		h.bluetoothctl("connect", testAddr).Return(command.Result{}, command.ErrTimeout),
		h.sleeps(settle),
		h.bluetoothctl("info", testAddr).Return(out(infoConnected), nil),
	)

	a := n.Acquire(context.Background(), testTarget)

	assert.True(t, a.Verified)
	assert.Equal(t, OutcomeFailed, a.Outcome)
	assert.NoError(t, a.Err)
}

func TestAcquireTrustsConnectedDevice(t *testing.T) {
	h := newHarness(t)
	n := NewNegotiator(h.bt, h.clock, settle, true, h.log)

	h.bluetoothctl("connect", testAddr).Return(out("Connection successful\n"), nil)
	h.bluetoothctl("trust", testAddr).Return(out("Changing AA:BB:CC:DD:EE:FF trust succeeded\n"), nil)
	h.sleeps(settle)
	h.bluetoothctl("info", testAddr).Return(out(infoConnected), nil)

	a := n.Acquire(context.Background(), testTarget)

	assert.True(t, a.Verified)
	assert.True(t, a.Info.HasMicrophoneProfile())
}

func TestAcquireInfoFailureIsUnverified(t *testing.T) {
	h := newHarness(t)
	n := NewNegotiator(h.bt, h.clock, settle, false, h.log)

	h.bluetoothctl("connect", testAddr).Return(out("Connection successful\n"), nil)
	h.sleeps(settle)
	h.bluetoothctl("info", testAddr).Return(command.Result{}, command.ErrLaunch)

	a := n.Acquire(context.Background(), testTarget)

	assert.False(t, a.Verified)
	assert.ErrorIs(t, a.Err, ErrConnectionUnverified)
	assert.ErrorIs(t, a.Err, ErrToolUnavailable)
}
