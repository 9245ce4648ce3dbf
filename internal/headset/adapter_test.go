package headset

import (
	"context"
	"errors"
	"testing"

	"github.com/mil-ad/budsmic/internal/command"
	"github.com/stretchr/testify/assert"
)

const (
	powerOn        = "Changing power on succeeded\n"
	discoverableOn = "Changing discoverable on succeeded\n"
)

func TestEnsureStartsServiceOverBus(t *testing.T) {
	h := newHarness(t)
	svc := &fakeService{}
	a := NewAdapterController(h.bt, h.runner, svc, true, h.log)

	h.bluetoothctl("power", "on").Return(out(powerOn), nil)
	h.bluetoothctl("discoverable", "on").Return(out(discoverableOn), nil)

	res := a.Ensure(context.Background())

	assert.Equal(t, []string{"bluetooth.service"}, svc.units)
	assert.True(t, res.ServiceStarted)
	assert.True(t, res.Powered)
	assert.True(t, res.Discoverable)
	assert.Equal(t, StatusSucceeded, res.Status)
	assert.NoError(t, res.Err)
}

func TestEnsureFallsBackToSystemctl(t *testing.T) {
	h := newHarness(t)
	a := NewAdapterController(h.bt, h.runner, nil, false, h.log)

	h.expect("systemctl", "start", "bluetooth.service").Return(out(""), nil)
	h.bluetoothctl("power", "on").Return(out(powerOn), nil)

	res := a.Ensure(context.Background())

	assert.True(t, res.ServiceStarted)
	assert.True(t, res.Powered)
	assert.False(t, res.Discoverable)
}

func TestEnsureContinuesWhenServiceFails(t *testing.T) {
	h := newHarness(t)
	svc := &fakeService{err: errors.New("access denied")}
	a := NewAdapterController(h.bt, h.runner, svc, false, h.log)

	h.bluetoothctl("power", "on").Return(out("Changing power on succeeded\n"), nil)

	res := a.Ensure(context.Background())

	assert.False(t, res.ServiceStarted)
	assert.True(t, res.Powered)
	assert.Equal(t, StatusSucceeded, res.Status)
}

func TestEnsureWithoutBluetoothctl(t *testing.T) {
	h := newHarness(t)
	a := NewAdapterController(h.bt, h.runner, nil, true, h.log)

	h.expect("systemctl", "start", "bluetooth.service").Return(command.Result{}, command.ErrLaunch)
	h.bluetoothctl("power", "on").Return(command.Result{}, command.ErrLaunch)

	res := a.Ensure(context.Background())

	assert.False(t, res.Powered)
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrToolUnavailable)
}

func TestEnsureReportsUnpoweredAdapter(t *testing.T) {
	h := newHarness(t)
	a := NewAdapterController(h.bt, h.runner, &fakeService{}, false, h.log)

	h.bluetoothctl("power", "on").Return(exit(1, "Failed to set power on: org.bluez.Error.Blocked\n"), nil)

	res := a.Ensure(context.Background())

	assert.False(t, res.Powered)
	assert.Equal(t, StatusFailed, res.Status)
}
