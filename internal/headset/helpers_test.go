package headset

import (
	"context"
	"testing"
	"time"

	"github.com/mil-ad/budsmic/internal/bluetoothctl"
	"github.com/mil-ad/budsmic/internal/command"
	"github.com/mil-ad/budsmic/internal/logger"
	"github.com/mil-ad/budsmic/internal/pactl"
	"github.com/mil-ad/budsmic/internal/poll"
	"go.uber.org/mock/gomock"
)

const (
	testName = "HBTS001"
	testAddr = "AA:BB:CC:DD:EE:FF"

	listingWithTarget = "Device AA:BB:CC:DD:EE:FF HBTS001\n"
	listingOthers     = "Device 11:22:33:44:55:66 Pixel Buds\nDevice 66:55:44:33:22:11 Living Room TV\n"

	infoConnected = "Device AA:BB:CC:DD:EE:FF (public)\n\tName: HBTS001\n\tPaired: yes\n\tConnected: yes\n" +
		"\tUUID: Handsfree                 (0000111e-0000-1000-8000-00805f9b34fb)\n"
	infoDisconnected = "Device AA:BB:CC:DD:EE:FF (public)\n\tName: HBTS001\n\tPaired: yes\n\tConnected: no\n"

	sourcesWithMic = "50\talsa_input.pci-0000_00_1f.3.analog-stereo\tPipeWire\ts32le 2ch 48000Hz\tSUSPENDED\n" +
		"83\tbluez_input.AA_BB_CC_DD_EE_FF\tPipeWire\ts16le 1ch 16000Hz\tSUSPENDED\n"
	sourcesWithoutMic = "50\talsa_input.pci-0000_00_1f.3.analog-stereo\tPipeWire\ts32le 2ch 48000Hz\tSUSPENDED\n"
)

var testTarget = bluetoothctl.DeviceRecord{Name: testName, Address: testAddr}

type harness struct {
	ctrl   *gomock.Controller
	runner *command.MockRunner
	clock  *poll.MockClock
	bt     *bluetoothctl.Client
	pa     *pactl.Client
	log    logger.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	runner := command.NewMockRunner(ctrl)
	clock := poll.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)).AnyTimes()

	return &harness{
		ctrl:   ctrl,
		runner: runner,
		clock:  clock,
		bt:     bluetoothctl.NewClient(runner, bluetoothctl.DefaultTimeouts()),
		pa:     pactl.NewClient(runner, 0),
		log:    logger.NewTestLogger(),
	}
}

// expect scripts one invocation of argv.
func (h *harness) expect(argv ...string) *gomock.Call {
	return h.runner.EXPECT().Run(gomock.Any(), command.Argv(argv))
}

func (h *harness) bluetoothctl(args ...string) *gomock.Call {
	return h.expect(append([]string{bluetoothctl.Binary}, args...)...)
}

func (h *harness) pactl(args ...string) *gomock.Call {
	return h.expect(append([]string{pactl.Binary}, args...)...)
}

func (h *harness) sleeps(d time.Duration) *gomock.Call {
	return h.clock.EXPECT().Sleep(gomock.Any(), d).Return(nil)
}

func out(stdout string) command.Result {
	return command.Result{Stdout: stdout}
}

func exit(code int, stdout string) command.Result {
	return command.Result{Stdout: stdout, ExitCode: code}
}

type fakeService struct {
	units []string
	err   error
}

func (f *fakeService) StartService(_ context.Context, unit string) error {
	f.units = append(f.units, unit)
	return f.err
}
