package bluetoothctl

import (
	"context"
	"sync"
	"time"

	"github.com/mil-ad/budsmic/internal/command"
)

// Binary is the executable name of the BlueZ client.
const Binary = "bluetoothctl"

// Timeouts bound the blocking subcommands. Zero leaves a call bounded only
// by its context.
type Timeouts struct {
	Connect time.Duration
	Pair    time.Duration
	Query   time.Duration
}

// DefaultTimeouts mirrors what vendor stacks need in practice.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect: 10 * time.Second,
		Pair:    15 * time.Second,
		Query:   10 * time.Second,
	}
}

// Client issues one-shot bluetoothctl subcommands.
type Client struct {
	runner   command.Runner
	timeouts Timeouts
}

func NewClient(runner command.Runner, timeouts Timeouts) *Client {
	return &Client{runner: runner, timeouts: timeouts}
}

func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) (command.Result, error) {
	return c.runner.Run(ctx, command.New(Binary, args...).WithTimeout(timeout))
}

func onOff(on bool) string {
	if on {
		return "on"
	}

	return "off"
}

// Power switches the adapter and reports whether the output shows it powered.
func (c *Client) Power(ctx context.Context, on bool) (bool, command.Result, error) {
	res, err := c.run(ctx, c.timeouts.Query, "power", onOff(on))
	if err != nil {
		return false, res, err
	}

	return ParsePower(res.Combined()), res, nil
}

// Discoverable toggles adapter discoverability.
func (c *Client) Discoverable(ctx context.Context, on bool) (bool, error) {
	res, err := c.run(ctx, c.timeouts.Query, "discoverable", onOff(on))
	if err != nil {
		return false, err
	}

	return changed(res), nil
}

// Devices lists the adapter's device directory.
func (c *Client) Devices(ctx context.Context) ([]DeviceRecord, error) {
	res, err := c.run(ctx, c.timeouts.Query, "devices")
	if err != nil {
		return nil, err
	}

	return ParseDevices(res.Stdout), nil
}

// Connect attempts a connection. The status is advisory; only Info decides
// whether a device is connected.
func (c *Client) Connect(ctx context.Context, address string) (ConnectStatus, command.Result, error) {
	res, err := c.run(ctx, c.timeouts.Connect, "connect", address)
	if err != nil {
		return ConnectFailed, res, err
	}

	return ParseConnect(res), res, nil
}

func (c *Client) Pair(ctx context.Context, address string) (PairStatus, command.Result, error) {
	res, err := c.run(ctx, c.timeouts.Pair, "pair", address)
	if err != nil {
		return PairFailed, res, err
	}

	return ParsePair(res), res, nil
}

// Trust marks the device trusted so it may reconnect without prompting.
func (c *Client) Trust(ctx context.Context, address string) (bool, error) {
	res, err := c.run(ctx, c.timeouts.Query, "trust", address)
	if err != nil {
		return false, err
	}

	return changed(res), nil
}

func (c *Client) Info(ctx context.Context, address string) (Info, command.Result, error) {
	res, err := c.run(ctx, c.timeouts.Query, "info", address)
	if err != nil {
		return Info{}, res, err
	}

	return ParseInfo(res.Stdout), res, nil
}

// Scan is an active discovery running in the background.
type Scan struct {
	client *Client
	proc   command.Process
	once   sync.Once
}

// StartScan starts `scan on` as a background process.
func (c *Client) StartScan(ctx context.Context) (*Scan, error) {
	proc, err := c.runner.Start(ctx, command.New(Binary, "scan", "on"))
	if err != nil {
		return nil, err
	}

	return &Scan{client: c, proc: proc}, nil
}

// Output returns the recent output of the scan process.
func (s *Scan) Output() string {
	return s.proc.Output()
}

// Stop terminates the scan process and asks the adapter to stop
// discovering. It is safe to call repeatedly; failures are not escalated and
// the first one is returned.
func (s *Scan) Stop(ctx context.Context) error {
	var err error

	s.once.Do(func() {
		err = s.proc.Stop()

		if _, offErr := s.client.run(ctx, s.client.timeouts.Query, "scan", "off"); err == nil {
			err = offErr
		}
	})

	return err
}
