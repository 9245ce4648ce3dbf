// Package pactl talks to the PulseAudio/PipeWire server through pactl.
package pactl

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/mil-ad/budsmic/internal/command"
)

const (
	// Binary is the audio server control tool.
	Binary = "pactl"

	// CardPrefix namespaces Bluetooth cards on the audio server.
	CardPrefix = "bluez_card."
)

// AudioProfile is the operating mode of a Bluetooth card.
type AudioProfile int

const (
	ProfileUnset AudioProfile = iota
	ProfileHeadsetUnitMsbc
	ProfileHeadsetUnitCvsd
)

// Name is the card profile name understood by the audio server.
func (p AudioProfile) Name() string {
	switch p {
	case ProfileHeadsetUnitMsbc:
		return "headset-head-unit-msbc"
	case ProfileHeadsetUnitCvsd:
		return "headset-head-unit-cvsd"
	default:
		return ""
	}
}

func (p AudioProfile) String() string {
	if p == ProfileUnset {
		return "unset"
	}

	return p.Name()
}

// AddressToken converts AA:BB:CC:DD:EE:FF to AA_BB_CC_DD_EE_FF.
func AddressToken(address string) string {
	return strings.ReplaceAll(address, ":", "_")
}

// CardName derives the audio card identifier of a Bluetooth device.
func CardName(address string) string {
	return CardPrefix + AddressToken(address)
}

// Source is one row of `pactl list short sources`.
type Source struct {
	Index      int
	Name       string
	Driver     string
	SampleSpec string
	State      string
}

// ParseSources reads `list short sources` output. Rows are tab separated;
// space separated rows are accepted too. Rows without a name are skipped.
func ParseSources(text string) []Source {
	var out []Source

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		var fields []string
		if strings.Contains(line, "\t") {
			fields = strings.Split(line, "\t")
		} else {
			fields = strings.Fields(line)
		}

		if len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
			continue
		}

		src := Source{Name: strings.TrimSpace(fields[1])}
		src.Index, _ = strconv.Atoi(strings.TrimSpace(fields[0]))

		if len(fields) > 2 {
			src.Driver = strings.TrimSpace(fields[2])
		}

		switch {
		case len(fields) == 4:
			src.SampleSpec = strings.TrimSpace(fields[3])
		case len(fields) > 4:
			src.SampleSpec = strings.TrimSpace(strings.Join(fields[3:len(fields)-1], " "))
			src.State = strings.TrimSpace(fields[len(fields)-1])
		}

		out = append(out, src)
	}

	return out
}

// DefaultSourceMarkers covers PipeWire and PulseAudio naming of Bluetooth
// capture endpoints.
var DefaultSourceMarkers = []string{"bluez_input.", "bluez_source."}

// SourceMatcher finds the capture endpoint of a Bluetooth device.
type SourceMatcher struct {
	Markers []string
}

// Match returns the first source whose name contains a marker and the
// device's underscore address.
func (m SourceMatcher) Match(sources []Source, address string) (Source, bool) {
	token := AddressToken(address)

	markers := m.Markers
	if len(markers) == 0 {
		markers = DefaultSourceMarkers
	}

	for _, src := range sources {
		if !strings.Contains(src.Name, token) {
			continue
		}

		for _, marker := range markers {
			if strings.Contains(src.Name, marker) {
				return src, true
			}
		}
	}

	return Source{}, false
}

// Client runs pactl subcommands.
type Client struct {
	runner  command.Runner
	timeout time.Duration
}

func NewClient(runner command.Runner, timeout time.Duration) *Client {
	return &Client{runner: runner, timeout: timeout}
}

// SetCardProfile returns the raw result; callers decide what a non-zero exit means.
func (c *Client) SetCardProfile(ctx context.Context, card, profile string) (command.Result, error) {
	return c.runner.Run(ctx, command.New(Binary, "set-card-profile", card, profile).WithTimeout(c.timeout))
}

func (c *Client) Sources(ctx context.Context) ([]Source, error) {
	res, err := c.runner.Run(ctx, command.New(Binary, "list", "short", "sources").WithTimeout(c.timeout))
	if err != nil {
		return nil, err
	}

	return ParseSources(res.Stdout), nil
}
