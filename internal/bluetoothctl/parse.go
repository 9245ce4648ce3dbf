// Package bluetoothctl drives the BlueZ command-line client and parses its
// text output. Every marker the workflow depends on is matched here, and only
// here, so wording drift in the tool touches one file.
package bluetoothctl

import (
	"regexp"
	"strings"

	"github.com/mil-ad/budsmic/internal/command"
)

const (
	markerConnected       = "Connected: yes"
	markerConnectOK       = "Connection successful"
	markerPairOK          = "Pairing successful"
	markerFailed          = "Failed"
	markerNotAvailable    = "not available"
	markerAlreadyPaired   = "already paired"
	markerAlreadyExists   = "alreadyexists"
	markerPowerSucceeded  = "Changing power on succeeded"
	markerPowered         = "Powered: yes"
	markerChangeSucceeded = "succeeded"
)

// UUIDs of the profiles that expose a microphone.
const (
	uuidHeadset   = "00001108-0000-1000-8000-00805f9b34fb"
	uuidHandsfree = "0000111e-0000-1000-8000-00805f9b34fb"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// DeviceRecord is one entry of the device directory.
type DeviceRecord struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func clean(text string) string {
	text = ansiEscape.ReplaceAllString(text, "")
	return strings.ReplaceAll(text, "\r", "")
}

func cutField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t")
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], s[i:]
	}

	return s, ""
}

// ParseDevices reads `devices` output. The second token of a line is the
// address and the remainder is the name; lines with fewer than two tokens are
// skipped. Listing order is preserved.
func ParseDevices(text string) []DeviceRecord {
	var out []DeviceRecord

	for _, line := range strings.Split(clean(text), "\n") {
		_, rest := cutField(line)

		addr, rest := cutField(rest)
		if addr == "" {
			continue
		}

		out = append(out, DeviceRecord{Name: strings.TrimSpace(rest), Address: addr})
	}

	return out
}

// Find returns the first record whose name contains name (case-sensitive).
func Find(records []DeviceRecord, name string) (DeviceRecord, bool) {
	if name == "" {
		return DeviceRecord{}, false
	}

	for _, r := range records {
		if strings.Contains(r.Name, name) {
			return r, true
		}
	}

	return DeviceRecord{}, false
}

// ConnectStatus classifies a connect attempt.
type ConnectStatus int

const (
	ConnectUnknown ConnectStatus = iota
	ConnectSucceeded
	ConnectFailed
)

func (s ConnectStatus) String() string {
	switch s {
	case ConnectSucceeded:
		return "connected"
	case ConnectFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseConnect treats a non-zero exit or a failure marker as failure.
func ParseConnect(res command.Result) ConnectStatus {
	text := clean(res.Combined())

	switch {
	case !res.OK(), strings.Contains(text, markerFailed), strings.Contains(text, markerNotAvailable):
		return ConnectFailed
	case strings.Contains(text, markerConnectOK):
		return ConnectSucceeded
	default:
		return ConnectUnknown
	}
}

// PairStatus classifies a pair attempt.
type PairStatus int

const (
	PairUnknown PairStatus = iota
	PairSucceeded
	PairAlreadyPaired
	PairFailed
)

func (s PairStatus) String() string {
	switch s {
	case PairSucceeded:
		return "paired"
	case PairAlreadyPaired:
		return "already-paired"
	case PairFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Accepted reports whether the device can be treated as paired.
func (s PairStatus) Accepted() bool {
	return s == PairSucceeded || s == PairAlreadyPaired
}

// ParsePair recognises "already paired" case-insensitively, including the
// org.bluez.Error.AlreadyExists form, ahead of any failure marker.
func ParsePair(res command.Result) PairStatus {
	text := clean(res.Combined())
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, markerAlreadyPaired), strings.Contains(lower, markerAlreadyExists):
		return PairAlreadyPaired
	case !res.OK(), strings.Contains(text, markerFailed), strings.Contains(text, markerNotAvailable):
		return PairFailed
	case strings.Contains(text, markerPairOK):
		return PairSucceeded
	default:
		return PairUnknown
	}
}

// Info is the parsed `info <address>` output.
type Info struct {
	Address   string
	Name      string
	Alias     string
	Paired    bool
	Trusted   bool
	Connected bool
	UUIDs     []string
}

// HasMicrophoneProfile reports whether the device advertises HSP or HFP.
func (i Info) HasMicrophoneProfile() bool {
	for _, u := range i.UUIDs {
		if strings.EqualFold(u, uuidHandsfree) || strings.EqualFold(u, uuidHeadset) {
			return true
		}
	}

	return false
}

// ParseInfo reads `info` output. Connected is true only when the literal
// "Connected: yes" marker is present.
func ParseInfo(text string) Info {
	text = clean(text)
	info := Info{Connected: strings.Contains(text, markerConnected)}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if after, ok := strings.CutPrefix(line, "Device "); ok {
			info.Address, _ = cutField(after)
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		value = strings.TrimSpace(value)

		switch key {
		case "Name":
			info.Name = value
		case "Alias":
			info.Alias = value
		case "Paired":
			info.Paired = value == "yes"
		case "Trusted":
			info.Trusted = value == "yes"
		case "UUID":
			if open := strings.LastIndex(value, "("); open >= 0 && strings.HasSuffix(value, ")") {
				info.UUIDs = append(info.UUIDs, value[open+1:len(value)-1])
			}
		}
	}

	return info
}

// ParsePower reports whether the adapter claims to be powered.
func ParsePower(text string) bool {
	text = clean(text)
	return strings.Contains(text, markerPowerSucceeded) || strings.Contains(text, markerPowered)
}

// changed reports a "Changing ... succeeded" acknowledgement.
func changed(res command.Result) bool {
	return res.OK() && strings.Contains(clean(res.Combined()), markerChangeSucceeded)
}
