package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mil-ad/budsmic/internal/bluetoothctl"
	"github.com/mil-ad/budsmic/internal/headset"
	"github.com/mil-ad/budsmic/internal/pactl"
	"github.com/mil-ad/budsmic/internal/poll"
)

// Duration is a time.Duration that reads "2s"-style strings or plain seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch v := v.(type) {
	case float64:
		*d = Duration(v * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", b)
	}

	return nil
}

type ScanConfig struct {
	Interval    Duration `json:"interval"`
	MaxAttempts int      `json:"max_attempts"`
	Deadline    Duration `json:"deadline,omitempty"`
}

type TimeoutConfig struct {
	Connect Duration `json:"connect"`
	Pair    Duration `json:"pair"`
	Query   Duration `json:"query"`
}

type ProfileConfig struct {
	Preferred     string   `json:"preferred"`
	Fallback      string   `json:"fallback"`
	Settle        Duration `json:"settle"`
	SourceMarkers []string `json:"source_markers"`
}

// Config is the on-disk configuration. Fields absent from the file keep
// their defaults.
type Config struct {
	Device         string        `json:"device"`
	PlayFile       string        `json:"play_file"`
	RecordFile     string        `json:"record_file"`
	RecordDuration Duration      `json:"record_duration"`
	Scan           ScanConfig    `json:"scan"`
	Timeouts       TimeoutConfig `json:"timeouts"`
	ConnectSettle  Duration      `json:"connect_settle"`
	Profile        ProfileConfig `json:"profile"`
	Trust          bool          `json:"trust"`
	Discoverable   bool          `json:"discoverable"`
	UseDBus        bool          `json:"use_dbus"`
}

func defaultConfig() Config {
	opts := headset.DefaultOptions()
	timeouts := bluetoothctl.DefaultTimeouts()

	return Config{
		PlayFile:       "test.mp3",
		RecordFile:     "bluetooth_mic.wav",
		RecordDuration: Duration(5 * time.Second),
		Scan: ScanConfig{
			Interval:    Duration(opts.Scan.Interval),
			MaxAttempts: opts.Scan.MaxAttempts,
		},
		Timeouts: TimeoutConfig{
			Connect: Duration(timeouts.Connect),
			Pair:    Duration(timeouts.Pair),
			Query:   Duration(timeouts.Query),
		},
		ConnectSettle: Duration(opts.ConnectSettle),
		Profile: ProfileConfig{
			Preferred:     opts.Profile.Preferred,
			Fallback:      opts.Profile.Fallback,
			Settle:        Duration(opts.Profile.Settle),
			SourceMarkers: pactl.DefaultSourceMarkers,
		},
		Trust:        opts.Trust,
		Discoverable: opts.Discoverable,
		UseDBus:      true,
	}
}

func configPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "budsmic", "config.json")
}

// loadConfig reads path, or the default location when path is empty. A
// missing default file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = configPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BUDSMIC_DEVICE"); v != "" {
		c.Device = v
	}
	if v := os.Getenv("BUDSMIC_PLAY"); v != "" {
		c.PlayFile = v
	}
	if v := os.Getenv("BUDSMIC_RECORD"); v != "" {
		c.RecordFile = v
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.Scan.Interval < 0 {
		errs = append(errs, errors.New("scan.interval must not be negative"))
	}
	if c.Scan.MaxAttempts < 1 {
		errs = append(errs, errors.New("scan.max_attempts must be at least 1"))
	}
	if c.Timeouts.Connect < 0 || c.Timeouts.Pair < 0 || c.Timeouts.Query < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.RecordDuration <= 0 {
		errs = append(errs, errors.New("record_duration must be positive"))
	}
	if c.Profile.Preferred == "" && c.Profile.Fallback == "" {
		errs = append(errs, errors.New("profile needs a preferred or fallback name"))
	}
	for _, m := range c.Profile.SourceMarkers {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, errors.New("profile.source_markers must not contain blanks"))
			break
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}

// resolveDevice picks a device name. An explicit argument wins over the config.
func (c Config) resolveDevice(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if c.Device == "" {
		return "", errors.New("no device specified and none configured")
	}
	return c.Device, nil
}

func (c Config) timeouts() bluetoothctl.Timeouts {
	return bluetoothctl.Timeouts{
		Connect: time.Duration(c.Timeouts.Connect),
		Pair:    time.Duration(c.Timeouts.Pair),
		Query:   time.Duration(c.Timeouts.Query),
	}
}

func (c Config) options() headset.Options {
	markers := c.Profile.SourceMarkers
	if len(markers) == 0 {
		markers = pactl.DefaultSourceMarkers
	}

	return headset.Options{
		Scan: poll.Policy{
			Interval:    time.Duration(c.Scan.Interval),
			MaxAttempts: c.Scan.MaxAttempts,
			Deadline:    time.Duration(c.Scan.Deadline),
		},
		ConnectSettle: time.Duration(c.ConnectSettle),
		Trust:         c.Trust,
		Discoverable:  c.Discoverable,
		Profile: headset.ProfileOptions{
			Preferred: c.Profile.Preferred,
			Fallback:  c.Profile.Fallback,
			Settle:    time.Duration(c.Profile.Settle),
			Matcher:   pactl.SourceMatcher{Markers: markers},
		},
	}
}
