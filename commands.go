package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mil-ad/budsmic/internal/audio"
	"github.com/mil-ad/budsmic/internal/bluetoothctl"
	"github.com/mil-ad/budsmic/internal/command"
	"github.com/mil-ad/budsmic/internal/headset"
	"github.com/mil-ad/budsmic/internal/pactl"
)

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// warnMissingTools logs each external tool that is not on PATH.
func (a *app) warnMissingTools(tools ...string) {
	for _, t := range tools {
		if !command.Available(t) {
			a.log.Warn().Str("tool", t).Msg("not found on PATH")
		}
	}
}

func newRunCmd(a *app) *cobra.Command {
	var (
		playFile   string
		recordFile string
		duration   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run [device-name]",
		Short: "Acquire the headset, play a file to it and record from its microphone",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.cfg.resolveDevice(optionalArg(args))
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("play") {
				a.cfg.PlayFile = playFile
			}
			if cmd.Flags().Changed("record") {
				a.cfg.RecordFile = recordFile
			}
			if cmd.Flags().Changed("duration") {
				a.cfg.RecordDuration = Duration(duration)
			}

			a.warnMissingTools(bluetoothctl.Binary, pactl.Binary)

			ctx := cmd.Context()
			report := a.workflow().Run(ctx, name)
			summary := summarize(report)

			if err := report.Err(); err != nil {
				summary.write(cmd.OutOrStdout(), a.jsonOut)
				return err
			}

			if a.cfg.PlayFile != "" {
				player := audio.NewPlayer(a.runner, a.log)
				if tool, err := player.Play(ctx, a.cfg.PlayFile); err != nil {
					a.log.Warn().Err(err).Msg("playback failed")
				} else {
					summary.Played = a.cfg.PlayFile + " via " + tool
				}
			}

			if src, ok := report.Microphone(); ok && a.cfg.RecordFile != "" {
				recorder := audio.NewRecorder(a.runner, a.clock, a.log)
				if _, err := recorder.Record(ctx, time.Duration(a.cfg.RecordDuration), a.cfg.RecordFile, src.Name); err != nil {
					a.log.Warn().Err(err).Msg("recording failed")
				} else {
					summary.Recording = a.cfg.RecordFile
				}
			} else if !ok {
				a.log.Warn().Msg("no microphone source, skipping recording")
			}

			return summary.write(cmd.OutOrStdout(), a.jsonOut)
		},
	}

	cmd.Flags().StringVar(&playFile, "play", "", "file to play to the headset (empty to skip)")
	cmd.Flags().StringVar(&recordFile, "record", "", "WAV file to record into (empty to skip)")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "recording length")

	return cmd
}

func newDevicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices known to the adapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bt := bluetoothctl.NewClient(a.runner, a.cfg.timeouts())

			devices, err := bt.Devices(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return json.NewEncoder(out).Encode(devices)
			}
			for _, d := range devices {
				fmt.Fprintf(out, "%s  %s\n", d.Address, d.Name)
			}
			return nil
		},
	}
}

func newAcquireCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "acquire [device-name]",
		Short: "Find, pair and connect a device without switching profiles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.cfg.resolveDevice(optionalArg(args))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			w := a.workflow()

			report := headset.Report{Device: name}
			report.Adapter = w.Adapter.Ensure(ctx)
			report.Discovery = w.Discoverer.Discover(ctx, name)
			if report.Discovery.Status() == headset.StatusSucceeded {
				report.Connection = w.Negotiator.Acquire(ctx, report.Discovery.Device)
			}

			if err := summarize(report).write(cmd.OutOrStdout(), a.jsonOut); err != nil {
				return err
			}
			return report.Err()
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <address>",
		Short: "Switch a connected device to a microphone-capable profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.workflow().Switcher.Switch(cmd.Context(), args[0])

			out := cmd.OutOrStdout()
			if a.jsonOut {
				if err := json.NewEncoder(out).Encode(step(res.Status, res.Source.Name, res.Err)); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "%s: %s %s\n", res.Card, res.Status, res.Profile.Name())
				if res.Source.Name != "" {
					fmt.Fprintf(out, "microphone %s\n", res.Source.Name)
				}
			}

			if res.Status != headset.StatusSucceeded {
				return res.Err
			}
			return nil
		},
	}
}
