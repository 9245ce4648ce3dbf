package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mil-ad/budsmic/internal/bluez"
)

// LinkChange is a connection transition as printed by the watch command.
type LinkChange struct {
	Time      time.Time `json:"time"`
	Address   string    `json:"address"`
	Connected bool      `json:"connected"`
}

func writeLinkChange(w io.Writer, c LinkChange, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(c)
	}

	state := "disconnected"
	if c.Connected {
		state = "connected"
	}
	_, err := fmt.Fprintf(w, "%s %s %s\n", c.Time.Format(time.TimeOnly), c.Address, state)
	return err
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <address>",
		Short: "Print connection changes of a device until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := args[0]
			ctx := cmd.Context()

			bus, err := bluez.Connect()
			if err != nil {
				return err
			}
			a.bus = bus

			ok, err := bus.HasBluez(ctx)
			if err != nil {
				return err
			}
			if !ok {
				a.log.Warn().Msg("bluetoothd is not on the bus yet, waiting for it")
			} else if powered, err := bus.AdapterPowered(ctx); err == nil && !powered {
				a.log.Warn().Msg("adapter is powered off")
			}

			events, err := bus.Watch(ctx, addr)
			if err != nil {
				return err
			}

			a.log.Info().Str("address", addr).Msg("watching")

			for ev := range events {
				change := LinkChange{Time: a.clock.Now(), Address: ev.Address, Connected: ev.Connected}
				if err := writeLinkChange(cmd.OutOrStdout(), change, a.jsonOut); err != nil {
					return err
				}
			}

			a.log.Info().Msg("shutting down")
			return nil
		},
	}
}
