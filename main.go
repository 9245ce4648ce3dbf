package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mil-ad/budsmic/internal/bluez"
	"github.com/mil-ad/budsmic/internal/command"
	"github.com/mil-ad/budsmic/internal/headset"
	"github.com/mil-ad/budsmic/internal/logger"
	"github.com/mil-ad/budsmic/internal/poll"
)

// app holds what every subcommand needs.
type app struct {
	cfg    Config
	log    logger.Logger
	runner command.Runner
	clock  poll.Clock
	bus    *bluez.Bus

	configFile string
	logLevel   string
	debug      bool
	jsonOut    bool
}

func (a *app) setup(*cobra.Command, []string) error {
	cfg, err := loadConfig(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := logger.DefaultConfig()
	if a.logLevel != "" {
		logCfg.Level = a.logLevel
	}
	logCfg.Debug = logCfg.Debug || a.debug

	a.log, err = logger.New(logCfg)
	if err != nil {
		return err
	}

	a.runner = command.NewExecRunner(a.log)
	a.clock = poll.RealClock{}

	return nil
}

func (a *app) teardown(*cobra.Command, []string) {
	if a.bus != nil {
		a.bus.Close()
	}
}

// serviceStarter returns the system bus when it can be reached, so the
// adapter step starts bluetoothd over D-Bus instead of through systemctl.
func (a *app) serviceStarter() headset.ServiceStarter {
	if !a.cfg.UseDBus {
		return nil
	}

	if a.bus == nil {
		bus, err := bluez.Connect()
		if err != nil {
			a.log.Debug().Err(err).Msg("system bus unavailable, using systemctl")
			return nil
		}
		a.bus = bus
	}

	return a.bus
}

func (a *app) workflow() *headset.Workflow {
	return headset.NewWorkflow(a.runner, a.cfg.timeouts(), a.serviceStarter(), a.clock, a.cfg.options(), a.log)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:               "budsmic",
		Short:             "Connect a Bluetooth headset and use its microphone",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default "+configPath()+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newRunCmd(a),
		newDevicesCmd(a),
		newAcquireCmd(a),
		newProfileCmd(a),
		newWatchCmd(a),
	)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
