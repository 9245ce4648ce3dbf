package headset

import (
	"context"
	"errors"

	"github.com/mil-ad/budsmic/internal/bluetoothctl"
	"github.com/mil-ad/budsmic/internal/command"
	"github.com/mil-ad/budsmic/internal/logger"
)

const serviceUnit = "bluetooth.service"

// ServiceStarter starts a system service, typically systemd over D-Bus.
type ServiceStarter interface {
	StartService(ctx context.Context, unit string) error
}

// AdapterResult reports what Ensure managed to do.
type AdapterResult struct {
	Status         Status
	ServiceStarted bool
	Powered        bool
	Discoverable   bool
	Err            error
}

// AdapterController brings the local radio up.
type AdapterController struct {
	bt           *bluetoothctl.Client
	runner       command.Runner
	service      ServiceStarter
	discoverable bool
	log          logger.Logger
}

// NewAdapterController uses service to start bluetoothd when non-nil and
// falls back to systemctl through runner otherwise.
func NewAdapterController(bt *bluetoothctl.Client, runner command.Runner, service ServiceStarter,
	discoverable bool, log logger.Logger) *AdapterController {
	return &AdapterController{
		bt:           bt,
		runner:       runner,
		service:      service,
		discoverable: discoverable,
		log:          log.WithComponent("adapter"),
	}
}

// Ensure starts the Bluetooth service and powers the radio on. Every failure
// is logged and folded into the result; the radio may already be running.
func (a *AdapterController) Ensure(ctx context.Context) AdapterResult {
	var res AdapterResult

	serviceErr := a.startService(ctx)
	if serviceErr != nil {
		a.log.Warn().Err(serviceErr).Msg("could not start bluetooth service, continuing")
	} else {
		res.ServiceStarted = true
	}

	powered, out, err := a.bt.Power(ctx, true)
	if err != nil {
		err = classify(err)
		a.log.Warn().Err(err).Msg("could not power on adapter, continuing")
		res.Err = errors.Join(classify(serviceErr), err)
	} else if !powered {
		a.log.Warn().Str("output", out.Combined()).Msg("adapter did not report power on")
	}

	res.Powered = powered

	if a.discoverable && err == nil {
		ok, derr := a.bt.Discoverable(ctx, true)
		if derr != nil {
			a.log.Debug().Err(derr).Msg("discoverable on failed")
		}

		res.Discoverable = ok
	}

	if res.Powered {
		res.Status = StatusSucceeded
	} else {
		res.Status = StatusFailed
	}

	a.log.Info().
		Bool("service_started", res.ServiceStarted).
		Bool("powered", res.Powered).
		Msg("adapter ready check done")

	return res
}

func (a *AdapterController) startService(ctx context.Context) error {
	if a.service != nil {
		return a.service.StartService(ctx, serviceUnit)
	}

	res, err := a.runner.Run(ctx, command.New("systemctl", "start", serviceUnit))
	if err != nil {
		return classify(err)
	}

	if !res.OK() {
		return errors.New("systemctl start: " + res.Combined())
	}

	return nil
}
