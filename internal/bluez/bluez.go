// Package bluez reaches BlueZ and systemd over the system D-Bus.
package bluez

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName      = "org.bluez"
	adapterPath  = "/org/bluez/hci0"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"
	propsMember  = "PropertiesChanged"
	propsSignal  = propsIface + "." + propsMember

	systemdName    = "org.freedesktop.systemd1"
	systemdPath    = "/org/freedesktop/systemd1"
	systemdManager = "org.freedesktop.systemd1.Manager"
)

// DeviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func DeviceObjectPath(addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(addr, ":", "_")
	return dbus.ObjectPath(adapterPath + "/dev_" + escaped)
}

// macFromPath extracts a MAC address from a BlueZ device object path.
func macFromPath(path dbus.ObjectPath) string {
	s := string(path)
	prefix := adapterPath + "/dev_"
	if !strings.HasPrefix(s, prefix) {
		return ""
	}
	return strings.ReplaceAll(s[len(prefix):], "_", ":")
}

// Bus wraps a system D-Bus connection.
type Bus struct {
	conn *dbus.Conn
}

// Connect opens the system bus. BlueZ itself need not be running yet; the
// bus is also how bluetoothd gets started.
func Connect() (*Bus, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	return &Bus{conn: conn}, nil
}

func (b *Bus) Close() error {
	return b.conn.Close()
}

// HasBluez reports whether org.bluez currently owns a name on the bus.
func (b *Bus) HasBluez(ctx context.Context) (bool, error) {
	var names []string
	if err := b.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return false, fmt.Errorf("list bus names: %w", err)
	}
	for _, n := range names {
		if n == busName {
			return true, nil
		}
	}
	return false, nil
}

// StartService asks systemd to start unit, replacing any queued job.
func (b *Bus) StartService(ctx context.Context, unit string) error {
	obj := b.conn.Object(systemdName, systemdPath)
	var job dbus.ObjectPath
	if err := obj.CallWithContext(ctx, systemdManager+".StartUnit", 0, unit, "replace").Store(&job); err != nil {
		return fmt.Errorf("start %s: %w", unit, err)
	}
	return nil
}

// AdapterPowered reads the Powered property of the default adapter.
func (b *Bus) AdapterPowered(ctx context.Context) (bool, error) {
	obj := b.conn.Object(busName, adapterPath)
	var v dbus.Variant
	if err := obj.CallWithContext(ctx, propsIface+".Get", 0, adapterIface, "Powered").Store(&v); err != nil {
		return false, fmt.Errorf("read adapter power: %w", err)
	}
	powered, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("property Powered is not bool")
	}
	return powered, nil
}
