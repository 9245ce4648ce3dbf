package bluez

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// LinkEvent is a change of a device's Connected property.
type LinkEvent struct {
	Address   string
	Connected bool
}

// Watch streams Connected transitions of the device at addr until ctx ends.
// The returned channel is closed when watching stops.
func (b *Bus) Watch(ctx context.Context, addr string) (<-chan LinkEvent, error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(DeviceObjectPath(addr)),
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember(propsMember),
	}
	if err := b.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", addr, err)
	}

	sigCh := make(chan *dbus.Signal, 16)
	b.conn.Signal(sigCh)

	out := make(chan LinkEvent)
	go func() {
		defer close(out)
		defer func() {
			b.conn.RemoveSignal(sigCh)
			_ = b.conn.RemoveMatchSignal(opts...)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				ev, ok := linkEvent(sig)
				if !ok || ev.Address != addr {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// linkEvent decodes a PropertiesChanged signal carrying Device1.Connected.
func linkEvent(sig *dbus.Signal) (LinkEvent, bool) {
	if sig == nil || sig.Name != propsSignal {
		return LinkEvent{}, false
	}
	// Body: [interface_name string, changed_props map[string]Variant, invalidated []string]
	if len(sig.Body) < 2 {
		return LinkEvent{}, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceIface {
		return LinkEvent{}, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return LinkEvent{}, false
	}
	connVar, ok := changed["Connected"]
	if !ok {
		return LinkEvent{}, false
	}
	connected, ok := connVar.Value().(bool)
	if !ok {
		return LinkEvent{}, false
	}
	mac := macFromPath(sig.Path)
	if mac == "" {
		return LinkEvent{}, false
	}
	return LinkEvent{Address: mac, Connected: connected}, true
}
