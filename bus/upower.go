/*
Copyright © 2023 David Guadalupe <guadalupe.david@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package bus

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	upowerName      = "org.freedesktop.UPower"
	upowerPath      = dbus.ObjectPath("/org/freedesktop/UPower")
	upowerOnBattery = upowerName + ".OnBattery"
	propsInterface  = "org.freedesktop.DBus.Properties"
)

// OnBattery reads the current power source from upower.
func OnBattery() (bool, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return false, errors.Wrap(err, "system bus")
	}
	defer conn.Close()
	variant, err := conn.Object(upowerName, upowerPath).GetProperty(upowerOnBattery)
	if err != nil {
		return false, errors.Wrap(err, "upower OnBattery")
	}
	onBattery, ok := variant.Value().(bool)
	if !ok {
		return false, errors.Errorf("upower OnBattery: unexpected %v", variant)
	}
	return onBattery, nil
}

// WatchOnBattery streams battery transitions from upower property-change
// signals until ctx is cancelled. A bus disconnect closes the channel; the
// daemon then runs on with the power state it last saw.
func WatchOnBattery(ctx context.Context) (<-chan bool, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "system bus")
	}
	if err = conn.AddMatchSignal(
		dbus.WithMatchInterface(propsInterface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(upowerPath),
	); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "match signal")
	}
	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	updates := make(chan bool, 4)
	go func() {
		defer close(updates)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if len(sig.Body) < 2 {
					continue
				}
				if iface, _ := sig.Body[0].(string); iface != upowerName {
					continue
				}
				changed, _ := sig.Body[1].(map[string]dbus.Variant)
				if variant, ok := changed["OnBattery"]; ok {
					if onBattery, ok := variant.Value().(bool); ok {
						updates <- onBattery
					}
				}
			}
		}
	}()
	return updates, nil
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
