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
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

// CpuProfile asks the running daemon for the selected CFS profile.
func CpuProfile() (string, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return "", errors.Wrap(err, "system bus")
	}
	defer conn.Close()
	variant, err := conn.Object(BusName, ObjectPath).
		GetProperty(BusName + ".CpuProfile")
	if err != nil {
		return "", errors.Wrap(err, "CpuProfile")
	}
	profile, _ := variant.Value().(string)
	return profile, nil
}

// SetCpuProfile asks the running daemon to pin a CFS profile.
func SetCpuProfile(profile string) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return errors.Wrap(err, "system bus")
	}
	defer conn.Close()
	call := conn.Object(BusName, ObjectPath).
		Call(BusName+".SetProfile", 0, profile)
	return errors.Wrap(call.Err, "SetProfile")
}

// SetForegroundProcess asks the running daemon to boost a pid.
func SetForegroundProcess(pid uint32) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return errors.Wrap(err, "system bus")
	}
	defer conn.Close()
	call := conn.Object(BusName, ObjectPath).
		Call(BusName+".SetForeground", 0, pid)
	return errors.Wrap(call.Err, "SetForeground")
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
