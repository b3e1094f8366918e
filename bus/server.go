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

// Package bus is the system D-Bus face of the daemon: the control interface
// other desktop components call, and the upower power-source watch.
package bus

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/pkg/errors"

	"github.com/pop-os/system76-scheduler/scheduler"
)

const (
	BusName    = "com.system76.Scheduler"
	ObjectPath = dbus.ObjectPath("/com/system76/Scheduler")
)

// Server owns the bus name and forwards calls into the event queue. The
// CpuProfile property mirrors the last requested profile; the loop itself
// never reports back, so the property reflects intent, not kernel state.
type Server struct {
	conn  *dbus.Conn
	queue *scheduler.Queue
	props *prop.Properties
}

// NewServer connects to the system bus, exports the control interface and
// claims the well-known name. A second instance loses the name and errors.
func NewServer(queue *scheduler.Queue) (*Server, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "system bus")
	}
	s := &Server{conn: conn, queue: queue}

	if err = conn.Export(s, ObjectPath, BusName); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "export")
	}
	s.props, err = prop.Export(conn, ObjectPath, prop.Map{
		BusName: {
			"CpuProfile": {
				Value:    "auto",
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	})
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "export properties")
	}

	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name: BusName,
				Methods: []introspect.Method{
					{
						Name: "SetForeground",
						Args: []introspect.Arg{{Name: "pid", Type: "u", Direction: "in"}},
					},
					{
						Name: "SetProfile",
						Args: []introspect.Arg{{Name: "profile", Type: "s", Direction: "in"}},
					},
				},
				Properties: []introspect.Property{
					{Name: "CpuProfile", Type: "s", Access: "read"},
				},
			},
		},
	}
	if err = conn.Export(
		introspect.NewIntrospectable(node), ObjectPath,
		"org.freedesktop.DBus.Introspectable",
	); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "export introspection")
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "request name")
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, errors.Errorf("%s already owned", BusName)
	}
	return s, nil
}

// SetForeground marks the pid as the focused application; it and its
// descendants get prioritized over background work.
func (s *Server) SetForeground(pid uint32) *dbus.Error {
	s.queue.Push(scheduler.Event{Kind: scheduler.EventFocus, Pid: int(pid)})
	return nil
}

// SetProfile pins a named CFS parameter set; "auto" or the empty string
// restores the automatic AC/battery mapping.
func (s *Server) SetProfile(profile string) *dbus.Error {
	if profile == "" {
		profile = "auto"
	}
	s.queue.Push(scheduler.Event{Kind: scheduler.EventSetProfile, Profile: profile})
	s.props.SetMust(BusName, "CpuProfile", profile)
	return nil
}

func (s *Server) Close() error {
	return s.conn.Close()
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
