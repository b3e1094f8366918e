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
package scheduler

type EventKind int

const (
	// EventExec reports a process birth seen by the exec tracer.
	EventExec EventKind = iota
	// EventFocus moves the foreground boost; also raised by the bus
	// SetForeground method.
	EventFocus
	// EventAudio flips the audio-session boost of one pid.
	EventAudio
	// EventPower reports an AC/battery transition.
	EventPower
	// EventSweep triggers the periodic process table reconciliation.
	EventSweep
	// EventSetProfile pins a named CFS parameter set, or restores the
	// automatic power mapping with "auto".
	EventSetProfile
)

// Event is the single message type external sources post into the loop.
// Only the fields of the kind are meaningful.
type Event struct {
	Kind      EventKind
	Pid       int
	ParentPid int
	Comm      string
	Exe       string
	Active    bool
	OnAC      bool
	Profile   string
}

// Droppable marks the events the queue may shed under overload. Lost exec
// work is recovered by the next sweep; focus, audio and power changes are
// not recoverable and always kept.
func (ev Event) Droppable() bool {
	return ev.Kind == EventExec
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
