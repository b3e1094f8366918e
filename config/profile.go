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
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type SchedPolicy int

const (
	SchedOther SchedPolicy = iota
	SchedBatch
	SchedIdle
	SchedFifo
	SchedRR
)

var schedNames = map[SchedPolicy]string{
	SchedOther: "other",
	SchedBatch: "batch",
	SchedIdle:  "idle",
	SchedFifo:  "fifo",
	SchedRR:    "rr",
}

func (p SchedPolicy) String() string {
	return schedNames[p]
}

// IsRealtime reports whether the policy carries an rt priority.
func (p SchedPolicy) IsRealtime() bool {
	return p == SchedFifo || p == SchedRR
}

// Sched pairs a policy with its rt priority. Priority is zero unless the
// policy is fifo or rr, where it ranges 1 through 99.
type Sched struct {
	Policy   SchedPolicy
	Priority int
}

// ParseSched accepts "other", "batch", "idle", "fifo:N" and "rr:N". Realtime
// policies without an explicit priority default to 1.
func ParseSched(spec string) (sched Sched, err error) {
	name, level, hasLevel := strings.Cut(spec, ":")
	for policy, n := range schedNames {
		if n != name {
			continue
		}
		sched.Policy = policy
		if !policy.IsRealtime() {
			if hasLevel {
				err = errors.Errorf("sched %q takes no priority", name)
			}
			return
		}
		sched.Priority = 1
		if hasLevel {
			if sched.Priority, err = strconv.Atoi(level); err != nil {
				return sched, errors.Wrapf(err, "sched %q", spec)
			}
		}
		if sched.Priority < 1 || sched.Priority > 99 {
			err = errors.Errorf("sched %q: priority out of range [1,99]", spec)
		}
		return
	}
	return sched, errors.Errorf("unknown sched policy %q", spec)
}

func (s Sched) String() string {
	if s.Policy.IsRealtime() {
		return fmt.Sprintf("%s:%d", s.Policy, s.Priority)
	}
	return s.Policy.String()
}

type IOClass int

const (
	IOBestEffort IOClass = iota
	IOIdle
	IORealtime
)

var ioNames = map[IOClass]string{
	IOBestEffort: "best-effort",
	IOIdle:       "idle",
	IORealtime:   "realtime",
}

func (c IOClass) String() string {
	return ioNames[c]
}

// IOPrio pairs an I/O class with its level, 0 (highest) through 7 (lowest).
// The idle class takes no level.
type IOPrio struct {
	Class IOClass
	Level int
}

// ParseIOPrio accepts "idle", "best-effort:N" and "realtime:N". A missing
// level defaults to 7, the lowest.
func ParseIOPrio(spec string) (io IOPrio, err error) {
	name, level, hasLevel := strings.Cut(spec, ":")
	for class, n := range ioNames {
		if n != name {
			continue
		}
		io.Class = class
		if class == IOIdle {
			if hasLevel {
				err = errors.New("io class idle takes no level")
			}
			return
		}
		io.Level = 7
		if hasLevel {
			if io.Level, err = strconv.Atoi(level); err != nil {
				return io, errors.Wrapf(err, "io %q", spec)
			}
		}
		if io.Level < 0 || io.Level > 7 {
			err = errors.Errorf("io %q: level out of range [0,7]", spec)
		}
		return
	}
	return io, errors.Errorf("unknown io class %q", spec)
}

func (io IOPrio) String() string {
	if io.Class == IOIdle {
		return io.Class.String()
	}
	return fmt.Sprintf("%s:%d", io.Class, io.Level)
}

// Profile is a named bundle of scheduling attributes. Nil fields mean
// "do not touch that dimension".
type Profile struct {
	Nice  *int
	Sched *Sched
	IO    *IOPrio
}

// IsEmpty reports whether applying the profile would touch nothing.
func (p Profile) IsEmpty() bool {
	return p.Nice == nil && p.Sched == nil && p.IO == nil
}

func (p Profile) String() string {
	var parts []string
	if p.Nice != nil {
		parts = append(parts, fmt.Sprintf("nice=%d", *p.Nice))
	}
	if p.Sched != nil {
		parts = append(parts, "sched="+p.Sched.String())
	}
	if p.IO != nil {
		parts = append(parts, "io="+p.IO.String())
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}

type rawProfile struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
	Nice   *int   `yaml:"nice,omitempty"`
	Sched  string `yaml:"sched,omitempty"`
	IO     string `yaml:"io,omitempty"`
}

func (raw rawProfile) toProfile(base Profile) (p Profile, err error) {
	p = base
	if raw.Nice != nil {
		if *raw.Nice < -20 || *raw.Nice > 19 {
			return p, errors.Errorf(
				"profile %q: nice %d out of range [-20,19]", raw.Name, *raw.Nice,
			)
		}
		nice := *raw.Nice
		p.Nice = &nice
	}
	if raw.Sched != "" {
		sched, err := ParseSched(raw.Sched)
		if err != nil {
			return p, errors.Wrapf(err, "profile %q", raw.Name)
		}
		p.Sched = &sched
	}
	if raw.IO != "" {
		io, err := ParseIOPrio(raw.IO)
		if err != nil {
			return p, errors.Wrapf(err, "profile %q", raw.Name)
		}
		p.IO = &io
	}
	return
}

// resolveProfiles flattens inheritance at load time. A profile naming a
// parent starts from the parent's fields and overrides those it respecifies,
// so lookups never chase chains at runtime.
func resolveProfiles(raws []rawProfile) (map[string]Profile, error) {
	table := make(map[string]Profile, len(raws))
	for _, raw := range raws {
		if raw.Name == "" {
			return nil, errors.New("profile without a name")
		}
		var base Profile
		if raw.Parent != "" {
			parent, ok := table[raw.Parent]
			if !ok {
				return nil, errors.Errorf(
					"profile %q: parent %q not defined earlier", raw.Name, raw.Parent,
				)
			}
			base = parent
		}
		profile, err := raw.toProfile(base)
		if err != nil {
			return nil, err
		}
		table[raw.Name] = profile
	}
	return table, nil
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
