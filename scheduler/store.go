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

import (
	"sort"

	"github.com/pop-os/system76-scheduler/config"
	"github.com/pop-os/system76-scheduler/procfs"
)

// Entry is the per-pid bookkeeping of the assignment store. Profile is the
// assigned profile name, empty for pids tracked only because a boost touched
// them. Original holds the attributes captured before the first write so a
// revert can restore them.
type Entry struct {
	Pid         int
	Profile     string
	Exe         string
	Original    procfs.Attrs
	HasOriginal bool
	Foreground  bool
	Audio       bool
}

func (e *Entry) boosted() bool {
	return e.Foreground || e.Audio
}

// Store tracks which pids hold which profile and which are boosted. It is
// owned by the event loop; no method is safe for concurrent use.
type Store struct {
	cfg     *config.Config
	entries map[int]*Entry
	// Excepted pids are remembered by exe so that an execve of a different
	// image ends the exemption with the process image that earned it.
	exempt map[int]string
}

func NewStore(cfg *config.Config) *Store {
	return &Store{
		cfg:     cfg,
		entries: make(map[int]*Entry),
		exempt:  make(map[int]string),
	}
}

// Record creates or replaces the assignment for a pid. A second exec of the
// same pid replaces the profile, exe and original snapshot wholesale; boost
// flags survive, the process is still the same focus or audio target.
func (s *Store) Record(pid int, profile, exe string, original procfs.Attrs, hasOriginal bool) *Entry {
	e, ok := s.entries[pid]
	if !ok {
		e = &Entry{Pid: pid}
		s.entries[pid] = e
	}
	e.Profile = profile
	e.Exe = exe
	e.Original = original
	e.HasOriginal = hasOriginal
	return e
}

func (s *Store) Lookup(pid int) (*Entry, bool) {
	e, ok := s.entries[pid]
	return e, ok
}

func (s *Store) SetForeground(pid int, boosted bool) {
	if e, ok := s.entries[pid]; ok {
		e.Foreground = boosted
	}
}

func (s *Store) SetAudio(pid int, boosted bool) {
	if e, ok := s.entries[pid]; ok {
		e.Audio = boosted
	}
}

// MarkExempt records that no attribute write may ever reach the pid while
// this process image lives.
func (s *Store) MarkExempt(pid int, exe string) {
	delete(s.entries, pid)
	s.exempt[pid] = exe
}

func (s *Store) IsExempt(pid int) bool {
	_, ok := s.exempt[pid]
	return ok
}

func (s *Store) ExemptExe(pid int) (string, bool) {
	exe, ok := s.exempt[pid]
	return exe, ok
}

// Forget drops every trace of a pid known to be gone.
func (s *Store) Forget(pid int) {
	delete(s.entries, pid)
	delete(s.exempt, pid)
}

// EffectiveProfile composes the base assignment with the boost overrides.
// Boost profiles replace the base wholesale; foreground wins over audio.
// The second return is false when nothing applies to the pid.
func (s *Store) EffectiveProfile(pid int) (config.Profile, bool) {
	e, ok := s.entries[pid]
	if !ok {
		return config.Profile{}, false
	}
	if e.Foreground && s.cfg.ForegroundEnabled() {
		return s.cfg.Profiles[s.cfg.ForegroundProfileName], true
	}
	if e.Audio && s.cfg.PipewireEnabled() {
		return s.cfg.Profiles[s.cfg.PipewireProfileName], true
	}
	if e.Profile != "" {
		if p, ok := s.cfg.Profile(e.Profile); ok {
			return p, true
		}
	}
	return config.Profile{}, false
}

// Pids returns the tracked pids in ascending order.
func (s *Store) Pids() []int {
	pids := make([]int, 0, len(s.entries))
	for pid := range s.entries {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// ExemptPids returns the excepted pids in ascending order.
func (s *Store) ExemptPids() []int {
	pids := make([]int, 0, len(s.exempt))
	for pid := range s.exempt {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
