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

	"github.com/pop-os/system76-scheduler/procfs"
)

// Tracker maintains the focused pid and the set of pids boosted on its
// behalf. It is inactive when no foreground profile is configured.
type Tracker struct {
	Current int
	boosted map[int]bool
}

func NewTracker() *Tracker {
	return &Tracker{boosted: make(map[int]bool)}
}

// Update moves the focus to pid and returns the boost and unboost deltas
// against the descendant closure taken from the snapshot. The closure is
// computed at this instant; later forks are caught by exec events or the
// next focus change.
func (t *Tracker) Update(pid int, snap *procfs.Snapshot) (boost, unboost []int) {
	next := make(map[int]bool)
	if snap.Alive(pid) {
		next[pid] = true
		for child := range snap.Descendants(pid) {
			next[child] = true
		}
	}
	for p := range t.boosted {
		if !next[p] {
			unboost = append(unboost, p)
		}
	}
	for p := range next {
		if !t.boosted[p] {
			boost = append(boost, p)
		}
	}
	sort.Ints(boost)
	sort.Ints(unboost)
	t.boosted = next
	t.Current = pid
	return
}

// Add joins a late arrival (a fork below the focused pid) to the boosted
// set without recomputing the closure.
func (t *Tracker) Add(pid int) {
	t.boosted[pid] = true
}

// Drop removes a pid known to be gone.
func (t *Tracker) Drop(pid int) {
	delete(t.boosted, pid)
}

// Boosted reports whether the pid currently holds a foreground boost.
func (t *Tracker) Boosted(pid int) bool {
	return t.boosted[pid]
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
