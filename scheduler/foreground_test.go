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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pop-os/system76-scheduler/procfs"
)

// After a focus change the boosted set is exactly the transitive descendant
// closure of the focused pid at that instant.
func TestTrackerDescendantClosure(t *testing.T) {
	snap := procfs.NewSnapshot(map[int]int{
		1:   0,
		100: 1,
		101: 100,
		102: 101,
		200: 1,
	})
	tracker := NewTracker()
	boost, unboost := tracker.Update(100, snap)
	assert.Equal(t, []int{100, 101, 102}, boost)
	assert.Empty(t, unboost)
	assert.Equal(t, 100, tracker.Current)
	assert.True(t, tracker.Boosted(102))
	assert.False(t, tracker.Boosted(200))
}

// Moving the focus reverts everything outside the new closure.
func TestTrackerFocusMove(t *testing.T) {
	snap := procfs.NewSnapshot(map[int]int{
		1: 0, 100: 1, 101: 100, 200: 1, 201: 200,
	})
	tracker := NewTracker()
	tracker.Update(100, snap)
	boost, unboost := tracker.Update(200, snap)
	assert.Equal(t, []int{200, 201}, boost)
	assert.Equal(t, []int{100, 101}, unboost)
}

// Focusing a pid that does not exist unboosts everything.
func TestTrackerFocusGonePid(t *testing.T) {
	snap := procfs.NewSnapshot(map[int]int{1: 0, 200: 1})
	tracker := NewTracker()
	tracker.Update(200, snap)
	boost, unboost := tracker.Update(999, snap)
	assert.Empty(t, boost)
	assert.Equal(t, []int{200}, unboost)
	assert.Equal(t, 999, tracker.Current)
}

func TestTrackerLateFork(t *testing.T) {
	snap := procfs.NewSnapshot(map[int]int{1: 0, 100: 1})
	tracker := NewTracker()
	tracker.Update(100, snap)
	tracker.Add(101)
	assert.True(t, tracker.Boosted(101))
	tracker.Drop(101)
	assert.False(t, tracker.Boosted(101))
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
