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
package procfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStat = "14066 (nvim) S 14064 14063 14063 0 -1 4194304 5898 6028 495 394 487 64 88 68 39 19 1 0 1256778 18685952 2655 4294967295 4620288 7319624 3219630688 0 0 0 0 2 536891909 1 0 0 17 0 0 0 0 0 0 8366744 8490776 38150144 3219638342 3219638506 3219638506 3219644398 0"

func TestProcStatLoad(t *testing.T) {
	var stat ProcStat
	require.NoError(t, stat.Load(sampleStat))
	assert.Equal(t, 14066, stat.Pid)
	assert.Equal(t, "nvim", stat.Comm)
	assert.Equal(t, "S", stat.State)
	assert.Equal(t, 14064, stat.Ppid)
	assert.Equal(t, 14063, stat.Pgrp)
	assert.Equal(t, 14063, stat.Session)
	assert.Equal(t, 19, stat.Nice)
	assert.Equal(t, 0, stat.RTPrio)
	assert.Equal(t, SCHED_OTHER, stat.Policy)
}

func TestProcStatLoadCommWithSpaces(t *testing.T) {
	var stat ProcStat
	require.NoError(t, stat.Load(
		"123 (tmux: server (1)) S 1 123 123 0 -1 4194304 0 0 0 0 0 0 0 0 20 0 1 0 100 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0",
	))
	assert.Equal(t, 123, stat.Pid)
	assert.Equal(t, "tmux: server (1)", stat.Comm)
	assert.Equal(t, 1, stat.Ppid)
}

func TestProcStatLoadMalformed(t *testing.T) {
	var stat ProcStat
	assert.Error(t, stat.Load("garbage"))
	assert.Error(t, stat.Load("1 (short) S 0"))
}

func TestSnapshotDescendants(t *testing.T) {
	snap := NewSnapshot(map[int]int{
		1:   0,
		10:  1,
		20:  10,
		21:  10,
		30:  21,
		100: 1,
	})
	assert.Equal(t,
		map[int]bool{20: true, 21: true, 30: true},
		snap.Descendants(10),
	)
	assert.Empty(t, snap.Descendants(30))
	assert.True(t, snap.Alive(21))
	assert.False(t, snap.Alive(99))
}

// Pid reuse can wire parent links into a loop; the walk must terminate.
func TestSnapshotDescendantsCycle(t *testing.T) {
	snap := NewSnapshot(map[int]int{
		10: 20,
		20: 30,
		30: 10,
	})
	assert.Equal(t, map[int]bool{20: true, 30: true}, snap.Descendants(10))
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
