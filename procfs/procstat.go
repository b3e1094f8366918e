// build +linux

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
	"fmt"
	"strings"
)

func GetResource(pid int, rc string) ([]byte, error) {
	return readFile(fmt.Sprintf("/proc/%d/%s", pid, rc))
}

// % cat /proc/$(pidof nvim)/stat
// 14066 (nvim) S 14064 14063 14063 0 -1 4194304 5898 6028 495 394 487 64 88 68 39 19 1 0 1256778 18685952 2655 4294967295 4620288 7319624 3219630688 0 0 0 0 2 536891909 1 0 0 17 0 0 0 0 0 0 8366744 8490776 38150144 3219638342 3219638506 3219638506 3219644398 0

type ProcStat struct {
	stat       string
	Pid        int    `json:"pid"`         // (1) %d
	Comm       string `json:"comm"`        // (2) %s
	State      string `json:"state"`       // (3) %c
	Ppid       int    `json:"ppid"`        // (4) %d
	Pgrp       int    `json:"pgrp"`        // (5) %d
	Session    int    `json:"session"`     // (6) %d
	TtyNr      int    `json:"tty_nr"`      // (7) %d
	TPGid      int    `json:"tpgid"`       // (8) %d
	Flags      uint   `json:"flags"`       // (9) %u
	Priority   int    `json:"priority"`    // (18) %ld
	Nice       int    `json:"nice"`        // (19) %ld
	NumThreads int    `json:"num_threads"` // (20) %ld
	StartTime  uint64 `json:"starttime"`   // (22) %llu
	RTPrio     int    `json:"rtprio"`      // (40) %u
	Policy     int    `json:"policy"`      // (41) %u
}

// Load parses a /proc/<pid>/stat buffer. The comm field is the only one that
// may contain spaces or parentheses, so fields are counted from both ends of
// the line around it.
func (stat *ProcStat) Load(buffer string) (err error) {
	stat.stat = strings.TrimSpace(buffer)
	open := strings.IndexByte(stat.stat, '(')
	end := strings.LastIndexByte(stat.stat, ')')
	if open < 0 || end < open {
		return fmt.Errorf("malformed stat: %q", stat.stat)
	}
	if _, err = fmt.Sscan(stat.stat[:open], &stat.Pid); err != nil {
		return
	}
	stat.Comm = stat.stat[open+1 : end]
	fields := strings.Fields(stat.stat[end+1:])
	if len(fields) < 39 {
		return fmt.Errorf("truncated stat: %q", stat.stat)
	}
	// Fields are numbered from 1 in proc(5); comm was (2).
	for i, dest := range map[int]interface{}{
		3:  &stat.State,
		4:  &stat.Ppid,
		5:  &stat.Pgrp,
		6:  &stat.Session,
		7:  &stat.TtyNr,
		8:  &stat.TPGid,
		9:  &stat.Flags,
		18: &stat.Priority,
		19: &stat.Nice,
		20: &stat.NumThreads,
		22: &stat.StartTime,
		40: &stat.RTPrio,
		41: &stat.Policy,
	} {
		if _, err = fmt.Sscan(fields[i-3], dest); err != nil {
			return
		}
	}
	return
}

func (stat *ProcStat) Read(pid int) error {
	data, err := GetResource(pid, "stat")
	if err != nil {
		return err
	}
	return stat.Load(string(data))
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
