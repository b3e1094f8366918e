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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrGone reports that a pid vanished between two reads. Callers treat it as
// "nothing to do", not as a failure.
var ErrGone = errors.New("process gone")

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrPermission) {
			return nil, ErrGone
		}
		return nil, err
	}
	return data, nil
}

// ProcInfo is an immutable snapshot of the metadata the classifier needs.
// Missing pieces are left empty; the process may have vanished mid-read.
type ProcInfo struct {
	Pid        int
	ExePath    string
	Cmdline    string
	Comm       string
	ParentPid  int
	ParentComm string
	CgroupPath string
	Session    int
}

func GetExePath(pid int) string {
	target, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(target, " (deleted)")
}

func GetCmdline(pid int) string {
	data, err := GetResource(pid, "cmdline")
	if err != nil {
		return ""
	}
	return strings.TrimRight(
		strings.ReplaceAll(string(data), "\x00", " "), " ",
	)
}

func GetComm(pid int) string {
	data, err := GetResource(pid, "comm")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// GetCgroup returns the unified hierarchy path, e.g. "/user.slice/...scope".
func GetCgroup(pid int) string {
	data, err := GetResource(pid, "cgroup")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if pos := strings.Index(line, "::"); pos >= 0 {
			return line[pos+2:]
		}
	}
	return ""
}

// NewProcInfo reads /proc once for pid. Only a missing stat file makes the
// pid "gone"; every other field degrades to empty.
func NewProcInfo(pid int) (info ProcInfo, err error) {
	var stat ProcStat
	if err = stat.Read(pid); err != nil {
		if errors.Is(err, ErrGone) {
			return info, ErrGone
		}
		return
	}
	info = ProcInfo{
		Pid:        pid,
		ExePath:    GetExePath(pid),
		Cmdline:    GetCmdline(pid),
		Comm:       stat.Comm,
		ParentPid:  stat.Ppid,
		CgroupPath: GetCgroup(pid),
		Session:    stat.Session,
	}
	if info.ParentPid > 0 {
		info.ParentComm = GetComm(info.ParentPid)
	}
	return info, nil
}

// IsKernelThread reports whether the process has no userspace image. Kernel
// threads expose neither a cmdline nor an exe link.
func (info ProcInfo) IsKernelThread() bool {
	return info.Cmdline == "" && info.ExePath == ""
}

// Attrs is the kernel scheduling state of one process, captured before the
// first attribute write so it can be restored later.
type Attrs struct {
	Nice    int
	Policy  int
	RTPrio  int
	IOClass int
	IONice  int
}

func ReadAttrs(pid int) (attrs Attrs, err error) {
	if attrs.Nice, err = GetPriority(pid); err != nil {
		return
	}
	if attrs.Policy, err = Sched_GetScheduler(pid); err != nil {
		return
	}
	if attrs.RTPrio, err = Sched_GetParam(pid); err != nil {
		return
	}
	ioprio, err := IOPrio_Get(pid)
	if err != nil {
		return
	}
	IOPrio_Split(ioprio, &attrs.IOClass, &attrs.IONice)
	return
}

// Tasks lists the thread ids of pid, the pid itself included.
func Tasks(pid int) (tids []int) {
	entries, err := os.ReadDir(fmt.Sprintf("/proc/%d/task", pid))
	if err != nil {
		return []int{pid}
	}
	for _, entry := range entries {
		if tid, err := strconv.Atoi(entry.Name()); err == nil {
			tids = append(tids, tid)
		}
	}
	if len(tids) == 0 {
		tids = []int{pid}
	}
	return
}

// AllPids enumerates the current process table.
func AllPids() (pids []int) {
	dirs, err := filepath.Glob("/proc/[0-9]*")
	if err != nil {
		return
	}
	for _, dir := range dirs {
		if pid, err := strconv.Atoi(filepath.Base(dir)); err == nil {
			pids = append(pids, pid)
		}
	}
	return
}

func Uptime() (seconds int64) {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return
	}
	fields := strings.SplitN(string(data), ".", 2)
	seconds, _ = strconv.ParseInt(fields[0], 10, 64)
	return
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
