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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pop-os/system76-scheduler/config"
	"github.com/pop-os/system76-scheduler/procfs"
)

type applyCall struct {
	pid     int
	profile config.Profile
}

// world fakes the kernel facing seams so scenarios drive the loop without
// touching /proc.
type world struct {
	infos   map[int]procfs.ProcInfo
	attrs   map[int]procfs.Attrs
	parents map[int]int
	applies []applyCall
}

func (w *world) lastApply(pid int) (config.Profile, bool) {
	for i := len(w.applies) - 1; i >= 0; i-- {
		if w.applies[i].pid == pid {
			return w.applies[i].profile, true
		}
	}
	return config.Profile{}, false
}

func (w *world) appliesTo(pid int) int {
	count := 0
	for _, call := range w.applies {
		if call.pid == pid {
			count++
		}
	}
	return count
}

func newTestService(t *testing.T, cfg *config.Config) (*Service, *world) {
	t.Helper()
	w := &world{
		infos:   make(map[int]procfs.ProcInfo),
		attrs:   make(map[int]procfs.Attrs),
		parents: make(map[int]int),
	}
	s := NewService(cfg)
	s.cfs = NewCfsTunerAt(t.TempDir())
	s.apply = func(pid int, profile config.Profile) {
		w.applies = append(w.applies, applyCall{pid: pid, profile: profile})
	}
	s.introspect = func(pid int) (procfs.ProcInfo, error) {
		if info, ok := w.infos[pid]; ok {
			return info, nil
		}
		return procfs.ProcInfo{}, procfs.ErrGone
	}
	s.readAttrs = func(pid int) (procfs.Attrs, error) {
		return w.attrs[pid], nil
	}
	s.snapshot = func() *procfs.Snapshot {
		parents := make(map[int]int, len(w.parents))
		for pid, ppid := range w.parents {
			parents[pid] = ppid
		}
		return procfs.NewSnapshot(parents)
	}
	s.readExe = func(pid int) string {
		return w.infos[pid].ExePath
	}
	return s, w
}

func (w *world) addProcess(pid, ppid int, comm, exe string) {
	w.infos[pid] = procfs.ProcInfo{
		Pid:        pid,
		ExePath:    exe,
		Cmdline:    exe,
		Comm:       comm,
		ParentPid:  ppid,
		ParentComm: w.infos[ppid].Comm,
	}
	w.parents[pid] = ppid
}

func (w *world) removeProcess(pid int) {
	delete(w.infos, pid)
	delete(w.parents, pid)
}

// Exception by exe path never reaches the kernel; the name assignment gets
// its full profile applied.
func TestScenarioExceptionAndAssignment(t *testing.T) {
	cfg := testConfig()
	cfg.Assignments = []config.AssignmentRule{
		{Name: "rustc", Profile: "compilers"},
	}
	cfg.Exceptions = []config.AssignmentRule{
		{Exe: "/usr/bin/top"},
	}
	s, w := newTestService(t, cfg)
	w.addProcess(1, 0, "init", "/sbin/init")
	w.addProcess(100, 1, "top", "/usr/bin/top")
	w.addProcess(101, 1, "rustc", "/usr/lib/rust/rustc")

	s.dispatch(Event{Kind: EventExec, Pid: 100, ParentPid: 1})
	assert.Zero(t, w.appliesTo(100), "excepted pid is never touched")
	assert.True(t, s.store.IsExempt(100))

	s.dispatch(Event{Kind: EventExec, Pid: 101, ParentPid: 1})
	profile, ok := w.lastApply(101)
	require.True(t, ok)
	assert.Equal(t, 19, *profile.Nice)
	assert.Equal(t, config.SchedIdle, profile.Sched.Policy)
	assert.Equal(t, config.IOIdle, profile.IO.Class)
}

// Focus boost replaces the assignment wholesale and focus loss restores it.
func TestScenarioForegroundBoostAndRevert(t *testing.T) {
	cfg := testConfig()
	cfg.Profiles["zero"] = config.Profile{Nice: intp(0)}
	cfg.ForegroundProfileName = "foreground"
	cfg.BackgroundProfileName = "background"
	cfg.Assignments = []config.AssignmentRule{
		{Name: "app", Profile: "zero"},
	}
	s, w := newTestService(t, cfg)
	w.addProcess(1, 0, "init", "/sbin/init")
	w.addProcess(200, 1, "app", "/usr/bin/app")

	s.dispatch(Event{Kind: EventExec, Pid: 200, ParentPid: 1})
	profile, _ := w.lastApply(200)
	assert.Equal(t, 0, *profile.Nice)

	s.dispatch(Event{Kind: EventFocus, Pid: 200})
	profile, _ = w.lastApply(200)
	assert.Equal(t, -5, *profile.Nice)

	// Focus moves to a pid that does not exist yet.
	s.dispatch(Event{Kind: EventFocus, Pid: 999})
	profile, _ = w.lastApply(200)
	assert.Equal(t, 0, *profile.Nice, "boost removal reapplies the assignment")
}

// The whole descendant closure at the instant of the focus change gets the
// boost, and leaving the closure reverts.
func TestScenarioForegroundDescendants(t *testing.T) {
	cfg := testConfig()
	cfg.ForegroundProfileName = "foreground"
	cfg.BackgroundProfileName = "background"
	s, w := newTestService(t, cfg)
	w.addProcess(1, 0, "init", "/sbin/init")
	w.addProcess(100, 1, "term", "/usr/bin/term")
	w.addProcess(101, 100, "sh", "/bin/sh")
	w.addProcess(102, 101, "work", "/usr/bin/work")
	w.addProcess(200, 1, "other", "/usr/bin/other")
	w.attrs[101] = procfs.Attrs{Nice: 3}

	s.dispatch(Event{Kind: EventFocus, Pid: 100})
	for _, pid := range []int{100, 101, 102} {
		profile, ok := w.lastApply(pid)
		require.True(t, ok, "pid %d boosted", pid)
		assert.Equal(t, -5, *profile.Nice)
	}
	assert.Zero(t, w.appliesTo(200), "outside the closure, untouched")

	s.dispatch(Event{Kind: EventFocus, Pid: 200})
	// 101 had no assignment; the captured snapshot comes back.
	profile, _ := w.lastApply(101)
	assert.Equal(t, 3, *profile.Nice)
}

// A late fork below the focused process joins the boost via its exec event.
func TestScenarioForegroundLateFork(t *testing.T) {
	cfg := testConfig()
	cfg.ForegroundProfileName = "foreground"
	cfg.BackgroundProfileName = "background"
	s, w := newTestService(t, cfg)
	w.addProcess(1, 0, "init", "/sbin/init")
	w.addProcess(100, 1, "term", "/usr/bin/term")
	s.dispatch(Event{Kind: EventFocus, Pid: 100})

	w.addProcess(103, 100, "child", "/usr/bin/child")
	s.dispatch(Event{Kind: EventExec, Pid: 103, ParentPid: 100})
	profile, ok := w.lastApply(103)
	require.True(t, ok)
	assert.Equal(t, -5, *profile.Nice)
	assert.True(t, s.fg.Boosted(103))
}

// Audio activation overrides the assignment, foreground wins over audio,
// and deactivation falls back down the layers.
func TestScenarioAudioBoost(t *testing.T) {
	cfg := testConfig()
	cfg.Profiles["zero"] = config.Profile{Nice: intp(0)}
	cfg.ForegroundProfileName = "foreground"
	cfg.BackgroundProfileName = "background"
	cfg.PipewireProfileName = "pipewire"
	cfg.Assignments = []config.AssignmentRule{
		{Name: "player", Profile: "zero"},
	}
	s, w := newTestService(t, cfg)
	w.addProcess(1, 0, "init", "/sbin/init")
	w.addProcess(500, 1, "player", "/usr/bin/player")

	s.dispatch(Event{Kind: EventExec, Pid: 500, ParentPid: 1})
	s.dispatch(Event{Kind: EventAudio, Pid: 500, Active: true})
	profile, _ := w.lastApply(500)
	assert.Equal(t, -6, *profile.Nice)

	s.dispatch(Event{Kind: EventFocus, Pid: 500})
	profile, _ = w.lastApply(500)
	assert.Equal(t, -5, *profile.Nice, "foreground wins over audio")

	w.addProcess(600, 1, "idle", "/usr/bin/idle")
	s.dispatch(Event{Kind: EventFocus, Pid: 600})
	profile, _ = w.lastApply(500)
	assert.Equal(t, -6, *profile.Nice, "audio boost still holds")

	s.dispatch(Event{Kind: EventAudio, Pid: 500, Active: false})
	profile, _ = w.lastApply(500)
	assert.Equal(t, 0, *profile.Nice, "assignment restored")
}

// A reused pid is re-introspected on its next exec; the assignment and the
// original snapshot are replaced wholesale.
func TestScenarioPidReuse(t *testing.T) {
	cfg := testConfig()
	cfg.Profiles["zero"] = config.Profile{Nice: intp(0)}
	cfg.Assignments = []config.AssignmentRule{
		{Name: "app", Profile: "zero"},
		{Name: "cc", Profile: "compilers"},
	}
	s, w := newTestService(t, cfg)
	w.addProcess(1, 0, "init", "/sbin/init")
	w.addProcess(400, 1, "app", "/usr/bin/app")
	w.attrs[400] = procfs.Attrs{Nice: 0}
	s.dispatch(Event{Kind: EventExec, Pid: 400, ParentPid: 1})

	entry, ok := s.store.Lookup(400)
	require.True(t, ok)
	assert.Equal(t, "zero", entry.Profile)
	assert.Equal(t, 0, entry.Original.Nice)

	// The pid dies and is reborn as a different program.
	w.addProcess(400, 1, "cc", "/usr/bin/cc")
	w.attrs[400] = procfs.Attrs{Nice: 7}
	s.dispatch(Event{Kind: EventExec, Pid: 400, ParentPid: 1})

	entry, ok = s.store.Lookup(400)
	require.True(t, ok)
	assert.Equal(t, "compilers", entry.Profile)
	assert.Equal(t, 7, entry.Original.Nice, "original snapshot replaced")
	profile, _ := w.lastApply(400)
	assert.Equal(t, 19, *profile.Nice)
}

// After one sweep with no concurrent events the store holds exactly the
// live pids classifying to a profile.
func TestScenarioSweepConvergence(t *testing.T) {
	cfg := testConfig()
	cfg.Assignments = []config.AssignmentRule{
		{Name: "rustc", Profile: "compilers"},
	}
	s, w := newTestService(t, cfg)
	w.addProcess(1, 0, "init", "/sbin/init")
	w.addProcess(101, 1, "rustc", "/usr/lib/rust/rustc")
	w.addProcess(102, 1, "cat", "/bin/cat")

	// A stale entry for a pid that died before this sweep.
	s.store.Record(999, "compilers", "/usr/lib/rust/rustc", procfs.Attrs{}, true)

	s.dispatch(Event{Kind: EventSweep})
	assert.Equal(t, []int{101}, s.store.Pids())
	profile, ok := w.lastApply(101)
	require.True(t, ok)
	assert.Equal(t, 19, *profile.Nice)
	assert.Zero(t, w.appliesTo(102), "unassigned pids keep kernel defaults")
	assert.Zero(t, w.appliesTo(999))
}

// The sweep revalidates the exe of tracked pids and catches an execve that
// no exec event reported.
func TestScenarioSweepExeRevalidation(t *testing.T) {
	cfg := testConfig()
	cfg.Assignments = []config.AssignmentRule{
		{Name: "rustc", Profile: "compilers"},
	}
	s, w := newTestService(t, cfg)
	w.addProcess(1, 0, "init", "/sbin/init")
	w.addProcess(300, 1, "rustc", "/usr/lib/rust/rustc")
	w.attrs[300] = procfs.Attrs{Nice: 0}
	s.dispatch(Event{Kind: EventSweep})
	require.Equal(t, []int{300}, s.store.Pids())

	// execve without reparent: same pid, new image, no matching rule.
	w.addProcess(300, 1, "cat", "/bin/cat")
	s.dispatch(Event{Kind: EventSweep})
	assert.Empty(t, s.store.Pids(), "void assignment dropped")
	profile, ok := w.lastApply(300)
	require.True(t, ok)
	assert.Equal(t, 0, *profile.Nice, "previous image attributes restored")
}

// No apply ever reaches an excepted pid, whatever signal arrives.
func TestExceptionInviolability(t *testing.T) {
	cfg := testConfig()
	cfg.ForegroundProfileName = "foreground"
	cfg.BackgroundProfileName = "background"
	cfg.PipewireProfileName = "pipewire"
	cfg.Exceptions = []config.AssignmentRule{{Name: "precious"}}
	s, w := newTestService(t, cfg)
	w.addProcess(1, 0, "init", "/sbin/init")
	w.addProcess(100, 1, "precious", "/usr/bin/precious")

	s.dispatch(Event{Kind: EventExec, Pid: 100, ParentPid: 1})
	s.dispatch(Event{Kind: EventFocus, Pid: 100})
	s.dispatch(Event{Kind: EventAudio, Pid: 100, Active: true})
	s.dispatch(Event{Kind: EventSweep})
	assert.Zero(t, w.appliesTo(100))
}

// A pinned cfs profile persists across power transitions until cleared.
func TestCpuProfilePinning(t *testing.T) {
	cfg := testConfig()
	cfg.Cfs = config.CfsTuning{
		AC:      config.CfsParams{Latency: 1},
		Battery: config.CfsParams{Latency: 2},
		Profiles: map[string]config.CfsParams{
			"default":    {Latency: 2},
			"responsive": {Latency: 1},
			"slow":       {Latency: 9},
		},
	}
	s, _ := newTestService(t, cfg)
	root := s.cfs.root

	s.Startup(true)
	assert.Equal(t, "1", readKnob(t, root, "sched_latency_ns"))

	s.dispatch(Event{Kind: EventPower, OnAC: false})
	assert.Equal(t, "2", readKnob(t, root, "sched_latency_ns"))

	s.dispatch(Event{Kind: EventSetProfile, Profile: "slow"})
	assert.Equal(t, "9", readKnob(t, root, "sched_latency_ns"))

	s.dispatch(Event{Kind: EventPower, OnAC: true})
	assert.Equal(t, "9", readKnob(t, root, "sched_latency_ns"), "pin persists")

	s.dispatch(Event{Kind: EventSetProfile, Profile: "auto"})
	assert.Equal(t, "1", readKnob(t, root, "sched_latency_ns"))
}

// Cancellation drains the already-received backlog, then reverts tracked
// pids when the configuration asks for it.
func TestRunDrainsAndRevertsOnExit(t *testing.T) {
	cfg := testConfig()
	cfg.RevertOnExit = true
	cfg.Assignments = []config.AssignmentRule{
		{Name: "rustc", Profile: "compilers"},
	}
	s, w := newTestService(t, cfg)
	w.addProcess(1, 0, "init", "/sbin/init")
	w.addProcess(101, 1, "rustc", "/usr/lib/rust/rustc")
	w.attrs[101] = procfs.Attrs{Nice: 4}

	s.Queue().Push(Event{Kind: EventExec, Pid: 101, ParentPid: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	require.GreaterOrEqual(t, len(w.applies), 2)
	profile, _ := w.lastApply(101)
	assert.Equal(t, 4, *profile.Nice, "original attributes restored on exit")
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
