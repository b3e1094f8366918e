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
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/pop-os/system76-scheduler/config"
	"github.com/pop-os/system76-scheduler/procfs"
)

// Service is the event loop owning every piece of mutable state: the
// assignment store, the foreground tracker and the cpu profile pin. All
// mutation happens on the single goroutine running Run; external sources
// only ever touch the queue.
type Service struct {
	cfg   *config.Config
	rules *RuleSet
	store *Store
	fg    *Tracker
	cfs   *CfsTuner
	queue *Queue

	// Pinned named cfs parameter set; "auto" follows the power source.
	cpuProfile string
	onAC       bool

	// Seams for the kernel facing pieces, replaced in tests.
	apply      func(pid int, profile config.Profile)
	readAttrs  func(pid int) (procfs.Attrs, error)
	introspect func(pid int) (procfs.ProcInfo, error)
	snapshot   func() *procfs.Snapshot
	readExe    func(pid int) string
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:        cfg,
		rules:      Compile(cfg),
		store:      NewStore(cfg),
		fg:         NewTracker(),
		cfs:        NewCfsTuner(),
		queue:      NewQueue(cfg.QueueSize),
		cpuProfile: "auto",
		apply:      ApplyProfile,
		readAttrs:  procfs.ReadAttrs,
		introspect: procfs.NewProcInfo,
		snapshot:   procfs.TakeSnapshot,
		readExe:    procfs.GetExePath,
	}
}

// Queue returns the intake the event sources post into.
func (s *Service) Queue() *Queue {
	return s.queue
}

// Startup applies the settings that depend on the initial power state.
func (s *Service) Startup(onAC bool) {
	s.cfs.EnableAutogroup(s.cfg.Autogroup)
	s.onAC = onAC
	s.applyCfs()
}

// Run drains the queue until ctx is cancelled, then finishes the
// already-received backlog and optionally reverts every tracked pid.
// Events are handled to completion, in arrival order, with no preemption.
func (s *Service) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.queue.Close()
	}()
	for {
		ev, ok := s.queue.Pop()
		if !ok {
			break
		}
		s.dispatch(ev)
	}
	s.shutdown()
}

func (s *Service) dispatch(ev Event) {
	switch ev.Kind {
	case EventExec:
		s.handleExec(ev)
	case EventFocus:
		s.handleFocus(ev.Pid)
	case EventAudio:
		s.handleAudio(ev.Pid, ev.Active)
	case EventPower:
		s.handlePower(ev.OnAC)
	case EventSweep:
		s.sweep()
	case EventSetProfile:
		s.handleSetProfile(ev.Profile)
	}
}

// handleExec classifies a newborn process and applies the winning profile.
// The exec stream is lossy and only an optimization for latency; the sweep
// remains the source of truth.
func (s *Service) handleExec(ev Event) {
	if !s.cfg.Enable {
		return
	}
	s.track(ev.Pid)
}

// track introspects one pid and reconciles the store with what it finds.
// Used by both exec events and the sweep.
func (s *Service) track(pid int) {
	info, err := s.introspect(pid)
	if err != nil {
		if !errors.Is(err, procfs.ErrGone) {
			log.WithField("pid", pid).WithError(err).Warn("cannot introspect")
		}
		s.forget(pid)
		return
	}
	if info.IsKernelThread() {
		return
	}
	// An execve of a different image ends the previous tracking life,
	// exemption included; the replacement is classified from scratch.
	if exe, ok := s.store.ExemptExe(pid); ok {
		if exe == info.ExePath {
			return
		}
		s.store.Forget(pid)
	}

	decision := s.rules.Classify(info)
	switch decision.Kind {
	case Exempt:
		s.fg.Drop(pid)
		s.store.MarkExempt(pid, info.ExePath)
	case Assigned:
		entry, tracked := s.store.Lookup(pid)
		if tracked && entry.Exe == info.ExePath && entry.Profile == decision.Profile {
			return
		}
		// A reused or re-exec'd pid replaces the original snapshot;
		// the attributes of the previous image are meaningless now.
		attrs, err := s.readAttrs(pid)
		s.store.Record(pid, decision.Profile, info.ExePath, attrs, err == nil)
		s.applyEffective(pid)
	case Unassigned:
		if entry, tracked := s.store.Lookup(pid); tracked {
			if entry.Exe == info.ExePath {
				return
			}
			// Same pid, different image: the old assignment is void.
			entry.Profile = ""
			entry.Exe = info.ExePath
			s.applyEffectiveOrRevert(pid)
			s.dropIfIdle(pid)
		} else if s.cfg.ForegroundEnabled() &&
			(pid == s.fg.Current || s.fg.Boosted(info.ParentPid)) {
			// Late fork below the focused process joins the boost without
			// waiting for the next focus change.
			s.boost(pid, info)
		}
	}
}

// boost puts a pid under the foreground profile, capturing its attributes
// first so the boost can be unwound later.
func (s *Service) boost(pid int, info procfs.ProcInfo) {
	if _, tracked := s.store.Lookup(pid); !tracked {
		attrs, err := s.readAttrs(pid)
		s.store.Record(pid, "", info.ExePath, attrs, err == nil)
	}
	s.fg.Add(pid)
	s.store.SetForeground(pid, true)
	s.applyEffective(pid)
}

// handleFocus recomputes the boosted closure around the newly focused pid
// and applies the deltas: newcomers get the foreground profile, leavers get
// their effective profile back.
func (s *Service) handleFocus(pid int) {
	if !s.cfg.ForegroundEnabled() {
		return
	}
	boost, unboost := s.fg.Update(pid, s.snapshot())
	for _, p := range unboost {
		s.store.SetForeground(p, false)
		s.applyEffectiveOrRevert(p)
		s.dropIfIdle(p)
	}
	for _, p := range boost {
		if s.store.IsExempt(p) {
			s.fg.Drop(p)
			continue
		}
		if _, tracked := s.store.Lookup(p); !tracked {
			info, err := s.introspect(p)
			if err != nil || info.IsKernelThread() {
				s.fg.Drop(p)
				continue
			}
			decision := s.rules.Classify(info)
			if decision.Kind == Exempt {
				s.fg.Drop(p)
				s.store.MarkExempt(p, info.ExePath)
				continue
			}
			attrs, err := s.readAttrs(p)
			s.store.Record(p, decision.Profile, info.ExePath, attrs, err == nil)
		}
		s.store.SetForeground(p, true)
		s.applyEffective(p)
	}
}

// handleAudio flips the audio boost of one pid. Foreground wins while both
// boosts are set; the composition lives in EffectiveProfile.
func (s *Service) handleAudio(pid int, active bool) {
	if !s.cfg.PipewireEnabled() {
		return
	}
	if s.store.IsExempt(pid) {
		return
	}
	if active {
		if _, tracked := s.store.Lookup(pid); !tracked {
			info, err := s.introspect(pid)
			if err != nil || info.IsKernelThread() {
				return
			}
			decision := s.rules.Classify(info)
			if decision.Kind == Exempt {
				s.store.MarkExempt(pid, info.ExePath)
				return
			}
			attrs, err := s.readAttrs(pid)
			s.store.Record(pid, decision.Profile, info.ExePath, attrs, err == nil)
		}
		s.store.SetAudio(pid, true)
		s.applyEffective(pid)
		return
	}
	if _, tracked := s.store.Lookup(pid); !tracked {
		return
	}
	s.store.SetAudio(pid, false)
	s.applyEffectiveOrRevert(pid)
	s.dropIfIdle(pid)
}

func (s *Service) handlePower(onAC bool) {
	s.onAC = onAC
	// A pinned profile persists across power transitions until cleared.
	if s.cpuProfile == "auto" {
		s.applyCfs()
	}
}

func (s *Service) handleSetProfile(name string) {
	if name == "" || name == "auto" {
		s.cpuProfile = "auto"
		s.applyCfs()
		return
	}
	params, ok := s.cfg.Cfs.Profiles[name]
	if !ok {
		log.WithField("profile", name).Warn("unknown cfs profile")
		return
	}
	s.cpuProfile = name
	s.cfs.Apply(params)
}

func (s *Service) applyCfs() {
	if s.onAC {
		s.cfs.Apply(s.cfg.Cfs.AC)
	} else {
		s.cfs.Apply(s.cfg.Cfs.Battery)
	}
}

// sweep reconciles the store with /proc: forget the dead, classify the
// unseen, and re-validate the exe of long-lived pids to catch an execve
// that no exec event reported.
func (s *Service) sweep() {
	if !s.cfg.Enable {
		return
	}
	snap := s.snapshot()
	for _, pid := range s.store.Pids() {
		if !snap.Alive(pid) {
			s.forget(pid)
		}
	}
	for _, pid := range s.store.ExemptPids() {
		if !snap.Alive(pid) {
			s.forget(pid)
		}
	}
	for _, pid := range snap.Pids() {
		if entry, tracked := s.store.Lookup(pid); tracked {
			if exe := s.readExe(pid); exe == entry.Exe {
				continue
			}
		} else if exe, exempt := s.store.ExemptExe(pid); exempt {
			if cur := s.readExe(pid); cur == exe {
				continue
			}
		}
		s.track(pid)
	}
}

func (s *Service) forget(pid int) {
	s.store.Forget(pid)
	s.fg.Drop(pid)
}

// applyEffective writes the pid's current effective profile, the single
// profile the store invariant says the pid holds.
func (s *Service) applyEffective(pid int) {
	if profile, ok := s.store.EffectiveProfile(pid); ok {
		s.apply(pid, profile)
	}
}

// applyEffectiveOrRevert falls back to the captured snapshot when nothing
// applies anymore. With no snapshot the revert is a no-op.
func (s *Service) applyEffectiveOrRevert(pid int) {
	if profile, ok := s.store.EffectiveProfile(pid); ok {
		s.apply(pid, profile)
		return
	}
	if entry, ok := s.store.Lookup(pid); ok && entry.HasOriginal {
		s.apply(pid, attrsProfile(entry.Original))
	}
}

// dropIfIdle forgets boost-only entries once their last boost is gone, so
// the store converges back to assigned pids.
func (s *Service) dropIfIdle(pid int) {
	if entry, ok := s.store.Lookup(pid); ok &&
		entry.Profile == "" && !entry.boosted() {
		s.store.Forget(pid)
	}
}

// shutdown optionally restores the original attributes of everything still
// tracked. The kernel forgets per-process attributes on exit anyway, so by
// default the last applied values are left in place.
func (s *Service) shutdown() {
	if !s.cfg.RevertOnExit {
		return
	}
	for _, pid := range s.store.Pids() {
		if entry, ok := s.store.Lookup(pid); ok && entry.HasOriginal {
			s.apply(pid, attrsProfile(entry.Original))
		}
	}
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
