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
	log "github.com/sirupsen/logrus"

	"github.com/pop-os/system76-scheduler/config"
	"github.com/pop-os/system76-scheduler/procfs"
)

var kernelPolicy = map[config.SchedPolicy]int{
	config.SchedOther: procfs.SCHED_OTHER,
	config.SchedBatch: procfs.SCHED_BATCH,
	config.SchedIdle:  procfs.SCHED_IDLE,
	config.SchedFifo:  procfs.SCHED_FIFO,
	config.SchedRR:    procfs.SCHED_RR,
}

var kernelIOClass = map[config.IOClass]int{
	config.IOBestEffort: procfs.IOPRIO_CLASS_BE,
	config.IOIdle:       procfs.IOPRIO_CLASS_IDLE,
	config.IORealtime:   procfs.IOPRIO_CLASS_RT,
}

// ApplyProfile writes each set dimension of the profile to every task of the
// pid. Each dimension is best effort; the pid may have exited, or a kernel
// thread may refuse the write. Failures are logged at warn and never abort
// the remaining dimensions.
func ApplyProfile(pid int, profile config.Profile) {
	for _, tid := range procfs.Tasks(pid) {
		if profile.Sched != nil {
			// Only fifo and rr carry an rt priority; the others take zero.
			if err := procfs.Sched_SetScheduler(
				tid, kernelPolicy[profile.Sched.Policy], profile.Sched.Priority,
			); err != nil {
				log.WithFields(log.Fields{"pid": pid, "tid": tid}).
					WithError(err).Warn("cannot set scheduler policy")
			}
		}
		if profile.Nice != nil {
			if err := procfs.SetPriority(tid, *profile.Nice); err != nil {
				log.WithFields(log.Fields{"pid": pid, "tid": tid}).
					WithError(err).Warn("cannot set niceness")
			}
		}
		if profile.IO != nil {
			level := profile.IO.Level
			if profile.IO.Class == config.IOIdle {
				level = 0
			}
			if err := procfs.IOPrio_Set(
				tid, kernelIOClass[profile.IO.Class], level,
			); err != nil {
				log.WithFields(log.Fields{"pid": pid, "tid": tid}).
					WithError(err).Warn("cannot set io priority")
			}
		}
	}
}

// attrsProfile turns a captured snapshot back into a fully-set profile so a
// revert restores every dimension the snapshot saw.
func attrsProfile(attrs procfs.Attrs) config.Profile {
	nice := attrs.Nice
	sched := config.Sched{}
	switch attrs.Policy {
	case procfs.SCHED_BATCH:
		sched.Policy = config.SchedBatch
	case procfs.SCHED_IDLE:
		sched.Policy = config.SchedIdle
	case procfs.SCHED_FIFO:
		sched.Policy = config.SchedFifo
		sched.Priority = attrs.RTPrio
	case procfs.SCHED_RR:
		sched.Policy = config.SchedRR
		sched.Priority = attrs.RTPrio
	default:
		sched.Policy = config.SchedOther
	}
	io := config.IOPrio{Level: attrs.IONice}
	switch attrs.IOClass {
	case procfs.IOPRIO_CLASS_IDLE:
		io = config.IOPrio{Class: config.IOIdle}
	case procfs.IOPRIO_CLASS_RT:
		io.Class = config.IORealtime
	default:
		io.Class = config.IOBestEffort
	}
	return config.Profile{Nice: &nice, Sched: &sched, IO: &io}
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
