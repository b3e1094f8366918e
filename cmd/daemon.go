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
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/pop-os/system76-scheduler/bus"
	"github.com/pop-os/system76-scheduler/config"
	"github.com/pop-os/system76-scheduler/execsnoop"
	"github.com/pop-os/system76-scheduler/pipewire"
	"github.com/pop-os/system76-scheduler/procfs"
	"github.com/pop-os/system76-scheduler/scheduler"
)

// The scheduler waits for the desktop to settle before the first sweep.
const minUptime = 10 * time.Second

// Exec events are handled with a delay so the new process has landed in its
// cgroup before classification reads it.
const execSettle = 2 * time.Second

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Launch the system daemon",
	Long: `Launch the scheduling daemon. It claims com.system76.Scheduler on the
system bus, then reacts to process creations, focus changes, audio sessions
and power transitions until terminated.`,
	Args:                  cobra.MaximumNArgs(0),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		log.Debug(getCapabilities())
		if !hasSchedCapabilities() {
			fatal(fmt.Errorf("%w: need CAP_SYS_NICE and CAP_SYS_RESOURCE", ErrPermission))
		}
		cfg, err := config.LoadPaths(
			viper.GetString("confdir"), viper.GetString("distdir"),
		)
		if err != nil {
			fatal(fmt.Errorf("%w: %v", ErrParse, err))
		}
		fatal(runDaemon(cfg))
	},
}

func runDaemon(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, unix.SIGTERM,
	)
	defer stop()

	service := scheduler.NewService(cfg)
	queue := service.Queue()

	onBattery, err := bus.OnBattery()
	if err != nil {
		log.WithError(err).Warn("cannot read power state, assuming AC")
	}
	service.Startup(!onBattery)

	server, err := bus.NewServer(queue)
	if err != nil {
		if strings.Contains(err.Error(), "already owned") {
			return fmt.Errorf("%w: %v", ErrAlready, err)
		}
		// The daemon still schedules without a control surface.
		log.WithError(err).Warn("control bus unavailable")
	} else {
		defer server.Close()
	}

	if updates, err := bus.WatchOnBattery(ctx); err != nil {
		log.WithError(err).Warn("cannot watch power transitions")
	} else {
		go func() {
			for onBattery := range updates {
				queue.Push(scheduler.Event{
					Kind: scheduler.EventPower, OnAC: !onBattery,
				})
			}
			log.Warn("power source lost, keeping last state")
		}()
	}

	if cfg.Enable && cfg.Execsnoop {
		if procs, err := execsnoop.Watch(ctx); err != nil {
			log.WithError(err).Warn("cannot start exec tracer, relying on sweep")
		} else {
			go forwardExecEvents(ctx, procs, queue)
		}
	}

	if cfg.Enable && cfg.PipewireEnabled() {
		if sessions, err := pipewire.Monitor(ctx); err != nil {
			log.WithError(err).Warn("cannot start audio session monitor")
		} else {
			go func() {
				for ev := range sessions {
					queue.Push(scheduler.Event{
						Kind: scheduler.EventAudio, Pid: ev.Pid, Active: ev.Active,
					})
				}
				log.Warn("audio session monitor lost")
			}()
		}
	}

	go runSweeps(ctx, cfg.RefreshRate, queue)

	service.Run(ctx)
	return nil
}

// forwardExecEvents paces the tracer feed into the queue, giving every
// process execSettle to be placed in its cgroup. Order is preserved.
func forwardExecEvents(ctx context.Context, procs <-chan execsnoop.Process, queue *scheduler.Queue) {
	for p := range procs {
		due := time.Now().Add(execSettle)
		select {
		case <-time.After(time.Until(due)):
		case <-ctx.Done():
			return
		}
		log.WithFields(log.Fields{"pid": p.Pid, "parent": p.ParentPid}).
			Debugf("%s created", p.Comm)
		queue.Push(scheduler.Event{
			Kind:      scheduler.EventExec,
			Pid:       p.Pid,
			ParentPid: p.ParentPid,
			Comm:      p.Comm,
			Exe:       p.Exe,
		})
	}
	log.Warn("exec tracer exited, relying on sweep")
}

// runSweeps schedules the periodic process table reconciliation, holding the
// first one back until the system has been up for a few seconds.
func runSweeps(ctx context.Context, period time.Duration, queue *scheduler.Queue) {
	if uptime := time.Duration(procfs.Uptime()) * time.Second; uptime < minUptime {
		select {
		case <-time.After(minUptime - uptime):
		case <-ctx.Done():
			return
		}
	}
	queue.Push(scheduler.Event{Kind: scheduler.EventSweep})
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			queue.Push(scheduler.Event{Kind: scheduler.EventSweep})
		case <-ctx.Done():
			return
		}
	}
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
