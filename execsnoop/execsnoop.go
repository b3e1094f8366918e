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

// Package execsnoop streams process creations from the eBPF exec tracer.
// The stream is lossy by design; the daemon's periodic sweep remains the
// source of truth and this feed only shortens the latency of a first apply.
package execsnoop

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	log "github.com/sirupsen/logrus"
)

// Path to the execsnoop-bpfcc binary from bpfcc-tools. Overridden at build
// time with -ldflags "-X .../execsnoop.Path=..."; the EXECSNOOP_PATH
// environment variable wins at runtime.
var Path = "/usr/sbin/execsnoop-bpfcc"

func binary() string {
	if env := os.Getenv("EXECSNOOP_PATH"); env != "" {
		return env
	}
	return Path
}

// Process is one parsed exec event.
type Process struct {
	Comm      string
	Pid       int
	ParentPid int
	Exe       string
	Cmdline   string
}

// parseLine decodes one tracer output line: PCOMM PID PPID RET ARGS...
// Failed execs and the column header yield false.
func parseLine(line string) (p Process, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return
	}
	var err error
	if p.Pid, err = strconv.Atoi(fields[1]); err != nil {
		return
	}
	if p.ParentPid, err = strconv.Atoi(fields[2]); err != nil {
		return
	}
	if fields[3] != "0" {
		return
	}
	p.Comm = fields[0]
	p.Cmdline = strings.Join(fields[4:], " ")
	if argv, err := shellquote.Split(p.Cmdline); err == nil && len(argv) > 0 {
		p.Exe = argv[0]
	} else if len(fields) > 4 {
		p.Exe = fields[4]
	}
	return p, true
}

// Watch spawns the tracer and streams its events until ctx is cancelled or
// the tracer exits. A dying tracer closes the channel; the caller keeps
// running with the sweep covering for it.
func Watch(ctx context.Context) (<-chan Process, error) {
	cmd := exec.CommandContext(ctx, binary())
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	cmd.Stderr = nil
	cmd.Stdin = nil
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	events := make(chan Process, 64)
	go func() {
		defer close(events)
		defer func() {
			_ = cmd.Wait()
		}()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 16*1024), 16*1024)
		for scanner.Scan() {
			if p, ok := parseLine(scanner.Text()); ok {
				select {
				case events <- p:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("exec event stream broke")
		}
	}()
	return events, nil
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
