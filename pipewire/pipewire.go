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

// Package pipewire carries the wire contract of the audio-session monitor:
// a helper process prints one "add <pid>" or "rem <pid>" line whenever a
// process opens or closes an audio stream.
package pipewire

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// HelperPath locates the session monitor. Overridden at build time with
// -ldflags "-X .../pipewire.HelperPath=..."; the PIPEWIRE_MONITOR_PATH
// environment variable wins at runtime.
var HelperPath = "/usr/lib/system76-scheduler/pipewire-monitor"

func binary() string {
	if env := os.Getenv("PIPEWIRE_MONITOR_PATH"); env != "" {
		return env
	}
	return HelperPath
}

// ProcessEvent reports one pid entering or leaving audio activity.
type ProcessEvent struct {
	Pid    int
	Active bool
}

// ParseProcessEvent decodes one monitor line.
func ParseProcessEvent(line string) (ev ProcessEvent, ok bool) {
	method, rest, found := strings.Cut(strings.TrimSpace(line), " ")
	if !found {
		return
	}
	pid, err := strconv.Atoi(rest)
	if err != nil {
		return
	}
	ev.Pid = pid
	switch method {
	case "add":
		ev.Active = true
	case "rem":
		ev.Active = false
	default:
		return
	}
	return ev, true
}

func (ev ProcessEvent) String() string {
	method := "rem"
	if ev.Active {
		method = "add"
	}
	return fmt.Sprintf("%s %d", method, ev.Pid)
}

// Monitor spawns the helper and streams session deltas until ctx is
// cancelled or the helper exits, which closes the channel.
func Monitor(ctx context.Context) (<-chan ProcessEvent, error) {
	cmd := exec.CommandContext(ctx, binary())
	cmd.Stdin = nil
	cmd.Stderr = nil
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	events := make(chan ProcessEvent, 16)
	go func() {
		defer close(events)
		defer func() {
			_ = cmd.Wait()
		}()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if ev, ok := ParseProcessEvent(scanner.Text()); ok {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("audio session stream broke")
		}
	}()
	return events, nil
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
