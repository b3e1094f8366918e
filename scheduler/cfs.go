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
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/pop-os/system76-scheduler/config"
)

const (
	knobLatency           = "sched_latency_ns"
	knobMinGranularity    = "sched_min_granularity_ns"
	knobWakeupGranularity = "sched_wakeup_granularity_ns"
	knobMigrationCost     = "sched_migration_cost_ns"
	knobBandwidthSize     = "sched_cfs_bandwidth_slice_us"
	knobAutogroup         = "sched_autogroup_enabled"
)

// CfsTuner writes the fair scheduler tunables under /proc/sys/kernel.
// Kernel versions vary in which knobs exist; a missing knob is warned about
// once and skipped afterwards.
type CfsTuner struct {
	root    string
	missing map[string]bool
}

func NewCfsTuner() *CfsTuner {
	return NewCfsTunerAt("/proc/sys/kernel")
}

func NewCfsTunerAt(root string) *CfsTuner {
	return &CfsTuner{root: root, missing: make(map[string]bool)}
}

// Apply writes exactly the five parameter values, as-is, to their knobs.
func (t *CfsTuner) Apply(params config.CfsParams) {
	t.write(knobLatency, params.Latency)
	t.write(knobMinGranularity, params.MinGranularity)
	t.write(knobWakeupGranularity, params.WakeupGranularity)
	t.write(knobMigrationCost, params.MigrationCost)
	t.write(knobBandwidthSize, params.BandwidthSize)
}

// EnableAutogroup flips the kernel's nice autogrouping.
func (t *CfsTuner) EnableAutogroup(enable bool) {
	var value uint64
	if enable {
		value = 1
	}
	t.write(knobAutogroup, value)
}

func (t *CfsTuner) write(knob string, value uint64) {
	if t.missing[knob] {
		return
	}
	path := filepath.Join(t.root, knob)
	err := os.WriteFile(path, []byte(strconv.FormatUint(value, 10)), 0o644)
	if err == nil {
		return
	}
	if os.IsNotExist(err) {
		t.missing[knob] = true
		log.WithField("knob", knob).Warn("kernel lacks tunable, skipping")
		return
	}
	log.WithField("knob", knob).WithError(err).Warn("cannot write tunable")
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
