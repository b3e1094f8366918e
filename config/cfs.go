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
package config

import "github.com/pkg/errors"

// CfsParams are written as-is to the fair scheduler tunables. Durations are
// nanoseconds except BandwidthSize, which the kernel takes in microseconds.
type CfsParams struct {
	Latency           uint64 `yaml:"latency"`
	MinGranularity    uint64 `yaml:"min-granularity"`
	WakeupGranularity uint64 `yaml:"wakeup-granularity"`
	MigrationCost     uint64 `yaml:"migration-cost"`
	BandwidthSize     uint64 `yaml:"bandwidth-size"`
}

// Stock kernel values.
var CfsDefault = CfsParams{
	Latency:           6_000_000,
	MinGranularity:    750_000,
	WakeupGranularity: 1_000_000,
	MigrationCost:     500_000,
	BandwidthSize:     5_000,
}

// Lower latencies for desktop responsiveness on AC power.
var CfsResponsive = CfsParams{
	Latency:           4_000_000,
	MinGranularity:    500_000,
	WakeupGranularity: 500_000,
	MigrationCost:     250_000,
	BandwidthSize:     3_000,
}

// CfsTuning maps power states to fair scheduler parameters. Profiles holds
// every named parameter set the bus can select; AC and Battery are the two
// the power source switches between.
type CfsTuning struct {
	AC       CfsParams
	Battery  CfsParams
	Profiles map[string]CfsParams
}

func defaultCfsTuning() CfsTuning {
	return CfsTuning{
		AC:      CfsResponsive,
		Battery: CfsDefault,
		Profiles: map[string]CfsParams{
			"default":    CfsDefault,
			"responsive": CfsResponsive,
		},
	}
}

type rawCfs struct {
	ACProfile      string               `yaml:"ac-profile,omitempty"`
	BatteryProfile string               `yaml:"battery-profile,omitempty"`
	Profiles       map[string]CfsParams `yaml:"profiles,omitempty"`
}

func (raw rawCfs) toTuning() (tuning CfsTuning, err error) {
	tuning = defaultCfsTuning()
	for name, params := range raw.Profiles {
		tuning.Profiles[name] = params
	}
	ac, battery := raw.ACProfile, raw.BatteryProfile
	if ac == "" {
		ac = "responsive"
	}
	if battery == "" {
		battery = "default"
	}
	var ok bool
	if tuning.AC, ok = tuning.Profiles[ac]; !ok {
		return tuning, errors.Errorf("cfs ac-profile %q not defined", ac)
	}
	if tuning.Battery, ok = tuning.Profiles[battery]; !ok {
		return tuning, errors.Errorf("cfs battery-profile %q not defined", battery)
	}
	return
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
