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

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DistributionPath = "/usr/share/system76-scheduler/"
	SystemConfPath   = "/etc/system76-scheduler/"
	MainConfName     = "config.yaml"
)

// Config is the fully loaded state the daemon runs on. It is read-only after
// Load; restart to reconfigure.
type Config struct {
	Autogroup    bool
	Enable       bool
	Execsnoop    bool
	RefreshRate  time.Duration
	QueueSize    int
	RevertOnExit bool

	ForegroundProfileName string
	BackgroundProfileName string
	PipewireProfileName   string

	Profiles    map[string]Profile
	Assignments []AssignmentRule
	Exceptions  []AssignmentRule
	Cfs         CfsTuning
}

// Profile looks a profile up by name in the flattened table.
func (cfg *Config) Profile(name string) (Profile, bool) {
	p, ok := cfg.Profiles[name]
	return p, ok
}

// ForegroundEnabled reports whether focus boosting is configured.
func (cfg *Config) ForegroundEnabled() bool {
	return cfg.ForegroundProfileName != ""
}

// PipewireEnabled reports whether audio-session boosting is configured.
func (cfg *Config) PipewireEnabled() bool {
	return cfg.PipewireProfileName != ""
}

type rawConfig struct {
	Autogroup *bool `yaml:"autogroup,omitempty"`

	Scheduler struct {
		Enable            *bool  `yaml:"enable,omitempty"`
		Execsnoop         *bool  `yaml:"execsnoop,omitempty"`
		RefreshRate       *int   `yaml:"refresh-rate,omitempty"`
		QueueSize         *int   `yaml:"queue-size,omitempty"`
		RevertOnExit      *bool  `yaml:"revert-on-exit,omitempty"`
		ForegroundProfile string `yaml:"foreground-profile,omitempty"`
		BackgroundProfile string `yaml:"background-profile,omitempty"`
		PipewireProfile   string `yaml:"pipewire-profile,omitempty"`
	} `yaml:"process-scheduler,omitempty"`

	Cfs rawCfs `yaml:"cfs,omitempty"`

	Profiles    []rawProfile     `yaml:"profiles,omitempty"`
	Assignments []AssignmentRule `yaml:"assignments,omitempty"`
	Exceptions  []AssignmentRule `yaml:"exceptions,omitempty"`
}

type fragment struct {
	Assignments []AssignmentRule `yaml:"assignments,omitempty"`
	Exceptions  []AssignmentRule `yaml:"exceptions,omitempty"`
}

// Load reads the main configuration plus the assignment and exception
// drop-ins. The system path fully overrides the distribution path when a
// main config exists there; fragments from both paths are appended,
// distribution first, each directory in lexicographic filename order.
func Load() (*Config, error) {
	return LoadPaths(SystemConfPath, DistributionPath)
}

func LoadPaths(systemPath, distPath string) (*Config, error) {
	cfg := &Config{
		Autogroup:   true,
		Enable:      true,
		Execsnoop:   true,
		RefreshRate: 60 * time.Second,
		QueueSize:   512,
		Profiles:    make(map[string]Profile),
		Cfs:         defaultCfsTuning(),
	}

	main := filepath.Join(systemPath, MainConfName)
	if _, err := os.Stat(main); os.IsNotExist(err) {
		main = filepath.Join(distPath, MainConfName)
	}
	if data, err := os.ReadFile(main); err == nil {
		if err := cfg.mergeMain(data); err != nil {
			return nil, errors.Wrap(err, main)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, main)
	}

	for _, root := range []string{distPath, systemPath} {
		for _, dir := range []string{"assignments.d", "exceptions.d"} {
			if err := cfg.mergeFragments(filepath.Join(root, dir)); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) mergeMain(data []byte) error {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Autogroup != nil {
		cfg.Autogroup = *raw.Autogroup
	}
	s := raw.Scheduler
	if s.Enable != nil {
		cfg.Enable = *s.Enable
	}
	if s.Execsnoop != nil {
		cfg.Execsnoop = *s.Execsnoop
	}
	if s.RefreshRate != nil {
		if *s.RefreshRate < 1 {
			return errors.Errorf("refresh-rate %d is not positive", *s.RefreshRate)
		}
		cfg.RefreshRate = time.Duration(*s.RefreshRate) * time.Second
	}
	if s.QueueSize != nil {
		if *s.QueueSize < 16 {
			return errors.Errorf("queue-size %d is too small", *s.QueueSize)
		}
		cfg.QueueSize = *s.QueueSize
	}
	if s.RevertOnExit != nil {
		cfg.RevertOnExit = *s.RevertOnExit
	}
	cfg.ForegroundProfileName = s.ForegroundProfile
	cfg.BackgroundProfileName = s.BackgroundProfile
	cfg.PipewireProfileName = s.PipewireProfile

	profiles, err := resolveProfiles(raw.Profiles)
	if err != nil {
		return err
	}
	cfg.Profiles = profiles
	cfg.Assignments = append(cfg.Assignments, raw.Assignments...)
	cfg.Exceptions = append(cfg.Exceptions, raw.Exceptions...)
	if cfg.Cfs, err = raw.Cfs.toTuning(); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) mergeFragments(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, dir)
	}
	var names []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".yaml") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, path)
		}
		var frag fragment
		if err := yaml.Unmarshal(data, &frag); err != nil {
			return errors.Wrap(err, path)
		}
		cfg.Assignments = append(cfg.Assignments, frag.Assignments...)
		cfg.Exceptions = append(cfg.Exceptions, frag.Exceptions...)
	}
	return nil
}

func (cfg *Config) validate() error {
	for i := range cfg.Assignments {
		rule := &cfg.Assignments[i]
		if err := rule.validate(false); err != nil {
			return err
		}
		if _, ok := cfg.Profiles[rule.Profile]; !ok {
			return errors.Errorf("assignment names unknown profile %q", rule.Profile)
		}
	}
	for i := range cfg.Exceptions {
		if err := cfg.Exceptions[i].validate(true); err != nil {
			return err
		}
	}
	for key, name := range map[string]string{
		"foreground-profile": cfg.ForegroundProfileName,
		"background-profile": cfg.BackgroundProfileName,
		"pipewire-profile":   cfg.PipewireProfileName,
	} {
		if name == "" {
			continue
		}
		if _, ok := cfg.Profiles[name]; !ok {
			return errors.Errorf("%s names unknown profile %q", key, name)
		}
	}
	if cfg.ForegroundProfileName != "" && cfg.BackgroundProfileName == "" {
		return errors.New("foreground-profile requires background-profile")
	}
	return nil
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
