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
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// MatchCondition is an anchored wildmatch pattern ('*' and '?'), negated by
// a leading '!'.
type MatchCondition struct {
	raw     string
	negate  bool
	pattern glob.Glob
}

func NewMatchCondition(spec string) (*MatchCondition, error) {
	cond := &MatchCondition{raw: spec}
	pattern := spec
	if strings.HasPrefix(pattern, "!") {
		cond.negate = true
		pattern = pattern[1:]
	}
	compiled, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "pattern %q", spec)
	}
	cond.pattern = compiled
	return cond, nil
}

// Matches tests the whole input against the pattern.
func (cond *MatchCondition) Matches(input string) bool {
	if cond.pattern.Match(input) {
		return !cond.negate
	}
	return cond.negate
}

func (cond *MatchCondition) String() string {
	return cond.raw
}

func (cond *MatchCondition) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var spec string
	if err := unmarshal(&spec); err != nil {
		return err
	}
	parsed, err := NewMatchCondition(spec)
	if err != nil {
		return err
	}
	*cond = *parsed
	return nil
}

// AssignmentRule binds a process selector to a profile name. Exactly one of
// Exe and Name selects; neither makes the rule a wildcard, matching every
// process its conditions accept. Exceptions reuse the shape without the
// profile.
type AssignmentRule struct {
	Exe     string          `yaml:"exe,omitempty"`
	Name    string          `yaml:"name,omitempty"`
	Profile string          `yaml:"profile,omitempty"`
	Cgroup  *MatchCondition `yaml:"cgroup,omitempty"`
	Parent  *MatchCondition `yaml:"parent,omitempty"`
}

func (r *AssignmentRule) IsWildcard() bool {
	return r.Exe == "" && r.Name == ""
}

// ConditionsMatch evaluates the conjunctive condition set against the
// process cgroup path and parent comm.
func (r *AssignmentRule) ConditionsMatch(cgroup, parentComm string) bool {
	if r.Cgroup != nil && !r.Cgroup.Matches(cgroup) {
		return false
	}
	if r.Parent != nil && !r.Parent.Matches(parentComm) {
		return false
	}
	return true
}

func (r *AssignmentRule) validate(exception bool) error {
	if r.Exe != "" && r.Name != "" {
		return errors.Errorf("rule matches both exe %q and name %q", r.Exe, r.Name)
	}
	if r.Exe != "" && !strings.HasPrefix(r.Exe, "/") {
		return errors.Errorf("exe %q is not an absolute path", r.Exe)
	}
	if exception {
		if r.Profile != "" {
			return errors.Errorf("exception names profile %q", r.Profile)
		}
	} else if r.Profile == "" {
		return errors.New("assignment without a profile")
	}
	return nil
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
