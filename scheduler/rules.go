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
	"github.com/cloudflare/ahocorasick"
	"github.com/pop-os/system76-scheduler/config"
	"github.com/pop-os/system76-scheduler/procfs"
)

// The kernel truncates comm to 15 characters, so name rules are indexed the
// same way.
const commLen = 15

func truncComm(name string) string {
	if len(name) > commLen {
		return name[:commLen]
	}
	return name
}

type ruleIndex struct {
	byExe  map[string][]*config.AssignmentRule
	byName map[string][]*config.AssignmentRule
	// Wildcards are walked one by one, in configuration order.
	wildcards []*config.AssignmentRule
}

func newRuleIndex(rules []config.AssignmentRule) *ruleIndex {
	index := &ruleIndex{
		byExe:  make(map[string][]*config.AssignmentRule),
		byName: make(map[string][]*config.AssignmentRule),
	}
	for i := range rules {
		rule := &rules[i]
		switch {
		case rule.Exe != "":
			index.byExe[rule.Exe] = append(index.byExe[rule.Exe], rule)
		case rule.Name != "":
			key := truncComm(rule.Name)
			index.byName[key] = append(index.byName[key], rule)
		default:
			index.wildcards = append(index.wildcards, rule)
		}
	}
	return index
}

// matchExe returns the first exe rule whose conditions accept the process.
func (index *ruleIndex) matchExe(info procfs.ProcInfo) *config.AssignmentRule {
	for _, rule := range index.byExe[info.ExePath] {
		if rule.ConditionsMatch(info.CgroupPath, info.ParentComm) {
			return rule
		}
	}
	return nil
}

func (index *ruleIndex) matchName(info procfs.ProcInfo) *config.AssignmentRule {
	for _, rule := range index.byName[info.Comm] {
		if rule.ConditionsMatch(info.CgroupPath, info.ParentComm) {
			return rule
		}
	}
	return nil
}

func (index *ruleIndex) matchWildcard(info procfs.ProcInfo) *config.AssignmentRule {
	for _, rule := range index.wildcards {
		if rule.ConditionsMatch(info.CgroupPath, info.ParentComm) {
			return rule
		}
	}
	return nil
}

// match walks the index in the load-bearing order: exe, then name, then
// wildcards. First match wins.
func (index *ruleIndex) match(info procfs.ProcInfo) *config.AssignmentRule {
	if rule := index.matchExe(info); rule != nil {
		return rule
	}
	if rule := index.matchName(info); rule != nil {
		return rule
	}
	return index.matchWildcard(info)
}

// RuleSet is the compiled, immutable form of the configured assignments and
// exceptions. It is freely shareable after Compile.
type RuleSet struct {
	assignments *ruleIndex
	exceptions  *ruleIndex

	// prefilter rejects processes that cannot match any exact rule without
	// touching the indices; it covers nothing when wildcard rules exist.
	prefilter *ahocorasick.Matcher
	usable    bool
}

func Compile(cfg *config.Config) *RuleSet {
	rs := &RuleSet{
		assignments: newRuleIndex(cfg.Assignments),
		exceptions:  newRuleIndex(cfg.Exceptions),
	}
	if len(rs.assignments.wildcards) == 0 && len(rs.exceptions.wildcards) == 0 {
		var patterns []string
		for _, index := range []*ruleIndex{rs.assignments, rs.exceptions} {
			for exe := range index.byExe {
				patterns = append(patterns, exe)
			}
			for name := range index.byName {
				patterns = append(patterns, name)
			}
		}
		if len(patterns) > 0 {
			rs.prefilter = ahocorasick.NewStringMatcher(patterns)
			rs.usable = true
		}
	}
	return rs
}

type DecisionKind int

const (
	// Unassigned leaves the kernel defaults alone unless a boost says
	// otherwise.
	Unassigned DecisionKind = iota
	// Assigned applies the named profile.
	Assigned
	// Exempt forbids touching the pid for its lifetime in the store.
	Exempt
)

type Decision struct {
	Kind    DecisionKind
	Profile string
}

// Classify decides the winning rule for a process. Exceptions are evaluated
// before any assignment; within each group exe matches beat name matches
// beat wildcards, and configuration order breaks ties. The result depends
// only on the ProcInfo and the frozen rule set.
func (rs *RuleSet) Classify(info procfs.ProcInfo) Decision {
	if rs.usable {
		if hits := rs.prefilter.Match([]byte(info.ExePath + "\x00" + info.Comm)); len(hits) == 0 {
			return Decision{Kind: Unassigned}
		}
	}
	if rule := rs.exceptions.match(info); rule != nil {
		return Decision{Kind: Exempt}
	}
	if rule := rs.assignments.match(info); rule != nil {
		return Decision{Kind: Assigned, Profile: rule.Profile}
	}
	return Decision{Kind: Unassigned}
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
