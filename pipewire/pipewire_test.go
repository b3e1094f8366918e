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
package pipewire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcessEvent(t *testing.T) {
	ev, ok := ParseProcessEvent("add 1234")
	require.True(t, ok)
	assert.Equal(t, ProcessEvent{Pid: 1234, Active: true}, ev)

	ev, ok = ParseProcessEvent("rem 1234")
	require.True(t, ok)
	assert.Equal(t, ProcessEvent{Pid: 1234, Active: false}, ev)
}

func TestParseProcessEventRejectsGarbage(t *testing.T) {
	for _, line := range []string{"", "add", "add x", "del 12", "add 12 34 extra"} {
		_, ok := ParseProcessEvent(line)
		assert.False(t, ok, "line %q", line)
	}
}

func TestProcessEventRoundTrip(t *testing.T) {
	for _, ev := range []ProcessEvent{
		{Pid: 1, Active: true},
		{Pid: 99999, Active: false},
	} {
		parsed, ok := ParseProcessEvent(ev.String())
		require.True(t, ok)
		assert.Equal(t, ev, parsed)
	}
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
