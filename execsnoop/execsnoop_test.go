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
package execsnoop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	p, ok := parseLine("cat              12345  12340    0 /bin/cat /etc/hostname")
	require.True(t, ok)
	assert.Equal(t, Process{
		Comm:      "cat",
		Pid:       12345,
		ParentPid: 12340,
		Exe:       "/bin/cat",
		Cmdline:   "/bin/cat /etc/hostname",
	}, p)
}

func TestParseLineSkipsHeader(t *testing.T) {
	_, ok := parseLine("PCOMM            PID    PPID   RET ARGS")
	assert.False(t, ok)
}

func TestParseLineSkipsFailedExec(t *testing.T) {
	_, ok := parseLine("doesnotexist     4242   4240   -2 /bin/doesnotexist")
	assert.False(t, ok)
}

func TestParseLineWithoutArgs(t *testing.T) {
	p, ok := parseLine("true 77 1 0")
	require.True(t, ok)
	assert.Equal(t, "true", p.Comm)
	assert.Empty(t, p.Exe)
}

func TestParseLineGarbage(t *testing.T) {
	_, ok := parseLine("")
	assert.False(t, ok)
	_, ok = parseLine("one two")
	assert.False(t, ok)
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
