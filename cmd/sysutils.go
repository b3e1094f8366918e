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
	"fmt"
	"strings"

	"kernel.org/pub/linux/libs/security/libcap/cap"
)

var required = []cap.Value{cap.SYS_NICE, cap.SYS_RESOURCE}

// hasSchedCapabilities reports whether the process may change scheduling
// attributes of arbitrary pids and write the kernel tunables.
func hasSchedCapabilities() bool {
	c := cap.GetProc()
	for _, val := range required {
		if flag, err := c.GetFlag(cap.Effective, val); err != nil || !flag {
			return false
		}
	}
	return true
}

func getCapabilities() string {
	c := cap.GetProc()
	result := []string{fmt.Sprintf("caps: %s", c.String())}
	var buf []string
	for _, val := range required {
		if flag, err := c.GetFlag(cap.Effective, val); err == nil && flag {
			buf = append(buf, val.String())
		}
	}
	result = append(result, fmt.Sprintf("effective: %s", strings.Join(buf, `,`)))
	return strings.Join(result, `, `)
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
