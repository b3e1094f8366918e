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

	"github.com/spf13/cobra"

	"github.com/pop-os/system76-scheduler/bus"
)

// cpuCmd represents the cpu command
var cpuCmd = &cobra.Command{
	Use:   "cpu [PROFILE]",
	Short: "Select a CFS scheduler profile",
	Long: `Get or set the CFS scheduler profile of the running daemon.

Without an argument the selected profile is printed. PROFILE can be
'default', 'responsive', any profile defined in the configuration, or
'auto' to restore the automatic AC/battery mapping.`,
	Args:                  cobra.MaximumNArgs(1),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			profile, err := bus.CpuProfile()
			fatal(wrapBusError(err))
			fmt.Fprintln(cmd.OutOrStdout(), profile)
			return
		}
		fatal(wrapBusError(bus.SetCpuProfile(args[0])))
	},
}

func wrapBusError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: is the daemon running? %v", ErrNotFound, err)
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
