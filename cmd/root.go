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

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pop-os/system76-scheduler/config"
)

const (
	prog    = "system76-scheduler"
	version = "2.0.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   fmt.Sprintf("%s [command [arguments]]", prog),
	Short: "Adjust process scheduling in response to power state and desktop activity",
	Long: `system76-scheduler is a privileged service that continuously classifies the
running processes against a configured rule set and applies the matching
scheduling attributes: CPU niceness, kernel scheduling policy and priority,
and I/O priority.

The focused application and its descendants are boosted above background
work, processes holding an audio session keep a dedicated profile, and the
kernel's fair scheduler parameters follow the AC or battery power state.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	fatal(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	fs := rootCmd.PersistentFlags()
	fs.String("config", "", "configuration `directory`")
	fs.BoolP("verbose", "v", false, "be verbose")
	fs.BoolP("quiet", "q", false, "suppress additional output")
	fs.BoolP("debug", "D", false, "show debug output")
	fs.MarkHidden("debug")
	fs.SortFlags = false
	rootCmd.MarkFlagsMutuallyExclusive("quiet", "verbose")

	viper.BindPFlags(fs)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(cpuCmd)
}

// initConfig resolves the configuration search path and the log level.
func initConfig() {
	viper.SetDefault("confdir", config.SystemConfPath)
	viper.SetDefault("distdir", config.DistributionPath)
	viper.SetEnvPrefix(prog)
	viper.AutomaticEnv()

	if path := viper.GetString("config"); path != "" {
		if expanded, err := homedir.Expand(path); err == nil {
			path = expanded
		}
		viper.Set("confdir", path)
	}

	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	switch {
	case viper.GetBool("debug"):
		log.SetLevel(log.DebugLevel)
	case viper.GetBool("quiet"):
		log.SetLevel(log.ErrorLevel)
	case viper.GetBool("verbose"):
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
