package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/abhisek/signcoach/internal/decision"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		v := version
		if v == "(devel)" {
			if info, ok := debug.ReadBuildInfo(); ok && semver.IsValid(info.Main.Version) {
				v = info.Main.Version
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "signcoach", v)
		fmt.Fprintln(cmd.OutOrStdout(), "model artifact format", decision.SupportedFormatMajor+".x")
	},
}
