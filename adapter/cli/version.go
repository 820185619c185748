package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Overridden with -ldflags "-X github.com/felixgeelhaar/taskcal/adapter/cli.Version=...".
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// buildInfo fills in the commit and build time from the VCS stamp Go
// embeds when ldflags did not set them.
func buildInfo() (commit, date string) {
	commit, date = Commit, BuildDate
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, date
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == "":
			commit = s.Value
		case s.Key == "vcs.time" && date == "":
			date = s.Value
		}
	}
	return commit, date
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		commit, date := buildInfo()
		if commit == "" {
			commit = "unknown"
		}
		if date == "" {
			date = "unknown"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "taskcal %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "commit %s, built %s\n", commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
