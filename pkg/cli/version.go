package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BuildInfo carries build-time version information set via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var buildInfo = BuildInfo{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetBuildInfo installs the build information shown by the version
// command. Intended to be called once from main.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("mockidp %s (commit %s, built %s)\n",
			buildInfo.Version, buildInfo.Commit, buildInfo.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
