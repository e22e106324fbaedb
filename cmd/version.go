package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "1.0.0"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// versionInfo is the --json form of the version command.
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long: `Print the TraceLens build version.
The version string is the same one reported by GET /api/v1/health.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{Version: Version, Commit: CommitSHA, BuildDate: BuildDate}
		if mustGetBool(cmd, "json") {
			return outputJSON(info)
		}
		fmt.Printf("tracelens %s\n", info.Version)
		fmt.Printf("  Commit: %s\n", info.Commit)
		fmt.Printf("  Built:  %s\n", info.BuildDate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().Bool("json", false, "Output version information as JSON")
}
