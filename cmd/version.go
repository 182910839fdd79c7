// =============================================================================
// Payroll Intake - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   intake version [--short]
//
// OUTPUT:
//   Payroll Intake
//   Version:    1.0.0
//   Commit:     3f2c1ab
//   Build Date: 2025-03-01
//   Go Version: go1.24.0
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, set with ldflags:
//
//	go build -ldflags "-X 'github.com/ginjaninja78/payroll-intake/cmd.Version=1.0.0' \
//	  -X 'github.com/ginjaninja78/payroll-intake/cmd.Commit=$(git rev-parse --short HEAD)'"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, Version)
			return
		}
		fmt.Fprintln(out, "Payroll Intake")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Commit:     %s\n", Commit)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}
