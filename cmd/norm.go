// =============================================================================
// Payroll Intake - Norm Command
// =============================================================================
//
// This file defines the 'norm' command, which prints the hour norms a run
// would use for a period.
//
// COMMAND USAGE:
//   intake norm "с 01.02.2025 по 28.02.2025"
//
// OUTPUT:
//   Period:      01.02.2025 - 28.02.2025 (28 days)
//   Shop norm:   160.0
//   Office norm: 168.0
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/payroll-intake/internal/hournorm"
)

var normCmd = &cobra.Command{
	Use:   "norm <period>",
	Short: "Print the shop and office hour norms for a period",
	Long: `Norm reads the first two dates of the period text (dd.mm.yy or
dd.mm.yyyy) and prints the shop norm derived from its calendar length,
days / 7 * 5 * 8 rounded down to one decimal. A shop norm set in the
configuration takes precedence, as it does in 'process'.`,
	Args: cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return runNorm(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(normCmd)
}

func runNorm(cmd *cobra.Command, text string) error {
	shop, period, err := hournorm.ShopNormFromText(text)
	if err != nil {
		return err
	}

	source := "period"
	if appConfig.Norms.ShopHours > 0 {
		shop, source = appConfig.Norms.ShopHours, "config"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Period:      %s (%d days)\n", period, period.Days())
	fmt.Fprintf(out, "Shop norm:   %.1f (%s)\n", shop, source)
	fmt.Fprintf(out, "Office norm: %.1f (config)\n", appConfig.Norms.OfficeHours)
	return nil
}
