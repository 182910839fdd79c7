// =============================================================================
// Payroll Intake - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Payroll Intake CLI application. It
// hands control to the Cobra commands in the cmd package.
//
// USAGE:
//   intake process          - Extract, reconcile and export one month
//   intake validate         - Parse every source and report problems only
//   intake inspect <file>   - Show what one source file yields
//   intake norm <period>    - Print the hour norms for a period
//   intake version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/                 : CLI command definitions (Cobra)
//   - internal/sheet       : xlsx/xls/csv loading into a raw grid
//   - internal/schema      : header and layout recovery
//   - internal/<source>    : one parser per source spreadsheet
//   - internal/integrator  : name-keyed join into per-employee records
//   - internal/pipeline    : orchestration of one run
//   - internal/export      : xlsx/csv output
//   - pkg/utils            : file discovery, archiving, summaries
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/payroll-intake/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
