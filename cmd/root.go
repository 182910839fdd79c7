// =============================================================================
// Payroll Intake - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (intake)
//   ├── processCmd  (intake process)
//   ├── validateCmd (intake validate)
//   ├── inspectCmd  (intake inspect <file> --kind <kind>)
//   ├── normCmd     (intake norm <period>)
//   └── versionCmd  (intake version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads .env from the working directory, if present
//   2. Loads the main configuration (defaults when the default config.yaml
//      does not exist) and applies INTAKE_* overrides
//   3. Loads the keyword vocabulary
//   4. Builds the zap logger (--verbose switches to debug)
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/payroll-intake/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// Set by the root command before a subcommand runs.
var (
	logger    *zap.Logger
	appConfig *config.MainConfig
	vocab     config.Vocabulary
)

const defaultConfigFile = "config.yaml"

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Payroll Intake - monthly spreadsheet extraction and reconciliation",
	Long: `Payroll Intake reads the six monthly spreadsheets of a retail chain
(staff roster, attendance schedule, bonus item catalog, pay-rule table,
sales ledger and special-order ledger), recovers their layout, and joins
them by employee name into one record per employee for the payroll
calculation.

Example Usage:
  intake process                       # Process the files in the input directory
  intake process --shop-norm 160       # Override the shop hour norm
  intake validate                      # Check every source without integrating
  intake inspect sales.xlsx --kind sales
  intake norm "с 01.02.2025 по 28.02.2025"`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return initialize(cmd)
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
// Interrupts cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		defaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// initialize loads .env, the configuration, the vocabulary and the logger.
func initialize(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := loadConfig(cfgFile, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	appConfig = cfg

	vocab, err = config.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return err
	}

	logger, err = newLogger(cfg, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Debug("configuration loaded",
		zap.String("config", cfgFile),
		zap.String("input_dir", cfg.InputDir),
		zap.String("vocabulary", cfg.VocabularyFile))
	return nil
}

// loadConfig reads path. A missing file falls back to the defaults unless
// the path was given explicitly.
func loadConfig(path string, explicit bool) (*config.MainConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		cfg := config.Default()
		if err := config.Finalize(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.LoadMainConfig(path)
}

// newLogger builds the production logger at the configured level, also
// writing to the configured log file.
func newLogger(cfg *config.MainConfig, debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	if debug {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.LogFile != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.LogFile)
	}
	return zc.Build()
}
