// =============================================================================
// Payroll Intake - Configuration Module
// =============================================================================
//
// This module loads the main application configuration and the keyword
// vocabulary used by the parsers.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, norms, source file patterns
//   2. Vocabulary (vocabulary.yaml or vocabulary.toml): header keywords,
//      section markers and blocklists. Optional; built-in defaults apply.
//   3. Environment (.env and INTAKE_* variables): overrides for the values
//      operators change month to month (norms, directories, log level)
//
// PRECEDENCE:
//   defaults < config.yaml < environment < command line flags
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for the six monthly source files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the integrated record set and the logs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives the source files after a successful run.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every output file.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// VocabularyFile is an optional YAML or TOML keyword vocabulary.
	VocabularyFile string `yaml:"vocabulary_file"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an additional log destination. Empty logs to stderr only.
	LogFile string `yaml:"log_file"`

	// LogLevel: "debug", "info", "warn", "error". Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputName is the base name of output files, without extension.
	// Placeholders: {uuid}, {timestamp}, {date}, {period}
	// Default: "payroll_{period}_{timestamp}"
	OutputName string `yaml:"output_name"`

	// ExportFormats lists the formats written: "xlsx", "csv".
	// Default: ["xlsx"]
	ExportFormats []string `yaml:"export_formats"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of source files parsed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps going when the optional order ledger fails.
	// Required sources always stop the run.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// ArchiveInputs moves the sources to InputArchiveDir after success.
	ArchiveInputs bool `yaml:"archive_inputs"`

	// Encoding of CSV and XLS input. Default: "utf-8"
	Encoding string `yaml:"encoding"`

	// CSVDelimiter; empty auto-detects.
	CSVDelimiter string `yaml:"csv_delimiter"`

	// PayRuleScalarCell is the cell of the pay-rule sheet holding the base
	// office amount. Default: "I2"
	PayRuleScalarCell string `yaml:"pay_rule_scalar_cell"`

	Norms   NormSettings   `yaml:"norms"`
	Sources SourcePatterns `yaml:"sources"`
}

// NormSettings holds the externally supplied hour norms.
type NormSettings struct {
	// ShopHours overrides the shop norm. 0 derives it from the schedule period.
	ShopHours float64 `yaml:"shop_hours"`

	// OfficeHours is the office norm. Default: 168
	OfficeHours float64 `yaml:"office_hours"`
}

// SourcePatterns holds case-insensitive glob patterns per source kind,
// matched against file base names in InputDir.
type SourcePatterns struct {
	Roster     []string `yaml:"roster"`
	Attendance []string `yaml:"attendance"`
	Catalog    []string `yaml:"catalog"`
	PayRules   []string `yaml:"pay_rules"`
	Sales      []string `yaml:"sales"`
	Orders     []string `yaml:"orders"`
}

// DefaultOfficeHours is the office norm when none is configured.
const DefaultOfficeHours = 168.0

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var c MainConfig
	applyMainConfigDefaults(&c)
	return &c
}

// LoadMainConfig loads the main configuration from a YAML file, then applies
// defaults and INTAKE_* environment overrides.
//
// RETURNS:
//   - The configuration.
//   - An error if the file cannot be read, parsed or fails validation.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := ApplyEnv(&config, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputName == "" {
		config.OutputName = "payroll_{period}_{timestamp}"
	}
	if len(config.ExportFormats) == 0 {
		config.ExportFormats = []string{"xlsx"}
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.ContinueOnError == nil {
		yes := true
		config.ContinueOnError = &yes
	}
	if config.Encoding == "" {
		config.Encoding = "utf-8"
	}
	if config.PayRuleScalarCell == "" {
		config.PayRuleScalarCell = "I2"
	}
	if config.Norms.OfficeHours == 0 {
		config.Norms.OfficeHours = DefaultOfficeHours
	}

	s := &config.Sources
	if len(s.Roster) == 0 {
		s.Roster = []string{"*штат*", "*сотрудник*", "*staff*", "*roster*"}
	}
	if len(s.Attendance) == 0 {
		s.Attendance = []string{"*график*", "*табель*", "*schedule*", "*attendance*"}
	}
	if len(s.Catalog) == 0 {
		s.Catalog = []string{"*бонус*", "*bonus*", "*catalog*"}
	}
	if len(s.PayRules) == 0 {
		s.PayRules = []string{"*урс*", "*urs*", "*pay_rules*"}
	}
	if len(s.Sales) == 0 {
		s.Sales = []string{"*продаж*", "*sales*"}
	}
	if len(s.Orders) == 0 {
		s.Orders = []string{"*заказ*", "*zakaz*", "*orders*"}
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	var errs []error

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", config.LogLevel))
	}

	for _, f := range config.ExportFormats {
		if f != "xlsx" && f != "csv" {
			errs = append(errs, fmt.Errorf("export format %q is not supported", f))
		}
	}

	if config.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency))
	}
	if config.Norms.OfficeHours <= 0 {
		errs = append(errs, fmt.Errorf("norms.office_hours must be positive, got %g", config.Norms.OfficeHours))
	}
	if config.Norms.ShopHours < 0 {
		errs = append(errs, fmt.Errorf("norms.shop_hours must not be negative, got %g", config.Norms.ShopHours))
	}
	if _, _, err := excelize.CellNameToCoordinates(config.PayRuleScalarCell); err != nil {
		errs = append(errs, fmt.Errorf("pay_rule_scalar_cell: %w", err))
	}

	return errors.Join(errs...)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnv overrides configuration values from INTAKE_* variables.
// lookup is usually os.LookupEnv.
func ApplyEnv(config *MainConfig, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"INTAKE_INPUT_DIR":       &config.InputDir,
		"INTAKE_OUTPUT_DIR":      &config.OutputDir,
		"INTAKE_LOG_LEVEL":       &config.LogLevel,
		"INTAKE_LOG_FILE":        &config.LogFile,
		"INTAKE_VOCABULARY_FILE": &config.VocabularyFile,
		"INTAKE_ENCODING":        &config.Encoding,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	num := map[string]*float64{
		"INTAKE_SHOP_NORM":   &config.Norms.ShopHours,
		"INTAKE_OFFICE_NORM": &config.Norms.OfficeHours,
	}
	for name, dst := range num {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", name, v)
		}
		*dst = f
	}

	if v, ok := lookup("INTAKE_MAX_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("INTAKE_MAX_CONCURRENCY: %q is not an integer", v)
		}
		config.MaxConcurrency = n
	}

	return nil
}

// Finalize applies defaults, environment overrides and validation to a
// configuration built in code (see Default).
func Finalize(config *MainConfig) error {
	applyMainConfigDefaults(config)
	if err := ApplyEnv(config, os.LookupEnv); err != nil {
		return err
	}
	if err := validateMainConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
