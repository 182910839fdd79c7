package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/pipeline"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

// setup installs the globals a subcommand expects and returns a command
// writing to buf.
func setup(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.CSVDelimiter = ";"
	require.NoError(t, config.Finalize(cfg))

	appConfig, vocab, logger = cfg, config.DefaultVocabulary(), zaptest.NewLogger(t)

	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	c.SetContext(context.Background())
	return c, &buf
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultOfficeHours, cfg.Norms.OfficeHours)

	_, err = loadConfig(missing, true)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "warn"

	l, err := newLogger(cfg, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = newLogger(cfg, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	cfg.LogLevel = "loud"
	_, err = newLogger(cfg, false)
	assert.Error(t, err)
}

func TestNorm(t *testing.T) {
	c, buf := setup(t)

	require.NoError(t, runNorm(c, "с 01.02.2025 по 28.02.2025"))
	out := buf.String()
	assert.Contains(t, out, "01.02.2025 - 28.02.2025 (28 days)")
	assert.Contains(t, out, "Shop norm:   160.0 (period)")
	assert.Contains(t, out, "Office norm: 168.0 (config)")

	buf.Reset()
	appConfig.Norms.ShopHours = 150
	require.NoError(t, runNorm(c, "с 01.03.25 по 31.03.25"))
	assert.Contains(t, buf.String(), "Shop norm:   150.0 (config)")

	assert.Error(t, runNorm(c, "февраль"))
}

func TestInspectCatalog(t *testing.T) {
	c, buf := setup(t)
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"Код;Наименование ТМЦ;Ед.;Цена;Статус",
		"100200;Клей обойный;шт;120;Бонус",
		"100300;Затирка;кг;300;",
	}, "\n")+"\n"), 0o644))

	require.NoError(t, runInspect(c, types.SourceCatalog, path))
	out := buf.String()
	assert.Contains(t, out, "bonus item catalog: "+path)
	assert.Contains(t, out, "OK       catalog.csv  records=2")
	assert.Contains(t, out, "Items:        2 (bonus 1")
	assert.NotContains(t, out, "roster")
}

func TestInspectFailure(t *testing.T) {
	c, _ := setup(t)
	path := filepath.Join(t.TempDir(), "rules.csv")
	require.NoError(t, os.WriteFile(path, []byte("nothing here\n"), 0o644))

	err := runInspect(c, types.SourcePayRules, path)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "pay_rules: "))
}

func TestPrintSources(t *testing.T) {
	var buf bytes.Buffer
	skips := validation.Skips{}
	skips.Add("empty_name")

	printSources(&buf, []pipeline.SourceResult{
		{Kind: types.SourceRoster, File: "/in/staff.csv", Records: 3, Skipped: skips},
		{Kind: types.SourceAttendance},
		{Kind: types.SourceCatalog, File: "/in/cat.csv", Err: assert.AnError},
		{Kind: types.SourceOrders},
	})

	out := buf.String()
	assert.Contains(t, out, "OK       staff.csv  records=3")
	assert.Contains(t, out, "skipped: empty_name=1")
	assert.Contains(t, out, "attendance  MISSING")
	assert.Contains(t, out, "FAILED   cat.csv")
	assert.Contains(t, out, "not supplied (optional)")
}

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "none", rowLabel(-1))
	assert.Equal(t, "3", rowLabel(2))
}

func TestVersionShort(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionShort = true
	t.Cleanup(func() { versionShort = false })

	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, Version+"\n", buf.String())
}
