package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMainConfigAppliesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", "input_dir: ./in\nnorms:\n  shop_hours: 150\n")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./in", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, 150.0, cfg.Norms.ShopHours)
	assert.Equal(t, DefaultOfficeHours, cfg.Norms.OfficeHours)
	assert.Equal(t, "I2", cfg.PayRuleScalarCell)
	assert.Equal(t, []string{"xlsx"}, cfg.ExportFormats)
	require.NotNil(t, cfg.ContinueOnError)
	assert.True(t, *cfg.ContinueOnError)
	assert.NotEmpty(t, cfg.Sources.Roster)
}

func TestLoadMainConfigRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "config.yaml",
		"log_level: loud\nexport_formats: [pdf]\npay_rule_scalar_cell: '??'\nnorms:\n  office_hours: -1\n")

	_, err := LoadMainConfig(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "log_level")
	assert.ErrorContains(t, err, "pdf")
	assert.ErrorContains(t, err, "office_hours")
	assert.ErrorContains(t, err, "pay_rule_scalar_cell")
}

func TestLoadMainConfigMissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"INTAKE_SHOP_NORM":       "151,5",
		"INTAKE_OUTPUT_DIR":      "/tmp/out",
		"INTAKE_MAX_CONCURRENCY": "2",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, lookup))

	assert.Equal(t, 151.5, cfg.Norms.ShopHours)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, 2, cfg.MaxConcurrency)

	env["INTAKE_OFFICE_NORM"] = "many"
	assert.ErrorContains(t, ApplyEnv(cfg, lookup), "INTAKE_OFFICE_NORM")
}

func TestLoadVocabularyYAMLOverridesLists(t *testing.T) {
	path := writeFile(t, "vocabulary.yaml", "roster:\n  branch_headers: [\"Магазин\"]\n")

	v, err := LoadVocabulary(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"магазин"}, v.Roster.BranchHeaders)
	assert.Equal(t, DefaultVocabulary().Roster.NameHeaders, v.Roster.NameHeaders)
	assert.Equal(t, "Незаказной", v.Orders.UnorderedMarker)
}

func TestLoadVocabularyTOML(t *testing.T) {
	path := writeFile(t, "vocabulary.toml", "[catalog]\nbonus_marker = \"бонус\"\nstatus_headers = [\"Признак\"]\n")

	v, err := LoadVocabulary(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"признак"}, v.Catalog.StatusHeaders)
	assert.Equal(t, "уценка", v.Catalog.MarkdownMarker)
}

func TestLoadVocabularyEmptyPathIsDefault(t *testing.T) {
	v, err := LoadVocabulary("")
	require.NoError(t, err)
	assert.Equal(t, DefaultVocabulary(), v)
}

func TestLoadVocabularyUnknownFormat(t *testing.T) {
	path := writeFile(t, "vocabulary.json", "{}")
	_, err := LoadVocabulary(path)
	assert.ErrorContains(t, err, "unsupported vocabulary format")
}
