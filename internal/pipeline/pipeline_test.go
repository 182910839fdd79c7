package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/integrator"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixtures = map[types.SourceKind][]string{
	types.SourceRoster: {
		"Филиал;ФИО;Директор;Отдел",
		"Центр;Иванов Иван Иванович;Смирнов С.С.;Обои",
		"Центр;Петров Пётр;Смирнов С.С.;Плитка",
	},
	types.SourceAttendance: {
		"График работы",
		"Период: с 01.02.2025 по 28.02.2025",
		"№;Сотрудник;1;2;Итого часов",
		"1;Иванов Иван Иванович;8;В;150",
		"2;Петров Пётр;8;8;170",
	},
	types.SourceCatalog: {
		"Код;Наименование ТМЦ;Ед.;Цена;Статус",
		"100200;Клей обойный;шт;120;Бонус",
		"100300;Затирка;кг;300;",
	},
	types.SourcePayRules: {
		"Условия расчёта;;;;;;;;",
		";;;;;;;;25000",
		"Фирмы и отделы;Отделы;Филиал;Базовая часть;Норма часов",
		"ООО Ромашка;Обои;Центр;30000;магазин",
		";Плитка;Центр;28000;офис",
	},
	types.SourceSales: {
		"Анализ продаж;;;;;;",
		";;;;;;",
		";;;;;;",
		";;;;;;",
		"Период;01.02.2025 - 28.02.2025;;;;;",
		"Продавец;Наименование;Ед.;Кол;Себестоимость;Продажи;Прибыль",
		"Иванов Иван Иванович;;;;;;",
		"Оптовая продажа;;;;;;",
		"100200;Клей обойный;шт;2;;1000;200",
		"100300;Затирка;кг;1;;500;50",
	},
	types.SourceOrders: {
		"Отчёт по заказам;;;;;;",
		"Незаказной;;;;;;",
		"Иванов Иван Иванович;;;3;;500;50",
		"Заказной;;;;;;",
		"Петров Пётр;;;1;;200;20",
	},
}

// writeFiles writes the fixtures of kinds to a temporary directory.
func writeFiles(t *testing.T, kinds ...types.SourceKind) Files {
	t.Helper()
	dir := t.TempDir()
	files := Files{}
	for _, k := range kinds {
		path := filepath.Join(dir, string(k)+".csv")
		require.NoError(t, os.WriteFile(path, []byte(strings.Join(fixtures[k], "\n")+"\n"), 0o644))
		files[k] = path
	}
	return files
}

func testConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	cfg := config.Default()
	cfg.CSVDelimiter = ";"
	cfg.MaxConcurrency = 2
	return cfg
}

func newPipeline(t *testing.T, cfg *config.MainConfig, opts ...Option) *Pipeline {
	opts = append(opts, WithLogger(zaptest.NewLogger(t)))
	return New(cfg, opts...)
}

func record(t *testing.T, res *Result, key names.Key) types.IntegratedRecord {
	t.Helper()
	require.NotNil(t, res.Integration)
	for _, rec := range res.Integration.Records {
		if rec.Key == key {
			return rec
		}
	}
	t.Fatalf("no record for %s", key)
	return types.IntegratedRecord{}
}

func TestRunEndToEnd(t *testing.T) {
	files := writeFiles(t, types.SourceKinds...)

	res, err := newPipeline(t, testConfig(t)).Run(context.Background(), files)
	require.NoError(t, err)

	for _, s := range res.Extraction.Sources {
		assert.Truef(t, s.Success(), "%s: %v", s.Kind, s.Err)
	}
	assert.False(t, res.Degraded)
	assert.Equal(t, "Период: с 01.02.2025 по 28.02.2025", res.PeriodText)
	assert.Equal(t, 160.0, res.Norms.Shop)
	assert.Equal(t, config.DefaultOfficeHours, res.Norms.Office)

	require.Len(t, res.Integration.Records, 2)

	ivanov := record(t, res, "ИВАНОВ ИВАН ИВАНОВИЧ")
	assert.Equal(t, types.NormShop, ivanov.NormType)
	assert.Equal(t, 93.8, ivanov.PercentOfNorm)
	assert.Equal(t, 1, ivanov.DaysOff)
	assert.Equal(t, 1500.0, ivanov.Revenue)
	assert.Equal(t, 1000.0, ivanov.BonusRevenue)
	assert.Equal(t, 1500.0, ivanov.WholesaleRevenue)
	assert.Equal(t, 66.7, ivanov.BonusRatio)
	assert.Equal(t, 500.0, ivanov.UnorderedRevenue)
	assert.Equal(t, 25000.0, ivanov.OfficeBase)

	petrov := record(t, res, "ПЕТРОВ ПЁТР")
	assert.Equal(t, types.NormOffice, petrov.NormType)
	assert.Equal(t, 101.2, petrov.PercentOfNorm)
	assert.True(t, petrov.HoursMet)
	assert.Equal(t, 200.0, petrov.OrderedRevenue)
	assert.False(t, petrov.HasSales)
}

func TestRunWithoutOrdersDegrades(t *testing.T) {
	files := writeFiles(t, types.SourceRoster, types.SourceAttendance, types.SourceCatalog,
		types.SourcePayRules, types.SourceSales)

	res, err := newPipeline(t, testConfig(t)).Run(context.Background(), files)
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Nil(t, res.Extraction.Orders)
	assert.Equal(t, 0.0, record(t, res, "ПЕТРОВ ПЁТР").OrderedRevenue)
}

func TestRunOrdersFailure(t *testing.T) {
	files := writeFiles(t, types.SourceKinds...)
	require.NoError(t, os.WriteFile(files[types.SourceOrders], []byte("a;b;c;d;e;f;g\n1;2;3;4;5;6;7\n"), 0o644))

	t.Run("continues by default", func(t *testing.T) {
		res, err := newPipeline(t, testConfig(t)).Run(context.Background(), files)
		require.NoError(t, err)
		assert.True(t, res.Degraded)

		var se *validation.StructuralError
		require.ErrorAs(t, res.Extraction.Source(types.SourceOrders).Err, &se)
		assert.Equal(t, types.SourceOrders, se.Source)
	})

	t.Run("stops when continue_on_error is off", func(t *testing.T) {
		cfg := testConfig(t)
		no := false
		cfg.ContinueOnError = &no

		res, err := newPipeline(t, cfg).Run(context.Background(), files)
		require.Error(t, err)
		assert.Nil(t, res.Integration)
	})
}

func TestRunReportsEveryFailedSource(t *testing.T) {
	files := writeFiles(t, types.SourceAttendance, types.SourceCatalog, types.SourcePayRules,
		types.SourceSales, types.SourceOrders)
	require.NoError(t, os.WriteFile(files[types.SourceCatalog], []byte("a;b\n"), 0o644))

	res, err := newPipeline(t, testConfig(t)).Run(context.Background(), files)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrMissingSource)
	var se *validation.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.SourceCatalog, se.Source)
	assert.Contains(t, err.Error(), "catalog.csv")

	assert.Nil(t, res.Integration)
	assert.False(t, res.Extraction.Source(types.SourceRoster).Success())
	assert.True(t, res.Extraction.Source(types.SourceAttendance).Success())
}

func TestRunShopNormOverride(t *testing.T) {
	files := writeFiles(t, types.SourceKinds...)

	res, err := newPipeline(t, testConfig(t), WithShopNorm(150), WithOfficeNorm(170)).Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, integrator.Norms{Shop: 150, Office: 170}, res.Norms)
	ivanov := record(t, res, "ИВАНОВ ИВАН ИВАНОВИЧ")
	assert.Equal(t, 100.0, ivanov.PercentOfNorm)
	assert.True(t, ivanov.HoursMet)
}

func TestRunPeriodOverride(t *testing.T) {
	files := writeFiles(t, types.SourceKinds...)

	res, err := newPipeline(t, testConfig(t), WithPeriod("с 01.03.2025 по 31.03.2025")).Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 31, res.Period.Days())
	assert.Equal(t, 177.1, res.Norms.Shop)
}

func TestRunZeroShopNormAborts(t *testing.T) {
	files := writeFiles(t, types.SourceKinds...)
	require.NoError(t, os.WriteFile(files[types.SourceAttendance], []byte(strings.Join(fixtures[types.SourceAttendance][2:], "\n")), 0o644))
	require.NoError(t, os.WriteFile(files[types.SourceSales], []byte(strings.Replace(
		strings.Join(fixtures[types.SourceSales], "\n"), "01.02.2025 - 28.02.2025", "", 1)), 0o644))

	res, err := newPipeline(t, testConfig(t)).Run(context.Background(), files)
	require.Error(t, err)

	var ne *validation.UnresolvedNormError
	require.ErrorAs(t, err, &ne)
	require.Len(t, ne.Employees, 1)
	assert.Equal(t, types.NormShop, ne.Employees[0].NormType)
	assert.True(t, res.Period.IsZero())
}

func TestRunCancelled(t *testing.T) {
	files := writeFiles(t, types.SourceKinds...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(t, testConfig(t)).Run(ctx, files)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExtractSingleSource(t *testing.T) {
	files := writeFiles(t, types.SourceCatalog)

	ext, err := newPipeline(t, testConfig(t)).Extract(context.Background(), files)
	require.NoError(t, err)

	require.NotNil(t, ext.Catalog)
	assert.Equal(t, types.ClassBonus, ext.Catalog.Catalog.Class("100200"))
	assert.Nil(t, ext.Roster)
	assert.Empty(t, ext.Failures())

	src := ext.Source(types.SourceCatalog)
	assert.Equal(t, 2, src.Records)
	assert.Empty(t, ext.Source(types.SourceRoster).File)
}

func TestExtractOrdersNeedsRoster(t *testing.T) {
	files := writeFiles(t, types.SourceRoster, types.SourceOrders)
	require.NoError(t, os.WriteFile(files[types.SourceRoster], []byte("x\n"), 0o644))

	ext, err := newPipeline(t, testConfig(t)).Extract(context.Background(), files)
	require.NoError(t, err)

	assert.ErrorIs(t, ext.Source(types.SourceOrders).Err, ErrDependency)
	assert.Len(t, ext.Failures(), 2)
}
