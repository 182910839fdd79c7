package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// VOCABULARY
// =============================================================================

// Vocabulary holds every keyword the parsers match against. All keywords are
// lower case and matched as substrings unless a field says otherwise.
// Section markers that are matched case-sensitively keep their case.
type Vocabulary struct {
	Roster     RosterVocabulary     `yaml:"roster" toml:"roster"`
	Attendance AttendanceVocabulary `yaml:"attendance" toml:"attendance"`
	Catalog    CatalogVocabulary    `yaml:"catalog" toml:"catalog"`
	PayRules   PayRuleVocabulary    `yaml:"pay_rules" toml:"pay_rules"`
	Sales      SalesVocabulary      `yaml:"sales" toml:"sales"`
	Orders     OrderVocabulary      `yaml:"orders" toml:"orders"`
}

// RosterVocabulary configures the organizational roster parser.
type RosterVocabulary struct {
	NameHeaders       []string `yaml:"name_headers" toml:"name_headers"`
	BranchHeaders     []string `yaml:"branch_headers" toml:"branch_headers"`
	ManagerHeaders    []string `yaml:"manager_headers" toml:"manager_headers"`
	DepartmentHeaders []string `yaml:"department_headers" toml:"department_headers"`

	// NonNameMarkers disqualify a value from looking like a person's name.
	NonNameMarkers []string `yaml:"non_name_markers" toml:"non_name_markers"`

	// HeaderEchoes are name cells that repeat the header (exact match).
	HeaderEchoes []string `yaml:"header_echoes" toml:"header_echoes"`

	// Unspecified is written into empty branch and manager fields.
	Unspecified string `yaml:"unspecified" toml:"unspecified"`
}

// AttendanceVocabulary configures the attendance schedule parser.
type AttendanceVocabulary struct {
	HeaderKeywords []string `yaml:"header_keywords" toml:"header_keywords"`

	// HoursKeywords must all appear in the hours column header.
	HoursKeywords []string `yaml:"hours_keywords" toml:"hours_keywords"`

	// PeriodMarkers must all appear in the period cell.
	PeriodMarkers []string `yaml:"period_markers" toml:"period_markers"`

	TotalPrefix string `yaml:"total_prefix" toml:"total_prefix"`

	// Day codes, upper case.
	AbsenceCode  string `yaml:"absence_code" toml:"absence_code"`
	VacationCode string `yaml:"vacation_code" toml:"vacation_code"`
	DayOffCode   string `yaml:"day_off_code" toml:"day_off_code"`
	SickCode     string `yaml:"sick_code" toml:"sick_code"`
}

// CatalogVocabulary configures the bonus item catalog parser.
type CatalogVocabulary struct {
	CodeHeaders   []string `yaml:"code_headers" toml:"code_headers"`
	NameHeaders   []string `yaml:"name_headers" toml:"name_headers"`
	StatusHeaders []string `yaml:"status_headers" toml:"status_headers"`

	BonusMarker    string `yaml:"bonus_marker" toml:"bonus_marker"`
	MarkdownMarker string `yaml:"markdown_marker" toml:"markdown_marker"`
}

// ColumnKeywords describes how one pay-rule column is recognized.
type ColumnKeywords struct {
	// Any: at least one must appear.
	Any []string `yaml:"any" toml:"any"`
	// All: every one must appear.
	All []string `yaml:"all" toml:"all"`
	// None: none may appear.
	None []string `yaml:"none" toml:"none"`
}

// PayRuleVocabulary configures the department pay-rule parser.
type PayRuleVocabulary struct {
	// HeaderAnchorA and HeaderAnchorB must appear in columns A and B of the
	// header row.
	HeaderAnchorA string `yaml:"header_anchor_a" toml:"header_anchor_a"`
	HeaderAnchorB string `yaml:"header_anchor_b" toml:"header_anchor_b"`

	Exclusions       ColumnKeywords    `yaml:"exclusions" toml:"exclusions"`
	Department       ColumnKeywords    `yaml:"department" toml:"department"`
	Branch           ColumnKeywords    `yaml:"branch" toml:"branch"`
	Base             ColumnKeywords    `yaml:"base" toml:"base"`
	AverageWage      ColumnKeywords    `yaml:"average_wage" toml:"average_wage"`
	Floor            ColumnKeywords    `yaml:"floor" toml:"floor"`
	NonLiquidInPool  ColumnKeywords    `yaml:"non_liquid_in_pool" toml:"non_liquid_in_pool"`
	NonLiquidPercent ColumnKeywords    `yaml:"non_liquid_percent" toml:"non_liquid_percent"`
	NormType         ColumnKeywords    `yaml:"norm_type" toml:"norm_type"`
	CoefRegular      ColumnKeywords    `yaml:"coef_regular" toml:"coef_regular"`
	CoefBonus        ColumnKeywords    `yaml:"coef_bonus" toml:"coef_bonus"`
	CoefNonLiquid    ColumnKeywords    `yaml:"coef_non_liquid" toml:"coef_non_liquid"`
	CoefWholesale    ColumnKeywords    `yaml:"coef_wholesale" toml:"coef_wholesale"`
	Guarantees       [5]ColumnKeywords `yaml:"guarantees" toml:"guarantees"`

	// Blocklist rejects departments containing any keyword.
	Blocklist []string `yaml:"blocklist" toml:"blocklist"`
	// Reserved rejects departments equal to any name.
	Reserved []string `yaml:"reserved" toml:"reserved"`

	ShopMarker   string `yaml:"shop_marker" toml:"shop_marker"`
	OfficeMarker string `yaml:"office_marker" toml:"office_marker"`
	// YesValues mark the non-liquid-in-pool flag (substring match).
	YesValues []string `yaml:"yes_values" toml:"yes_values"`
}

// SalesVocabulary configures the sales-by-seller ledger parser.
type SalesVocabulary struct {
	SellerHeaders []string `yaml:"seller_headers" toml:"seller_headers"`

	Wholesale  string `yaml:"wholesale" toml:"wholesale"`
	Retail     string `yaml:"retail" toml:"retail"`
	ByReceipt  string `yaml:"by_receipt" toml:"by_receipt"`
	SaleHeader string `yaml:"sale_header" toml:"sale_header"`

	ForbiddenPatterns []string `yaml:"forbidden_patterns" toml:"forbidden_patterns"`

	// CorporateMarkers are punctuation that marks a company name.
	CorporateMarkers []string `yaml:"corporate_markers" toml:"corporate_markers"`
	// CorporateForms are legal-form words (matched as whole upper-case words).
	CorporateForms []string `yaml:"corporate_forms" toml:"corporate_forms"`
}

// OrderVocabulary configures the special-order ledger parser.
type OrderVocabulary struct {
	// Section markers are case-sensitive.
	UnorderedMarker string `yaml:"unordered_marker" toml:"unordered_marker"`
	OrderedMarker   string `yaml:"ordered_marker" toml:"ordered_marker"`
	ProductWord     string `yaml:"product_word" toml:"product_word"`

	InvalidKeywords []string `yaml:"invalid_keywords" toml:"invalid_keywords"`
}

func anyOf(kw ...string) ColumnKeywords {
	return ColumnKeywords{Any: kw}
}

// DefaultVocabulary returns the built-in Russian vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Roster: RosterVocabulary{
			NameHeaders:       []string{"фио", "ф.и.о", "сотрудник"},
			BranchHeaders:     []string{"филиал"},
			ManagerHeaders:    []string{"директор", "руководитель"},
			DepartmentHeaders: []string{"отдел", "подразделение"},
			NonNameMarkers:    []string{"филиал", "отдел", "директор", "город"},
			HeaderEchoes:      []string{"фио", "сотрудник", "ф.и.о."},
			Unspecified:       "Не указан",
		},
		Attendance: AttendanceVocabulary{
			HeaderKeywords: []string{"сотрудник", "фио"},
			HoursKeywords:  []string{"итого", "час"},
			PeriodMarkers:  []string{"с ", " по "},
			TotalPrefix:    "итого",
			AbsenceCode:    "Н",
			VacationCode:   "О",
			DayOffCode:     "В",
			SickCode:       "Б",
		},
		Catalog: CatalogVocabulary{
			CodeHeaders:    []string{"код"},
			NameHeaders:    []string{"тмц", "наимен", "товар"},
			StatusHeaders:  []string{"статус", "тип", "бонус"},
			BonusMarker:    "бонус",
			MarkdownMarker: "уценка",
		},
		PayRules: PayRuleVocabulary{
			HeaderAnchorA:    "фирмы и отделы",
			HeaderAnchorB:    "отделы",
			Exclusions:       anyOf("фирмы и отделы"),
			Department:       anyOf("отделы"),
			Branch:           anyOf("филиал"),
			Base:             anyOf("базовая"),
			AverageWage:      anyOf("средняя"),
			Floor:            anyOf("минимал"),
			NonLiquidInPool:  ColumnKeywords{Any: []string{"нелик"}, None: []string{"%"}},
			NonLiquidPercent: anyOf("нелик%", "нелик %"),
			NormType:         anyOf("норма час"),
			CoefRegular:      anyOf("обычный товар", "обычных"),
			CoefBonus:        anyOf("бонусный товар", "бонусных"),
			CoefNonLiquid:    ColumnKeywords{All: []string{"неликвид", "%"}},
			CoefWholesale:    ColumnKeywords{All: []string{"опт", "%"}},
			Guarantees: [5]ColumnKeywords{
				anyOf("1 место"), anyOf("2 место"), anyOf("3 место"), anyOf("4 место"), anyOf("5 место"),
			},
			Blocklist: []string{
				"отдел оптовых продаж", "опт", "управление", "склад", "хоз.отдел",
				"декрет", "ип", "водители", "уволенные",
			},
			Reserved:     []string{"офис", "администрация", "опт", "управление", "склад"},
			ShopMarker:   "магазин",
			OfficeMarker: "офис",
			YesValues:    []string{"да", "yes"},
		},
		Sales: SalesVocabulary{
			SellerHeaders: []string{"продавец", "фио", "сотрудник", "менеджер"},
			Wholesale:     "оптовая",
			Retail:        "розничная",
			ByReceipt:     "по чек",
			SaleHeader:    "продажа",
			ForbiddenPatterns: []string{
				"итого", "всего", "бд1", "бд3", "бд4", "наименование", "компания",
				"оптовая", "розничная", "оптова", "розничн", "продажа", "продаж", "по чек",
				"прочая", "отдел", "подразделение", "филиал", "управление", "департамент",
				"!!!!", "nan", "none", "керамика", "сантехника", "инструмент",
				"отпуск", "в отпуске", "болен", "больничный", "самообслуж", "монтаж",
				"ламинат", "обои ", " обои", "паркет", "электр",
			},
			CorporateMarkers: []string{`"`, "«", "»", "()"},
			CorporateForms:   []string{"ООО", "ИП", "АО", "ЗАО"},
		},
		Orders: OrderVocabulary{
			UnorderedMarker: "Незаказной",
			OrderedMarker:   "Заказной",
			ProductWord:     "товар",
			InvalidKeywords: []string{
				"незаказной", "заказной", "товар", "продавец", "итого", "всего", "итог",
				"общий", "основной", "%", "процент", "руб.", "рублей", "ед.",
			},
		},
	}
}

// LoadVocabulary reads a vocabulary file over the defaults. Lists present
// in the file replace the default lists; absent keys keep their defaults.
// The format is chosen by extension: .yaml, .yml or .toml.
func LoadVocabulary(path string) (Vocabulary, error) {
	v := DefaultVocabulary()
	if path == "" {
		return v, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &v)
	case ".toml":
		err = toml.Unmarshal(data, &v)
	default:
		return v, fmt.Errorf("unsupported vocabulary format %q", ext)
	}
	if err != nil {
		return v, fmt.Errorf("failed to parse vocabulary file %s: %w", path, err)
	}

	v.lower()
	return v, nil
}

// lower normalizes case-insensitive keyword lists loaded from a file.
func (v *Vocabulary) lower() {
	lowerAll := func(lists ...*[]string) {
		for _, l := range lists {
			for i, s := range *l {
				(*l)[i] = strings.ToLower(s)
			}
		}
	}
	r := &v.Roster
	lowerAll(&r.NameHeaders, &r.BranchHeaders, &r.ManagerHeaders, &r.DepartmentHeaders,
		&r.NonNameMarkers, &r.HeaderEchoes)
	a := &v.Attendance
	lowerAll(&a.HeaderKeywords, &a.HoursKeywords, &a.PeriodMarkers)
	c := &v.Catalog
	lowerAll(&c.CodeHeaders, &c.NameHeaders, &c.StatusHeaders)
	p := &v.PayRules
	lowerAll(&p.Blocklist, &p.Reserved, &p.YesValues)
	s := &v.Sales
	lowerAll(&s.SellerHeaders, &s.ForbiddenPatterns)
	lowerAll(&v.Orders.InvalidKeywords)
}
