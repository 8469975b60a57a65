package workbook

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sheetkit/sheetkit/internal/locale"
)

// Settings is the workbook configuration, loadable from YAML.
type Settings struct {
	// Locale controls separators and date-component order for text
	// coercion and the criteria parser.
	Locale LocaleSettings `yaml:"locale,omitempty"`

	// DateSystem selects the serial-date epoch: 1900 (default, with
	// the Lotus leap-year quirk) or 1904.
	DateSystem int `yaml:"date_system,omitempty"`

	// Recalc controls evaluation scheduling.
	Recalc RecalcSettings `yaml:"recalc,omitempty"`

	// Iterative controls circular-reference calculation.
	Iterative IterativeSettings `yaml:"iterative,omitempty"`

	// Limits bounds resource use during evaluation.
	Limits LimitSettings `yaml:"limits,omitempty"`

	// ImplicitIntersection applies the legacy single-value coercion to
	// range operands in scalar positions. On by default; dynamic-array
	// formulas use @ explicitly when it is off.
	ImplicitIntersection *bool `yaml:"implicit_intersection,omitempty"`
}

// LocaleSettings mirrors locale.Locale in YAML-friendly form. Empty
// fields keep the invariant en-US defaults.
type LocaleSettings struct {
	Decimal   string `yaml:"decimal,omitempty"`
	Thousands string `yaml:"thousands,omitempty"`
	List      string `yaml:"list,omitempty"`
	DateOrder string `yaml:"date_order,omitempty"` // mdy, dmy or ymd
}

// RecalcSettings picks the scheduling mode.
type RecalcSettings struct {
	// Mode is "single" or "multi". Multi evaluates each dependency
	// level on a worker pool.
	Mode string `yaml:"mode,omitempty"`

	// Workers caps the pool size; 0 means GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`
}

// IterativeSettings configures the cycle fallback layer. When
// disabled, cells on a cycle evaluate once per pass against the
// previous pass's values.
type IterativeSettings struct {
	Enabled       bool    `yaml:"enabled,omitempty"`
	MaxIterations int     `yaml:"max_iterations,omitempty"`
	Epsilon       float64 `yaml:"epsilon,omitempty"`
}

// LimitSettings bounds evaluation resource use.
type LimitSettings struct {
	// ArrayCells caps how many cells one reference may materialize.
	ArrayCells int `yaml:"array_cells,omitempty"`
}

// DefaultSettings returns the configuration a fresh workbook uses.
func DefaultSettings() Settings {
	return Settings{
		DateSystem: 1900,
		Recalc:     RecalcSettings{Mode: "multi"},
		Iterative:  IterativeSettings{MaxIterations: 100, Epsilon: 1e-3},
	}
}

// LoadSettings parses YAML configuration, validating against the
// defaults.
func LoadSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("workbook: parsing settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettingsFile reads and parses a settings file.
func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("workbook: reading settings: %w", err)
	}
	return LoadSettings(data)
}

// Marshal renders the settings back to YAML.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

func (s Settings) validate() error {
	if s.DateSystem != 0 && s.DateSystem != 1900 && s.DateSystem != 1904 {
		return fmt.Errorf("workbook: date_system must be 1900 or 1904, got %d", s.DateSystem)
	}
	switch s.Recalc.Mode {
	case "", "single", "multi":
	default:
		return fmt.Errorf("workbook: recalc.mode must be single or multi, got %q", s.Recalc.Mode)
	}
	switch s.Locale.DateOrder {
	case "", "mdy", "dmy", "ymd":
	default:
		return fmt.Errorf("workbook: locale.date_order must be mdy, dmy or ymd, got %q", s.Locale.DateOrder)
	}
	if s.Iterative.MaxIterations < 0 {
		return fmt.Errorf("workbook: iterative.max_iterations must not be negative")
	}
	return nil
}

func (s Settings) dateSystem() locale.DateSystem {
	if s.DateSystem == 1904 {
		return locale.Date1904
	}
	return locale.Date1900
}

func (s Settings) locale() *locale.Locale {
	loc := locale.Default()
	if s.Locale.Decimal != "" {
		loc.Decimal = firstRune(s.Locale.Decimal)
	}
	if s.Locale.Thousands != "" {
		loc.Thousands = firstRune(s.Locale.Thousands)
	}
	if s.Locale.List != "" {
		loc.List = firstRune(s.Locale.List)
	}
	switch s.Locale.DateOrder {
	case "dmy":
		loc.Order = locale.OrderDMY
	case "ymd":
		loc.Order = locale.OrderYMD
	case "mdy":
		loc.Order = locale.OrderMDY
	}
	return loc
}

func (s Settings) implicitIntersection() bool {
	return s.ImplicitIntersection == nil || *s.ImplicitIntersection
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
