// Package config loads the template inventory and the credentials the
// runtime needs to reach sources, storage, and the notifier.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

// EngineSettings carries the update-engine thresholds the inventory can
// override. Zero values keep the engine defaults.
type EngineSettings struct {
	FreshnessThresholdDays int
	MinValidDates          int
	BackfillFloor          time.Time
}

// TemplateDefaults fills template fields the inventory leaves unset.
type TemplateDefaults struct {
	Source     string `mapstructure:"source"`
	Storage    string `mapstructure:"storage"`
	HeaderRow  int    `mapstructure:"header_row"`
	DateFormat string `mapstructure:"date_format"`
	RowOrder   string `mapstructure:"row_order"`
	Merge      string `mapstructure:"merge"`
}

type storageEntry struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
}

type templateEntry struct {
	Name          string         `mapstructure:"name"`
	Storage       storageEntry   `mapstructure:"storage"`
	Sheet         string         `mapstructure:"sheet"`
	HeaderRow     int            `mapstructure:"header_row"`
	StartRow      int            `mapstructure:"start_row"`
	DateColumn    int            `mapstructure:"date_column"`
	DateFormat    string         `mapstructure:"date_format"`
	Columns       map[string]int `mapstructure:"columns"`
	MainSeries    []string       `mapstructure:"main_series"`
	RowOrder      string         `mapstructure:"row_order"`
	Merge         string         `mapstructure:"merge"`
	AllowTruncate bool           `mapstructure:"allow_truncate"`
	Source        string         `mapstructure:"source"`
}

type engineEntry struct {
	FreshnessThresholdDays int    `mapstructure:"freshness_threshold_days"`
	MinValidDates          int    `mapstructure:"min_valid_dates"`
	BackfillFloor          string `mapstructure:"backfill_floor"`
}

type templatesFile struct {
	Engine    engineEntry      `mapstructure:"engine"`
	Defaults  TemplateDefaults `mapstructure:"defaults"`
	Templates []templateEntry  `mapstructure:"templates"`
}

// Inventory is the parsed template inventory: the engine overrides plus the
// validated template descriptors in file order.
type Inventory struct {
	Engine    EngineSettings
	Templates []domain.TemplateDescriptor
}

// LoadTemplates reads the YAML template inventory.
func LoadTemplates(path string) (*Inventory, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}

	var file templatesFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to parse templates file: %w", err)
	}
	if len(file.Templates) == 0 {
		return nil, fmt.Errorf("templates file %s defines no templates", path)
	}

	engine, err := buildEngine(file.Engine)
	if err != nil {
		return nil, err
	}

	defaults := file.Defaults
	if defaults.Source == "" {
		defaults.Source = "fred"
	}
	if defaults.Storage == "" {
		defaults.Storage = "local"
	}
	if defaults.HeaderRow <= 0 {
		defaults.HeaderRow = 1
	}
	if defaults.DateFormat == "" {
		defaults.DateFormat = "2006-01-02"
	}

	seen := make(map[string]bool, len(file.Templates))
	templates := make([]domain.TemplateDescriptor, 0, len(file.Templates))
	for i, entry := range file.Templates {
		tpl, err := buildTemplate(entry, defaults)
		if err != nil {
			return nil, fmt.Errorf("template %d (%s): %w", i, entry.Name, err)
		}
		if seen[tpl.Name] {
			return nil, fmt.Errorf("template %d (%s): name is already used", i, tpl.Name)
		}
		seen[tpl.Name] = true
		templates = append(templates, tpl)
	}
	return &Inventory{Engine: engine, Templates: templates}, nil
}

func buildEngine(entry engineEntry) (EngineSettings, error) {
	var engine EngineSettings

	if entry.FreshnessThresholdDays < 0 {
		return engine, fmt.Errorf("engine freshness_threshold_days cannot be negative")
	}
	if entry.MinValidDates < 0 {
		return engine, fmt.Errorf("engine min_valid_dates cannot be negative")
	}
	engine.FreshnessThresholdDays = entry.FreshnessThresholdDays
	engine.MinValidDates = entry.MinValidDates

	if entry.BackfillFloor != "" {
		floor, err := time.Parse("2006-01-02", entry.BackfillFloor)
		if err != nil {
			return engine, fmt.Errorf("engine backfill_floor %q is not a date: %w", entry.BackfillFloor, err)
		}
		engine.BackfillFloor = floor
	}
	return engine, nil
}

func buildTemplate(entry templateEntry, defaults TemplateDefaults) (domain.TemplateDescriptor, error) {
	var tpl domain.TemplateDescriptor

	if entry.Name == "" {
		return tpl, fmt.Errorf("name is required")
	}
	if entry.Storage.Path == "" {
		return tpl, fmt.Errorf("storage path is required")
	}
	if len(entry.Columns) == 0 {
		return tpl, fmt.Errorf("at least one series column is required")
	}
	if entry.HeaderRow < 0 || entry.StartRow < 0 || entry.DateColumn < 0 {
		return tpl, fmt.Errorf("row and column positions cannot be negative")
	}

	for series, col := range entry.Columns {
		if col < 0 {
			return tpl, fmt.Errorf("series %s maps to a negative column", series)
		}
		if col == entry.DateColumn {
			return tpl, fmt.Errorf("series %s maps to the date column", series)
		}
	}
	for _, series := range entry.MainSeries {
		if _, ok := entry.Columns[series]; !ok {
			return tpl, fmt.Errorf("main series %s has no column mapping", series)
		}
	}

	merge, err := domain.ParseMergeMode(orDefault(entry.Merge, defaults.Merge, string(domain.MergeOverwrite)))
	if err != nil {
		return tpl, err
	}
	order, err := domain.ParseRowOrder(orDefault(entry.RowOrder, defaults.RowOrder, ""))
	if err != nil {
		return tpl, err
	}
	// Insert merges fill the first data rows, which only leaves the table
	// sorted when the newest row belongs at the top.
	if merge == domain.MergeInsert && order != domain.OrderDescending {
		return tpl, fmt.Errorf("insert merge requires descending row order")
	}

	headerRow := entry.HeaderRow
	if headerRow == 0 {
		headerRow = defaults.HeaderRow
	}

	tpl = domain.TemplateDescriptor{
		Name: entry.Name,
		Storage: domain.StorageHandle{
			Provider: orDefault(entry.Storage.Provider, defaults.Storage, "local"),
			Path:     entry.Storage.Path,
		},
		Sheet:         entry.Sheet,
		HeaderRow:     headerRow,
		StartRow:      entry.StartRow,
		DateColumn:    entry.DateColumn,
		DateFormat:    orDefault(entry.DateFormat, defaults.DateFormat, "2006-01-02"),
		Columns:       entry.Columns,
		MainSeries:    entry.MainSeries,
		RowOrder:      order,
		Merge:         merge,
		AllowTruncate: entry.AllowTruncate,
		Source:        orDefault(entry.Source, defaults.Source, "fred"),
	}
	return tpl, nil
}

func orDefault(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
