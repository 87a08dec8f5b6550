package domain

import "fmt"

type MergeMode string

const (
	// MergeOverwrite rewrites a fixed region in place and never inserts rows.
	MergeOverwrite MergeMode = "overwrite"
	// MergeInsert pushes existing rows down and fills the freed region.
	MergeInsert MergeMode = "insert"
	// MergeAppend adds rows after the current table, then dedupes and sorts.
	MergeAppend MergeMode = "append"
)

func ParseMergeMode(s string) (MergeMode, error) {
	switch MergeMode(s) {
	case MergeOverwrite, MergeInsert, MergeAppend:
		return MergeMode(s), nil
	}
	return "", fmt.Errorf("unknown merge mode %q", s)
}

type RunMode string

const (
	RunBackfill    RunMode = "backfill"
	RunIncremental RunMode = "incremental"
)

func ParseRunMode(s string) (RunMode, error) {
	switch RunMode(s) {
	case RunBackfill, RunIncremental:
		return RunMode(s), nil
	}
	return "", fmt.Errorf("unknown run mode %q", s)
}

type RowOrder string

const (
	// OrderDescending keeps the newest observation in the first data row.
	OrderDescending RowOrder = "descending"
	OrderAscending  RowOrder = "ascending"
)

func ParseRowOrder(s string) (RowOrder, error) {
	switch RowOrder(s) {
	case OrderDescending, OrderAscending:
		return RowOrder(s), nil
	case "":
		return OrderDescending, nil
	}
	return "", fmt.Errorf("unknown row order %q", s)
}

// StorageHandle addresses one workbook in a storage backend.
type StorageHandle struct {
	Provider string // local, s3
	Path     string // filesystem path or object key
}

func (h StorageHandle) String() string {
	return fmt.Sprintf("%s:%s", h.Provider, h.Path)
}

// TemplateDescriptor is the per-template configuration. It is owned by the
// orchestrator and immutable during a run.
type TemplateDescriptor struct {
	Name      string
	Storage   StorageHandle
	Sheet     string // empty: audit every sheet and keep the best
	HeaderRow int    // 1-based, default 1
	StartRow  int    // 1-based first data row, default HeaderRow+1

	DateColumn int    // 0-based index of the date column
	DateFormat string // layout used to render written dates

	Columns    map[string]int // series id -> 0-based column index
	MainSeries []string       // series whose values gate row eligibility

	RowOrder      RowOrder
	Merge         MergeMode
	AllowTruncate bool // authorizes overwrites that shrink the table

	Source string // observation source provider name
}

// DataStartRow is the 1-based row the template's data region starts on.
func (t TemplateDescriptor) DataStartRow() int {
	if t.StartRow > 0 {
		return t.StartRow
	}
	if t.HeaderRow > 0 {
		return t.HeaderRow + 1
	}
	return 2
}

// IsMain reports whether the series gates row eligibility for this template.
func (t TemplateDescriptor) IsMain(seriesID string) bool {
	for _, s := range t.MainSeries {
		if s == seriesID {
			return true
		}
	}
	return false
}
