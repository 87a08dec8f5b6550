// Package export renders audit, run, and regime reports as console tables.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

// Reporter writes formatted text reports.
type Reporter struct {
	writer io.Writer
}

// NewReporter creates a console reporter.
func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

// tableFuncs renders fixed-width rows and separators for the given column
// widths. A row call with fewer cells than columns pads with blanks.
func tableFuncs(widths ...int) template.FuncMap {
	return template.FuncMap{
		"row": func(cells ...interface{}) string {
			parts := make([]string, len(widths))
			for i, w := range widths {
				var cell interface{} = ""
				if i < len(cells) {
					cell = cells[i]
				}
				parts[i] = fmt.Sprintf(" %-*v ", w, cell)
			}
			return "|" + strings.Join(parts, "|") + "|"
		},
		"separator": func() string {
			parts := make([]string, len(widths))
			for i, w := range widths {
				parts[i] = strings.Repeat("-", w+2)
			}
			return "+" + strings.Join(parts, "+") + "+"
		},
	}
}

// HandleAudit renders one template audit as a property block.
func (c *Reporter) HandleAudit(name string, res domain.AuditResult) error {
	tmpl := `
Audit: {{.Name}}
Sheet: {{.Sheet}}
Date column: {{.DateColumnName}} (index {{.DateColumn}}, confidence {{printf "%.2f" .Confidence}})
Cadence: {{.Cadence}}
Range: {{.FirstDate.Format "2006-01-02"}} to {{.LastDate.Format "2006-01-02"}} ({{.RowCount}} rows)
Staleness: {{.StalenessDays}} days ({{printf "%.1f" .GapInPeriods}} periods behind)
Backfill needed: {{.NeedsBackfill}}
`
	t, err := template.New("audit").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	view := struct {
		Name string
		domain.AuditResult
	}{Name: name, AuditResult: res}

	return t.Execute(c.writer, view)
}

// HandleRun renders a run summary with one table row per template.
func (c *Reporter) HandleRun(summary domain.RunSummary) error {
	funcMap := tableFuncs(24, 8, 6, 26, 44)
	funcMap["formatRange"] = func(rng *domain.DateRange) string {
		if rng == nil {
			return ""
		}
		return fmt.Sprintf("%s to %s",
			rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"))
	}
	funcMap["formatError"] = func(msg *string) string {
		if msg == nil {
			return ""
		}
		return *msg
	}

	tmpl := `
Run {{.ID}} ({{.Mode}})
Started: {{.StartedAt.Format "2006-01-02 15:04:05"}}
Finished: {{.FinishedAt.Format "2006-01-02 15:04:05"}}
Templates: {{.Total}} total, {{.Succeeded}} succeeded, {{.Failed}} failed
Rows written: {{.RowsWrittenTotal}}

{{separator}}
{{row "Template" "Status" "Rows" "Fetched range" "Error"}}
{{separator}}
{{range .Details}}{{row .Template .Status .RowsWritten (formatRange .DateRange) (formatError .Error)}}
{{end}}{{separator}}
`
	t, err := template.New("run").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, summary)
}

// HandleRegime renders the regime assessment: scores, the signal table, and
// the recommended sector tilts.
func (c *Reporter) HandleRegime(a domain.RegimeAssessment) error {
	funcMap := tableFuncs(16, 14, 10, 8, 6, 6)
	funcMap["formatValue"] = func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.2f", *v)
	}
	funcMap["join"] = func(items []string) string {
		return strings.Join(items, ", ")
	}

	tmpl := `
Regime: {{.Regime}} (confidence {{printf "%.2f" .Confidence}})
As of: {{.AsOf.Format "2006-01-02"}}

Scores:
{{range .Scores}}  {{.Name}}: {{printf "%.2f" .Score}}
{{end}}
{{separator}}
{{row "Signal" "Series" "Value" "Trend" "Score" "Weight"}}
{{separator}}
{{range .Signals}}{{row .Name .SeriesID (formatValue .Value) .Trend .Signal .Weight}}
{{end}}{{separator}}

Long sectors: {{join .Longs}}
Short sectors: {{join .Shorts}}
`
	t, err := template.New("regime").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	type score struct {
		Name  string
		Score float64
	}
	view := struct {
		Regime     domain.Regime
		Confidence float64
		AsOf       time.Time
		Scores     []score
		Signals    []domain.RegimeSignal
		Longs      []string
		Shorts     []string
	}{
		Regime:     a.Regime,
		Confidence: a.Confidence,
		AsOf:       a.AsOf,
		Signals:    a.Signals,
		Longs:      a.Longs,
		Shorts:     a.Shorts,
	}
	for _, regime := range domain.Regimes() {
		view.Scores = append(view.Scores, score{Name: string(regime), Score: a.Scores[regime]})
	}

	return t.Execute(c.writer, view)
}

// HandleTemplates renders the configured template inventory.
func (c *Reporter) HandleTemplates(templates []domain.TemplateDescriptor) error {
	tmpl := `
{{separator}}
{{row "Template" "Storage" "Sheet" "Source" "Merge"}}
{{separator}}
{{range .}}{{row .Name .Storage.String .Sheet .Source .Merge}}
{{end}}{{separator}}
`
	t, err := template.New("templates").Funcs(tableFuncs(24, 40, 12, 14, 10)).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, templates)
}
