package adapters

import (
	"sort"

	"golang.org/x/exp/maps"

	"github.com/fin-tools/macro-sync/pkg/models/api"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

func MapAuditResultDomainToApi(template string, r domain.AuditResult) api.AuditReport {
	return api.AuditReport{
		Template:       template,
		Sheet:          r.Sheet,
		DateColumn:     r.DateColumn,
		DateColumnName: r.DateColumnName,
		Confidence:     r.Confidence,
		Cadence:        string(r.Cadence),
		FirstDate:      r.FirstDate,
		LastDate:       r.LastDate,
		RowCount:       r.RowCount,
		StalenessDays:  r.StalenessDays,
		GapInPeriods:   r.GapInPeriods,
		NeedsBackfill:  r.NeedsBackfill,
	}
}

func MapTemplateDomainToApi(t domain.TemplateDescriptor) api.Template {
	series := maps.Keys(t.Columns)
	sort.Strings(series)
	return api.Template{
		Name:       t.Name,
		Storage:    t.Storage.String(),
		Sheet:      t.Sheet,
		Series:     series,
		MainSeries: append([]string(nil), t.MainSeries...),
		MergeMode:  string(t.Merge),
		Source:     t.Source,
	}
}
