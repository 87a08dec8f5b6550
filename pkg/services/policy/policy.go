// Package policy decides which observation dates a template write may touch.
package policy

import (
	"sort"
	"time"

	"golang.org/x/exp/maps"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

// EligibleDates computes the dates a reconciliation is allowed to write.
//
// With main series configured, a date is eligible only when every main
// series carries a non-null value for it. Templates without main series have
// no completeness anchor, so the result falls back to the union of non-null
// dates across everything fetched. Supplementary series never widen the
// eligible set; they can only fill dates the main series established.
func EligibleDates(fetched map[string][]domain.Observation, mainSeries []string) []time.Time {
	var eligible map[time.Time]struct{}
	if len(mainSeries) == 0 {
		eligible = unionDates(fetched)
	} else {
		eligible = intersectDates(fetched, mainSeries)
	}

	dates := maps.Keys(eligible)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func intersectDates(fetched map[string][]domain.Observation, mainSeries []string) map[time.Time]struct{} {
	eligible := nonNullDates(fetched[mainSeries[0]])
	for _, seriesID := range mainSeries[1:] {
		present := nonNullDates(fetched[seriesID])
		for date := range eligible {
			if _, ok := present[date]; !ok {
				delete(eligible, date)
			}
		}
	}
	return eligible
}

func unionDates(fetched map[string][]domain.Observation) map[time.Time]struct{} {
	eligible := map[time.Time]struct{}{}
	for _, observations := range fetched {
		for date := range nonNullDates(observations) {
			eligible[date] = struct{}{}
		}
	}
	return eligible
}

func nonNullDates(observations []domain.Observation) map[time.Time]struct{} {
	dates := make(map[time.Time]struct{}, len(observations))
	for _, obs := range observations {
		if obs.Value == nil {
			continue
		}
		dates[domain.DateOnly(obs.Date)] = struct{}{}
	}
	return dates
}
