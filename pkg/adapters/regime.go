package adapters

import (
	"github.com/fin-tools/macro-sync/pkg/models/api"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

func MapRegimeAssessmentDomainToApi(a domain.RegimeAssessment) api.RegimeReport {
	res := api.RegimeReport{
		AsOf:       a.AsOf,
		Regime:     string(a.Regime),
		Confidence: a.Confidence,
		Scores:     make(map[string]float64, len(a.Scores)),
		Signals:    make([]api.RegimeSignal, 0, len(a.Signals)),
		Longs:      append([]string(nil), a.Longs...),
		Shorts:     append([]string(nil), a.Shorts...),
	}
	for regime, score := range a.Scores {
		res.Scores[string(regime)] = score
	}
	for _, s := range a.Signals {
		res.Signals = append(res.Signals, api.RegimeSignal{
			Name:     s.Name,
			SeriesID: s.SeriesID,
			Value:    s.Value,
			Trend:    string(s.Trend),
			Signal:   s.Signal,
			Weight:   s.Weight,
		})
	}
	return res
}
