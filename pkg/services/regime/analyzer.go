// Package regime classifies the macro environment into one of four business
// cycle regimes by scoring a small basket of weighted indicators.
package regime

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/services/source"
)

const (
	SignalYieldCurve   = "yield_curve"
	SignalISM          = "ism"
	SignalCreditSpread = "credit_spread"
	SignalSentiment    = "sentiment"
	SignalPermits      = "permits"
	SignalClaims       = "claims"
)

// SignalSpec names one indicator, the series it is read from, and its
// weight in the regime scores.
type SignalSpec struct {
	Name     string
	Provider string
	SeriesID string
	Weight   float64
}

// DefaultSignals is the standard indicator basket. Weights sum to 1.
func DefaultSignals() []SignalSpec {
	return []SignalSpec{
		{Name: SignalYieldCurve, Provider: "fred", SeriesID: "T10Y2Y", Weight: 0.30},
		{Name: SignalISM, Provider: "fred", SeriesID: "NAPM", Weight: 0.25},
		{Name: SignalCreditSpread, Provider: "fred", SeriesID: "BAMLH0A0HYM2", Weight: 0.20},
		{Name: SignalSentiment, Provider: "fred", SeriesID: "UMCSENT", Weight: 0.15},
		{Name: SignalPermits, Provider: "fred", SeriesID: "PERMIT", Weight: 0.05},
		{Name: SignalClaims, Provider: "fred", SeriesID: "ICSA", Weight: 0.05},
	}
}

type Settings struct {
	Signals []SignalSpec
	// Lookback bounds the fetch window used to read the latest and previous
	// observation of each indicator. It has to span at least two publication
	// periods of the slowest series in the basket.
	Lookback time.Duration
	Now      func() time.Time
}

func DefaultSettings() Settings {
	return Settings{
		Signals:  DefaultSignals(),
		Lookback: 365 * 24 * time.Hour,
		Now:      time.Now,
	}
}

// Analyzer reads the indicator basket and scores every regime against it.
type Analyzer struct {
	settings Settings
	sources  source.Registry
}

func NewAnalyzer(settings Settings, sources source.Registry) *Analyzer {
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if len(settings.Signals) == 0 {
		settings.Signals = DefaultSignals()
	}
	if settings.Lookback <= 0 {
		settings.Lookback = DefaultSettings().Lookback
	}
	return &Analyzer{settings: settings, sources: sources}
}

// Assess reads every configured indicator, scores the four regimes, and
// returns the assessment for the best-fitting one. An indicator that cannot
// be read degrades to a neutral signal; Assess fails only when no indicator
// is readable at all.
func (a *Analyzer) Assess(ctx context.Context) (domain.RegimeAssessment, error) {
	log := zerolog.Ctx(ctx)
	now := domain.DateOnly(a.settings.Now())

	signals := make([]domain.RegimeSignal, 0, len(a.settings.Signals))
	readable := 0
	for _, spec := range a.settings.Signals {
		sig := a.readSignal(ctx, spec, now)
		if sig.Value != nil {
			readable++
		} else {
			log.Warn().
				Str("signal", spec.Name).
				Str("series_id", spec.SeriesID).
				Msg("indicator unavailable, scoring it neutral")
		}
		signals = append(signals, sig)
	}
	if readable == 0 {
		return domain.RegimeAssessment{}, fmt.Errorf("no regime indicator could be read")
	}

	scores := make(map[domain.Regime]float64, 4)
	best := domain.RegimeExpansion
	for _, regime := range domain.Regimes() {
		scores[regime] = scoreRegime(regime, signals)
		if scores[regime] > scores[best] {
			best = regime
		}
	}

	log.Info().
		Str("regime", string(best)).
		Float64("confidence", scores[best]).
		Int("signals_read", readable).
		Msg("macro regime assessed")

	return domain.RegimeAssessment{
		AsOf:       now,
		Regime:     best,
		Confidence: scores[best],
		Scores:     scores,
		Signals:    signals,
		Longs:      append([]string(nil), regimeLongs[best]...),
		Shorts:     append([]string(nil), regimeShorts[best]...),
	}, nil
}

// readSignal fetches the two most recent observations of the indicator and
// scores it. Fetch failures and empty histories produce a neutral signal
// with a nil value rather than failing the whole assessment.
func (a *Analyzer) readSignal(ctx context.Context, spec SignalSpec, now time.Time) domain.RegimeSignal {
	sig := domain.RegimeSignal{
		Name:     spec.Name,
		SeriesID: spec.SeriesID,
		Trend:    domain.TrendStable,
		Weight:   spec.Weight,
	}

	src, err := a.sources.Resolve(spec.Provider)
	if err != nil {
		return sig
	}
	rng := domain.DateRange{Start: now.Add(-a.settings.Lookback), End: now}
	obs, err := src.FetchSeries(ctx, spec.SeriesID, rng, domain.SortDescending)
	if err != nil {
		return sig
	}

	latest, previous, ok := lastTwoValues(obs)
	if !ok {
		return sig
	}
	sig.Value = &latest
	sig.Trend = trendOf(latest, previous)
	sig.Signal = scoreSignal(spec.Name, latest, sig.Trend)
	return sig
}

// lastTwoValues walks observations from newest to oldest and returns the two
// freshest non-null values. With a single value the previous one repeats it,
// which reads as a stable trend.
func lastTwoValues(obs []domain.Observation) (latest, previous float64, ok bool) {
	values := make([]float64, 0, 2)
	for _, o := range obs {
		if o.Value == nil {
			continue
		}
		values = append(values, *o.Value)
		if len(values) == 2 {
			break
		}
	}
	switch len(values) {
	case 0:
		return 0, 0, false
	case 1:
		return values[0], values[0], true
	default:
		return values[0], values[1], true
	}
}

func trendOf(latest, previous float64) domain.Trend {
	switch {
	case latest > previous:
		return domain.TrendRising
	case latest < previous:
		return domain.TrendFalling
	default:
		return domain.TrendStable
	}
}

// scoreSignal maps an indicator reading onto the shared -2..+2 scale, where
// positive means expansionary. Thresholds are in the native units of each
// series: percentage points for the curve and credit spreads, index points
// for ISM and sentiment, thousands of units for permits, persons for claims.
func scoreSignal(name string, value float64, trend domain.Trend) int {
	switch name {
	case SignalYieldCurve:
		switch {
		case value > 1.0 && trend == domain.TrendRising:
			return 2
		case value > 0.5:
			return 1
		case value < 0:
			return -2
		case value < 0.3:
			return -1
		}
	case SignalISM:
		switch {
		case value > 55 && trend == domain.TrendRising:
			return 2
		case value > 52:
			return 1
		case value < 46:
			return -2
		case value < 50:
			return -1
		}
	case SignalCreditSpread:
		switch {
		case value < 3.5 && trend == domain.TrendFalling:
			return 2
		case value < 4.0:
			return 1
		case value > 6.0:
			return -2
		case value > 5.0:
			return -1
		}
	case SignalSentiment:
		switch {
		case value > 90 && trend == domain.TrendRising:
			return 2
		case value > 80:
			return 1
		case value < 70:
			return -2
		case value < 80 && trend == domain.TrendFalling:
			return -1
		}
	case SignalPermits:
		switch {
		case value > 1500 && trend == domain.TrendRising:
			return 2
		case trend == domain.TrendRising:
			return 1
		case value < 1000:
			return -2
		case trend == domain.TrendFalling:
			return -1
		}
	case SignalClaims:
		switch {
		case value < 250000 && trend == domain.TrendFalling:
			return 2
		case value < 300000:
			return 1
		case value > 400000:
			return -2
		case trend == domain.TrendRising:
			return -1
		}
	}
	return 0
}

// scoreRegime sums the regime-adjusted signals and normalizes the weighted
// total from the raw -2..+2 band into [0, 1]. Unreadable indicators are
// excluded so they pull every regime toward 0.5 equally.
func scoreRegime(regime domain.Regime, signals []domain.RegimeSignal) float64 {
	score := 0.0
	for _, sig := range signals {
		if sig.Value == nil {
			continue
		}
		score += adjustForRegime(regime, sig.Name, sig.Signal) * sig.Weight
	}
	normalized := (score + 2.0) / 4.0
	return math.Max(0, math.Min(1, normalized))
}

// adjustForRegime reinterprets a raw signal from the perspective of one
// candidate regime, so that e.g. an inverted curve argues for late cycle
// and every contractionary reading argues for recession.
func adjustForRegime(regime domain.Regime, name string, signal int) float64 {
	s := float64(signal)
	switch regime {
	case domain.RegimeExpansion:
		return s
	case domain.RegimeLateCycle:
		// Curve inversion is the classic late-cycle tell; other indicators
		// only count at half strength because they stay healthy for a while.
		if name == SignalYieldCurve && signal < 0 {
			return math.Abs(s)
		}
		return s * 0.5
	case domain.RegimeRecession:
		return -s
	case domain.RegimeRecovery:
		// Sentiment and permits turn first coming out of a downturn.
		if (name == SignalSentiment || name == SignalPermits) && signal > 0 {
			return s * 1.5
		}
		return s
	}
	return 0
}

var regimeLongs = map[domain.Regime][]string{
	domain.RegimeExpansion: {"Financials", "Industrials", "Technology", "Consumer Discretionary"},
	domain.RegimeLateCycle: {"Energy", "Materials", "Financials"},
	domain.RegimeRecession: {"Utilities", "Consumer Staples", "Health Care"},
	domain.RegimeRecovery:  {"Financials", "Industrials", "Technology", "Materials"},
}

var regimeShorts = map[domain.Regime][]string{
	domain.RegimeExpansion: {"Utilities", "Consumer Staples"},
	domain.RegimeLateCycle: {"Technology", "Consumer Discretionary", "Industrials"},
	domain.RegimeRecession: {"Financials", "Industrials", "Consumer Discretionary", "Energy"},
	domain.RegimeRecovery:  {"Utilities", "Consumer Staples"},
}
