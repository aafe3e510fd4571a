package temporal

import (
	"emofuse/internal/domain"
)

// Config carries the slope and change-rate thresholds for trend and
// volatility classification.
type Config struct {
	ImprovingSlope       float64
	DecliningSlope       float64
	HighVolatilityRate   float64
	MediumVolatilityRate float64
}

func DefaultConfig() Config {
	return Config{
		ImprovingSlope:       0.1,
		DecliningSlope:       -0.1,
		HighVolatilityRate:   0.6,
		MediumVolatilityRate: 0.3,
	}
}

// Analyzer derives trend, volatility, and a categorical pattern from the
// full time-ordered observation sequence of the current window, all
// channels interleaved.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.HighVolatilityRate <= 0 {
		cfg = DefaultConfig()
	}
	return &Analyzer{cfg: cfg}
}

func (a *Analyzer) Analyze(obs []domain.EmotionObservation) domain.TemporalSummary {
	labels := make([]string, 0, len(obs))
	for _, o := range obs {
		labels = append(labels, domain.CanonicalLabel(o.PrimaryLabel))
	}

	return domain.TemporalSummary{
		Trend:      a.trend(labels),
		Volatility: a.volatility(labels),
		Pattern:    a.pattern(labels),
	}
}

// trend fits an ordinary-least-squares slope of valence against sequence
// index. Fewer than 2 points is stable by definition.
func (a *Analyzer) trend(labels []string) string {
	n := len(labels)
	if n < 2 {
		return domain.TrendStable
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, label := range labels {
		x := float64(i)
		y := domain.Valence(label)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := float64(n)*sumXX - sumX*sumX
	if denom == 0 {
		return domain.TrendStable
	}
	slope := (float64(n)*sumXY - sumX*sumY) / denom

	switch {
	case slope > a.cfg.ImprovingSlope:
		return domain.TrendImproving
	case slope < a.cfg.DecliningSlope:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

// volatility is the rate of adjacent label changes.
func (a *Analyzer) volatility(labels []string) string {
	n := len(labels)
	if n < 2 {
		return domain.VolatilityLow
	}
	changes := 0
	for i := 1; i < n; i++ {
		if labels[i] != labels[i-1] {
			changes++
		}
	}
	rate := float64(changes) / float64(n-1)

	switch {
	case rate > a.cfg.HighVolatilityRate:
		return domain.VolatilityHigh
	case rate > a.cfg.MediumVolatilityRate:
		return domain.VolatilityMedium
	default:
		return domain.VolatilityLow
	}
}

func (a *Analyzer) pattern(labels []string) string {
	n := len(labels)
	if n < 3 {
		return domain.PatternInsufficientData
	}

	allSame := true
	for i := 1; i < n; i++ {
		if labels[i] != labels[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return domain.PatternConstant
	}

	if n >= 4 && isAlternating(labels) {
		return domain.PatternAlternating
	}

	nonDecreasing, nonIncreasing := true, true
	for i := 1; i < n; i++ {
		prev := domain.Valence(labels[i-1])
		cur := domain.Valence(labels[i])
		if cur < prev {
			nonDecreasing = false
		}
		if cur > prev {
			nonIncreasing = false
		}
	}
	if nonDecreasing {
		return domain.PatternEscalatingPositive
	}
	if nonIncreasing {
		return domain.PatternEscalatingNegative
	}
	return domain.PatternVariable
}

// isAlternating: label[i] == label[i+2] for every valid i, with the first
// two labels distinct (an A-B-A-B cycle).
func isAlternating(labels []string) bool {
	if labels[0] == labels[1] {
		return false
	}
	for i := 0; i+2 < len(labels); i++ {
		if labels[i] != labels[i+2] {
			return false
		}
	}
	return true
}
