package fusion

import (
	"math"
	"sort"

	"emofuse/internal/domain"
)

const weightEpsilon = 1e-9

// Config carries the channel reliability weights and sampling sufficiency
// threshold. Voice is weighted highest (least deliberately controllable),
// text lowest (most deliberately filtered).
type Config struct {
	BaseWeights     map[string]float64
	FullSampleCount float64
	NeutralBaseline float64
}

func DefaultConfig() Config {
	return Config{
		BaseWeights: map[string]float64{
			domain.ChannelVoice: 0.40,
			domain.ChannelFace:  0.35,
			domain.ChannelText:  0.25,
		},
		FullSampleCount: 3,
		NeutralBaseline: 0.5,
	}
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if len(cfg.BaseWeights) == 0 {
		cfg.BaseWeights = DefaultConfig().BaseWeights
	}
	if cfg.FullSampleCount <= 0 {
		cfg.FullSampleCount = DefaultConfig().FullSampleCount
	}
	if cfg.NeutralBaseline <= 0 {
		cfg.NeutralBaseline = DefaultConfig().NeutralBaseline
	}
	return &Engine{cfg: cfg}
}

// Fuse combines per-channel insights into a partial UnifiedState. Only
// channels with at least one sample participate; zero participating
// channels yields the neutral baseline state.
func (e *Engine) Fuse(insights map[string]domain.ChannelInsight) domain.UnifiedState {
	participating := make([]domain.ChannelInsight, 0, len(insights))
	for _, ins := range insights {
		if ins.SampleCount >= 1 {
			participating = append(participating, ins)
		}
	}
	if len(participating) == 0 {
		return e.Baseline()
	}
	sort.Slice(participating, func(i, j int) bool {
		return participating[i].Channel < participating[j].Channel
	})

	// 1) quality-adjusted weights, renormalized to sum to 1.
	weights := make(map[string]float64, len(participating))
	total := 0.0
	for _, ins := range participating {
		base := e.cfg.BaseWeights[ins.Channel]
		w := base * e.qualityFactor(ins)
		weights[ins.Channel] = w
		total += w
	}
	if total <= weightEpsilon {
		// All channels degenerate: fall back to equal weighting.
		equal := 1.0 / float64(len(participating))
		for _, ins := range participating {
			weights[ins.Channel] = equal
		}
	} else {
		for ch, w := range weights {
			weights[ch] = w / total
		}
	}

	// 2) score candidate labels by weighted confidence.
	scores := make(map[string]float64, len(participating))
	for _, ins := range participating {
		scores[ins.PrimaryLabel] += weights[ins.Channel] * clamp01(ins.Confidence)
	}

	// 3) winner takes the state; lexicographic tie-break for determinism.
	primary := ""
	primaryScore := -1.0
	for label, score := range scores {
		if score > primaryScore || (score == primaryScore && label < primary) {
			primary = label
			primaryScore = score
		}
	}

	confidence := clamp01(primaryScore)
	return domain.UnifiedState{
		PrimaryEmotion: primary,
		Confidence:     confidence,
		Intensity:      IntensityFor(confidence),
		ChannelWeights: weights,
	}
}

// FuseMajority is the degraded fallback: a channel-blind majority vote over
// raw observations. It never fails.
func (e *Engine) FuseMajority(obs []domain.EmotionObservation) domain.UnifiedState {
	if len(obs) == 0 {
		return e.Baseline()
	}

	counts := make(map[string]int, len(obs))
	firstSeen := make(map[string]int, len(obs))
	confSum := 0.0
	for i, o := range obs {
		label := domain.CanonicalLabel(o.PrimaryLabel)
		if _, ok := firstSeen[label]; !ok {
			firstSeen[label] = i
		}
		counts[label]++
		confSum += clamp01(o.PrimaryConfidence)
	}

	primary := ""
	primaryCount := 0
	for label, n := range counts {
		if n > primaryCount || (n == primaryCount && firstSeen[label] < firstSeen[primary]) {
			primary = label
			primaryCount = n
		}
	}

	confidence := clamp01(confSum / float64(len(obs)))
	return domain.UnifiedState{
		PrimaryEmotion: primary,
		Confidence:     confidence,
		Intensity:      IntensityFor(confidence),
	}
}

// Baseline is the fixed neutral state returned when no observations exist.
func (e *Engine) Baseline() domain.UnifiedState {
	return domain.UnifiedState{
		PrimaryEmotion: "neutral",
		Confidence:     e.cfg.NeutralBaseline,
		Intensity:      1,
		Temporal: domain.TemporalSummary{
			Trend:      domain.TrendStable,
			Volatility: domain.VolatilityLow,
			Pattern:    domain.PatternBaseline,
		},
		Risk: domain.RiskAssessment{Level: domain.RiskLow, Score: 0},
	}
}

// qualityFactor down-weights channels with low confidence, unstable
// readings, or too few samples to trust.
func (e *Engine) qualityFactor(ins domain.ChannelInsight) float64 {
	sufficiency := math.Min(float64(ins.SampleCount)/e.cfg.FullSampleCount, 1)
	q := math.Sqrt(clamp01(ins.Confidence) * clamp01(ins.Stability) * sufficiency)
	return clamp01(q)
}

// IntensityFor derives the 1..10 intensity band from a confidence value.
func IntensityFor(confidence float64) int {
	n := int(math.Floor(clamp01(confidence)*10)) + 1
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
