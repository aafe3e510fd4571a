package risk

import (
	"emofuse/internal/domain"
)

// Factor names recorded on the assessment for explainability.
const (
	FactorHighRiskEmotion     = "high_risk_emotion"
	FactorModerateRiskEmotion = "moderate_risk_emotion"
	FactorHighIntensity       = "high_intensity"
	FactorElevatedIntensity   = "elevated_intensity"
	FactorHighConfidence      = "high_confidence"
	FactorModerateConfidence  = "moderate_confidence"
	FactorCrossChannelAgree   = "cross_channel_agreement"
)

// Config holds the additive scoring knobs and the score-to-level cut
// points. Levels are monotonic in score by construction.
type Config struct {
	HighIntensityBoost      float64
	ElevatedIntensityBoost  float64
	HighConfidenceBoost     float64
	ModerateConfidenceBoost float64
	CorroborationBoost      float64
	CriticalCutoff          float64
	HighCutoff              float64
	MediumCutoff            float64
}

func DefaultConfig() Config {
	return Config{
		HighIntensityBoost:      1.5,
		ElevatedIntensityBoost:  0.5,
		HighConfidenceBoost:     0.5,
		ModerateConfidenceBoost: 0.25,
		CorroborationBoost:      1.0,
		CriticalCutoff:          5,
		HighCutoff:              4,
		MediumCutoff:            2.5,
	}
}

type Assessor struct {
	cfg Config
}

func NewAssessor(cfg Config) *Assessor {
	if cfg.CriticalCutoff <= 0 {
		cfg = DefaultConfig()
	}
	return &Assessor{cfg: cfg}
}

// Assess scores a unified state against its per-channel insights. Agreement
// between channels on a high-risk emotion raises risk (corroboration means
// the signal is genuine, not channel noise).
func (a *Assessor) Assess(state domain.UnifiedState, insights map[string]domain.ChannelInsight) domain.RiskAssessment {
	emotion := domain.CanonicalLabel(state.PrimaryEmotion)
	score := 1.0
	factors := make([]string, 0, 4)

	switch {
	case domain.IsHighRiskLabel(emotion):
		score = 3
		factors = append(factors, FactorHighRiskEmotion)
	case domain.IsModerateRiskLabel(emotion):
		score = 2
		factors = append(factors, FactorModerateRiskEmotion)
	}

	switch {
	case state.Intensity >= 8:
		score += a.cfg.HighIntensityBoost
		factors = append(factors, FactorHighIntensity)
	case state.Intensity >= 6:
		score += a.cfg.ElevatedIntensityBoost
		factors = append(factors, FactorElevatedIntensity)
	}

	switch {
	case state.Confidence >= 0.8:
		score += a.cfg.HighConfidenceBoost
		factors = append(factors, FactorHighConfidence)
	case state.Confidence >= 0.6:
		score += a.cfg.ModerateConfidenceBoost
		factors = append(factors, FactorModerateConfidence)
	}

	if domain.IsHighRiskLabel(emotion) && agreeingChannels(emotion, insights) >= 2 {
		score += a.cfg.CorroborationBoost
		factors = append(factors, FactorCrossChannelAgree)
	}

	return domain.RiskAssessment{
		Level:   a.level(score),
		Score:   score,
		Factors: factors,
	}
}

func (a *Assessor) level(score float64) string {
	switch {
	case score >= a.cfg.CriticalCutoff:
		return domain.RiskCritical
	case score >= a.cfg.HighCutoff:
		return domain.RiskHigh
	case score >= a.cfg.MediumCutoff:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func agreeingChannels(emotion string, insights map[string]domain.ChannelInsight) int {
	n := 0
	for _, ins := range insights {
		if ins.SampleCount >= 1 && domain.CanonicalLabel(ins.PrimaryLabel) == emotion {
			n++
		}
	}
	return n
}
