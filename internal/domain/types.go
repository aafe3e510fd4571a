package domain

import "time"

// Channels producing emotion observations.
const (
	ChannelFace  = "face"
	ChannelVoice = "voice"
	ChannelText  = "text"
)

// Trend values.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// Volatility values.
const (
	VolatilityLow    = "low"
	VolatilityMedium = "medium"
	VolatilityHigh   = "high"
)

// Sequence pattern values.
const (
	PatternInsufficientData   = "insufficient_data"
	PatternConstant           = "constant"
	PatternAlternating        = "alternating"
	PatternEscalatingPositive = "escalating_positive"
	PatternEscalatingNegative = "escalating_negative"
	PatternVariable           = "variable"
	PatternBaseline           = "baseline"
)

// Risk levels, ordered low to critical.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// EmotionObservation is one reading from one channel at one instant.
// Observations are append-only; the engine reads a window and discards it.
type EmotionObservation struct {
	SubjectID         string    `json:"subject_id"`
	SessionID         string    `json:"session_id"`
	Channel           string    `json:"channel"`
	Timestamp         time.Time `json:"timestamp"`
	Labels            []Label   `json:"labels,omitempty"`
	PrimaryLabel      string    `json:"primary_label"`
	PrimaryConfidence float64   `json:"primary_confidence"`
}

// ChannelInsight is the per-channel reduction of one observation window.
// Stability is 1.0 whenever SampleCount < 2.
type ChannelInsight struct {
	Channel      string  `json:"channel"`
	PrimaryLabel string  `json:"primary_label"`
	Confidence   float64 `json:"confidence"`
	Stability    float64 `json:"stability"`
	SampleCount  int     `json:"sample_count"`
}

type TemporalSummary struct {
	Trend      string `json:"trend"`
	Volatility string `json:"volatility"`
	Pattern    string `json:"pattern"`
}

type RiskAssessment struct {
	Level   string   `json:"level"`
	Score   float64  `json:"score"`
	Factors []string `json:"factors,omitempty"`
}

// UnifiedState is the output of one fusion pass.
type UnifiedState struct {
	SubjectID      string             `json:"subject_id"`
	SessionID      string             `json:"session_id"`
	PrimaryEmotion string             `json:"primary_emotion"`
	Confidence     float64            `json:"confidence"`
	Intensity      int                `json:"intensity"`
	ChannelWeights map[string]float64 `json:"channel_weights,omitempty"`
	Temporal       TemporalSummary    `json:"temporal"`
	Risk           RiskAssessment     `json:"risk"`
	Interpretation string             `json:"interpretation,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

type RecommendationSet struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
	Priority  string   `json:"priority"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// EnhancerAdjustment is the schema-validated response of the optional AI
// enhancer. ConfidenceAdjustment is bounded to [-0.3, 0.3] and
// RiskAdjustment shifts the risk level by at most one step.
type EnhancerAdjustment struct {
	ConfidenceAdjustment float64  `json:"confidence_adjustment"`
	RiskAdjustment       string   `json:"risk_adjustment"`
	Interpretation       string   `json:"interpretation,omitempty"`
	Recommendations      []string `json:"recommendations,omitempty"`
}

// MQTT payloads

type AlertEvent struct {
	SubjectID                string   `json:"subject_id"`
	SessionID                string   `json:"session_id"`
	RiskLevel                string   `json:"risk_level"`
	PrimaryEmotion           string   `json:"primary_emotion"`
	Intensity                int      `json:"intensity"`
	Confidence               float64  `json:"confidence"`
	ImmediateRecommendations []string `json:"immediate_recommendations,omitempty"`
	RequiresIntervention     bool     `json:"requires_intervention"`
	TS                       string   `json:"ts,omitempty"`
}

// ObservationEvent announces that a channel appended a new observation for
// a subject/session, so the engine can run a fusion pass.
type ObservationEvent struct {
	SubjectID string `json:"subject_id"`
	SessionID string `json:"session_id"`
	Channel   string `json:"channel,omitempty"`
	TS        string `json:"ts,omitempty"`
}

// RiskLevelRank orders risk levels for monotonicity checks and one-step
// enhancer shifts. Unknown levels rank as low.
func RiskLevelRank(level string) int {
	switch level {
	case RiskCritical:
		return 3
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// RiskLevelAt is the inverse of RiskLevelRank, clamped to the valid range.
func RiskLevelAt(rank int) string {
	switch {
	case rank >= 3:
		return RiskCritical
	case rank == 2:
		return RiskHigh
	case rank == 1:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ValidChannel reports whether ch is one of the three known channels.
func ValidChannel(ch string) bool {
	return ch == ChannelFace || ch == ChannelVoice || ch == ChannelText
}
