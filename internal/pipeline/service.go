package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"emofuse/internal/channel"
	"emofuse/internal/domain"
	"emofuse/internal/enhancer"
	"emofuse/internal/fusion"
	"emofuse/internal/recommend"
	"emofuse/internal/risk"
	"emofuse/internal/temporal"
)

// ObservationSource reads one subject/session observation window in
// non-decreasing timestamp order.
type ObservationSource interface {
	FetchObservations(ctx context.Context, subjectID, sessionID string, from, to time.Time) ([]domain.EmotionObservation, error)
}

// ResultSink persists the final state and recommendations, idempotent by
// (subject_id, timestamp).
type ResultSink interface {
	SaveResult(ctx context.Context, state domain.UnifiedState, recs domain.RecommendationSet) error
}

type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert domain.AlertEvent) error
}

type Config struct {
	Window          time.Duration
	StoreTimeout    time.Duration
	EnhancerTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Window:          5 * time.Minute,
		StoreTimeout:    3 * time.Second,
		EnhancerTimeout: 5 * time.Second,
	}
}

// Service runs one fusion pass end to end. A pass is a pure function of
// the observation window and fixed configuration; no state is shared
// between passes, so passes may run concurrently without coordination.
type Service struct {
	cfg       Config
	source    ObservationSource
	sink      ResultSink
	publisher AlertPublisher
	enhance   enhancer.Provider

	analyzer  *channel.Analyzer
	engine    *fusion.Engine
	temporal  *temporal.Analyzer
	assessor  *risk.Assessor
	generator *recommend.Generator
	logger    *slog.Logger
}

func New(cfg Config, source ObservationSource, sink ResultSink, publisher AlertPublisher, enhance enhancer.Provider, generator *recommend.Generator, logger *slog.Logger) *Service {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultConfig().StoreTimeout
	}
	if cfg.EnhancerTimeout <= 0 {
		cfg.EnhancerTimeout = DefaultConfig().EnhancerTimeout
	}
	if enhance == nil {
		enhance = enhancer.Disabled{}
	}
	if generator == nil {
		generator = recommend.NewGenerator(recommend.DefaultCatalog())
	}
	return &Service{
		cfg:       cfg,
		source:    source,
		sink:      sink,
		publisher: publisher,
		enhance:   enhance,
		analyzer:  channel.NewAnalyzer(),
		engine:    fusion.NewEngine(fusion.DefaultConfig()),
		temporal:  temporal.NewAnalyzer(temporal.DefaultConfig()),
		assessor:  risk.NewAssessor(risk.DefaultConfig()),
		generator: generator,
		logger:    logger,
	}
}

// TriggerPass runs a pass anchored at the current time. Used by the MQTT
// observation-event subscription.
func (s *Service) TriggerPass(ctx context.Context, subjectID, sessionID string) error {
	_, _, err := s.RunPass(ctx, subjectID, sessionID, time.Now().UTC())
	return err
}

// RunPass reads the window ending at `at`, fuses it, and persists the
// result. The only error it returns is a failed window read or sink write;
// both are retryable and idempotent to retry. Every computation fault
// inside the pass degrades to a well-defined fallback instead.
func (s *Service) RunPass(ctx context.Context, subjectID, sessionID string, at time.Time) (domain.UnifiedState, domain.RecommendationSet, error) {
	passStart := time.Now()
	at = at.UTC()

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	obs, err := s.source.FetchObservations(fetchCtx, subjectID, sessionID, at.Add(-s.cfg.Window), at)
	cancel()
	if err != nil {
		return domain.UnifiedState{}, domain.RecommendationSet{}, fmt.Errorf("fetch observation window: %w", err)
	}

	state, insights := s.computeState(obs)
	state.SubjectID = subjectID
	state.SessionID = sessionID
	state.Timestamp = at
	state.Risk = s.assessRisk(state, insights)

	state, extras := s.applyEnhancement(ctx, state, obs)
	recs := s.generator.Generate(state, state.Risk)
	recs = recommend.AppendExtras(recs, extras)

	saveCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	err = s.sink.SaveResult(saveCtx, state, recs)
	cancel()
	if err != nil {
		return domain.UnifiedState{}, domain.RecommendationSet{}, fmt.Errorf("persist fusion result: %w", err)
	}

	s.emitAlert(ctx, state, recs)

	s.logger.Info("fusion pass complete",
		"subject_id", subjectID,
		"session_id", sessionID,
		"observations", len(obs),
		"primary_emotion", state.PrimaryEmotion,
		"risk_level", state.Risk.Level,
		"total_ms", time.Since(passStart).Milliseconds(),
	)
	return state, recs, nil
}

// computeState runs channel analysis, weighted fusion, and temporal
// analysis. A panic anywhere degrades to the majority-vote fallback.
func (s *Service) computeState(obs []domain.EmotionObservation) (state domain.UnifiedState, insights map[string]domain.ChannelInsight) {
	if len(obs) == 0 {
		return s.engine.Baseline(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("fusion stage fault, using majority-vote fallback", "panic", r)
			state = s.engine.FuseMajority(obs)
			state.Temporal = s.safeTemporal(obs)
			insights = nil
		}
	}()

	byChannel := make(map[string][]domain.EmotionObservation, 3)
	for _, o := range obs {
		byChannel[o.Channel] = append(byChannel[o.Channel], o)
	}
	insights = make(map[string]domain.ChannelInsight, len(byChannel))
	for ch, group := range byChannel {
		insights[ch] = s.analyzer.Analyze(ch, group)
	}

	state = s.engine.Fuse(insights)
	state.Temporal = s.safeTemporal(obs)
	return state, insights
}

func (s *Service) assessRisk(state domain.UnifiedState, insights map[string]domain.ChannelInsight) (out domain.RiskAssessment) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("risk stage fault, defaulting to low", "panic", r)
			out = domain.RiskAssessment{Level: domain.RiskLow, Score: 0}
		}
	}()
	if state.Temporal.Pattern == domain.PatternBaseline {
		// Baseline state carries its fixed low-risk assessment.
		return state.Risk
	}
	return s.assessor.Assess(state, insights)
}

func (s *Service) safeTemporal(obs []domain.EmotionObservation) (out domain.TemporalSummary) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("temporal stage fault, defaulting to stable", "panic", r)
			out = domain.TemporalSummary{
				Trend:      domain.TrendStable,
				Volatility: domain.VolatilityLow,
				Pattern:    domain.PatternInsufficientData,
			}
		}
	}()
	return s.temporal.Analyze(obs)
}

// applyEnhancement asks the optional AI enhancer for a bounded adjustment.
// Unavailability, timeout, or malformed output silently keeps the
// pre-enhancement result.
func (s *Service) applyEnhancement(ctx context.Context, state domain.UnifiedState, obs []domain.EmotionObservation) (domain.UnifiedState, []string) {
	enhCtx, cancel := context.WithTimeout(ctx, s.cfg.EnhancerTimeout)
	defer cancel()

	adj, err := s.enhance.Enhance(enhCtx, enhancer.Input{
		State:              state,
		Risk:               state.Risk,
		ObservationSummary: summarizeObservations(obs),
	})
	if err != nil {
		if err != enhancer.ErrDisabled {
			s.logger.Warn("enhancer unavailable, keeping computed result", "error", err)
		}
		return state, nil
	}

	state.Confidence = clamp01(state.Confidence + adj.ConfidenceAdjustment)
	state.Intensity = fusion.IntensityFor(state.Confidence)
	switch adj.RiskAdjustment {
	case "increase":
		state.Risk.Level = domain.RiskLevelAt(domain.RiskLevelRank(state.Risk.Level) + 1)
	case "decrease":
		state.Risk.Level = domain.RiskLevelAt(domain.RiskLevelRank(state.Risk.Level) - 1)
	}
	if adj.Interpretation != "" {
		state.Interpretation = adj.Interpretation
	}
	return state, adj.Recommendations
}

func (s *Service) emitAlert(ctx context.Context, state domain.UnifiedState, recs domain.RecommendationSet) {
	if s.publisher == nil {
		return
	}
	if state.Risk.Level != domain.RiskHigh && state.Risk.Level != domain.RiskCritical {
		return
	}

	alert := domain.AlertEvent{
		SubjectID:                state.SubjectID,
		SessionID:                state.SessionID,
		RiskLevel:                state.Risk.Level,
		PrimaryEmotion:           state.PrimaryEmotion,
		Intensity:                state.Intensity,
		Confidence:               state.Confidence,
		ImmediateRecommendations: recs.Immediate,
		RequiresIntervention:     state.Risk.Level == domain.RiskCritical,
		TS:                       state.Timestamp.Format(time.RFC3339Nano),
	}
	if err := s.publisher.PublishAlert(ctx, alert); err != nil {
		s.logger.Error("alert emission failed", "subject_id", state.SubjectID, "risk_level", state.Risk.Level, "error", err)
	}
}

func summarizeObservations(obs []domain.EmotionObservation) string {
	if len(obs) == 0 {
		return ""
	}
	counts := make(map[string]int, 3)
	for _, o := range obs {
		counts[o.Channel]++
	}
	return fmt.Sprintf("%d observations in window (face=%d voice=%d text=%d)",
		len(obs), counts[domain.ChannelFace], counts[domain.ChannelVoice], counts[domain.ChannelText])
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
