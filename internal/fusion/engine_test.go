package fusion

import (
	"math"
	"testing"

	"emofuse/internal/domain"
)

func TestFuseWeightsSumToOne(t *testing.T) {
	e := NewEngine(DefaultConfig())
	state := e.Fuse(map[string]domain.ChannelInsight{
		domain.ChannelVoice: {Channel: domain.ChannelVoice, PrimaryLabel: "stressed", Confidence: 0.9, Stability: 1.0, SampleCount: 3},
		domain.ChannelFace:  {Channel: domain.ChannelFace, PrimaryLabel: "stressed", Confidence: 0.6, Stability: 0.8, SampleCount: 2},
		domain.ChannelText:  {Channel: domain.ChannelText, PrimaryLabel: "neutral", Confidence: 0.4, Stability: 0.5, SampleCount: 1},
	})

	sum := 0.0
	for _, w := range state.ChannelWeights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Fatalf("weight sum=%.9f, want 1.0 within 1e-6", sum)
	}
}

func TestFuseSingleHighConfidenceVoice(t *testing.T) {
	e := NewEngine(DefaultConfig())
	state := e.Fuse(map[string]domain.ChannelInsight{
		domain.ChannelVoice: {Channel: domain.ChannelVoice, PrimaryLabel: "stressed", Confidence: 0.9, Stability: 1.0, SampleCount: 3},
	})

	if state.PrimaryEmotion != "stressed" {
		t.Fatalf("primary=%s, want stressed", state.PrimaryEmotion)
	}
	assertNear(t, state.Confidence, 0.9)
	if state.Intensity != 10 {
		t.Fatalf("intensity=%d, want 10", state.Intensity)
	}
	assertNear(t, state.ChannelWeights[domain.ChannelVoice], 1.0)
}

func TestFuseEqualWeightFallbackOnZeroQuality(t *testing.T) {
	e := NewEngine(DefaultConfig())
	state := e.Fuse(map[string]domain.ChannelInsight{
		domain.ChannelVoice: {Channel: domain.ChannelVoice, PrimaryLabel: "sad", Confidence: 0, Stability: 1.0, SampleCount: 1},
		domain.ChannelText:  {Channel: domain.ChannelText, PrimaryLabel: "sad", Confidence: 0, Stability: 1.0, SampleCount: 1},
	})

	assertNear(t, state.ChannelWeights[domain.ChannelVoice], 0.5)
	assertNear(t, state.ChannelWeights[domain.ChannelText], 0.5)
	if state.Intensity != 1 {
		t.Fatalf("intensity=%d, want 1 at zero confidence", state.Intensity)
	}
}

func TestFuseTieBreaksLexicographically(t *testing.T) {
	e := NewEngine(DefaultConfig())
	// Identical quality and confidence on both channels forces a score tie
	// between the two labels after the base weights are evened out.
	state := e.Fuse(map[string]domain.ChannelInsight{
		domain.ChannelVoice: {Channel: domain.ChannelVoice, PrimaryLabel: "sad", Confidence: 0, Stability: 1.0, SampleCount: 1},
		domain.ChannelText:  {Channel: domain.ChannelText, PrimaryLabel: "angry", Confidence: 0, Stability: 1.0, SampleCount: 1},
	})
	if state.PrimaryEmotion != "angry" {
		t.Fatalf("primary=%s, want angry (lexicographically smallest on tie)", state.PrimaryEmotion)
	}
}

func TestFuseNoParticipatingChannelsYieldsBaseline(t *testing.T) {
	e := NewEngine(DefaultConfig())
	state := e.Fuse(map[string]domain.ChannelInsight{
		domain.ChannelFace: {Channel: domain.ChannelFace, PrimaryLabel: "neutral", SampleCount: 0},
	})

	if state.PrimaryEmotion != "neutral" {
		t.Fatalf("primary=%s, want neutral", state.PrimaryEmotion)
	}
	assertNear(t, state.Confidence, 0.5)
	if state.Intensity != 1 {
		t.Fatalf("intensity=%d, want 1", state.Intensity)
	}
	if state.Risk.Level != domain.RiskLow {
		t.Fatalf("risk=%s, want low", state.Risk.Level)
	}
	if state.Temporal.Pattern != domain.PatternBaseline {
		t.Fatalf("pattern=%s, want baseline", state.Temporal.Pattern)
	}
}

func TestFuseMajorityVote(t *testing.T) {
	e := NewEngine(DefaultConfig())
	state := e.FuseMajority([]domain.EmotionObservation{
		{Channel: domain.ChannelFace, PrimaryLabel: "angry", PrimaryConfidence: 0.8},
		{Channel: domain.ChannelVoice, PrimaryLabel: "angry", PrimaryConfidence: 0.6},
		{Channel: domain.ChannelText, PrimaryLabel: "sad", PrimaryConfidence: 0.4},
	})

	if state.PrimaryEmotion != "angry" {
		t.Fatalf("primary=%s, want angry", state.PrimaryEmotion)
	}
	assertNear(t, state.Confidence, (0.8+0.6+0.4)/3)
	if state.Intensity != IntensityFor(state.Confidence) {
		t.Fatalf("intensity=%d, want derived %d", state.Intensity, IntensityFor(state.Confidence))
	}
}

func TestIntensityForBands(t *testing.T) {
	cases := []struct {
		confidence float64
		want       int
	}{
		{0, 1},
		{0.05, 1},
		{0.1, 2},
		{0.55, 6},
		{0.9, 10},
		{1.0, 10},
	}
	for _, tc := range cases {
		if got := IntensityFor(tc.confidence); got != tc.want {
			t.Fatalf("IntensityFor(%.2f)=%d, want %d", tc.confidence, got, tc.want)
		}
	}
}

func TestFuseConfidenceStaysInRange(t *testing.T) {
	e := NewEngine(DefaultConfig())
	state := e.Fuse(map[string]domain.ChannelInsight{
		domain.ChannelVoice: {Channel: domain.ChannelVoice, PrimaryLabel: "happy", Confidence: 1.0, Stability: 1.0, SampleCount: 10},
		domain.ChannelFace:  {Channel: domain.ChannelFace, PrimaryLabel: "happy", Confidence: 1.0, Stability: 1.0, SampleCount: 10},
		domain.ChannelText:  {Channel: domain.ChannelText, PrimaryLabel: "happy", Confidence: 1.0, Stability: 1.0, SampleCount: 10},
	})
	if state.Confidence < 0 || state.Confidence > 1 {
		t.Fatalf("confidence=%.4f out of [0,1]", state.Confidence)
	}
	if state.Intensity < 1 || state.Intensity > 10 {
		t.Fatalf("intensity=%d out of [1,10]", state.Intensity)
	}
}

func assertNear(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.0001 {
		t.Fatalf("value mismatch: got=%.6f want=%.6f", got, want)
	}
}
