package channel

import (
	"math"
	"testing"

	"emofuse/internal/domain"
)

func TestAnalyzeEmptyWindow(t *testing.T) {
	a := NewAnalyzer()
	got := a.Analyze(domain.ChannelFace, nil)
	if got.PrimaryLabel != "neutral" {
		t.Fatalf("primary=%s, want neutral", got.PrimaryLabel)
	}
	if got.Confidence != 0 {
		t.Fatalf("confidence=%.2f, want 0", got.Confidence)
	}
	if got.Stability != 1.0 {
		t.Fatalf("stability=%.2f, want 1.0", got.Stability)
	}
	if got.SampleCount != 0 {
		t.Fatalf("sample_count=%d, want 0", got.SampleCount)
	}
}

func TestAnalyzeSingleSampleStability(t *testing.T) {
	a := NewAnalyzer()
	got := a.Analyze(domain.ChannelVoice, []domain.EmotionObservation{
		{Channel: domain.ChannelVoice, PrimaryLabel: "stressed", PrimaryConfidence: 0.7},
	})
	if got.Stability != 1.0 {
		t.Fatalf("stability=%.2f, want 1.0 for a single sample", got.Stability)
	}
	if got.PrimaryLabel != "stressed" {
		t.Fatalf("primary=%s, want stressed", got.PrimaryLabel)
	}
}

func TestAnalyzeModeLabelAndMeanConfidence(t *testing.T) {
	a := NewAnalyzer()
	got := a.Analyze(domain.ChannelFace, []domain.EmotionObservation{
		{PrimaryLabel: "happy", PrimaryConfidence: 0.8},
		{PrimaryLabel: "happy", PrimaryConfidence: 0.6},
		{PrimaryLabel: "sad", PrimaryConfidence: 0.4},
	})
	if got.PrimaryLabel != "happy" {
		t.Fatalf("primary=%s, want happy", got.PrimaryLabel)
	}
	assertNear(t, got.Confidence, (0.8+0.6+0.4)/3)
	if got.SampleCount != 3 {
		t.Fatalf("sample_count=%d, want 3", got.SampleCount)
	}
}

func TestAnalyzeTieBrokenByFirstSeen(t *testing.T) {
	a := NewAnalyzer()
	got := a.Analyze(domain.ChannelText, []domain.EmotionObservation{
		{PrimaryLabel: "sad", PrimaryConfidence: 0.5},
		{PrimaryLabel: "happy", PrimaryConfidence: 0.5},
		{PrimaryLabel: "happy", PrimaryConfidence: 0.5},
		{PrimaryLabel: "sad", PrimaryConfidence: 0.5},
	})
	if got.PrimaryLabel != "sad" {
		t.Fatalf("primary=%s, want sad (first seen wins ties)", got.PrimaryLabel)
	}
}

func TestAnalyzeNonPositiveConfidenceExcludedFromMean(t *testing.T) {
	a := NewAnalyzer()
	got := a.Analyze(domain.ChannelVoice, []domain.EmotionObservation{
		{PrimaryLabel: "calm", PrimaryConfidence: 0.9},
		{PrimaryLabel: "calm", PrimaryConfidence: 0},
		{PrimaryLabel: "calm", PrimaryConfidence: -0.3},
	})
	assertNear(t, got.Confidence, 0.9)
	if got.SampleCount != 3 {
		t.Fatalf("sample_count=%d, want 3 (zero-confidence samples still counted)", got.SampleCount)
	}
}

func TestStabilityUniformSplitIsZero(t *testing.T) {
	a := NewAnalyzer()
	got := a.Analyze(domain.ChannelFace, []domain.EmotionObservation{
		{PrimaryLabel: "happy", PrimaryConfidence: 0.5},
		{PrimaryLabel: "happy", PrimaryConfidence: 0.5},
		{PrimaryLabel: "sad", PrimaryConfidence: 0.5},
		{PrimaryLabel: "sad", PrimaryConfidence: 0.5},
	})
	assertNear(t, got.Stability, 0)
}

func TestStabilitySkewedDistribution(t *testing.T) {
	a := NewAnalyzer()
	got := a.Analyze(domain.ChannelFace, []domain.EmotionObservation{
		{PrimaryLabel: "happy", PrimaryConfidence: 0.5},
		{PrimaryLabel: "happy", PrimaryConfidence: 0.5},
		{PrimaryLabel: "happy", PrimaryConfidence: 0.5},
		{PrimaryLabel: "sad", PrimaryConfidence: 0.5},
	})
	// H = -(0.75 log2 0.75 + 0.25 log2 0.25) ≈ 0.811, Hmax = 1.
	assertNear(t, got.Stability, 1-0.8112781244591328)
}

func TestAnalyzeAliasedLabelsCollapse(t *testing.T) {
	a := NewAnalyzer()
	got := a.Analyze(domain.ChannelText, []domain.EmotionObservation{
		{PrimaryLabel: "anger", PrimaryConfidence: 0.8},
		{PrimaryLabel: "angry", PrimaryConfidence: 0.7},
	})
	if got.PrimaryLabel != "angry" {
		t.Fatalf("primary=%s, want angry (alias collapsed)", got.PrimaryLabel)
	}
	if got.Stability != 1.0 {
		t.Fatalf("stability=%.2f, want 1.0 after alias collapse", got.Stability)
	}
}

func assertNear(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.0001 {
		t.Fatalf("value mismatch: got=%.6f want=%.6f", got, want)
	}
}
