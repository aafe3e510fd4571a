package enhancer

import (
	"strings"
	"testing"
)

func TestParseAdjustmentValidPayload(t *testing.T) {
	adj, err := parseAdjustment(`{"confidence_adjustment": 0.1, "risk_adjustment": "increase", "interpretation": "signal looks genuine", "recommendations": ["take a break"]}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if adj.ConfidenceAdjustment != 0.1 {
		t.Fatalf("confidence_adjustment=%v, want 0.1", adj.ConfidenceAdjustment)
	}
	if adj.RiskAdjustment != "increase" {
		t.Fatalf("risk_adjustment=%q, want increase", adj.RiskAdjustment)
	}
	if len(adj.Recommendations) != 1 {
		t.Fatalf("recommendations=%v, want one entry", adj.Recommendations)
	}
}

func TestParseAdjustmentStripsCodeFence(t *testing.T) {
	adj, err := parseAdjustment("```json\n{\"confidence_adjustment\": -0.2, \"risk_adjustment\": \"none\"}\n```")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if adj.ConfidenceAdjustment != -0.2 {
		t.Fatalf("confidence_adjustment=%v, want -0.2", adj.ConfidenceAdjustment)
	}
}

func TestParseAdjustmentEmptyRiskMeansNone(t *testing.T) {
	adj, err := parseAdjustment(`{"confidence_adjustment": 0}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if adj.RiskAdjustment != "none" {
		t.Fatalf("risk_adjustment=%q, want none", adj.RiskAdjustment)
	}
}

func TestParseAdjustmentRejectsOutOfRangeConfidence(t *testing.T) {
	if _, err := parseAdjustment(`{"confidence_adjustment": 0.5}`); err == nil {
		t.Fatal("want error for confidence_adjustment above 0.3")
	}
	if _, err := parseAdjustment(`{"confidence_adjustment": -0.31}`); err == nil {
		t.Fatal("want error for confidence_adjustment below -0.3")
	}
}

func TestParseAdjustmentRejectsInvalidRiskAdjustment(t *testing.T) {
	if _, err := parseAdjustment(`{"confidence_adjustment": 0, "risk_adjustment": "escalate"}`); err == nil {
		t.Fatal("want error for unknown risk_adjustment value")
	}
}

func TestParseAdjustmentRejectsUnknownFields(t *testing.T) {
	if _, err := parseAdjustment(`{"confidence_adjustment": 0, "severity": 9}`); err == nil {
		t.Fatal("want error for unknown field")
	}
}

func TestParseAdjustmentRejectsNonJSON(t *testing.T) {
	if _, err := parseAdjustment("the subject seems fine"); err == nil {
		t.Fatal("want error for prose response")
	}
}

func TestParseAdjustmentTruncatesRecommendations(t *testing.T) {
	adj, err := parseAdjustment(`{"confidence_adjustment": 0, "recommendations": ["a","b","c","d","e","f","g"]}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(adj.Recommendations) != 5 {
		t.Fatalf("recommendations has %d entries, want 5", len(adj.Recommendations))
	}
}

func TestBuildPromptPinsSchema(t *testing.T) {
	prompt := buildPrompt(Input{ObservationSummary: "3 observations in window"})
	if !strings.Contains(prompt, "confidence_adjustment") {
		t.Fatal("prompt missing confidence_adjustment schema")
	}
	if !strings.Contains(prompt, "3 observations in window") {
		t.Fatal("prompt missing observation summary")
	}
}
