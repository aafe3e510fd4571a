package enhancer

import (
	"encoding/json"
	"fmt"
	"strings"

	"emofuse/internal/domain"
)

const (
	maxConfidenceAdjustment = 0.3
	maxExtraRecommendations = 5
)

// buildPrompt renders the fusion result as the structured request the
// model sees. The instructions pin the exact response schema.
func buildPrompt(in Input) string {
	stateJSON, _ := json.Marshal(in.State)
	riskJSON, _ := json.Marshal(in.Risk)

	var sb strings.Builder
	sb.WriteString("You review the output of an automated emotional-state fusion engine.\n")
	sb.WriteString("Unified state: ")
	sb.Write(stateJSON)
	sb.WriteString("\nRisk assessment: ")
	sb.Write(riskJSON)
	if in.ObservationSummary != "" {
		sb.WriteString("\nObservation summary: ")
		sb.WriteString(in.ObservationSummary)
	}
	sb.WriteString("\n\nRespond with a single JSON object and nothing else:\n")
	sb.WriteString(`{"confidence_adjustment": <number in [-0.3, 0.3]>, "risk_adjustment": "increase"|"decrease"|"none", "interpretation": "<one sentence>", "recommendations": ["<optional extra coping suggestions>"]}`)
	sb.WriteString("\nUse 0 and \"none\" when the computed result already looks right.")
	return sb.String()
}

// parseAdjustment validates the model output against the bounded-adjustment
// schema. Anything out of contract is an error, which callers treat as
// "enhancer unavailable".
func parseAdjustment(raw string) (domain.EnhancerAdjustment, error) {
	text := strings.TrimSpace(raw)
	// Models occasionally wrap JSON in a code fence; strip it.
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var adj domain.EnhancerAdjustment
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&adj); err != nil {
		return domain.EnhancerAdjustment{}, fmt.Errorf("invalid enhancer payload: %w", err)
	}

	if adj.ConfidenceAdjustment < -maxConfidenceAdjustment || adj.ConfidenceAdjustment > maxConfidenceAdjustment {
		return domain.EnhancerAdjustment{}, fmt.Errorf("confidence_adjustment out of range: %v", adj.ConfidenceAdjustment)
	}
	switch adj.RiskAdjustment {
	case "", "none":
		adj.RiskAdjustment = "none"
	case "increase", "decrease":
	default:
		return domain.EnhancerAdjustment{}, fmt.Errorf("invalid risk_adjustment: %q", adj.RiskAdjustment)
	}
	if len(adj.Recommendations) > maxExtraRecommendations {
		adj.Recommendations = adj.Recommendations[:maxExtraRecommendations]
	}
	return adj, nil
}
