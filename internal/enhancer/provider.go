package enhancer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"emofuse/internal/domain"
)

// ErrDisabled marks the explicit no-op provider; callers treat it like any
// other enhancer failure and keep the pre-enhancement result.
var ErrDisabled = errors.New("enhancer disabled")

// Input is the serialized fusion result handed to the enhancer.
type Input struct {
	State              domain.UnifiedState
	Risk               domain.RiskAssessment
	ObservationSummary string
}

// Provider returns a bounded adjustment for a computed fusion result. Any
// error means "enhancer unavailable" and must never fail the pass.
type Provider interface {
	Enhance(ctx context.Context, in Input) (domain.EnhancerAdjustment, error)
}

type Config struct {
	Provider         string
	Model            string
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	AnthropicBaseURL string
	AnthropicAPIKey  string
}

func NewProvider(cfg Config) (Provider, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(client, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model), nil
	case "claude":
		return NewClaudeProvider(client, cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.Model), nil
	case "", "disabled":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unsupported enhancer provider: %s", cfg.Provider)
	}
}

// Disabled is the explicit "no enhancer" variant, used instead of a nil
// provider so wiring never branches on nullability.
type Disabled struct{}

func (Disabled) Enhance(context.Context, Input) (domain.EnhancerAdjustment, error) {
	return domain.EnhancerAdjustment{}, ErrDisabled
}
