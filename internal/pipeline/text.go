package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/provider-cli/internal/config"
	"github.com/sells-group/provider-cli/internal/resilience"
	"github.com/sells-group/provider-cli/pkg/anthropic"
)

// Prompt purposes.
const (
	PurposePlausibility = "plausibility"
	PurposeSpecialty    = "specialty"
)

// TextRequest is one single-turn prompt.
type TextRequest struct {
	// Purpose labels the prompt for logs and cost attribution.
	Purpose string
	// Subject is the provider name the prompt is about.
	Subject     string
	Prompt      string
	Temperature float64
	MaxTokens   int64
}

// TextGenerator sends a prompt to a generative text service and returns the
// reply text.
type TextGenerator interface {
	Generate(ctx context.Context, req TextRequest) (string, error)
}

// Prompt settings for the two text calls a record can make.
type PromptSettings struct {
	ValidationTemp      float64
	ValidationMaxTokens int64
	SpecialtyTemp       float64
	SpecialtyMaxTokens  int64
}

// DefaultPromptSettings returns the sampling used when configuration is
// absent.
func DefaultPromptSettings() PromptSettings {
	return PromptSettings{
		ValidationTemp:      0.3,
		ValidationMaxTokens: 150,
		SpecialtyTemp:       0.5,
		SpecialtyMaxTokens:  20,
	}
}

// PromptSettingsFromConfig reads prompt settings from the anthropic config
// section, keeping defaults for unset token limits.
func PromptSettingsFromConfig(c config.AnthropicConfig) PromptSettings {
	s := DefaultPromptSettings()
	s.ValidationTemp = c.ValidationTemp
	s.SpecialtyTemp = c.SpecialtyTemp
	if c.ValidationMaxTokens > 0 {
		s.ValidationMaxTokens = c.ValidationMaxTokens
	}
	if c.SpecialtyMaxTokens > 0 {
		s.SpecialtyMaxTokens = c.SpecialtyMaxTokens
	}
	return s
}

// AnthropicGenerator implements TextGenerator with the Anthropic Messages API.
type AnthropicGenerator struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	guard   *resilience.Guard
	limiter *rate.Limiter
}

// NewAnthropicGenerator wraps client. A zero timeout defaults to 30s; a nil
// guard disables retries and the circuit breaker.
func NewAnthropicGenerator(client anthropic.Client, model string, timeout time.Duration, guard *resilience.Guard) *AnthropicGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AnthropicGenerator{
		client:  client,
		model:   model,
		timeout: timeout,
		guard:   guard,
	}
}

// WithRateLimit caps requests per second across all prompts. rps <= 0
// leaves requests unthrottled.
func (g *AnthropicGenerator) WithRateLimit(rps float64) *AnthropicGenerator {
	if rps > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return g
}

// Generate implements TextGenerator. Failures come back as *ServiceError.
func (g *AnthropicGenerator) Generate(ctx context.Context, req TextRequest) (string, error) {
	temp := req.Temperature
	msgReq := anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   req.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	}

	resp, err := resilience.Call(ctx, g.guard, req.Purpose, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.CreateMessage(callCtx, msgReq)
		if err != nil {
			if code := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(code) {
				return nil, resilience.NewTransientError(err, code)
			}
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return "", &ServiceError{Service: ServiceText, Op: req.Purpose, Err: err}
	}

	resp.Usage.LogCost(g.model, req.Purpose)
	zap.L().Debug("pipeline: text generated",
		zap.String("purpose", req.Purpose),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return resp.Text(), nil
}
