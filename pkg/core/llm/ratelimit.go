package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"disclosurecore/pkg/core/errs"
)

// RateLimited wraps a Provider with a token-bucket limiter so bursts of
// concurrent section/comparison calls from the bounded worker pools don't
// exceed a configured requests-per-second budget against one backend.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps p with a limiter allowing ratePerSecond steady-state
// requests and a burst of burst requests.
func NewRateLimited(p Provider, ratePerSecond float64, burst int) *RateLimited {
	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (r *RateLimited) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w: %w", errs.Timeout, err)
	}
	return r.Provider.GenerateResponse(ctx, prompt, systemPrompt, options)
}

func (r *RateLimited) GenerateVisionResponse(ctx context.Context, prompt string, systemPrompt string, images [][]byte, options map[string]interface{}) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w: %w", errs.Timeout, err)
	}
	return r.Provider.GenerateVisionResponse(ctx, prompt, systemPrompt, images, options)
}
