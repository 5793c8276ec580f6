package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// RateLimitedClient holds every call until the token bucket allows it,
// keeping one process under the provider's quota.
type RateLimitedClient struct {
	next    domain.Generator
	limiter *rate.Limiter
}

func NewRateLimitedClient(next domain.Generator, perSecond float64, burst int) *RateLimitedClient {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Generate implements domain.Generator.
func (c *RateLimitedClient) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return c.next.Generate(ctx, req)
}
