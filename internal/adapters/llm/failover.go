package llm

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/PabloGalante/chatflow/internal/domain"
	"github.com/PabloGalante/chatflow/internal/observability"
)

// Provider is a named generator, used for failover ordering and logs.
type Provider struct {
	Name      string
	Generator domain.Generator
}

// FailoverClient tries providers in order, moving on only for retryable
// errors (auth, quota, 5xx, timeouts).
type FailoverClient struct {
	providers []Provider
	log       *zerolog.Logger
}

func NewFailoverClient(primary Provider, fallbacks ...Provider) *FailoverClient {
	return &FailoverClient{
		providers: append([]Provider{primary}, fallbacks...),
		log:       observability.Sub("llm.failover"),
	}
}

// Generate implements domain.Generator.
func (f *FailoverClient) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	lastErr := errors.New("no providers configured")
	for _, p := range f.providers {
		resp, err := p.Generator.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}

		if IsRetryable(err) {
			f.log.Warn().
				Str("provider", p.Name).
				Str("request", req.Name).
				Err(err).
				Msg("retryable error, trying next provider")
			continue
		}

		// non-retryable: stop here
		return nil, err
	}

	return nil, lastErr
}
