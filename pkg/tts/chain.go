package tts

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"
)

// Chain implements Provider by trying providers in order.
// The first success wins; if all fail the errors are combined.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a provider chain. At least one provider is required.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(slog.Default(), providers...)
}

// NewChainWithLogger creates a provider chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "tts.chain"),
	}, nil
}

// Synthesize tries each provider until one succeeds.
// The returned error wraps ErrAllProvidersFailed and every provider's error.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	var errs error

	for i, p := range c.providers {
		result, err := p.Synthesize(ctx, text)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded", "provider_index", i, "chars", len(text))
			}
			return result, nil
		}

		errs = multierr.Append(errs, err)
		c.logger.Warn("provider failed, trying next", "provider_index", i, "error", err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, multierr.Append(ErrAllProvidersFailed, errs)
}

// Health succeeds if at least one provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs error
	healthy := 0

	for _, p := range c.providers {
		if err := p.Health(ctx); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		healthy++
	}

	c.logger.Debug("health check complete", "healthy", healthy, "total", len(c.providers))

	if healthy == 0 {
		return fmt.Errorf("all %d providers unhealthy: %w", len(c.providers), errs)
	}
	return nil
}

// Close closes every provider and combines their errors.
func (c *Chain) Close() error {
	var errs error
	for _, p := range c.providers {
		errs = multierr.Append(errs, p.Close())
	}
	return errs
}

// Providers returns the providers in the chain.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)
