// Package lookup discovers agent contact details through a prioritized
// chain of external providers.
package lookup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/internal/resilience"
)

// Provider is a single contact-discovery backend.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, agent, locality, broker string) (model.Contact, error)
}

// Chain tries providers in priority order until one returns a usable
// contact. Providers inside their cool-off window are skipped.
type Chain struct {
	providers []Provider
	breakers  *resilience.ProviderBreakers
	timeout   time.Duration
}

// NewChain creates a lookup chain. timeout bounds each provider attempt.
func NewChain(breakers *resilience.ProviderBreakers, timeout time.Duration, providers ...Provider) *Chain {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Chain{
		providers: providers,
		breakers:  breakers,
		timeout:   timeout,
	}
}

// Lookup walks the chain. An exhausted chain is not an error: the
// caller treats an empty contact as unresolved.
func (c *Chain) Lookup(ctx context.Context, agent, locality, broker string) (model.Contact, error) {
	for _, p := range c.providers {
		breaker := c.breakers.Get(p.Name())
		if err := breaker.Allow(); err != nil {
			zap.L().Debug("skipping provider in cool-off",
				zap.String("provider", p.Name()),
				zap.String("agent", agent))
			continue
		}

		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		found, err := p.Lookup(pctx, agent, locality, broker)
		cancel()

		if err != nil {
			switch {
			case resilience.IsRateLimited(err):
				breaker.RecordRateLimit()
				zap.L().Warn("provider rate limited, entering cool-off",
					zap.String("provider", p.Name()),
					zap.Error(err))
			case resilience.IsTransient(err):
				breaker.RecordFailure()
				zap.L().Warn("provider lookup failed",
					zap.String("provider", p.Name()),
					zap.String("agent", agent),
					zap.Error(err))
			default:
				// A permanent error (bad input, parse failure) says
				// nothing about provider health: no breaker penalty.
				zap.L().Warn("provider lookup rejected",
					zap.String("provider", p.Name()),
					zap.String("agent", agent),
					zap.Error(err))
			}
			continue
		}

		breaker.RecordSuccess()
		if !found.Empty() {
			return found, nil
		}
	}

	return model.Contact{}, nil
}
