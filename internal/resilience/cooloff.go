// Package resilience provides cool-off suppression and transient error
// classification for external lookup collaborators.
package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCoolingOff is returned when a call is rejected because the provider is
// inside its cool-off window.
var ErrCoolingOff = eris.New("provider is cooling off")

// CoolOffConfig controls breaker behavior.
type CoolOffConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// provider is suppressed. A rate-limit signal suppresses immediately
	// regardless of the threshold. Default: 3.
	FailureThreshold int

	// Window is how long a suppressed provider stays suppressed. Default: 5m.
	Window time.Duration
}

// DefaultCoolOffConfig returns sensible defaults.
func DefaultCoolOffConfig() CoolOffConfig {
	return CoolOffConfig{
		FailureThreshold: 3,
		Window:           5 * time.Minute,
	}
}

// CoolOff suppresses a single provider for a timed window after repeated
// failures or an explicit rate-limit signal. After the window elapses the
// next call is allowed through again.
type CoolOff struct {
	cfg CoolOffConfig

	mu                  sync.Mutex
	consecutiveFailures int
	suppressedUntil     time.Time

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewCoolOff creates a cool-off breaker with the given config.
func NewCoolOff(cfg CoolOffConfig) *CoolOff {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	return &CoolOff{
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// Allow reports whether a call may proceed. Returns ErrCoolingOff while the
// provider is suppressed.
func (c *CoolOff) Allow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nowFunc().Before(c.suppressedUntil) {
		return ErrCoolingOff
	}
	return nil
}

// RecordSuccess resets the failure counter.
func (c *CoolOff) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures = 0
}

// RecordFailure counts one failure and suppresses the provider once the
// threshold is reached.
func (c *CoolOff) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures++
	if c.consecutiveFailures >= c.cfg.FailureThreshold {
		c.suppressedUntil = c.nowFunc().Add(c.cfg.Window)
		c.consecutiveFailures = 0
	}
}

// RecordRateLimit suppresses the provider immediately, regardless of the
// failure threshold.
func (c *CoolOff) RecordRateLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suppressedUntil = c.nowFunc().Add(c.cfg.Window)
	c.consecutiveFailures = 0
}

// Suppressed reports whether the provider is currently inside its window.
func (c *CoolOff) Suppressed() bool {
	return c.Allow() != nil
}

// ProviderBreakers manages cool-off breakers for multiple lookup providers.
type ProviderBreakers struct {
	mu       sync.RWMutex
	breakers map[string]*CoolOff
	cfg      CoolOffConfig
}

// NewProviderBreakers creates a registry of per-provider breakers.
func NewProviderBreakers(cfg CoolOffConfig) *ProviderBreakers {
	return &ProviderBreakers{
		breakers: make(map[string]*CoolOff),
		cfg:      cfg,
	}
}

// Get returns the breaker for the named provider, creating one if needed.
func (pb *ProviderBreakers) Get(provider string) *CoolOff {
	pb.mu.RLock()
	c, ok := pb.breakers[provider]
	pb.mu.RUnlock()
	if ok {
		return c
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()
	// Double-check after acquiring write lock.
	if c, ok = pb.breakers[provider]; ok {
		return c
	}
	c = NewCoolOff(pb.cfg)
	pb.breakers[provider] = c
	return c
}
