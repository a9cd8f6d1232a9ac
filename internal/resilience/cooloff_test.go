package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoolOff(cfg CoolOffConfig) (*CoolOff, *time.Time) {
	c := NewCoolOff(cfg)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return now }
	return c, &now
}

func TestCoolOff_AllowsByDefault(t *testing.T) {
	c, _ := newTestCoolOff(DefaultCoolOffConfig())
	assert.NoError(t, c.Allow())
	assert.False(t, c.Suppressed())
}

func TestCoolOff_SuppressesAfterThreshold(t *testing.T) {
	c, _ := newTestCoolOff(CoolOffConfig{FailureThreshold: 3, Window: time.Minute})

	c.RecordFailure()
	c.RecordFailure()
	assert.NoError(t, c.Allow())

	c.RecordFailure()
	err := c.Allow()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCoolingOff) || err == ErrCoolingOff)
}

func TestCoolOff_SuccessResetsCounter(t *testing.T) {
	c, _ := newTestCoolOff(CoolOffConfig{FailureThreshold: 2, Window: time.Minute})

	c.RecordFailure()
	c.RecordSuccess()
	c.RecordFailure()
	assert.NoError(t, c.Allow())
}

func TestCoolOff_RateLimitSuppressesImmediately(t *testing.T) {
	c, _ := newTestCoolOff(CoolOffConfig{FailureThreshold: 5, Window: time.Minute})

	c.RecordRateLimit()
	assert.Error(t, c.Allow())
}

func TestCoolOff_WindowExpires(t *testing.T) {
	c, now := newTestCoolOff(CoolOffConfig{FailureThreshold: 1, Window: time.Minute})

	c.RecordFailure()
	assert.Error(t, c.Allow())

	*now = now.Add(61 * time.Second)
	assert.NoError(t, c.Allow())
}

func TestProviderBreakers_PerProviderIsolation(t *testing.T) {
	pb := NewProviderBreakers(CoolOffConfig{FailureThreshold: 1, Window: time.Minute})

	pb.Get("google").RecordRateLimit()

	assert.Error(t, pb.Get("google").Allow())
	assert.NoError(t, pb.Get("realtor").Allow())
}

func TestProviderBreakers_SameInstancePerName(t *testing.T) {
	pb := NewProviderBreakers(DefaultCoolOffConfig())
	assert.Same(t, pb.Get("google"), pb.Get("google"))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(NewTransientError(errors.New("too many requests"), 429)))
	assert.True(t, IsRateLimited(NewTransientError(errors.New("blocked"), 403)))
	assert.False(t, IsRateLimited(NewTransientError(errors.New("boom"), 500)))
	assert.False(t, IsRateLimited(errors.New("plain error")))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewTransientError(errors.New("upstream 503"), 503)))
	assert.True(t, IsTransient(errors.New("read tcp: connection reset by peer")))
	assert.False(t, IsTransient(errors.New("validation failed")))
	assert.False(t, IsTransient(nil))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 400, 401, 404} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}
