package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"savings/internal/core"
	"savings/internal/storage"
)

const (
	DefaultTTL     = time.Hour
	DefaultTimeout = 10 * time.Second
)

// State tracks the provider lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// cachedRate is the persisted cache value. Timestamp is in Unix milliseconds.
type cachedRate struct {
	Rate      core.ExchangeRate `json:"rate"`
	Timestamp int64             `json:"timestamp"`
}

// Provider owns the process-wide exchange rate snapshot.
type Provider struct {
	fetcher Fetcher
	kv      storage.KV
	logger  *slog.Logger
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	current core.ExchangeRate
	state   State
}

// Options tunes a Provider. Zero values select the defaults.
type Options struct {
	TTL         time.Duration
	Timeout     time.Duration
	DefaultRate core.ExchangeRate
	Now         func() time.Time
}

func NewProvider(fetcher Fetcher, kv storage.KV, logger *slog.Logger, opts Options) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	seed := opts.DefaultRate
	if seed.Validate() != nil {
		seed = core.DefaultExchangeRate(opts.Now())
	}
	return &Provider{
		fetcher: fetcher,
		kv:      kv,
		logger:  logger,
		ttl:     opts.TTL,
		timeout: opts.Timeout,
		now:     opts.Now,
		current: seed,
		state:   StateIdle,
	}
}

// Current returns the snapshot in use. It is always safe for conversion.
func (p *Provider) Current() core.ExchangeRate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Init adopts a fresh cached rate without touching the network, or fetches
// when the cache is missing or older than the TTL.
func (p *Provider) Init(ctx context.Context) core.ExchangeRate {
	cached, ok := p.readCache(ctx)
	if ok && p.now().Sub(time.UnixMilli(cached.Timestamp)) < p.ttl {
		p.mu.Lock()
		p.current = cached.Rate
		p.current.Error = ""
		p.state = StateReady
		p.mu.Unlock()
		p.logger.InfoContext(ctx, "Using cached exchange rate", "inr", cached.Rate.INR.String(), "age", p.now().Sub(time.UnixMilli(cached.Timestamp)).Round(time.Second))
		return p.Current()
	}
	return p.Refresh(ctx)
}

// Refresh fetches unconditionally. Concurrent calls share one fetch.
func (p *Provider) Refresh(ctx context.Context) core.ExchangeRate {
	ch := p.group.DoChan("refresh", func() (any, error) {
		return p.fetch(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		return res.Val.(core.ExchangeRate)
	case <-ctx.Done():
		return p.Current()
	}
}

func (p *Provider) fetch(ctx context.Context) core.ExchangeRate {
	p.mu.Lock()
	p.state = StateLoading
	p.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := p.now()
	quote, err := p.fetcher.Fetch(fetchCtx)
	if err == nil && !quote.INR.IsPositive() {
		err = ErrInvalidResponse
	}
	if err != nil {
		return p.fail(ctx, err)
	}

	rate := core.NewExchangeRate(quote.INR, quote.LastUpdated)
	if rate.LastUpdated.IsZero() {
		rate.LastUpdated = p.now()
	}

	p.mu.Lock()
	p.current = rate
	p.state = StateReady
	p.mu.Unlock()

	p.writeCache(ctx, rate)
	p.logger.InfoContext(ctx, "Exchange rate refreshed", "inr", rate.INR.String(), "last_updated", rate.LastUpdated, "duration", p.now().Sub(start))
	return rate
}

// fail records err and falls back to any cached rate regardless of age,
// otherwise keeps the rate already in memory.
func (p *Provider) fail(ctx context.Context, err error) core.ExchangeRate {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("exchange rate request timed out after %s", p.timeout)
	}
	p.logger.WarnContext(ctx, "Exchange rate fetch failed", "error", err)

	cached, ok := p.readCache(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.current = cached.Rate
	}
	p.current.Error = msg
	p.state = StateError
	return p.current
}

func (p *Provider) readCache(ctx context.Context) (cachedRate, bool) {
	raw, found, err := p.kv.Get(ctx, storage.RateCacheKey)
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to read exchange rate cache", "error", err)
		return cachedRate{}, false
	}
	if !found {
		return cachedRate{}, false
	}
	var c cachedRate
	if err := json.Unmarshal(raw, &c); err != nil {
		p.logger.WarnContext(ctx, "Exchange rate cache is malformed", "error", err)
		return cachedRate{}, false
	}
	if err := c.Rate.Validate(); err != nil {
		p.logger.WarnContext(ctx, "Exchange rate cache is unusable", "error", err)
		return cachedRate{}, false
	}
	c.Rate.Error = ""
	return c, true
}

func (p *Provider) writeCache(ctx context.Context, rate core.ExchangeRate) {
	body, err := json.Marshal(cachedRate{Rate: rate, Timestamp: p.now().UnixMilli()})
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to encode exchange rate cache", "error", err)
		return
	}
	if err := p.kv.Set(ctx, storage.RateCacheKey, body); err != nil {
		p.logger.WarnContext(ctx, "Failed to save exchange rate cache", "error", err)
	}
}
