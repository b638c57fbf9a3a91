package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider spaces requests to a Provider evenly so that at most
// rpm start per minute.
type RateLimitedProvider struct {
	provider Provider
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewRateLimitedProvider wraps the given provider with a rate limiter.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	if rpm <= 0 {
		return provider
	}
	return &RateLimitedProvider{
		provider: provider,
		interval: time.Minute / time.Duration(rpm),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// wait reserves the next slot and sleeps until it arrives. A cancelled
// wait gives its slot back only if nobody reserved after it.
func (r *RateLimitedProvider) wait(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	slot := r.next
	if slot.Before(now) {
		slot = now
	}
	r.next = slot.Add(r.interval)
	r.mu.Unlock()

	delay := time.Until(slot)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.mu.Lock()
		if r.next.Equal(slot.Add(r.interval)) {
			r.next = slot
		}
		r.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
