// Package middleware provides provider.Provider middleware, namely the
// adaptive per-provider tokens-per-minute rate limiter from §4's
// concurrency/resource notes, grounded on
// features/model/middleware/ratelimit.go's AdaptiveRateLimiter: an AIMD
// token bucket that halves its budget on a rate-limit signal and grows it
// back linearly on sustained success. The cluster-coordination half of the
// teacher's limiter (built on goa.design/pulse/rmap) is reworked onto
// github.com/redis/go-redis/v9, per DESIGN.md's dropped-dependency ledger.
package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// AdaptiveRateLimiter applies an AIMD-style adaptive token bucket in front
// of a provider.Provider. It estimates the token cost of each request,
// blocks callers until capacity is available, and adjusts its effective
// tokens-per-minute budget in response to rate-limit signals from the
// provider.
type AdaptiveRateLimiter struct {
	mu sync.Mutex

	limiter   *rate.Limiter
	estimator TokenEstimator

	currentTPM float64
	minTPM     float64
	maxTPM     float64

	recoveryRate float64

	onBackoff func(newTPM float64)
	onProbe   func(newTPM float64)

	logger *zap.Logger
}

// NewAdaptiveRateLimiter constructs a process-local AdaptiveRateLimiter
// with a tokens-per-minute budget. When maxTPM is zero or less than
// initialTPM, it is clamped to initialTPM.
func NewAdaptiveRateLimiter(initialTPM, maxTPM float64, estimator TokenEstimator, logger *zap.Logger) *AdaptiveRateLimiter {
	if initialTPM <= 0 {
		initialTPM = 60000
	}
	if maxTPM <= 0 || maxTPM < initialTPM {
		maxTPM = initialTPM
	}
	minTPM := initialTPM * 0.1
	if minTPM < 1 {
		minTPM = 1
	}
	recoveryRate := initialTPM * 0.05
	if recoveryRate < 1 {
		recoveryRate = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdaptiveRateLimiter{
		limiter:      rate.NewLimiter(rate.Limit(initialTPM/60.0), int(initialTPM)),
		estimator:    estimator,
		currentTPM:   initialTPM,
		minTPM:       minTPM,
		maxTPM:       maxTPM,
		recoveryRate: recoveryRate,
		logger:       logger,
	}
}

// Middleware returns a provider.Provider decorator that enforces the
// adaptive tokens-per-minute limit for both Infer and InferStream.
func (l *AdaptiveRateLimiter) Middleware() func(provider.Provider) provider.Provider {
	return func(next provider.Provider) provider.Provider {
		if next == nil {
			return nil
		}
		return &limitedProvider{next: next, limiter: l}
	}
}

type limitedProvider struct {
	next    provider.Provider
	limiter *AdaptiveRateLimiter
}

func (p *limitedProvider) Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	if err := p.limiter.wait(ctx, req); err != nil {
		return nil, err
	}
	resp, err := p.next.Infer(ctx, req)
	p.limiter.observe(err)
	return resp, err
}

func (p *limitedProvider) InferStream(ctx context.Context, req *model.ModelInferenceRequest) (provider.Stream, error) {
	if err := p.limiter.wait(ctx, req); err != nil {
		return nil, err
	}
	stream, err := p.next.InferStream(ctx, req)
	p.limiter.observe(err)
	return stream, err
}

var _ provider.Provider = (*limitedProvider)(nil)

func (l *AdaptiveRateLimiter) wait(ctx context.Context, req *model.ModelInferenceRequest) error {
	tokens := l.estimator.Estimate(req)
	return l.limiter.WaitN(ctx, tokens)
}

// observe adjusts the budget based on the outcome of a call: a 429-style
// rate-limit signal from the provider triggers backoff, anything else
// (including success) triggers a probe toward maxTPM.
func (l *AdaptiveRateLimiter) observe(err error) {
	if ge, ok := err.(*gatewayerr.Error); ok && ge.HTTPStatus == 429 {
		l.backoff()
		return
	}
	l.probe()
}

func (l *AdaptiveRateLimiter) backoff() {
	l.mu.Lock()
	newTPM := l.currentTPM * 0.5
	if newTPM < l.minTPM {
		newTPM = l.minTPM
	}
	if newTPM == l.currentTPM {
		l.mu.Unlock()
		return
	}
	l.currentTPM = newTPM
	l.limiter.SetLimit(rate.Limit(newTPM / 60.0))
	l.limiter.SetBurst(int(newTPM))
	cb := l.onBackoff
	l.mu.Unlock()

	l.logger.Warn("rate limiter backing off", zap.Float64("new_tpm", newTPM))
	if cb != nil {
		cb(newTPM)
	}
}

func (l *AdaptiveRateLimiter) probe() {
	l.mu.Lock()
	newTPM := l.currentTPM + l.recoveryRate
	if newTPM > l.maxTPM {
		newTPM = l.maxTPM
	}
	if newTPM == l.currentTPM {
		l.mu.Unlock()
		return
	}
	l.currentTPM = newTPM
	l.limiter.SetLimit(rate.Limit(newTPM / 60.0))
	l.limiter.SetBurst(int(newTPM))
	cb := l.onProbe
	l.mu.Unlock()

	if cb != nil {
		cb(newTPM)
	}
}

func (l *AdaptiveRateLimiter) setClusterCallbacks(onBackoff, onProbe func(newTPM float64)) {
	l.mu.Lock()
	l.onBackoff = onBackoff
	l.onProbe = onProbe
	l.mu.Unlock()
}

func (l *AdaptiveRateLimiter) replaceTPM(tpm float64) {
	l.mu.Lock()
	if tpm < l.minTPM {
		tpm = l.minTPM
	}
	if tpm > l.maxTPM {
		tpm = l.maxTPM
	}
	if tpm == l.currentTPM {
		l.mu.Unlock()
		return
	}
	l.currentTPM = tpm
	l.limiter.SetLimit(rate.Limit(tpm / 60.0))
	l.limiter.SetBurst(int(tpm))
	l.mu.Unlock()
}

// NewClusterAdaptiveRateLimiter builds an AdaptiveRateLimiter whose
// tokens-per-minute budget is shared across processes through a Redis key,
// following the same AIMD strategy as the process-local limiter but
// seeding its initial budget from (and publishing every backoff/probe
// transition back to) the given Redis key. A reconciliation goroutine
// polls the shared key on the given interval so a backoff signalled by one
// process is eventually observed by its peers; Redis has no exact
// analogue of goa.design/pulse/rmap's change-subscription channel, so
// polling stands in for it here.
func NewClusterAdaptiveRateLimiter(ctx context.Context, client *redis.Client, key string, initialTPM, maxTPM float64, estimator TokenEstimator, reconcileEvery time.Duration, logger *zap.Logger) *AdaptiveRateLimiter {
	if client == nil || key == "" {
		return NewAdaptiveRateLimiter(initialTPM, maxTPM, estimator, logger)
	}

	sharedTPM := initialTPM
	if cur, err := client.Get(ctx, key).Result(); err == nil {
		if v, perr := strconv.ParseFloat(cur, 64); perr == nil && v > 0 {
			sharedTPM = v
		}
	} else {
		client.SetNX(ctx, key, strconv.FormatFloat(initialTPM, 'f', -1, 64), 0)
	}

	l := NewAdaptiveRateLimiter(sharedTPM, maxTPM, estimator, logger)
	l.setClusterCallbacks(
		func(newTPM float64) { publishTPM(context.Background(), client, key, newTPM) },
		func(newTPM float64) { publishTPM(context.Background(), client, key, newTPM) },
	)

	if reconcileEvery <= 0 {
		reconcileEvery = 5 * time.Second
	}
	go reconcileLoop(ctx, client, key, l, reconcileEvery)

	return l
}

func publishTPM(ctx context.Context, client *redis.Client, key string, tpm float64) {
	client.Set(ctx, key, strconv.FormatFloat(tpm, 'f', -1, 64), 0)
}

func reconcileLoop(ctx context.Context, client *redis.Client, key string, l *AdaptiveRateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur, err := client.Get(ctx, key).Result()
			if err != nil {
				continue
			}
			if v, perr := strconv.ParseFloat(cur, 64); perr == nil && v > 0 {
				l.replaceTPM(v)
			}
		}
	}
}
