package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"health-premium-service/internal/domain/model"
	portsuc "health-premium-service/internal/domain/ports/usecase"
	"health-premium-service/internal/infra/metrics"
)

const premiumCacheName = "premium_status"

var _ portsuc.PremiumResolver = (*PremiumStatusCache)(nil)

// PremiumStatusCache decorates a resolver with a short-lived cache of positive
// results. Entries are re-checked for expiry on read, and any cache error falls
// through to the wrapped resolver.
type PremiumStatusCache struct {
	inner portsuc.PremiumResolver
	cli   *Client
	ttl   time.Duration
	now   func() time.Time
	log   *zerolog.Logger
}

func NewPremiumStatusCache(inner portsuc.PremiumResolver, cli *Client, ttl time.Duration, logger *zerolog.Logger) *PremiumStatusCache {
	l := logger.With().Str("component", "PremiumStatusCache").Logger()
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &PremiumStatusCache{inner: inner, cli: cli, ttl: ttl, now: time.Now, log: &l}
}

func PremiumStatusKey(userID string) string { return "premium:status:" + userID }

func (c *PremiumStatusCache) IsPremium(ctx context.Context, principal *model.Principal) model.PremiumStatus {
	if principal.IsZero() {
		return c.inner.IsPremium(ctx, principal)
	}
	key := PremiumStatusKey(principal.UserID)

	st, result := c.lookup(ctx, key)
	metrics.IncCacheRequest(premiumCacheName, result)
	if result == "hit" {
		return st
	}

	st = c.inner.IsPremium(ctx, principal)
	if st.IsPremium {
		c.store(ctx, key, st)
	}
	return st
}

// lookup reports hit, miss, stale or error. Only a hit carries a status.
func (c *PremiumStatusCache) lookup(ctx context.Context, key string) (model.PremiumStatus, string) {
	raw, err := c.cli.Get(ctx, key)
	if IsMiss(err) {
		return model.PremiumStatus{}, "miss"
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return model.PremiumStatus{}, "error"
	}
	var st model.PremiumStatus
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		_ = c.cli.Del(ctx, key)
		return model.PremiumStatus{}, "error"
	}
	if !st.StillValid(c.now()) {
		_ = c.cli.Del(ctx, key)
		return model.PremiumStatus{}, "stale"
	}
	return st, "hit"
}

func (c *PremiumStatusCache) store(ctx context.Context, key string, st model.PremiumStatus) {
	ttl := c.ttl
	if st.ExpiresAt != nil {
		if left := st.ExpiresAt.Sub(c.now()); left < ttl {
			ttl = left
		}
	}
	if ttl <= 0 {
		return
	}
	b, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := c.cli.Set(ctx, key, b, ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Invalidate drops the cached status for userID.
func (c *PremiumStatusCache) Invalidate(ctx context.Context, userID string) {
	if err := c.cli.Del(ctx, PremiumStatusKey(userID)); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("cache invalidation failed")
	}
}

func (c *PremiumStatusCache) HandleSubscriptionChanged(ctx context.Context, evt model.SubscriptionChanged) {
	if evt.UserID != "" {
		c.Invalidate(ctx, evt.UserID)
	}
}
