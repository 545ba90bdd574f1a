package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"health-premium-service/internal/domain/model"
	portsuc "health-premium-service/internal/domain/ports/usecase"
)

const defaultStatusTTL = 10 * time.Minute

type watchedStatus struct {
	status     model.PremiumStatus
	resolvedAt time.Time
}

// StatusWatcher keeps the latest resolved status per user. A user it has not
// resolved yet, or whose entry is older than the TTL, reads as nil, which the
// gate treats as loading.
type StatusWatcher struct {
	mu        sync.RWMutex
	resolver  portsuc.PremiumResolver
	statuses  map[string]watchedStatus
	inflight  map[string]struct{}
	timeout   time.Duration
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
	log       *zerolog.Logger
}

func NewStatusWatcher(resolver portsuc.PremiumResolver, logger *zerolog.Logger) *StatusWatcher {
	l := logger.With().Str("component", "StatusWatcher").Logger()
	return &StatusWatcher{
		resolver: resolver,
		statuses: make(map[string]watchedStatus),
		inflight: make(map[string]struct{}),
		timeout:  5 * time.Second,
		ttl:      defaultStatusTTL,
		now:      time.Now,
		log:      &l,
	}
}

// WithClock swaps the time source used for expiry and TTL checks.
func (w *StatusWatcher) WithClock(now func() time.Time) *StatusWatcher {
	if now != nil {
		w.now = now
	}
	return w
}

// WithTTL bounds how long a resolved entry is served before it reads as loading again.
func (w *StatusWatcher) WithTTL(ttl time.Duration) *StatusWatcher {
	if ttl > 0 {
		w.ttl = ttl
	}
	return w
}

// Status returns the last resolved status for userID, or nil. A premium
// status whose expiry has passed is downgraded to not premium on read.
func (w *StatusWatcher) Status(userID string) *model.PremiumStatus {
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.statuses[userID]
	if !ok {
		return nil
	}
	if now.Sub(e.resolvedAt) > w.ttl {
		delete(w.statuses, userID)
		return nil
	}
	if e.status.IsPremium && !e.status.StillValid(now) {
		e.status = model.NotPremium()
		w.statuses[userID] = e
		w.log.Debug().Str("user_id", userID).Msg("cached premium status expired")
	}
	st := e.status
	return &st
}

// Refresh resolves the principal now and stores the result.
func (w *StatusWatcher) Refresh(ctx context.Context, principal *model.Principal) model.PremiumStatus {
	st := w.resolver.IsPremium(ctx, principal)
	if !principal.IsZero() {
		now := w.now()
		w.mu.Lock()
		w.statuses[principal.UserID] = watchedStatus{status: st, resolvedAt: now}
		w.sweepLocked(now)
		w.mu.Unlock()
	}
	return st
}

// sweepLocked drops entries past the TTL, at most once per TTL period.
func (w *StatusWatcher) sweepLocked(now time.Time) {
	if now.Sub(w.lastSweep) < w.ttl {
		return
	}
	w.lastSweep = now
	for id, e := range w.statuses {
		if now.Sub(e.resolvedAt) > w.ttl {
			delete(w.statuses, id)
		}
	}
}

// Len reports how many users currently have a cached status.
func (w *StatusWatcher) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.statuses)
}

// RefreshAsync starts a background resolution unless one is already running for the user.
func (w *StatusWatcher) RefreshAsync(principal *model.Principal) {
	if principal.IsZero() {
		return
	}
	w.mu.Lock()
	if _, busy := w.inflight[principal.UserID]; busy {
		w.mu.Unlock()
		return
	}
	w.inflight[principal.UserID] = struct{}{}
	w.mu.Unlock()

	p := *principal
	go func() {
		defer func() {
			w.mu.Lock()
			delete(w.inflight, p.UserID)
			w.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		w.Refresh(ctx, &p)
	}()
}

// HandleSubscriptionChanged re-resolves the user named by evt.
func (w *StatusWatcher) HandleSubscriptionChanged(ctx context.Context, evt model.SubscriptionChanged) {
	if evt.UserID == "" {
		return
	}
	st := w.Refresh(ctx, &model.Principal{UserID: evt.UserID})
	w.log.Debug().Str("user_id", evt.UserID).Bool("is_premium", st.IsPremium).Msg("status refreshed after subscription change")
}

// Forget drops the cached status so the next read is loading again.
func (w *StatusWatcher) Forget(userID string) {
	w.mu.Lock()
	delete(w.statuses, userID)
	w.mu.Unlock()
}
