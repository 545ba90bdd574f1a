package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"health-premium-service/internal/domain"
	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/repository"
	portsuc "health-premium-service/internal/domain/ports/usecase"
	"health-premium-service/internal/infra/metrics"
)

// Compile-time check
var _ PremiumUseCase = (*premiumUC)(nil)

// PremiumUseCase resolves premium status for the current caller.
type PremiumUseCase interface {
	portsuc.PremiumResolver
}

type premiumUC struct {
	subs   repository.SubscriptionRepository
	legacy repository.LegacyPremiumRepository
	now    func() time.Time
	log    *zerolog.Logger
}

func NewPremiumUseCase(subs repository.SubscriptionRepository, legacy repository.LegacyPremiumRepository, now func() time.Time, logger *zerolog.Logger) *premiumUC {
	if now == nil {
		now = time.Now
	}
	l := logger.With().Str("component", "PremiumUC").Logger()
	return &premiumUC{subs: subs, legacy: legacy, now: now, log: &l}
}

// IsPremium never returns an error: storage failures resolve to not premium.
// It performs reads only.
func (u *premiumUC) IsPremium(ctx context.Context, principal *model.Principal) (st model.PremiumStatus) {
	if principal.IsZero() {
		metrics.IncPremiumCheck(false, string(model.PremiumSourceNone))
		return model.NotPremium()
	}
	defer func() {
		if r := recover(); r != nil {
			u.log.Error().Interface("panic", r).Str("user_id", principal.UserID).Msg("premium resolution panicked")
			st = model.NotPremium()
		}
		metrics.IncPremiumCheck(st.IsPremium, string(st.Source))
	}()

	now := u.now()
	sub, err := u.subs.FindActiveByUser(ctx, repository.NoTX, principal.UserID)
	switch {
	case err == nil && sub != nil:
		return model.StatusFromSubscription(sub, now)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		u.log.Warn().Err(err).Str("user_id", principal.UserID).Msg("subscription lookup failed; trying legacy records")
	}

	if u.legacy == nil {
		return model.NotPremium()
	}
	leg, err := u.legacy.FindActiveByUser(ctx, repository.NoTX, principal.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Err(errors.Join(domain.ErrResolverStorage, err)).Str("user_id", principal.UserID).Msg("legacy lookup failed; resolving as not premium")
		}
		return model.NotPremium()
	}
	return model.StatusFromLegacy(leg, now)
}
