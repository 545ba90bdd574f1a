package usecase

import (
	"context"

	"health-premium-service/internal/domain/model"
)

// PremiumResolver answers "is this caller premium right now" for components
// such as the HTTP gate and cache decorators. It never fails; storage errors
// resolve to not premium.
type PremiumResolver interface {
	IsPremium(ctx context.Context, principal *model.Principal) model.PremiumStatus
}
