package usecase

import (
	"health-premium-service/internal/domain/model"
)

type Decision string

const (
	DecisionLoading  Decision = "loading"  // status not resolved yet; render a placeholder
	DecisionGranted  Decision = "granted"  // render the protected content
	DecisionFallback Decision = "fallback" // render the caller-supplied fallback
	DecisionUpgrade  Decision = "upgrade"  // render the upgrade prompt
)

// FeatureGate maps a resolved premium status to a rendering decision.
type FeatureGate struct{}

// Decide never grants on a nil (unresolved) status.
func (FeatureGate) Decide(status *model.PremiumStatus, hasFallback bool) Decision {
	switch {
	case status == nil:
		return DecisionLoading
	case status.IsPremium:
		return DecisionGranted
	case hasFallback:
		return DecisionFallback
	default:
		return DecisionUpgrade
	}
}
