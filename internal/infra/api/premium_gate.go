package api

import (
	"net/http"

	"health-premium-service/internal/domain/model"
	portsuc "health-premium-service/internal/domain/ports/usecase"
	"health-premium-service/internal/infra/metrics"
	"health-premium-service/internal/usecase"
)

type UpgradePrompt struct {
	Decision usecase.Decision `json:"decision"`
	Feature  string           `json:"feature"`
	Message  string           `json:"message"`
}

// RequirePremium resolves the caller's status for each request and only lets
// premium callers through. Others get fallback when it is non-nil, otherwise
// a 402 upgrade prompt.
func RequirePremium(resolver portsuc.PremiumResolver, feature string, fallback http.Handler) Middleware {
	gate := usecase.FeatureGate{}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := resolver.IsPremium(r.Context(), PrincipalFrom(r.Context()))
			d := gate.Decide(&st, fallback != nil)
			metrics.IncGateDecision(feature, string(d))

			switch d {
			case usecase.DecisionGranted:
				next.ServeHTTP(w, r)
			case usecase.DecisionFallback:
				fallback.ServeHTTP(w, r)
			default:
				writeJSON(w, http.StatusPaymentRequired, UpgradePrompt{
					Decision: usecase.DecisionUpgrade,
					Feature:  feature,
					Message:  upgradeMessage(st),
				})
			}
		})
	}
}

func upgradeMessage(st model.PremiumStatus) string {
	if st.Source == model.PremiumSourceNone {
		return "This feature is part of Premium. Upgrade to unlock it."
	}
	return "Your Premium access has ended. Renew to keep using this feature."
}
