package model

import "time"

type PremiumSource string

const (
	PremiumSourceSubscription PremiumSource = "subscription"
	PremiumSourceLegacy       PremiumSource = "legacy"
	PremiumSourceNone         PremiumSource = "none"
)

// PremiumStatus is the resolved read model handed to callers and the gate.
type PremiumStatus struct {
	IsPremium bool          `json:"is_premium"`
	PlanType  string        `json:"plan_type,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Source    PremiumSource `json:"source"`
}

func NotPremium() PremiumStatus {
	return PremiumStatus{Source: PremiumSourceNone}
}

func StatusFromSubscription(s *Subscription, now time.Time) PremiumStatus {
	if s == nil || !s.IsLive(now) {
		return NotPremium()
	}
	end := s.EndAt
	return PremiumStatus{
		IsPremium: true,
		PlanType:  s.PlanType,
		ExpiresAt: &end,
		Source:    PremiumSourceSubscription,
	}
}

func StatusFromLegacy(l *LegacyPremium, now time.Time) PremiumStatus {
	if l == nil || !l.IsLive(now) {
		return NotPremium()
	}
	st := PremiumStatus{
		IsPremium: true,
		PlanType:  l.SubscriptionType,
		Source:    PremiumSourceLegacy,
	}
	if l.ExpiresAt != nil {
		exp := *l.ExpiresAt
		st.ExpiresAt = &exp
	}
	return st
}

// StillValid re-checks a previously resolved status against now.
func (p PremiumStatus) StillValid(now time.Time) bool {
	if !p.IsPremium {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}
