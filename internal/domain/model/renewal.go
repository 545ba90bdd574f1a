package model

import (
	"fmt"
	"strings"
	"time"

	"health-premium-service/internal/domain"
)

// StalePolicy selects what a renewal does with a row that is still marked
// active but whose window has already closed.
type StalePolicy string

const (
	// StalePolicyFreshWindow expires the stale row and opens a new window at now.
	StalePolicyFreshWindow StalePolicy = "fresh_window"
	// StalePolicyExtendStale keeps the stale row and pushes its end forward from the old end.
	StalePolicyExtendStale StalePolicy = "extend_stale"
)

func ParseStalePolicy(s string) (StalePolicy, error) {
	switch StalePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StalePolicyFreshWindow:
		return StalePolicyFreshWindow, nil
	case StalePolicyExtendStale:
		return StalePolicyExtendStale, nil
	default:
		return "", fmt.Errorf("%w: unknown stale policy %q", domain.ErrInvalidArgument, s)
	}
}

type RenewalAction string

const (
	RenewalActionExtend RenewalAction = "extend"
	RenewalActionCreate RenewalAction = "create"
)

// RenewalPlan is the outcome of PlanRenewal. Storage layers apply it inside
// their own atomic unit.
type RenewalPlan struct {
	Action RenewalAction
	// NewEnd is the end of the extended window when Action is extend,
	// or of the new window when Action is create.
	NewEnd time.Time
	// ExpireCurrent asks the store to mark the current row expired before
	// the new one is created.
	ExpireCurrent bool
}

// PlanRenewal decides how one renewal applies to the user's most recent
// active row (nil when there is none).
func PlanRenewal(current *Subscription, now time.Time, period time.Duration, policy StalePolicy) RenewalPlan {
	now = now.UTC()
	if current == nil || current.Status != SubscriptionStatusActive {
		return RenewalPlan{Action: RenewalActionCreate, NewEnd: now.Add(period)}
	}
	if current.IsLive(now) {
		base := current.EndAt
		if now.After(base) {
			base = now
		}
		return RenewalPlan{Action: RenewalActionExtend, NewEnd: base.Add(period)}
	}
	if current.IsStale(now) && policy == StalePolicyExtendStale {
		return RenewalPlan{Action: RenewalActionExtend, NewEnd: current.EndAt.Add(period)}
	}
	return RenewalPlan{Action: RenewalActionCreate, NewEnd: now.Add(period), ExpireCurrent: true}
}
