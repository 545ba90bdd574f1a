package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/usecase"
)

type statsResponse struct {
	SubscriptionsByStatus map[model.SubscriptionStatus]int `json:"subscriptions_by_status"`
	RevenueByCurrency     map[string]string                `json:"revenue_by_currency"`
	StalePendingPayments  int                              `json:"stale_pending_payments"`
}

type subscriptionView struct {
	ID        string    `json:"id"`
	PlanType  string    `json:"plan_type"`
	Status    string    `json:"status"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Live      bool      `json:"live"`
	PaymentID *string   `json:"payment_id,omitempty"`
}

type pendingView struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	TransactionRef string    `json:"transaction_ref"`
	CreatedAt      time.Time `json:"created_at"`
}

// statsHandler returns an http.HandlerFunc that serves lifecycle statistics.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		st, err := statsUC.Totals(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to get totals")
			return
		}

		revenue := make(map[string]string, len(st.RevenueByCurrency))
		for cur, amt := range st.RevenueByCurrency {
			revenue[cur] = amt.StringFixed(2)
		}
		writeJSON(w, http.StatusOK, statsResponse{
			SubscriptionsByStatus: st.SubscriptionsByStatus,
			RevenueByCurrency:     revenue,
			StalePendingPayments:  st.StalePendingPayments,
		})
	}
}

// userSubscriptionsHandler lists every subscription row of one user.
func userSubscriptionsHandler(statsUC usecase.StatsUseCase, userID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		subs, err := statsUC.UserSubscriptions(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
			return
		}
		now := time.Now()
		out := make([]subscriptionView, 0, len(subs))
		for _, s := range subs {
			out = append(out, subscriptionView{
				ID:        s.ID,
				PlanType:  s.PlanType,
				Status:    string(s.Status),
				StartAt:   s.StartAt,
				EndAt:     s.EndAt,
				Live:      s.IsLive(now),
				PaymentID: s.PaymentID,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "items": out})
	}
}

// pendingPaymentsHandler accepts 'older_than' (duration) and 'limit' query parameters.
func pendingPaymentsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		olderThan := 30 * time.Minute
		if v := r.URL.Query().Get("older_than"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				writeError(w, http.StatusBadRequest, "invalid older_than")
				return
			}
			olderThan = d
		}
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 1000 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}

		items, err := statsUC.StalePending(r.Context(), olderThan, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list pending payments")
			return
		}
		out := make([]pendingView, 0, len(items))
		for _, p := range items {
			out = append(out, pendingView{
				ID:             p.ID,
				UserID:         p.UserID,
				Amount:         p.Amount.StringFixed(2),
				Currency:       p.Currency,
				TransactionRef: p.TransactionRef,
				CreatedAt:      p.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
