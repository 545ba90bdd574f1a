package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain/model"
	portsuc "health-premium-service/internal/domain/ports/usecase"
	"health-premium-service/internal/infra/logging"
	"health-premium-service/internal/infra/metrics"
	"health-premium-service/internal/usecase"
)

type Handlers struct {
	payments usecase.PaymentUseCase
	premium  portsuc.PremiumResolver
	watcher  *usecase.StatusWatcher
	gate     usecase.FeatureGate
	features map[string]struct{}
	validate *validator.Validate
	log      *zerolog.Logger
}

func NewHandlers(payments usecase.PaymentUseCase, premium portsuc.PremiumResolver, watcher *usecase.StatusWatcher, features []string, logger *zerolog.Logger) *Handlers {
	set := make(map[string]struct{}, len(features))
	for _, f := range features {
		set[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
	}
	l := logger.With().Str("component", "API").Logger()
	return &Handlers{
		payments: payments,
		premium:  premium,
		watcher:  watcher,
		features: set,
		validate: validator.New(),
		log:      &l,
	}
}

// ===== DTOs =====

type PaymentBody struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"required,len=3,alpha"`
	Method   string          `json:"method" validate:"required,max=32"`
}

type PaymentResponse struct {
	Success      bool               `json:"success"`
	PaymentID    string             `json:"payment_id,omitempty"`
	Notification model.Notification `json:"notification"`
}

type RenewResponse struct {
	Success        bool               `json:"success"`
	SubscriptionID string             `json:"subscription_id,omitempty"`
	Notification   model.Notification `json:"notification"`
}

type PaymentView struct {
	ID             string     `json:"id"`
	Amount         string     `json:"amount"`
	Currency       string     `json:"currency"`
	Method         string     `json:"method"`
	Status         string     `json:"status"`
	TransactionRef string     `json:"transaction_ref"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type AccessResponse struct {
	Feature  string               `json:"feature"`
	Decision usecase.Decision     `json:"decision"`
	Status   *model.PremiumStatus `json:"status,omitempty"`
}

// ===== Handlers =====

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var body PaymentBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	res, err := h.payments.ProcessPayment(r.Context(), PrincipalFrom(r.Context()), usecase.PaymentRequest{
		Amount:   body.Amount,
		Currency: body.Currency,
		Method:   body.Method,
	})
	if err != nil {
		l := logging.With(r.Context(), h.log)
		l.Info().Str("kind", usecase.ErrorKind(err)).Msg("payment request failed")
	}
	writeJSON(w, statusFor(err), PaymentResponse{
		Success:      res.Success,
		PaymentID:    res.PaymentID,
		Notification: res.Notification,
	})
}

func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	items, err := h.payments.History(r.Context(), PrincipalFrom(r.Context()), limit)
	if err != nil {
		code := statusFor(err)
		writeError(w, code, http.StatusText(code))
		return
	}
	out := make([]PaymentView, 0, len(items))
	for _, p := range items {
		out = append(out, PaymentView{
			ID:             p.ID,
			Amount:         p.Amount.StringFixed(2),
			Currency:       p.Currency,
			Method:         p.Method,
			Status:         string(p.Status),
			TransactionRef: p.TransactionRef,
			CreatedAt:      p.CreatedAt,
			CompletedAt:    p.CompletedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) RenewSubscription(w http.ResponseWriter, r *http.Request) {
	res, err := h.payments.RenewSubscription(r.Context(), PrincipalFrom(r.Context()))
	writeJSON(w, statusFor(err), RenewResponse{
		Success:        res.Success,
		SubscriptionID: res.SubscriptionID,
		Notification:   res.Notification,
	})
}

func (h *Handlers) PremiumStatus(w http.ResponseWriter, r *http.Request) {
	st := h.premium.IsPremium(r.Context(), PrincipalFrom(r.Context()))
	writeJSON(w, http.StatusOK, st)
}

// FeatureAccess reports the gate decision from the watcher's last known
// status. An unresolved user reads as loading while a refresh runs.
func (h *Handlers) FeatureAccess(w http.ResponseWriter, r *http.Request) {
	feature := strings.ToLower(chi.URLParam(r, "feature"))
	if _, ok := h.features[feature]; !ok {
		writeError(w, http.StatusNotFound, "unknown feature")
		return
	}
	hasFallback, _ := strconv.ParseBool(r.URL.Query().Get("fallback"))

	var status *model.PremiumStatus
	p := PrincipalFrom(r.Context())
	if p.IsZero() {
		st := model.NotPremium()
		status = &st
	} else if status = h.watcher.Status(p.UserID); status == nil {
		h.watcher.RefreshAsync(p)
	}

	d := h.gate.Decide(status, hasFallback)
	metrics.IncGateDecision(feature, string(d))
	writeJSON(w, http.StatusOK, AccessResponse{Feature: feature, Decision: d, Status: status})
}

func (h *Handlers) Benefits(w http.ResponseWriter, r *http.Request) {
	out := make([]string, 0, len(h.features))
	for f := range h.features {
		out = append(out, f)
	}
	sort.Strings(out)
	writeJSON(w, http.StatusOK, map[string]any{"features": out})
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}
