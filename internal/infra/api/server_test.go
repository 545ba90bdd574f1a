//go:build !integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"health-premium-service/internal/config"
	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/adapter"
	"health-premium-service/internal/infra/api"
	"health-premium-service/internal/infra/db/memory"
	"health-premium-service/internal/usecase"
)

//
// ---------------- fixtures ----------------
//

type rejectingAuthorizer struct{}

func (rejectingAuthorizer) Name() string { return "reject" }
func (rejectingAuthorizer) Authorize(ctx context.Context, req adapter.AuthorizationRequest) (adapter.AuthorizationResult, error) {
	return adapter.AuthorizationResult{Approved: false, Reason: "card declined"}, nil
}

type approvingAuthorizer struct{}

func (approvingAuthorizer) Name() string { return "approve" }
func (approvingAuthorizer) Authorize(ctx context.Context, req adapter.AuthorizationRequest) (adapter.AuthorizationResult, error) {
	return adapter.AuthorizationResult{Approved: true}, nil
}

type testEnv struct {
	handler http.Handler
	auth    *api.AuthManager
	store   *memory.Store
	watcher *usecase.StatusWatcher
}

func newEnv(t *testing.T, authorizer adapter.PaymentAuthorizer, limiter api.Limiter) *testEnv {
	t.Helper()
	l := zerolog.New(io.Discard)
	logger := &l

	store := memory.NewStore(memory.Options{})
	payUC := usecase.NewPaymentUseCase(store.Payments(), store.Subscriptions(), store.Renewal(),
		authorizer, nil, nil, nil,
		usecase.PaymentOptions{SupportedCurrencies: []string{"EUR", "USD"}}, logger)
	premUC := usecase.NewPremiumUseCase(store.Subscriptions(), store.Legacy(), nil, logger)
	watcher := usecase.NewStatusWatcher(premUC, logger)

	auth := api.NewAuthManager(config.AuthConfig{JWTSecret: "test-secret", Issuer: "health-app", CookieName: "session"})
	h := api.NewHandlers(payUC, premUC, watcher, []string{"meal_plans", "export"}, logger)
	router := api.NewRouter(h, auth, limiter, api.RouterOptions{RateLimit: 100, RateWindow: time.Minute}, logger)
	return &testEnv{handler: router, auth: auth, store: store, watcher: watcher}
}

func (e *testEnv) do(t *testing.T, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		tok, err := e.auth.Mint(userID, userID+"@example.test")
		if err != nil {
			t.Fatalf("mint token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

const paymentBody = `{"amount":"9.99","currency":"eur","method":"card"}`

//
// ---------------- tests ----------------
//

func TestPayments_Create(t *testing.T) {
	t.Run("200 and premium afterwards", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)

		rec := env.do(t, http.MethodPost, "/api/v1/payments", paymentBody, "u1")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		res := decode[api.PaymentResponse](t, rec)
		if !res.Success || res.PaymentID == "" || res.Notification.Severity != model.SeveritySuccess {
			t.Errorf("unexpected response %+v", res)
		}

		rec = env.do(t, http.MethodGet, "/api/v1/premium/status", "", "u1")
		st := decode[model.PremiumStatus](t, rec)
		if !st.IsPremium || st.Source != model.PremiumSourceSubscription {
			t.Errorf("expected premium, got %+v", st)
		}
	})

	t.Run("401 without a token", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		rec := env.do(t, http.MethodPost, "/api/v1/payments", paymentBody, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if res := decode[api.PaymentResponse](t, rec); res.Success || res.Notification.Title == "" {
			t.Errorf("expected a failure notification, got %+v", res)
		}
	})

	t.Run("401 with a forged token", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		other := api.NewAuthManager(config.AuthConfig{JWTSecret: "other", Issuer: "health-app"})
		tok, _ := other.Mint("u1", "")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(paymentBody))
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("400 on malformed body", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		rec := env.do(t, http.MethodPost, "/api/v1/payments", `{"amount":`, "u1")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("400 on validation failure", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		rec := env.do(t, http.MethodPost, "/api/v1/payments", `{"amount":"5","currency":"EURO","method":"card"}`, "u1")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("400 on a non-positive amount", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		rec := env.do(t, http.MethodPost, "/api/v1/payments", `{"amount":"-1","currency":"EUR","method":"card"}`, "u1")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if n := len(mustList(t, env, "u1")); n != 0 {
			t.Errorf("expected no ledger rows, got %d", n)
		}
	})

	t.Run("400 on sub-cent amount", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		rec := env.do(t, http.MethodPost, "/api/v1/payments", `{"amount":"0.004","currency":"EUR","method":"card"}`, "u1")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if n := len(mustList(t, env, "u1")); n != 0 {
			t.Errorf("expected no ledger rows, got %d", n)
		}
	})

	t.Run("402 when authorization is declined", func(t *testing.T) {
		env := newEnv(t, rejectingAuthorizer{}, nil)
		rec := env.do(t, http.MethodPost, "/api/v1/payments", paymentBody, "u1")
		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d", rec.Code)
		}
		res := decode[api.PaymentResponse](t, rec)
		if res.Success || res.Notification.Severity != model.SeverityError {
			t.Errorf("unexpected response %+v", res)
		}
		items := mustList(t, env, "u1")
		if len(items) != 1 || items[0].Status != string(model.PaymentStatusPending) {
			t.Errorf("expected one pending payment, got %+v", items)
		}
		st := decode[model.PremiumStatus](t, env.do(t, http.MethodGet, "/api/v1/premium/status", "", "u1"))
		if st.IsPremium {
			t.Error("expected no premium after a declined payment")
		}
	})

	t.Run("429 once the limit is reached", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, limiterFunc(func(key string) bool { return !strings.Contains(key, "user:u1") }))
		rec := env.do(t, http.MethodPost, "/api/v1/payments", paymentBody, "u1")
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		if rec = env.do(t, http.MethodPost, "/api/v1/payments", paymentBody, "u2"); rec.Code != http.StatusOK {
			t.Fatalf("expected other users to pass, got %d", rec.Code)
		}
	})
}

type limiterFunc func(key string) bool

func (f limiterFunc) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return f(key), nil
}

func mustList(t *testing.T, env *testEnv, userID string) []api.PaymentView {
	t.Helper()
	rec := env.do(t, http.MethodGet, "/api/v1/payments", "", userID)
	if rec.Code != http.StatusOK {
		t.Fatalf("list payments: %d", rec.Code)
	}
	return decode[struct {
		Items []api.PaymentView `json:"items"`
	}](t, rec).Items
}

func TestPayments_List(t *testing.T) {
	env := newEnv(t, approvingAuthorizer{}, nil)
	env.do(t, http.MethodPost, "/api/v1/payments", paymentBody, "u1")
	env.do(t, http.MethodPost, "/api/v1/payments", paymentBody, "u1")
	env.do(t, http.MethodPost, "/api/v1/payments", paymentBody, "u2")

	items := mustList(t, env, "u1")
	if len(items) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(items))
	}
	for _, p := range items {
		if p.Status != string(model.PaymentStatusCompleted) || p.Amount != "9.99" || !strings.HasPrefix(p.TransactionRef, "txn-") {
			t.Errorf("unexpected payment %+v", p)
		}
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/payments", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/payments?limit=x", "", "u1"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSubscriptions_Renew(t *testing.T) {
	env := newEnv(t, approvingAuthorizer{}, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/subscriptions/renew", "", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	res := decode[api.RenewResponse](t, rec)
	if !res.Success || res.SubscriptionID == "" {
		t.Errorf("unexpected response %+v", res)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/subscriptions/renew", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestPremium_StatusAndGate(t *testing.T) {
	t.Run("anonymous callers are not premium", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		st := decode[model.PremiumStatus](t, env.do(t, http.MethodGet, "/api/v1/premium/status", "", ""))
		if st.IsPremium || st.Source != model.PremiumSourceNone {
			t.Errorf("unexpected status %+v", st)
		}
	})

	t.Run("benefits are gated with an upgrade prompt", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		rec := env.do(t, http.MethodGet, "/api/v1/premium/benefits", "", "u1")
		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d", rec.Code)
		}
		if p := decode[api.UpgradePrompt](t, rec); p.Decision != usecase.DecisionUpgrade || p.Message == "" {
			t.Errorf("unexpected prompt %+v", p)
		}

		env.do(t, http.MethodPost, "/api/v1/payments", paymentBody, "u1")
		rec = env.do(t, http.MethodGet, "/api/v1/premium/benefits", "", "u1")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 after paying, got %d", rec.Code)
		}
	})

	t.Run("feature access starts loading then resolves", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		env.do(t, http.MethodPost, "/api/v1/payments", paymentBody, "u1")

		first := decode[api.AccessResponse](t, env.do(t, http.MethodGet, "/api/v1/features/meal_plans/access", "", "u1"))
		if first.Decision != usecase.DecisionLoading {
			t.Fatalf("expected loading, got %s", first.Decision)
		}

		deadline := time.Now().Add(2 * time.Second)
		for env.watcher.Status("u1") == nil && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		second := decode[api.AccessResponse](t, env.do(t, http.MethodGet, "/api/v1/features/meal_plans/access", "", "u1"))
		if second.Decision != usecase.DecisionGranted {
			t.Errorf("expected granted, got %s", second.Decision)
		}
	})

	t.Run("feature access for anonymous callers", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		res := decode[api.AccessResponse](t, env.do(t, http.MethodGet, "/api/v1/features/export/access?fallback=true", "", ""))
		if res.Decision != usecase.DecisionFallback {
			t.Errorf("expected fallback, got %s", res.Decision)
		}
		res = decode[api.AccessResponse](t, env.do(t, http.MethodGet, "/api/v1/features/export/access", "", ""))
		if res.Decision != usecase.DecisionUpgrade {
			t.Errorf("expected upgrade, got %s", res.Decision)
		}
	})

	t.Run("unknown features are 404", func(t *testing.T) {
		env := newEnv(t, approvingAuthorizer{}, nil)
		if rec := env.do(t, http.MethodGet, "/api/v1/features/nope/access", "", "u1"); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestHealthAndTrace(t *testing.T) {
	env := newEnv(t, approvingAuthorizer{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Request-ID"); got != "trace-123" {
		t.Errorf("expected trace id echoed, got %q", got)
	}
}

func TestLocalLimiter(t *testing.T) {
	l := api.NewLocalLimiter()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, "k", 3, time.Minute); !ok {
			t.Fatalf("call %d should pass", i+1)
		}
	}
	if ok, _ := l.Allow(ctx, "k", 3, time.Minute); ok {
		t.Error("expected the fourth call to be throttled")
	}
	if ok, _ := l.Allow(ctx, "other", 3, time.Minute); !ok {
		t.Error("expected keys to be independent")
	}
	if n := l.Cleanup(-time.Second); n != 2 {
		t.Errorf("expected 2 keys cleaned, got %d", n)
	}
}
