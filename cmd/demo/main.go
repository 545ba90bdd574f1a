package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/adapter"
	"health-premium-service/internal/infra/adapters/notify"
	payAdapters "health-premium-service/internal/infra/adapters/payment"
	"health-premium-service/internal/infra/db/memory"
	"health-premium-service/internal/infra/events"
	"health-premium-service/internal/infra/i18n"
	"health-premium-service/internal/usecase"
)

// demo walks a user through the premium lifecycle against the in-memory
// store with a controllable clock.
func main() {
	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	clock := &fakeClock{now: time.Now().UTC()}
	store := memory.NewStore(memory.Options{Now: clock.Now})
	bus := events.NewBus(&logger)

	premUC := usecase.NewPremiumUseCase(store.Subscriptions(), store.Legacy(), clock.Now, &logger)
	watcher := usecase.NewStatusWatcher(premUC, &logger).WithClock(clock.Now).WithTTL(365 * 24 * time.Hour)
	bus.Subscribe(watcher.HandleSubscriptionChanged)

	newPayments := func(auth adapter.PaymentAuthorizer) usecase.PaymentUseCase {
		return usecase.NewPaymentUseCase(store.Payments(), store.Subscriptions(), store.Renewal(),
			auth, notify.NewLogNotifier(&logger), bus, i18n.MustDefault(),
			usecase.PaymentOptions{SupportedCurrencies: []string{"EUR"}, Now: clock.Now}, &logger)
	}
	payUC := newPayments(payAdapters.NewSimulatedAuthorizer())
	gate := usecase.FeatureGate{}
	user := &model.Principal{UserID: "demo-user", Email: "demo@example.test"}

	show := func(step string) {
		before := gate.Decide(watcher.Status(user.UserID), false)
		st := watcher.Refresh(ctx, user)
		exp := "-"
		if st.ExpiresAt != nil {
			exp = st.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Printf("%-34s premium=%-5v source=%-12s expires=%s gate=%s->%s\n",
			step, st.IsPremium, st.Source, exp, before, gate.Decide(&st, false))
	}

	show("1. new user")

	res, err := payUC.ProcessPayment(ctx, user, usecase.PaymentRequest{Amount: decimal.RequireFromString("9.99"), Currency: "EUR", Method: "card"})
	if err != nil {
		log.Fatalf("payment: %v", err)
	}
	fmt.Printf("   -> %s: %s\n", res.Notification.Title, res.Notification.Description)
	show("2. after payment")

	clock.Advance(10 * 24 * time.Hour)
	if _, err := payUC.RenewSubscription(ctx, user); err != nil {
		log.Fatalf("renew: %v", err)
	}
	show("3. renewed on day 10 (extends)")

	clock.Advance(60 * 24 * time.Hour)
	show("4. day 70 (lapsed, no writes)")

	declined := newPayments(declineAll{})
	res, _ = declined.ProcessPayment(ctx, user, usecase.PaymentRequest{Amount: decimal.RequireFromString("9.99"), Currency: "EUR", Method: "card"})
	fmt.Printf("   -> %s: %s\n", res.Notification.Title, res.Notification.Description)
	show("5. declined payment")

	if _, err := payUC.ProcessPayment(ctx, user, usecase.PaymentRequest{Amount: decimal.RequireFromString("9.99"), Currency: "EUR", Method: "card"}); err != nil {
		log.Fatalf("payment: %v", err)
	}
	show("6. paid again (fresh window)")

	history, _ := payUC.History(ctx, user, 10)
	fmt.Println("\nledger:")
	for _, p := range history {
		fmt.Printf("   %s %s %s %-9s %s\n", p.CreatedAt.Format("2006-01-02"), p.Amount.StringFixed(2), p.Currency, p.Status, p.TransactionRef)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type declineAll struct{}

func (declineAll) Name() string { return "decline" }
func (declineAll) Authorize(ctx context.Context, req adapter.AuthorizationRequest) (adapter.AuthorizationResult, error) {
	return adapter.AuthorizationResult{Approved: false, Reason: "insufficient funds"}, nil
}
