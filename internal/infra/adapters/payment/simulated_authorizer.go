package payment

import (
	"context"
	"fmt"
	"sync"

	"health-premium-service/internal/domain/ports/adapter"
)

var _ adapter.PaymentAuthorizer = (*SimulatedAuthorizer)(nil)

// SimulatedAuthorizer approves every request. It stands in for a real
// provider and is the default authorizer.
type SimulatedAuthorizer struct {
	mu  sync.Mutex
	seq int64
}

func NewSimulatedAuthorizer() *SimulatedAuthorizer {
	return &SimulatedAuthorizer{}
}

func (a *SimulatedAuthorizer) Name() string { return "simulated" }

func (a *SimulatedAuthorizer) next() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	return fmt.Sprintf("sim-%d", a.seq)
}

func (a *SimulatedAuthorizer) Authorize(ctx context.Context, req adapter.AuthorizationRequest) (adapter.AuthorizationResult, error) {
	if err := ctx.Err(); err != nil {
		return adapter.AuthorizationResult{}, err
	}
	return adapter.AuthorizationResult{Approved: true, Reference: a.next()}, nil
}
