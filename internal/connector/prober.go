package connector

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dzpay/bankcore/pkg/models"
)

// SimulatedProber stands in for real bank endpoint probes. Latency is drawn
// from the 50-500ms band observed on the production gateways; a configurable
// failure rate exercises the unavailable path.
type SimulatedProber struct {
	mu          sync.Mutex
	rng         *rand.Rand
	FailureRate float64
}

// NewSimulatedProber creates a prober seeded from the clock.
func NewSimulatedProber() *SimulatedProber {
	return &SimulatedProber{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededProber creates a prober with a fixed seed for reproducible runs.
func NewSeededProber(seed int64, failureRate float64) *SimulatedProber {
	return &SimulatedProber{
		rng:         rand.New(rand.NewSource(seed)),
		FailureRate: failureRate,
	}
}

// Probe simulates a health check against the bank endpoint.
func (p *SimulatedProber) Probe(ctx context.Context, bank models.Bank) (time.Duration, error) {
	p.mu.Lock()
	latency := time.Duration(50+p.rng.Intn(450)) * time.Millisecond
	failed := p.rng.Float64() < p.FailureRate
	p.mu.Unlock()

	if failed {
		return 0, ErrBankUnavailable
	}

	deadline, ok := ctx.Deadline()
	if ok && time.Now().Add(latency).After(deadline) {
		// The probe would not complete inside the caller's budget.
		select {
		case <-ctx.Done():
		case <-time.After(time.Until(deadline)):
		}
		return 0, context.DeadlineExceeded
	}
	return latency, nil
}
