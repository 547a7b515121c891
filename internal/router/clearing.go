package router

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dzpay/bankcore/pkg/metrics"
	"github.com/dzpay/bankcore/pkg/models"
)

// ClearingGateway settles a transfer between two different banks. Settlement
// is fire-and-confirm: once issued it cannot be cancelled, only reversed by a
// compensating transaction.
type ClearingGateway interface {
	Settle(ctx context.Context, rec *models.TransactionRecord) (confirmation string, latency time.Duration, err error)
}

// SimulatedClearing stands in for the RTGS clearing house, settling within
// the 100-400ms band of the production interbank link.
type SimulatedClearing struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedClearing creates a gateway seeded from the clock.
func NewSimulatedClearing() *SimulatedClearing {
	return &SimulatedClearing{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededClearing creates a gateway with a fixed seed.
func NewSeededClearing(seed int64) *SimulatedClearing {
	return &SimulatedClearing{rng: rand.New(rand.NewSource(seed))}
}

// Settle simulates interbank settlement and issues an IBT confirmation so
// cross-bank records are distinguishable from intra-bank TXN ids.
func (c *SimulatedClearing) Settle(ctx context.Context, rec *models.TransactionRecord) (string, time.Duration, error) {
	c.mu.Lock()
	latency := time.Duration(100+c.rng.Intn(300)) * time.Millisecond
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", 0, ctx.Err()
	case <-time.After(latency):
	}

	metrics.ClearingLatency.Observe(latency.Seconds())
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("IBT%d%s", time.Now().UnixMilli(), suffix), latency, nil
}
