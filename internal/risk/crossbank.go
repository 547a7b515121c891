package risk

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// SimulatedCrossBankChecker stands in for the interbank correlation query.
// In production this fans out to the other connected banks.
type SimulatedCrossBankChecker struct {
	mu             sync.Mutex
	rng            *rand.Rand
	SuspiciousRate float64
}

// NewSimulatedCrossBankChecker creates a checker seeded from the clock with
// the observed baseline suspicious-activity rate.
func NewSimulatedCrossBankChecker() *SimulatedCrossBankChecker {
	return &SimulatedCrossBankChecker{
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		SuspiciousRate: 0.2,
	}
}

// NewSeededCrossBankChecker creates a checker with a fixed seed.
func NewSeededCrossBankChecker(seed int64, suspiciousRate float64) *SimulatedCrossBankChecker {
	return &SimulatedCrossBankChecker{
		rng:            rand.New(rand.NewSource(seed)),
		SuspiciousRate: suspiciousRate,
	}
}

// CheckActivity reports simulated cross-institution correlation findings.
func (c *SimulatedCrossBankChecker) CheckActivity(ctx context.Context, userID string) (bool, int, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rng.Float64() >= c.SuspiciousRate {
		return false, 0, nil
	}
	return true, c.rng.Intn(31), nil
}
