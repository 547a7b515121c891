package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dzpay/bankcore/pkg/models"
)

// baseRates are the official DZD reference rates the simulation fluctuates
// around.
var baseRates = map[string]float64{
	"USD": 135.50,
	"EUR": 147.30,
	"GBP": 168.20,
	"SAR": 36.15,
	"TND": 43.20,
	"MAD": 13.45,
	"CNY": 19.10,
	"JPY": 0.91,
}

// SimulatedProvider stands in for the Bank of Algeria and ONS upstream feeds,
// producing realistic fluctuations around the official reference values.
type SimulatedProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedProvider creates a provider seeded from the clock.
func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededProvider creates a provider with a fixed seed for reproducible runs.
func NewSeededProvider(seed int64) *SimulatedProvider {
	return &SimulatedProvider{rng: rand.New(rand.NewSource(seed))}
}

// FetchRates returns the full DZD rate table with ±0.5% fluctuation.
func (p *SimulatedProvider) FetchRates(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]float64, len(baseRates))
	for currency, rate := range baseRates {
		fluctuation := (p.rng.Float64() - 0.5) * 0.01
		out[currency] = rate * (1 + fluctuation)
	}
	return out, nil
}

// FetchPolicyRates returns the current Bank of Algeria monetary policy rates.
func (p *SimulatedProvider) FetchPolicyRates(ctx context.Context) (models.PolicyRates, error) {
	if err := ctx.Err(); err != nil {
		return models.PolicyRates{}, err
	}
	return models.PolicyRates{
		KeyRate:            3.25,
		AverageLendingRate: 8.50,
		AverageDepositRate: 2.75,
	}, nil
}

// FetchInflation returns the inflation rate with small monthly variation.
func (p *SimulatedProvider) FetchInflation(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return 4.2 + (p.rng.Float64()-0.5)*0.2, nil
}

// FetchIndicators returns the macro indicators for Algeria.
func (p *SimulatedProvider) FetchIndicators(ctx context.Context) (models.EconomicIndicators, error) {
	if err := ctx.Err(); err != nil {
		return models.EconomicIndicators{}, err
	}
	return models.EconomicIndicators{
		GDPGrowth:        3.1,
		UnemploymentRate: 11.8,
		OilPriceImpact:   0.85,
	}, nil
}
