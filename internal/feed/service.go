// Package feed periodically refreshes exchange rates, policy rates, and
// economic indicators, publishing immutable snapshots.
package feed

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dzpay/bankcore/internal/alerts"
	"github.com/dzpay/bankcore/pkg/models"
)

// DataProvider is the upstream source abstraction. Production connects to the
// Bank of Algeria and ONS feeds; tests supply deterministic fixtures.
type DataProvider interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
	FetchPolicyRates(ctx context.Context) (models.PolicyRates, error)
	FetchInflation(ctx context.Context) (float64, error)
	FetchIndicators(ctx context.Context) (models.EconomicIndicators, error)
}

// Config holds feed timing and change-detection thresholds.
type Config struct {
	BaseCurrency        string
	RateInterval        time.Duration
	RateChangeThreshold float64 // relative, e.g. 0.01 = 1%
	PolicyRateThreshold float64 // absolute percentage points
}

// Service implements the rate and indicator feed.
type Service struct {
	logger   *zap.Logger
	provider DataProvider
	bus      *alerts.Bus
	cfg      Config

	current atomic.Pointer[models.MarketSnapshot]

	mu        sync.Mutex
	stopChan  chan struct{}
	isRunning bool
}

// NewService creates a feed service.
func NewService(logger *zap.Logger, provider DataProvider, bus *alerts.Bus, cfg Config) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("feed: data provider is required")
	}
	if cfg.RateInterval <= 0 {
		cfg.RateInterval = 30 * time.Second
	}
	if cfg.RateChangeThreshold <= 0 {
		cfg.RateChangeThreshold = 0.01
	}
	if cfg.PolicyRateThreshold <= 0 {
		cfg.PolicyRateThreshold = 0.1
	}
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "DZD"
	}
	return &Service{
		logger:   logger,
		provider: provider,
		bus:      bus,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}, nil
}

// Start performs an initial refresh and launches the update loop.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return fmt.Errorf("feed service is already running")
	}
	s.isRunning = true

	s.Refresh(context.Background())
	go s.run()

	s.logger.Info("rate feed service started",
		zap.Duration("interval", s.cfg.RateInterval),
		zap.String("base", s.cfg.BaseCurrency))
	return nil
}

// Stop terminates the update loop.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return fmt.Errorf("feed service is not running")
	}
	close(s.stopChan)
	s.isRunning = false
	s.logger.Info("rate feed service stopped")
	return nil
}

// Current returns the latest published snapshot, nil before the first
// successful refresh.
func (s *Service) Current() *models.MarketSnapshot {
	return s.current.Load()
}

func (s *Service) run() {
	ticker := time.NewTicker(s.cfg.RateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Refresh(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// Refresh fetches upstream values and atomically publishes a new snapshot.
// On any failure the previous snapshot stays in place and a high-severity
// system alert is emitted; the loop always continues on the next tick.
func (s *Service) Refresh(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("market data refresh panicked", zap.Any("panic", r))
		}
	}()

	next, err := s.buildSnapshot(ctx)
	if err != nil {
		s.logger.Error("failed to update market data", zap.Error(err))
		if s.bus != nil {
			s.bus.Publish(models.Alert{
				Type:     models.AlertSystem,
				Severity: models.SeverityHigh,
				Source:   "Market Data Service",
				Message:  "Failed to fetch market data",
				Metadata: map[string]interface{}{"error": err.Error()},
			})
		}
		return
	}

	prev := s.current.Load()
	if changed, detail := s.significantChange(prev, next); changed && s.bus != nil {
		s.bus.Publish(models.Alert{
			Type:     models.AlertSystem,
			Severity: models.SeverityMedium,
			Source:   "Market Data Service",
			Message:  "Significant market movement detected",
			Metadata: map[string]interface{}{
				"detail":             detail,
				"central_bank_rate":  next.PolicyRates.KeyRate,
				"rates":              next.Rates.Rates,
			},
		})
	}

	// Single pointer swap keeps readers from ever observing a torn snapshot.
	s.current.Store(next)
}

func (s *Service) buildSnapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	rates, err := s.provider.FetchRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("fetch rates: empty rate table")
	}
	// A snapshot must cover the full tracked currency set or be rejected
	// outright; partial tables are never applied.
	if prev := s.current.Load(); prev != nil {
		for currency := range prev.Rates.Rates {
			if _, ok := rates[currency]; !ok {
				return nil, fmt.Errorf("fetch rates: incomplete table, missing %s", currency)
			}
		}
	}

	policy, err := s.provider.FetchPolicyRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch policy rates: %w", err)
	}
	inflation, err := s.provider.FetchInflation(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch inflation: %w", err)
	}
	indicators, err := s.provider.FetchIndicators(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch indicators: %w", err)
	}

	now := time.Now()
	return &models.MarketSnapshot{
		Timestamp: now,
		Rates: models.ExchangeRateSnapshot{
			Timestamp: now,
			Base:      s.cfg.BaseCurrency,
			Rates:     rates,
		},
		PolicyRates:   policy,
		InflationRate: inflation,
		Indicators:    indicators,
	}, nil
}

// significantChange compares two snapshots field by field against the
// configured thresholds.
func (s *Service) significantChange(prev, next *models.MarketSnapshot) (bool, string) {
	if prev == nil {
		return false, ""
	}
	for currency, newRate := range next.Rates.Rates {
		oldRate, ok := prev.Rates.Rates[currency]
		if !ok || oldRate == 0 {
			continue
		}
		if math.Abs((newRate-oldRate)/oldRate) > s.cfg.RateChangeThreshold {
			return true, fmt.Sprintf("%s rate moved %.4f -> %.4f", currency, oldRate, newRate)
		}
	}
	if math.Abs(next.PolicyRates.KeyRate-prev.PolicyRates.KeyRate) > s.cfg.PolicyRateThreshold {
		return true, fmt.Sprintf("central bank key rate moved %.2f -> %.2f",
			prev.PolicyRates.KeyRate, next.PolicyRates.KeyRate)
	}
	return false, ""
}
