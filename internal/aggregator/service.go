// Package aggregator derives rolling operational metrics from router and
// connector activity, publishing immutable snapshots.
package aggregator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dzpay/bankcore/internal/alerts"
	"github.com/dzpay/bankcore/internal/connector"
	"github.com/dzpay/bankcore/internal/ledger"
	"github.com/dzpay/bankcore/pkg/models"
)

// Config holds the aggregation interval and alarm thresholds.
type Config struct {
	Interval       time.Duration
	FraudRateAlarm float64 // alarm when the flagged ratio rises above this percentage
	UptimeAlarm    float64 // alarm when uptime falls below this percentage
}

// Service implements the metrics aggregator.
type Service struct {
	logger      *zap.Logger
	store       *ledger.Store
	connections connector.ConnectionManager
	bus         *alerts.Bus
	cfg         Config

	current atomic.Pointer[models.BankingMetrics]

	mu        sync.Mutex
	stopChan  chan struct{}
	isRunning bool

	fraudAlarmed  bool
	uptimeAlarmed bool
}

// NewService creates a metrics aggregator.
func NewService(logger *zap.Logger, store *ledger.Store, connections connector.ConnectionManager, bus *alerts.Bus, cfg Config) (*Service, error) {
	if store == nil || connections == nil {
		return nil, fmt.Errorf("aggregator: missing dependency")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.FraudRateAlarm <= 0 {
		cfg.FraudRateAlarm = 25.0
	}
	if cfg.UptimeAlarm <= 0 {
		cfg.UptimeAlarm = 99.0
	}
	return &Service{
		logger:      logger,
		store:       store,
		connections: connections,
		bus:         bus,
		cfg:         cfg,
		stopChan:    make(chan struct{}),
	}, nil
}

// Start computes an initial snapshot and launches the aggregation loop.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return fmt.Errorf("metrics aggregator is already running")
	}
	s.isRunning = true

	s.Refresh(context.Background())
	go s.run()

	s.logger.Info("metrics aggregator started", zap.Duration("interval", s.cfg.Interval))
	return nil
}

// Stop terminates the aggregation loop.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return fmt.Errorf("metrics aggregator is not running")
	}
	close(s.stopChan)
	s.isRunning = false
	s.logger.Info("metrics aggregator stopped")
	return nil
}

// Current returns the latest metrics snapshot, nil before the first refresh.
func (s *Service) Current() *models.BankingMetrics {
	return s.current.Load()
}

func (s *Service) run() {
	ticker := time.NewTicker(s.cfg.Interval)
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

// Refresh recomputes a snapshot from the live counters and publishes it
// atomically. Failures keep the previous snapshot and never stop the loop.
func (s *Service) Refresh(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("metrics refresh panicked", zap.Any("panic", r))
		}
	}()

	count, volume, flagged, err := s.store.Aggregates(ctx)
	if err != nil {
		s.logger.Error("failed to aggregate ledger metrics", zap.Error(err))
		return
	}

	avg := decimal.Zero
	if count > 0 {
		avg = volume.DivRound(decimal.NewFromInt(count), 2)
	}
	fraudRate := 0.0
	if count > 0 {
		fraudRate = 100.0 * float64(flagged) / float64(count+flagged)
	}

	snap := &models.BankingMetrics{
		TotalTransactions:      count,
		TotalVolume:            volume,
		AverageTransactionSize: avg,
		FraudDetectionRate:     fraudRate,
		SystemUptime:           s.connections.UptimeRatio(),
		BankResponseTimes:      s.connections.ResponseTimes(),
		GeneratedAt:            time.Now(),
	}
	s.current.Store(snap)
	s.checkAlarms(snap)
}

// checkAlarms emits a system alert on each threshold crossing, once per
// excursion.
func (s *Service) checkAlarms(snap *models.BankingMetrics) {
	if s.bus == nil {
		return
	}

	fraudHigh := snap.FraudDetectionRate > s.cfg.FraudRateAlarm
	if fraudHigh && !s.fraudAlarmed {
		s.bus.Publish(models.Alert{
			Type:     models.AlertSystem,
			Severity: models.SeverityHigh,
			Source:   "Metrics Aggregator",
			Message:  fmt.Sprintf("Fraud-flagged transaction ratio at %.1f%% exceeds alarm threshold", snap.FraudDetectionRate),
			Metadata: map[string]interface{}{"fraud_detection_rate": snap.FraudDetectionRate},
		})
	}
	s.fraudAlarmed = fraudHigh

	uptimeLow := snap.SystemUptime < s.cfg.UptimeAlarm
	if uptimeLow && !s.uptimeAlarmed {
		s.bus.Publish(models.Alert{
			Type:     models.AlertSystem,
			Severity: models.SeverityHigh,
			Source:   "Metrics Aggregator",
			Message:  fmt.Sprintf("System uptime at %.2f%% below alarm threshold", snap.SystemUptime),
			Metadata: map[string]interface{}{"system_uptime": snap.SystemUptime},
		})
	}
	s.uptimeAlarmed = uptimeLow
}
