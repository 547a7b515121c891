// Package connector establishes and tracks one logical connection per bank.
package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dzpay/bankcore/internal/registry"
	"github.com/dzpay/bankcore/pkg/metrics"
	"github.com/dzpay/bankcore/pkg/models"
)

// ErrBankUnavailable is returned when a bank cannot be reached within the
// probe timeout. The router treats it as a terminal rejection for that
// attempt; retries are the caller's policy.
var ErrBankUnavailable = errors.New("bank service unavailable")

// BankProber reaches out to a bank endpoint and measures round-trip latency.
// Production wires a real HTTP prober; tests supply a deterministic double.
type BankProber interface {
	Probe(ctx context.Context, bank models.Bank) (time.Duration, error)
}

// ConnectionManager defines bank connection operations.
type ConnectionManager interface {
	Connect(ctx context.Context, bankCode string) (*models.Connection, error)
	ConnectWithRetry(ctx context.Context, bankCode string) (*models.Connection, error)
	IsHealthy(bankCode string) bool
	Latency(bankCode string) time.Duration
	Snapshot() []models.Connection
	ResponseTimes() map[string]float64
	UptimeRatio() float64
}

// Config bounds probe timeouts and retry policy.
type Config struct {
	ProbeTimeout  time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// Manager implements ConnectionManager. It is the single writer of the
// connection table; every other component only reads through it.
type Manager struct {
	logger   *zap.Logger
	registry *registry.Registry
	prober   BankProber
	cfg      Config

	mu          sync.RWMutex
	connections map[string]*models.Connection

	probeTotal  int64
	probeFailed int64
}

// NewManager creates a connection manager.
func NewManager(logger *zap.Logger, reg *registry.Registry, prober BankProber, cfg Config) *Manager {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	return &Manager{
		logger:      logger,
		registry:    reg,
		prober:      prober,
		cfg:         cfg,
		connections: make(map[string]*models.Connection),
	}
}

// Connect establishes or refreshes the connection to a bank. Calling it on an
// already-connected bank refreshes health metadata rather than erroring.
func (m *Manager) Connect(ctx context.Context, bankCode string) (*models.Connection, error) {
	bank, err := m.registry.Get(bankCode)
	if err != nil {
		return nil, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	latency, probeErr := m.prober.Probe(probeCtx, *bank)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.probeTotal++
	conn, ok := m.connections[bankCode]
	if !ok {
		conn = &models.Connection{
			BankCode:  bankCode,
			AuthToken: fmt.Sprintf("session_%s_%s", bankCode, uuid.NewString()),
			Services:  bank.Services,
		}
		m.connections[bankCode] = conn
	}

	if probeErr != nil {
		m.probeFailed++
		conn.Connected = false
		conn.LastPing = time.Now()
		metrics.BankConnected.WithLabelValues(bankCode).Set(0)
		m.logger.Warn("bank probe failed",
			zap.String("bank", bankCode),
			zap.Error(probeErr))
		return nil, fmt.Errorf("%w: %s", ErrBankUnavailable, bankCode)
	}

	conn.Connected = true
	conn.LastPing = time.Now()
	conn.Latency = latency
	metrics.BankConnected.WithLabelValues(bankCode).Set(1)
	metrics.BankProbeLatency.WithLabelValues(bankCode).Set(float64(latency.Milliseconds()))

	out := *conn
	return &out, nil
}

// ConnectWithRetry applies the configured capped backoff policy around Connect.
func (m *Manager) ConnectWithRetry(ctx context.Context, bankCode string) (*models.Connection, error) {
	var lastErr error
	for attempt := 0; attempt < m.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.cfg.RetryBackoff * time.Duration(attempt)):
			}
		}
		conn, err := m.Connect(ctx, bankCode)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if !errors.Is(err, ErrBankUnavailable) {
			return nil, err
		}
	}
	return nil, lastErr
}

// IsHealthy reports whether the last probe of a bank succeeded.
func (m *Manager) IsHealthy(bankCode string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[bankCode]
	return ok && conn.Connected
}

// Latency returns the last measured latency for a bank, zero when never probed.
func (m *Manager) Latency(bankCode string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if conn, ok := m.connections[bankCode]; ok {
		return conn.Latency
	}
	return 0
}

// Snapshot returns a copy of the current connection table.
func (m *Manager) Snapshot() []models.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		out = append(out, *conn)
	}
	return out
}

// ResponseTimes returns last probe latencies per bank in milliseconds.
func (m *Manager) ResponseTimes() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.connections))
	for code, conn := range m.connections {
		out[code] = float64(conn.Latency.Milliseconds())
	}
	return out
}

// UptimeRatio returns the fraction of successful probes over the manager's
// lifetime, as a percentage. With no probe history it reports 100.
func (m *Manager) UptimeRatio() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.probeTotal == 0 {
		return 100.0
	}
	return 100.0 * float64(m.probeTotal-m.probeFailed) / float64(m.probeTotal)
}
