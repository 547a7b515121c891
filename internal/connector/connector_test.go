package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dzpay/bankcore/internal/registry"
	"github.com/dzpay/bankcore/pkg/models"
)

// scriptedProber fails a fixed number of probes before succeeding.
type scriptedProber struct {
	failures int
	calls    int
}

func (p *scriptedProber) Probe(ctx context.Context, bank models.Bank) (time.Duration, error) {
	p.calls++
	if p.calls <= p.failures {
		return 0, ErrBankUnavailable
	}
	return 25 * time.Millisecond, nil
}

func newTestManager(t *testing.T, prober BankProber) *Manager {
	t.Helper()
	return NewManager(zaptest.NewLogger(t), registry.NewRegistry(nil), prober, Config{
		ProbeTimeout:  time.Second,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	})
}

func TestConnectSuccess(t *testing.T) {
	m := newTestManager(t, &scriptedProber{})

	conn, err := m.Connect(context.Background(), "BNA")
	require.NoError(t, err)
	assert.True(t, conn.Connected)
	assert.Equal(t, "BNA", conn.BankCode)
	assert.Equal(t, 25*time.Millisecond, conn.Latency)
	assert.NotEmpty(t, conn.AuthToken)
	assert.True(t, m.IsHealthy("BNA"))
}

func TestConnectUnknownBank(t *testing.T) {
	m := newTestManager(t, &scriptedProber{})

	_, err := m.Connect(context.Background(), "XYZ")
	assert.Error(t, err)
}

func TestConnectIsIdempotent(t *testing.T) {
	m := newTestManager(t, &scriptedProber{})

	first, err := m.Connect(context.Background(), "CPA")
	require.NoError(t, err)
	second, err := m.Connect(context.Background(), "CPA")
	require.NoError(t, err)

	// Reconnecting refreshes health metadata but keeps the session.
	assert.Equal(t, first.AuthToken, second.AuthToken)
	assert.Len(t, m.Snapshot(), 1)
}

func TestConnectProbeFailure(t *testing.T) {
	m := newTestManager(t, &scriptedProber{failures: 100})

	_, err := m.Connect(context.Background(), "BNA")
	require.ErrorIs(t, err, ErrBankUnavailable)
	assert.False(t, m.IsHealthy("BNA"))
}

func TestConnectWithRetryRecovers(t *testing.T) {
	prober := &scriptedProber{failures: 2}
	m := newTestManager(t, prober)

	conn, err := m.ConnectWithRetry(context.Background(), "BNA")
	require.NoError(t, err)
	assert.True(t, conn.Connected)
	assert.Equal(t, 3, prober.calls)
}

func TestConnectWithRetryExhausted(t *testing.T) {
	prober := &scriptedProber{failures: 100}
	m := newTestManager(t, prober)

	_, err := m.ConnectWithRetry(context.Background(), "BNA")
	require.ErrorIs(t, err, ErrBankUnavailable)
	assert.Equal(t, 3, prober.calls)
}

func TestConnectWithRetryHonorsContext(t *testing.T) {
	prober := &scriptedProber{failures: 100}
	m := NewManager(zaptest.NewLogger(t), registry.NewRegistry(nil), prober, Config{
		ProbeTimeout:  time.Second,
		RetryAttempts: 10,
		RetryBackoff:  50 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	_, err := m.ConnectWithRetry(ctx, "BNA")
	assert.Error(t, err)
	assert.Less(t, prober.calls, 10)
}

func TestUptimeRatio(t *testing.T) {
	m := newTestManager(t, &scriptedProber{failures: 1})

	assert.Equal(t, 100.0, m.UptimeRatio(), "no probe history yet")

	m.Connect(context.Background(), "BNA") // fails
	m.Connect(context.Background(), "BNA") // succeeds
	m.Connect(context.Background(), "BNA") // succeeds

	assert.InDelta(t, 66.7, m.UptimeRatio(), 0.1)
}

func TestResponseTimes(t *testing.T) {
	m := newTestManager(t, &scriptedProber{})

	_, err := m.Connect(context.Background(), "BNA")
	require.NoError(t, err)

	times := m.ResponseTimes()
	assert.Equal(t, 25.0, times["BNA"])
	assert.Equal(t, 25*time.Millisecond, m.Latency("BNA"))
	assert.Zero(t, m.Latency("CPA"))
}

func TestSeededProberDeterministic(t *testing.T) {
	a := NewSeededProber(7, 0)
	b := NewSeededProber(7, 0)
	bank := models.Bank{Code: "BNA"}

	latA, errA := a.Probe(context.Background(), bank)
	latB, errB := b.Probe(context.Background(), bank)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, latA, latB)
}
