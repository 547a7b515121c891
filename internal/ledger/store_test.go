package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dzpay/bankcore/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(zaptest.NewLogger(t), "sqlite", ":memory:")
	require.NoError(t, err)
	return store
}

func record(id string, status models.TransactionStatus, amount int64) *models.TransactionRecord {
	now := time.Now()
	return &models.TransactionRecord{
		TransactionID:      id,
		MessageID:          fmt.Sprintf("MSG-%s", id),
		SourceAccount:      "0001234567",
		DestinationAccount: "0002765432",
		Amount:             decimal.NewFromInt(amount),
		Currency:           "DZD",
		Kind:               models.KindTransfer,
		SourceBank:         "BNA",
		DestinationBank:    "CPA",
		CrossBank:          true,
		Status:             status,
		ValueDate:          now,
		BookingDate:        now,
		CreatedAt:          now,
	}
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := record("TXN1", models.StatusExecuted, 5000)
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "TXN1")
	require.NoError(t, err)
	assert.Equal(t, "TXN1", got.TransactionID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, models.StatusExecuted, got.Status)
}

func TestSaveRequiresID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Save(context.Background(), &models.TransactionRecord{}))
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "TXN-missing")
	assert.Error(t, err)
}

func TestTransitionStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("TXN1", models.StatusPendingReview, 1000)))
	require.NoError(t, store.TransitionStatus(ctx, "TXN1", models.StatusPendingReview, models.StatusCancelled))

	got, err := store.Get(ctx, "TXN1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestTransitionFromTerminalRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("TXN1", models.StatusExecuted, 1000)))

	err := store.TransitionStatus(ctx, "TXN1", models.StatusExecuted, models.StatusCancelled)
	assert.Error(t, err)

	got, _ := store.Get(ctx, "TXN1")
	assert.Equal(t, models.StatusExecuted, got.Status)
}

func TestTransitionWrongFromStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("TXN1", models.StatusPending, 1000)))

	err := store.TransitionStatus(ctx, "TXN1", models.StatusPendingReview, models.StatusCancelled)
	assert.Error(t, err)
}

func TestHistoryWindowAndTotals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	outgoing := record("TXN1", models.StatusExecuted, 3000)
	require.NoError(t, store.Save(ctx, outgoing))

	incoming := record("TXN2", models.StatusExecuted, 7000)
	incoming.SourceAccount = "0002765432"
	incoming.DestinationAccount = "0001234567"
	require.NoError(t, store.Save(ctx, incoming))

	// Rejected records appear in the listing but not in the totals.
	rejected := record("TXN3", models.StatusRejected, 9999)
	require.NoError(t, store.Save(ctx, rejected))

	old := record("TXN4", models.StatusExecuted, 100)
	old.ValueDate = time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, store.Save(ctx, old))

	result, err := store.History(ctx, HistoryQuery{
		Account: "0001234567",
		From:    time.Now().Add(-24 * time.Hour),
		To:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	assert.EqualValues(t, 3, result.TotalCount)
	assert.True(t, result.TotalDebits.Equal(decimal.NewFromInt(3000)), "got %s", result.TotalDebits)
	assert.True(t, result.TotalCredits.Equal(decimal.NewFromInt(7000)), "got %s", result.TotalCredits)

	// Most recent first.
	require.NotEmpty(t, result.Records)
	for i := 1; i < len(result.Records); i++ {
		assert.False(t, result.Records[i].ValueDate.After(result.Records[i-1].ValueDate))
	}
}

func TestHistoryBankFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("TXN1", models.StatusExecuted, 1000)))

	sga := record("TXN2", models.StatusExecuted, 2000)
	sga.SourceBank = "SGA"
	sga.DestinationBank = "SGA"
	require.NoError(t, store.Save(ctx, sga))

	result, err := store.History(ctx, HistoryQuery{
		Account:  "0001234567",
		From:     time.Now().Add(-time.Hour),
		To:       time.Now().Add(time.Hour),
		BankCode: "SGA",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.TotalCount)
}

func TestHistoryLimitDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		require.NoError(t, store.Save(ctx, record(fmt.Sprintf("TXN%d", i), models.StatusExecuted, 100)))
	}

	result, err := store.History(ctx, HistoryQuery{
		Account: "0001234567",
		From:    time.Now().Add(-time.Hour),
		To:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 60, result.TotalCount)
	assert.Len(t, result.Records, 50)
}

func TestAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("TXN1", models.StatusExecuted, 10000)))
	require.NoError(t, store.Save(ctx, record("TXN2", models.StatusExecuted, 30000)))

	flagged := record("TXN3", models.StatusRejected, 500000)
	flagged.Risk = models.RiskAssessment{Score: 85, Level: models.RiskLevelCritical}
	require.NoError(t, store.Save(ctx, flagged))

	count, volume, flaggedCount, err := store.Aggregates(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.True(t, volume.Equal(decimal.NewFromInt(40000)), "got %s", volume)
	assert.EqualValues(t, 1, flaggedCount)
}

func TestAggregatesEmpty(t *testing.T) {
	store := newTestStore(t)

	count, volume, flagged, err := store.Aggregates(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, volume.IsZero())
	assert.Zero(t, flagged)
}

func TestSimulatorEnsureHistoryIdempotent(t *testing.T) {
	store := newTestStore(t)
	sim := NewSimulator(store, 42)
	ctx := context.Background()

	from := time.Now().Add(-7 * 24 * time.Hour)
	to := time.Now()

	require.NoError(t, sim.EnsureHistory(ctx, "0001234567", "BNA", from, to))
	first, err := store.History(ctx, HistoryQuery{Account: "0001234567", From: from, To: to, Limit: 500})
	require.NoError(t, err)
	require.NotEmpty(t, first.Records)

	// A second call over the same window adds nothing.
	require.NoError(t, sim.EnsureHistory(ctx, "0001234567", "BNA", from, to))
	second, err := store.History(ctx, HistoryQuery{Account: "0001234567", From: from, To: to, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, first.TotalCount, second.TotalCount)
}

func TestSimulatorBalance(t *testing.T) {
	sim := NewSimulator(newTestStore(t), 42)

	b := sim.Balance("0001234567", "BNA")

	assert.Equal(t, "0001234567", b.AccountNumber)
	assert.Equal(t, "BNA", b.BankCode)
	assert.Equal(t, "DZD", b.Currency)
	assert.True(t, b.Available.IsPositive())
	assert.Equal(t, "ACTIVE", b.AccountStatus)
	assert.True(t, b.Limits.DailyWithdrawal.Equal(decimal.NewFromInt(100000)))
}
