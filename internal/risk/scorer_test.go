package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dzpay/bankcore/pkg/models"
)

type stubChecker struct {
	suspicious bool
	points     int
	err        error
}

func (s *stubChecker) CheckActivity(ctx context.Context, userID string) (bool, int, error) {
	return s.suspicious, s.points, s.err
}

// quietHours is a config where the unusual-time signal can never fire, so
// tests do not depend on the wall clock hour they run at.
func quietHours() Config {
	return Config{
		GeoDistanceKm:   500,
		AmountMultiple:  5,
		ActiveHourStart: 0,
		ActiveHourEnd:   23,
	}
}

func avg(amount int64) *decimal.Decimal {
	d := decimal.NewFromInt(amount)
	return &d
}

func TestScoreNoSignals(t *testing.T) {
	scorer := NewScorer(zaptest.NewLogger(t), quietHours(), nil)

	req := models.TransferRequest{Amount: decimal.NewFromInt(10000)}
	assessment := scorer.Score(context.Background(), req, models.BehaviorProfile{}, time.Now())

	assert.Equal(t, 0, assessment.Score)
	assert.Equal(t, models.RiskLevelLow, assessment.Level)
	assert.Equal(t, models.RecommendProceed, assessment.Recommendation)
	assert.Empty(t, assessment.Factors)
}

func TestScoreGeographicAnomaly(t *testing.T) {
	scorer := NewScorer(zaptest.NewLogger(t), quietHours(), nil)

	// Algiers to Tamanrasset, far beyond the 500km threshold.
	profile := models.BehaviorProfile{
		LastLocation:    &models.GeoPoint{Lat: 36.7538, Lon: 3.0588},
		CurrentLocation: &models.GeoPoint{Lat: 22.7850, Lon: 5.5228},
	}
	req := models.TransferRequest{Amount: decimal.NewFromInt(10000)}
	assessment := scorer.Score(context.Background(), req, profile, time.Now())

	assert.Equal(t, 30, assessment.Score)
	assert.Contains(t, assessment.Factors, models.FactorGeographicAnomaly)
}

func TestScoreNearbyLocationNotFlagged(t *testing.T) {
	scorer := NewScorer(zaptest.NewLogger(t), quietHours(), nil)

	// Algiers to Blida, roughly 40km.
	profile := models.BehaviorProfile{
		LastLocation:    &models.GeoPoint{Lat: 36.7538, Lon: 3.0588},
		CurrentLocation: &models.GeoPoint{Lat: 36.4700, Lon: 2.8300},
	}
	req := models.TransferRequest{Amount: decimal.NewFromInt(10000)}
	assessment := scorer.Score(context.Background(), req, profile, time.Now())

	assert.Equal(t, 0, assessment.Score)
}

func TestScoreUnusualAmount(t *testing.T) {
	scorer := NewScorer(zaptest.NewLogger(t), quietHours(), nil)

	profile := models.BehaviorProfile{AverageAmount: avg(50000)}
	req := models.TransferRequest{Amount: decimal.NewFromInt(300000)} // 6x average
	assessment := scorer.Score(context.Background(), req, profile, time.Now())

	assert.Equal(t, 25, assessment.Score)
	assert.Contains(t, assessment.Factors, models.FactorUnusualAmount)
}

func TestScoreAmountAtMultipleNotFlagged(t *testing.T) {
	scorer := NewScorer(zaptest.NewLogger(t), quietHours(), nil)

	profile := models.BehaviorProfile{AverageAmount: avg(50000)}
	req := models.TransferRequest{Amount: decimal.NewFromInt(250000)} // exactly 5x
	assessment := scorer.Score(context.Background(), req, profile, time.Now())

	assert.Equal(t, 0, assessment.Score)
}

func TestScoreUnusualTime(t *testing.T) {
	scorer := NewScorer(zaptest.NewLogger(t), DefaultConfig(), nil)

	req := models.TransferRequest{Amount: decimal.NewFromInt(10000)}
	threeAM := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	assessment := scorer.Score(context.Background(), req, models.BehaviorProfile{}, threeAM)

	assert.Equal(t, 15, assessment.Score)
	assert.Contains(t, assessment.Factors, models.FactorUnusualTime)

	tenAM := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	assessment = scorer.Score(context.Background(), req, models.BehaviorProfile{}, tenAM)
	assert.Equal(t, 0, assessment.Score)
}

func TestScoreNewDevice(t *testing.T) {
	scorer := NewScorer(zaptest.NewLogger(t), quietHours(), nil)

	req := models.TransferRequest{Amount: decimal.NewFromInt(10000)}
	assessment := scorer.Score(context.Background(), req, models.BehaviorProfile{NewDevice: true}, time.Now())

	assert.Equal(t, 20, assessment.Score)
	assert.Contains(t, assessment.Factors, models.FactorNewDevice)
}

func TestScoreCrossBankCapped(t *testing.T) {
	checker := &stubChecker{suspicious: true, points: 45}
	scorer := NewScorer(zaptest.NewLogger(t), quietHours(), checker)

	req := models.TransferRequest{Amount: decimal.NewFromInt(10000)}
	assessment := scorer.Score(context.Background(), req, models.BehaviorProfile{UserID: "user-1"}, time.Now())

	assert.Equal(t, 30, assessment.Score)
	assert.Contains(t, assessment.Factors, models.FactorCrossBankActivity)
}

func TestScoreCrossBankFailureSkipsSignal(t *testing.T) {
	checker := &stubChecker{err: errors.New("clearing house timeout")}
	scorer := NewScorer(zaptest.NewLogger(t), quietHours(), checker)

	req := models.TransferRequest{Amount: decimal.NewFromInt(10000)}
	profile := models.BehaviorProfile{UserID: "user-1", NewDevice: true}
	assessment := scorer.Score(context.Background(), req, profile, time.Now())

	// The failed signal is skipped, not escalated.
	assert.Equal(t, 20, assessment.Score)
	assert.NotContains(t, assessment.Factors, models.FactorCrossBankActivity)
}

func TestScoreLargeSameBankTransferStaysRoutable(t *testing.T) {
	scorer := NewScorer(zaptest.NewLogger(t), quietHours(), nil)

	// 1.2M DZD against a 50k average from a known device and location: only
	// the amount signal fires, which alone never blocks.
	profile := models.BehaviorProfile{AverageAmount: avg(50000)}
	req := models.TransferRequest{Amount: decimal.NewFromInt(1200000)}
	assessment := scorer.Score(context.Background(), req, profile, time.Now())

	assert.Equal(t, 25, assessment.Score)
	assert.Equal(t, models.RiskLevelLow, assessment.Level)
	assert.Equal(t, models.RecommendProceed, assessment.Recommendation)
}

func TestScoreCompoundSignalsBlock(t *testing.T) {
	checker := &stubChecker{suspicious: true, points: 20}
	scorer := NewScorer(zaptest.NewLogger(t), DefaultConfig(), checker)

	// 2M cross-bank at 03:00 from a new device after a large location jump.
	profile := models.BehaviorProfile{
		UserID:          "user-1",
		LastLocation:    &models.GeoPoint{Lat: 36.7538, Lon: 3.0588},
		CurrentLocation: &models.GeoPoint{Lat: 48.8566, Lon: 2.3522},
		AverageAmount:   avg(50000),
		NewDevice:       true,
	}
	req := models.TransferRequest{Amount: decimal.NewFromInt(2000000)}
	threeAM := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	assessment := scorer.Score(context.Background(), req, profile, threeAM)

	require.GreaterOrEqual(t, assessment.Score, 80)
	assert.Equal(t, models.RiskLevelCritical, assessment.Level)
	assert.Equal(t, models.RecommendBlock, assessment.Recommendation)
	assert.Len(t, assessment.Factors, 5)
}

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		score          int
		level          models.RiskLevel
		recommendation models.Recommendation
	}{
		{0, models.RiskLevelLow, models.RecommendProceed},
		{39, models.RiskLevelLow, models.RecommendProceed},
		{40, models.RiskLevelMedium, models.RecommendMonitor},
		{59, models.RiskLevelMedium, models.RecommendMonitor},
		{60, models.RiskLevelHigh, models.RecommendAdditionalAuth},
		{79, models.RiskLevelHigh, models.RecommendAdditionalAuth},
		{80, models.RiskLevelCritical, models.RecommendBlock},
		{120, models.RiskLevelCritical, models.RecommendBlock},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelForScore(tc.score), "score %d", tc.score)
		assert.Equal(t, tc.recommendation, RecommendationForScore(tc.score), "score %d", tc.score)
	}
}

func TestHaversine(t *testing.T) {
	algiers := models.GeoPoint{Lat: 36.7538, Lon: 3.0588}
	oran := models.GeoPoint{Lat: 35.6987, Lon: -0.6349}

	d := haversineKm(algiers, oran)
	assert.InDelta(t, 355, d, 15)
	assert.Zero(t, haversineKm(algiers, algiers))
}
