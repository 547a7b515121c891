// Package risk computes fraud risk assessments for transactions.
package risk

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dzpay/bankcore/pkg/metrics"
	"github.com/dzpay/bankcore/pkg/models"
)

// Signal weights. Signals are independent and additive.
const (
	pointsGeographicAnomaly = 30
	pointsUnusualAmount     = 25
	pointsUnusualTime       = 15
	pointsNewDevice         = 20
)

// Config holds the tunable signal thresholds.
type Config struct {
	GeoDistanceKm   float64
	AmountMultiple  int64
	ActiveHourStart int
	ActiveHourEnd   int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		GeoDistanceKm:   500,
		AmountMultiple:  5,
		ActiveHourStart: 6,
		ActiveHourEnd:   22,
	}
}

// CrossBankChecker flags suspicious activity spanning multiple banks. The
// check may be expensive; a failure or absence of data skips the signal.
type CrossBankChecker interface {
	CheckActivity(ctx context.Context, userID string) (suspicious bool, points int, err error)
}

// Scorer computes risk assessments. Scoring itself is a pure accumulation of
// signal points; signals without input data are skipped silently so the
// scorer always returns a result.
type Scorer struct {
	logger    *zap.Logger
	cfg       Config
	crossBank CrossBankChecker
}

// NewScorer creates a scorer. crossBank may be nil to disable that signal.
func NewScorer(logger *zap.Logger, cfg Config, crossBank CrossBankChecker) *Scorer {
	if cfg.AmountMultiple <= 0 {
		cfg = DefaultConfig()
	}
	return &Scorer{logger: logger, cfg: cfg, crossBank: crossBank}
}

// Score assesses one transaction against the caller's behavioral profile.
func (s *Scorer) Score(ctx context.Context, req models.TransferRequest, profile models.BehaviorProfile, at time.Time) models.RiskAssessment {
	score := 0
	factors := make([]string, 0, 5)

	if profile.LastLocation != nil && profile.CurrentLocation != nil {
		if haversineKm(*profile.LastLocation, *profile.CurrentLocation) > s.cfg.GeoDistanceKm {
			score += pointsGeographicAnomaly
			factors = append(factors, models.FactorGeographicAnomaly)
		}
	}

	if profile.AverageAmount != nil && profile.AverageAmount.IsPositive() {
		limit := profile.AverageAmount.Mul(decimal.NewFromInt(s.cfg.AmountMultiple))
		if req.Amount.GreaterThan(limit) {
			score += pointsUnusualAmount
			factors = append(factors, models.FactorUnusualAmount)
		}
	}

	hour := at.Hour()
	if hour < s.cfg.ActiveHourStart || hour > s.cfg.ActiveHourEnd {
		score += pointsUnusualTime
		factors = append(factors, models.FactorUnusualTime)
	}

	if profile.NewDevice {
		score += pointsNewDevice
		factors = append(factors, models.FactorNewDevice)
	}

	if s.crossBank != nil && profile.UserID != "" {
		suspicious, points, err := s.crossBank.CheckActivity(ctx, profile.UserID)
		if err != nil {
			s.logger.Warn("cross-bank activity check failed, signal skipped",
				zap.String("user_id", profile.UserID), zap.Error(err))
		} else if suspicious {
			if points > 30 {
				points = 30
			}
			score += points
			factors = append(factors, models.FactorCrossBankActivity)
		}
	}

	level := LevelForScore(score)
	metrics.RiskAssessments.WithLabelValues(level.String()).Inc()

	return models.RiskAssessment{
		Score:          score,
		Level:          level,
		Factors:        factors,
		Recommendation: RecommendationForScore(score),
		AnalyzedAt:     at,
	}
}

// LevelForScore maps a score to its risk level using the fixed thresholds.
func LevelForScore(score int) models.RiskLevel {
	switch {
	case score >= 80:
		return models.RiskLevelCritical
	case score >= 60:
		return models.RiskLevelHigh
	case score >= 40:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

// RecommendationForScore mirrors the level thresholds.
func RecommendationForScore(score int) models.Recommendation {
	switch {
	case score >= 80:
		return models.RecommendBlock
	case score >= 60:
		return models.RecommendAdditionalAuth
	case score >= 40:
		return models.RecommendMonitor
	default:
		return models.RecommendProceed
	}
}

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two points.
func haversineKm(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
