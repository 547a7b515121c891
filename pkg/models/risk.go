package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel represents different risk levels
type RiskLevel int

const (
	RiskLevelLow RiskLevel = iota
	RiskLevelMedium
	RiskLevelHigh
	RiskLevelCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLevelLow:
		return "low"
	case RiskLevelMedium:
		return "medium"
	case RiskLevelHigh:
		return "high"
	case RiskLevelCritical:
		return "critical"
	}
	return "unknown"
}

// MarshalJSON renders the level as its lowercase name.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts the lowercase level name.
func (r *RiskLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "medium":
		*r = RiskLevelMedium
	case "high":
		*r = RiskLevelHigh
	case "critical":
		*r = RiskLevelCritical
	default:
		*r = RiskLevelLow
	}
	return nil
}

// Recommendation is the action derived from a risk score.
type Recommendation string

const (
	RecommendProceed        Recommendation = "proceed"
	RecommendMonitor        Recommendation = "monitor"
	RecommendAdditionalAuth Recommendation = "require_additional_auth"
	RecommendBlock          Recommendation = "block"
)

// Risk factor tags attached to an assessment.
const (
	FactorGeographicAnomaly = "geographic_anomaly"
	FactorUnusualAmount     = "unusual_amount"
	FactorUnusualTime       = "unusual_time"
	FactorNewDevice         = "new_device"
	FactorCrossBankActivity = "cross_bank_activity"
)

// RiskAssessment is the result of scoring one transaction. It is computed once
// and attached to the transaction record; it is never recomputed in place.
type RiskAssessment struct {
	Score          int            `json:"score"`
	Level          RiskLevel      `json:"level" gorm:"serializer:json"`
	Factors        []string       `json:"factors" gorm:"serializer:json"`
	Recommendation Recommendation `json:"recommendation"`
	AnalyzedAt     time.Time      `json:"analyzed_at"`
}

// GeoPoint is a WGS84 coordinate used for geographic anomaly detection.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BehaviorProfile carries the caller's behavioral history consumed by the risk
// scorer. Nil pointer fields mean the signal has no data and is skipped.
type BehaviorProfile struct {
	UserID          string           `json:"user_id"`
	LastLocation    *GeoPoint        `json:"last_location,omitempty"`
	CurrentLocation *GeoPoint        `json:"current_location,omitempty"`
	AverageAmount   *decimal.Decimal `json:"average_transaction_amount,omitempty"`
	NewDevice       bool             `json:"new_device"`
}
