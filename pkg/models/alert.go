package models

import (
	"encoding/json"
	"time"
)

// AlertType categorizes an alert on the bus.
type AlertType string

const (
	AlertTransaction AlertType = "transaction"
	AlertFraud       AlertType = "fraud"
	AlertSystem      AlertType = "system"
	AlertRegulatory  AlertType = "regulatory"
)

// AlertSeverity is totally ordered so alerts can be filtered and sorted.
type AlertSeverity int

const (
	SeverityLow AlertSeverity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s AlertSeverity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// MarshalJSON renders the severity as its lowercase name.
func (s AlertSeverity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the lowercase severity name.
func (s *AlertSeverity) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v {
	case "medium":
		*s = SeverityMedium
	case "high":
		*s = SeverityHigh
	case "critical":
		*s = SeverityCritical
	default:
		*s = SeverityLow
	}
	return nil
}

// Alert is an append-only event distributed to all bus subscribers.
type Alert struct {
	ID        string                 `json:"id"`
	Type      AlertType              `json:"type"`
	Severity  AlertSeverity          `json:"severity"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
