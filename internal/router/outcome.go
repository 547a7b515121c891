package router

import (
	"time"

	"github.com/dzpay/bankcore/pkg/models"
)

// ReasonCode is the stable machine-readable code callers branch on.
type ReasonCode string

const (
	ReasonInvalidData        ReasonCode = "INVALID_TRANSACTION_DATA"
	ReasonAmountExceedsLimit ReasonCode = "AMOUNT_EXCEEDS_LIMIT"
	ReasonBankUnavailable    ReasonCode = "BANK_SERVICE_UNAVAILABLE"
	ReasonRequiresReview     ReasonCode = "TRANSACTION_REQUIRES_REVIEW"
	ReasonHighRisk           ReasonCode = "TRANSACTION_REJECTED_RISK"
	ReasonInternalError      ReasonCode = "INTERNAL_ERROR"
)

// Outcome is the structured result of routing one transfer. Every path
// through the router produces one; no raw fault crosses the boundary.
type Outcome struct {
	Record           *models.TransactionRecord `json:"record,omitempty"`
	Status           models.TransactionStatus  `json:"status"`
	Reason           ReasonCode                `json:"reason,omitempty"`
	Message          string                    `json:"message,omitempty"`
	RiskLevel        models.RiskLevel          `json:"risk_level"`
	NextSteps        []string                  `json:"next_steps,omitempty"`
	EstimatedArrival time.Time                 `json:"estimated_arrival,omitempty"`
}

// Executed reports whether the transfer completed.
func (o *Outcome) Executed() bool {
	return o.Status == models.StatusExecuted
}

// pendingReviewSteps is the caller-visible guidance for a held transfer. It
// deliberately omits the raw risk score.
func pendingReviewSteps() []string {
	return []string{
		"Transaction temporarily held",
		"SMS verification will be sent",
		"Manual review initiated",
		"Expected resolution within 2 hours",
	}
}
