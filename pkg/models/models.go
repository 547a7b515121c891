package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankCategory classifies a participating bank.
type BankCategory string

const (
	BankCategoryPublic  BankCategory = "public"
	BankCategoryPrivate BankCategory = "private"
	BankCategoryForeign BankCategory = "foreign"
)

// Bank is immutable reference data for a participating bank, loaded once at startup.
type Bank struct {
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	NameAr       string       `json:"name_ar"`
	NameFr       string       `json:"name_fr"`
	SwiftCode    string       `json:"swift_code"`
	Endpoint     string       `json:"api_endpoint"`
	Headquarters string       `json:"headquarters"`
	Established  int          `json:"established"`
	Category     BankCategory `json:"category"`
	Services     []string     `json:"services"`
}

// Connection is the per-bank session handle owned by the connection manager.
type Connection struct {
	BankCode  string        `json:"bank_code"`
	Connected bool          `json:"connected"`
	LastPing  time.Time     `json:"last_ping"`
	Latency   time.Duration `json:"latency"`
	AuthToken string        `json:"-"`
	Services  []string      `json:"supported_services"`
}

// TransactionKind distinguishes the ledger effect of a transaction.
type TransactionKind string

const (
	KindDebit    TransactionKind = "debit"
	KindCredit   TransactionKind = "credit"
	KindTransfer TransactionKind = "transfer"
)

// TransactionStatus is the lifecycle state of a transaction record.
type TransactionStatus string

const (
	StatusPending       TransactionStatus = "pending"
	StatusPendingReview TransactionStatus = "pending_review"
	StatusExecuted      TransactionStatus = "executed"
	StatusRejected      TransactionStatus = "rejected"
	StatusCancelled     TransactionStatus = "cancelled"
)

// Terminal reports whether no further status transition is permitted.
func (s TransactionStatus) Terminal() bool {
	return s == StatusExecuted || s == StatusRejected || s == StatusCancelled
}

// TransferRequest is the inbound funds-movement request.
type TransferRequest struct {
	SourceAccount      string          `json:"from_account" binding:"required"`
	DestinationAccount string          `json:"to_account"`
	Amount             decimal.Decimal `json:"amount" binding:"required"`
	Currency           string          `json:"currency"`
	Kind               TransactionKind `json:"transaction_type"`
	Description        string          `json:"description"`
	IdempotencyKey     string          `json:"-"`
}

// FeeBreakdown is the deterministic fee schedule applied to a transfer.
type FeeBreakdown struct {
	BaseFee       decimal.Decimal `json:"base_fee"`
	CrossBankFee  decimal.Decimal `json:"cross_bank_fee"`
	PercentageFee decimal.Decimal `json:"percentage_fee"`
	TotalFee      decimal.Decimal `json:"total_fee"`
	Currency      string          `json:"currency"`
}

// TransactionRecord is the append-only audit record produced by the router.
// Once the status is terminal the record is never mutated again; a later
// re-evaluation or reversal produces a new linked record.
type TransactionRecord struct {
	TransactionID      string            `json:"transaction_id" gorm:"primaryKey"`
	MessageID          string            `json:"message_id" gorm:"uniqueIndex"`
	SourceAccount      string            `json:"from_account" gorm:"index"`
	DestinationAccount string            `json:"to_account,omitempty" gorm:"index"`
	Amount             decimal.Decimal   `json:"amount" gorm:"type:numeric"`
	Currency           string            `json:"currency"`
	Kind               TransactionKind   `json:"transaction_type"`
	Description        string            `json:"description"`
	SourceBank         string            `json:"from_bank"`
	DestinationBank    string            `json:"to_bank,omitempty"`
	CrossBank          bool              `json:"cross_bank"`
	Status             TransactionStatus `json:"status" gorm:"index"`
	ValueDate          time.Time         `json:"value_date" gorm:"index"`
	BookingDate        time.Time         `json:"booking_date"`
	Fees               FeeBreakdown      `json:"fees" gorm:"embedded;embeddedPrefix:fee_"`
	Risk               RiskAssessment    `json:"risk_assessment" gorm:"embedded;embeddedPrefix:risk_"`
	ReversalOf         string            `json:"reversal_of,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// ExchangeRateSnapshot is an immutable, atomically published rate table.
// A new snapshot entirely replaces the previous one, so a reader never
// observes a half-updated rate set.
type ExchangeRateSnapshot struct {
	Timestamp time.Time          `json:"timestamp"`
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
}

// PolicyRates carries the central bank monetary policy rates.
type PolicyRates struct {
	KeyRate            float64 `json:"central_bank_rate"`
	AverageLendingRate float64 `json:"average_lending_rate"`
	AverageDepositRate float64 `json:"average_deposit_rate"`
}

// EconomicIndicators carries macro indicators refreshed with the market feed.
type EconomicIndicators struct {
	GDPGrowth        float64 `json:"gdp_growth"`
	UnemploymentRate float64 `json:"unemployment_rate"`
	OilPriceImpact   float64 `json:"oil_price_impact"`
}

// MarketSnapshot is the full market-data view published by the feed.
type MarketSnapshot struct {
	Timestamp     time.Time            `json:"timestamp"`
	Rates         ExchangeRateSnapshot `json:"rates"`
	PolicyRates   PolicyRates          `json:"interest_rates"`
	InflationRate float64              `json:"inflation_rate"`
	Indicators    EconomicIndicators   `json:"economic_indicators"`
}

// BankingMetrics is an immutable operational metrics snapshot.
type BankingMetrics struct {
	TotalTransactions      int64              `json:"total_transactions"`
	TotalVolume            decimal.Decimal    `json:"total_volume"`
	AverageTransactionSize decimal.Decimal    `json:"average_transaction_size"`
	FraudDetectionRate     float64            `json:"fraud_detection_rate"`
	SystemUptime           float64            `json:"system_uptime"`
	BankResponseTimes      map[string]float64 `json:"api_response_times"`
	GeneratedAt            time.Time          `json:"generated_at"`
}

// BalanceLimits are the account operation ceilings returned with a balance inquiry.
type BalanceLimits struct {
	DailyWithdrawal decimal.Decimal `json:"daily_withdrawal"`
	MonthlyTransfer decimal.Decimal `json:"monthly_transfer"`
	ATMDaily        decimal.Decimal `json:"atm_daily"`
}

// Balance is the result of a real-time balance inquiry against one bank.
type Balance struct {
	AccountNumber string          `json:"account_number"`
	BankCode      string          `json:"bank_code"`
	Available     decimal.Decimal `json:"available"`
	Current       decimal.Decimal `json:"current"`
	Currency      string          `json:"currency"`
	AccountType   string          `json:"account_type"`
	AccountStatus string          `json:"account_status"`
	Limits        BalanceLimits   `json:"limits"`
	LastUpdated   time.Time       `json:"last_updated"`
}
