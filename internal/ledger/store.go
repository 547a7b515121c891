// Package ledger persists transaction records and serves history queries.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dzpay/bankcore/pkg/models"
)

// Store is the append-only transaction record store.
type Store struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewStore opens the record store. Driver is "sqlite" (dev, tests) or
// "postgres" (production DSN).
func NewStore(logger *zap.Logger, driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	if err := db.AutoMigrate(&models.TransactionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger schema: %w", err)
	}

	return &Store{logger: logger, db: db}, nil
}

// Save inserts a new transaction record. Records are never updated through
// Save; status changes go through TransitionStatus.
func (s *Store) Save(ctx context.Context, rec *models.TransactionRecord) error {
	if rec.TransactionID == "" {
		return fmt.Errorf("transaction record missing id")
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save transaction record: %w", err)
	}
	return nil
}

// Get fetches a record by transaction id.
func (s *Store) Get(ctx context.Context, transactionID string) (*models.TransactionRecord, error) {
	var rec models.TransactionRecord
	err := s.db.WithContext(ctx).First(&rec, "transaction_id = ?", transactionID).Error
	if err != nil {
		return nil, fmt.Errorf("transaction %s not found: %w", transactionID, err)
	}
	return &rec, nil
}

// TransitionStatus moves a record from one non-terminal status to another.
// Terminal records are immutable; the guarded update enforces that.
func (s *Store) TransitionStatus(ctx context.Context, transactionID string, from, to models.TransactionStatus) error {
	if from.Terminal() {
		return fmt.Errorf("transaction %s is terminal in status %s", transactionID, from)
	}
	res := s.db.WithContext(ctx).
		Model(&models.TransactionRecord{}).
		Where("transaction_id = ? AND status = ?", transactionID, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to transition transaction %s: %w", transactionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %s not in status %s", transactionID, from)
	}
	return nil
}

// HistoryQuery selects records for one account inside a date window.
type HistoryQuery struct {
	Account  string
	From     time.Time
	To       time.Time
	BankCode string
	Limit    int
}

// HistoryResult is the ordered history plus aggregate totals.
type HistoryResult struct {
	Records      []models.TransactionRecord `json:"transactions"`
	TotalCount   int64                      `json:"total_count"`
	TotalCredits decimal.Decimal            `json:"total_credits"`
	TotalDebits  decimal.Decimal            `json:"total_debits"`
}

// History returns records where the account is source or destination,
// most recent first, with credit/debit totals from the account's view.
func (s *Store) History(ctx context.Context, q HistoryQuery) (*HistoryResult, error) {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 50
	}

	base := s.db.WithContext(ctx).
		Model(&models.TransactionRecord{}).
		Where("(source_account = ? OR destination_account = ?)", q.Account, q.Account).
		Where("value_date >= ? AND value_date <= ?", q.From, q.To)
	if q.BankCode != "" {
		base = base.Where("(source_bank = ? OR destination_bank = ?)", q.BankCode, q.BankCode)
	}

	var count int64
	if err := base.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	var records []models.TransactionRecord
	err := base.Session(&gorm.Session{}).
		Order("value_date DESC").
		Limit(q.Limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	result := &HistoryResult{
		Records:      records,
		TotalCount:   count,
		TotalCredits: decimal.Zero,
		TotalDebits:  decimal.Zero,
	}
	for _, rec := range records {
		if rec.Status != models.StatusExecuted {
			continue
		}
		if rec.DestinationAccount == q.Account || rec.Kind == models.KindCredit {
			result.TotalCredits = result.TotalCredits.Add(rec.Amount)
		} else {
			result.TotalDebits = result.TotalDebits.Add(rec.Amount)
		}
	}
	return result, nil
}

// Aggregates summarizes completed activity for the metrics aggregator:
// executed count, executed volume, and the number of risk-flagged records
// (any assessment at medium or above).
func (s *Store) Aggregates(ctx context.Context) (count int64, volume decimal.Decimal, flagged int64, err error) {
	err = s.db.WithContext(ctx).
		Model(&models.TransactionRecord{}).
		Where("status = ?", models.StatusExecuted).
		Count(&count).Error
	if err != nil {
		return 0, decimal.Zero, 0, fmt.Errorf("failed to count executed records: %w", err)
	}

	var raw *string
	row := s.db.WithContext(ctx).
		Model(&models.TransactionRecord{}).
		Where("status = ?", models.StatusExecuted).
		Select("CAST(COALESCE(SUM(amount), 0) AS TEXT)").
		Row()
	if scanErr := row.Scan(&raw); scanErr != nil {
		return 0, decimal.Zero, 0, fmt.Errorf("failed to sum executed volume: %w", scanErr)
	}
	volume = decimal.Zero
	if raw != nil {
		if volume, err = decimal.NewFromString(*raw); err != nil {
			return 0, decimal.Zero, 0, fmt.Errorf("invalid volume aggregate %q: %w", *raw, err)
		}
	}

	err = s.db.WithContext(ctx).
		Model(&models.TransactionRecord{}).
		Where("risk_score >= ?", 40).
		Count(&flagged).Error
	if err != nil {
		return 0, decimal.Zero, 0, fmt.Errorf("failed to count flagged records: %w", err)
	}
	return count, volume, flagged, nil
}
