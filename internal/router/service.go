// Package router validates, risk-checks, and routes funds-movement requests
// to the correct bank, producing append-only settlement records.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dzpay/bankcore/internal/alerts"
	"github.com/dzpay/bankcore/internal/connector"
	"github.com/dzpay/bankcore/internal/ledger"
	"github.com/dzpay/bankcore/internal/registry"
	"github.com/dzpay/bankcore/internal/risk"
	"github.com/dzpay/bankcore/pkg/metrics"
	"github.com/dzpay/bankcore/pkg/models"
)

const maxIdempotencyEntries = 10000

// Config holds router limits and the fee schedule.
type Config struct {
	HardCeiling     decimal.Decimal
	Fees            FeeSchedule
	ClearingTimeout time.Duration
}

// DefaultConfig returns the production limits: 5,000,000 DZD hard ceiling.
func DefaultConfig() Config {
	return Config{
		HardCeiling:     decimal.NewFromInt(5000000),
		Fees:            DefaultFeeSchedule(),
		ClearingTimeout: 5 * time.Second,
	}
}

// Service implements the transaction router state machine:
// received -> validated -> risk-checked -> routed -> executed | rejected,
// with pending_review as the distinct held sub-state.
type Service struct {
	logger      *zap.Logger
	cfg         Config
	registry    *registry.Registry
	connections connector.ConnectionManager
	scorer      *risk.Scorer
	store       *ledger.Store
	bus         *alerts.Bus
	clearing    ClearingGateway

	idemMu    sync.Mutex
	idemOrder []string
	idemKeys  map[string]string // idempotency key -> transaction id

	accountLocks sync.Map // source account -> *sync.Mutex
}

// NewService creates a transaction router.
func NewService(
	logger *zap.Logger,
	cfg Config,
	reg *registry.Registry,
	connections connector.ConnectionManager,
	scorer *risk.Scorer,
	store *ledger.Store,
	bus *alerts.Bus,
	clearing ClearingGateway,
) (*Service, error) {
	if reg == nil || connections == nil || scorer == nil || store == nil || clearing == nil {
		return nil, fmt.Errorf("router: missing dependency")
	}
	if cfg.HardCeiling.IsZero() {
		cfg = DefaultConfig()
	}
	return &Service{
		logger:      logger,
		cfg:         cfg,
		registry:    reg,
		connections: connections,
		scorer:      scorer,
		store:       store,
		bus:         bus,
		clearing:    clearing,
		idemKeys:    make(map[string]string),
	}, nil
}

// Submit processes one transfer request end to end and always returns a
// typed outcome; no fault propagates past the router boundary.
func (s *Service) Submit(ctx context.Context, req models.TransferRequest, profile models.BehaviorProfile) (outcome *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("router panic recovered", zap.Any("panic", r))
			outcome = &Outcome{
				Status:  models.StatusRejected,
				Reason:  ReasonInternalError,
				Message: "Unable to process transaction at this time",
			}
		}
	}()

	if req.IdempotencyKey != "" {
		if prior := s.lookupIdempotent(ctx, req.IdempotencyKey); prior != nil {
			return prior
		}
	}

	normalize(&req)

	// Validation failures reject immediately; the risk scorer never runs.
	if reason, msg := s.validate(req); reason != "" {
		metrics.TransactionsProcessed.WithLabelValues(string(models.StatusRejected)).Inc()
		return &Outcome{Status: models.StatusRejected, Reason: reason, Message: msg}
	}

	assessment := s.scorer.Score(ctx, req, profile, time.Now())
	rec := s.newRecord(req, assessment)

	switch assessment.Recommendation {
	case models.RecommendBlock:
		rec.Status = models.StatusRejected
		s.persist(ctx, rec)
		s.publishFraudAlert(rec, models.SeverityCritical, "Transaction blocked by fraud screening")
		metrics.TransactionsProcessed.WithLabelValues(string(models.StatusRejected)).Inc()
		return &Outcome{
			Record:    rec,
			Status:    models.StatusRejected,
			Reason:    ReasonHighRisk,
			Message:   "Transaction rejected due to risk factors",
			RiskLevel: assessment.Level,
		}
	case models.RecommendAdditionalAuth:
		rec.Status = models.StatusPendingReview
		s.persist(ctx, rec)
		s.registerIdempotent(req.IdempotencyKey, rec.TransactionID)
		s.publishFraudAlert(rec, models.SeverityHigh, "Transaction held for manual review")
		metrics.TransactionsProcessed.WithLabelValues(string(models.StatusPendingReview)).Inc()
		return &Outcome{
			Record:    rec,
			Status:    models.StatusPendingReview,
			Reason:    ReasonRequiresReview,
			Message:   "Transaction flagged for manual review due to risk factors",
			RiskLevel: assessment.Level,
			NextSteps: pendingReviewSteps(),
		}
	}

	return s.route(ctx, req, rec)
}

// route executes the validated, risk-cleared transfer over the local or
// cross-bank path.
func (s *Service) route(ctx context.Context, req models.TransferRequest, rec *models.TransactionRecord) *Outcome {
	if _, err := s.connections.ConnectWithRetry(ctx, rec.SourceBank); err != nil {
		return s.rejectUnavailable(ctx, rec, rec.SourceBank, err)
	}

	if rec.CrossBank {
		if _, err := s.connections.ConnectWithRetry(ctx, rec.DestinationBank); err != nil {
			return s.rejectUnavailable(ctx, rec, rec.DestinationBank, err)
		}

		// No lock is held while awaiting clearing; settlement is
		// fire-and-confirm and cannot be cancelled past this point.
		clearCtx, cancel := context.WithTimeout(ctx, s.cfg.ClearingTimeout)
		confirmation, latency, err := s.clearing.Settle(clearCtx, rec)
		cancel()
		if err != nil {
			return s.rejectUnavailable(ctx, rec, rec.DestinationBank, err)
		}
		rec.TransactionID = confirmation
		s.logger.Info("interbank clearing settled",
			zap.String("transaction_id", rec.TransactionID),
			zap.Duration("clearing_time", latency))
	}

	rec.Status = models.StatusExecuted

	// Ledger application is serialized per source account.
	lock := s.accountLock(rec.SourceAccount)
	lock.Lock()
	err := s.store.Save(ctx, rec)
	lock.Unlock()
	if err != nil {
		s.logger.Error("failed to persist executed transaction",
			zap.String("transaction_id", rec.TransactionID), zap.Error(err))
		return &Outcome{
			Status:  models.StatusRejected,
			Reason:  ReasonInternalError,
			Message: "Unable to process transaction at this time",
		}
	}

	s.registerIdempotent(req.IdempotencyKey, rec.TransactionID)
	metrics.TransactionsProcessed.WithLabelValues(string(models.StatusExecuted)).Inc()
	s.logger.Info("transaction executed",
		zap.String("transaction_id", rec.TransactionID),
		zap.String("from_bank", rec.SourceBank),
		zap.String("to_bank", rec.DestinationBank),
		zap.Bool("cross_bank", rec.CrossBank))

	return &Outcome{
		Record:           rec,
		Status:           models.StatusExecuted,
		RiskLevel:        rec.Risk.Level,
		EstimatedArrival: time.Now().Add(5 * time.Minute),
	}
}

// CancelPending transitions a held transaction to cancelled. Only the
// pending_review sub-state can be cancelled; in-flight clearing cannot.
func (s *Service) CancelPending(ctx context.Context, transactionID string) error {
	if err := s.store.TransitionStatus(ctx, transactionID, models.StatusPendingReview, models.StatusCancelled); err != nil {
		return err
	}
	metrics.TransactionsProcessed.WithLabelValues(string(models.StatusCancelled)).Inc()
	if s.bus != nil {
		s.bus.Publish(models.Alert{
			Type:     models.AlertTransaction,
			Severity: models.SeverityMedium,
			Source:   "Transaction Router",
			Message:  fmt.Sprintf("Held transaction %s cancelled by administrative action", transactionID),
		})
	}
	return nil
}

// Reverse creates a compensating transaction for an executed transfer. The
// original record is never mutated.
func (s *Service) Reverse(ctx context.Context, transactionID string) (*models.TransactionRecord, error) {
	orig, err := s.store.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if orig.Status != models.StatusExecuted {
		return nil, fmt.Errorf("transaction %s is not executed, cannot reverse", transactionID)
	}
	if orig.ReversalOf != "" {
		return nil, fmt.Errorf("transaction %s is itself a reversal", transactionID)
	}

	now := time.Now()
	rev := &models.TransactionRecord{
		TransactionID:      newTransactionID(),
		MessageID:          newMessageID(),
		SourceAccount:      orig.DestinationAccount,
		DestinationAccount: orig.SourceAccount,
		Amount:             orig.Amount,
		Currency:           orig.Currency,
		Kind:               models.KindTransfer,
		Description:        fmt.Sprintf("Reversal of %s", orig.TransactionID),
		SourceBank:         orig.DestinationBank,
		DestinationBank:    orig.SourceBank,
		CrossBank:          orig.CrossBank,
		Status:             models.StatusExecuted,
		ValueDate:          now,
		BookingDate:        now,
		ReversalOf:         orig.TransactionID,
		CreatedAt:          now,
	}
	if rev.CrossBank {
		clearCtx, cancel := context.WithTimeout(ctx, s.cfg.ClearingTimeout)
		confirmation, _, err := s.clearing.Settle(clearCtx, rev)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("reversal clearing failed: %w", err)
		}
		rev.TransactionID = confirmation
	}
	if err := s.store.Save(ctx, rev); err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(models.Alert{
			Type:     models.AlertTransaction,
			Severity: models.SeverityHigh,
			Source:   "Transaction Router",
			Message:  fmt.Sprintf("Compensating reversal issued for %s", orig.TransactionID),
			Metadata: map[string]interface{}{"reversal_id": rev.TransactionID},
		})
	}
	return rev, nil
}

func (s *Service) validate(req models.TransferRequest) (ReasonCode, string) {
	if !req.Amount.IsPositive() {
		return ReasonInvalidData, "A valid positive amount is required"
	}
	if req.Amount.GreaterThan(s.cfg.HardCeiling) {
		return ReasonAmountExceedsLimit,
			fmt.Sprintf("Transaction amount exceeds the limit of %s %s", s.cfg.HardCeiling.StringFixed(0), s.cfg.Fees.Currency)
	}
	if req.SourceAccount == "" {
		return ReasonInvalidData, "Source account is required"
	}
	if req.Kind == models.KindTransfer && req.DestinationAccount == "" {
		return ReasonInvalidData, "Destination account is required for transfers"
	}
	return "", ""
}

func (s *Service) newRecord(req models.TransferRequest, assessment models.RiskAssessment) *models.TransactionRecord {
	now := time.Now()
	sourceBank := s.registry.CodeForAccount(req.SourceAccount)
	destBank := ""
	if req.DestinationAccount != "" {
		destBank = s.registry.CodeForAccount(req.DestinationAccount)
	}
	crossBank := destBank != "" && destBank != sourceBank

	return &models.TransactionRecord{
		TransactionID:      newTransactionID(),
		MessageID:          newMessageID(),
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
		Amount:             req.Amount,
		Currency:           req.Currency,
		Kind:               req.Kind,
		Description:        req.Description,
		SourceBank:         sourceBank,
		DestinationBank:    destBank,
		CrossBank:          crossBank,
		Status:             models.StatusPending,
		ValueDate:          now,
		BookingDate:        now,
		Fees:               s.cfg.Fees.Compute(req.Amount, crossBank),
		Risk:               assessment,
		CreatedAt:          now,
	}
}

func (s *Service) rejectUnavailable(ctx context.Context, rec *models.TransactionRecord, bankCode string, cause error) *Outcome {
	rec.Status = models.StatusRejected
	s.persist(ctx, rec)
	metrics.TransactionsProcessed.WithLabelValues(string(models.StatusRejected)).Inc()
	s.logger.Warn("transfer rejected, bank unavailable",
		zap.String("bank", bankCode), zap.Error(cause))
	if s.bus != nil && errors.Is(cause, connector.ErrBankUnavailable) {
		s.bus.Publish(models.Alert{
			Type:     models.AlertSystem,
			Severity: models.SeverityHigh,
			Source:   "Transaction Router",
			Message:  fmt.Sprintf("Bank %s unreachable during transfer routing", bankCode),
		})
	}
	return &Outcome{
		Record:    rec,
		Status:    models.StatusRejected,
		Reason:    ReasonBankUnavailable,
		Message:   fmt.Sprintf("Unable to connect to %s", bankCode),
		RiskLevel: rec.Risk.Level,
	}
}

// persist saves a record, logging rather than failing the outcome when the
// audit write itself errors.
func (s *Service) persist(ctx context.Context, rec *models.TransactionRecord) {
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Error("failed to persist transaction record",
			zap.String("transaction_id", rec.TransactionID), zap.Error(err))
	}
}

func (s *Service) publishFraudAlert(rec *models.TransactionRecord, severity models.AlertSeverity, msg string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(models.Alert{
		Type:     models.AlertFraud,
		Severity: severity,
		Source:   "Fraud Screening",
		Message:  msg,
		Metadata: map[string]interface{}{
			"transaction_id": rec.TransactionID,
			"risk_level":     rec.Risk.Level.String(),
			"risk_factors":   rec.Risk.Factors,
		},
	})
}

func (s *Service) accountLock(account string) *sync.Mutex {
	actual, _ := s.accountLocks.LoadOrStore(account, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (s *Service) lookupIdempotent(ctx context.Context, key string) *Outcome {
	s.idemMu.Lock()
	txnID, ok := s.idemKeys[key]
	s.idemMu.Unlock()
	if !ok {
		return nil
	}
	rec, err := s.store.Get(ctx, txnID)
	if err != nil {
		return nil
	}
	out := &Outcome{Record: rec, Status: rec.Status, RiskLevel: rec.Risk.Level}
	switch rec.Status {
	case models.StatusPendingReview:
		out.Reason = ReasonRequiresReview
		out.NextSteps = pendingReviewSteps()
	case models.StatusRejected:
		out.Reason = ReasonHighRisk
	}
	return out
}

func (s *Service) registerIdempotent(key, txnID string) {
	if key == "" {
		return
	}
	s.idemMu.Lock()
	defer s.idemMu.Unlock()
	if _, exists := s.idemKeys[key]; exists {
		return
	}
	if len(s.idemOrder) >= maxIdempotencyEntries {
		oldest := s.idemOrder[0]
		s.idemOrder = s.idemOrder[1:]
		delete(s.idemKeys, oldest)
	}
	s.idemKeys[key] = txnID
	s.idemOrder = append(s.idemOrder, key)
}

func normalize(req *models.TransferRequest) {
	if req.Currency == "" {
		req.Currency = "DZD"
	}
	if req.Kind == "" {
		req.Kind = models.KindTransfer
	}
}

func newTransactionID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TXN%d%s", time.Now().UnixMilli(), suffix)
}

func newMessageID() string {
	return fmt.Sprintf("MSG%d", time.Now().UnixNano())
}
