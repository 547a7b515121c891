package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dzpay/bankcore/internal/ledger"
	"github.com/dzpay/bankcore/internal/router"
	"github.com/dzpay/bankcore/pkg/models"
)

// handleListBanks returns the participating bank directory.
func (s *Server) handleListBanks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.registry.All(),
	})
}

// handleSubmitTransfer routes a funds-movement request.
func (s *Server) handleSubmitTransfer(c *gin.Context) {
	var req models.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   string(router.ReasonInvalidData),
			"message": "From account, to account, and a valid amount are required",
		})
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	outcome := s.routerSvc.Submit(c.Request.Context(), req, profileFromHeaders(c))

	switch outcome.Status {
	case models.StatusExecuted:
		rec := outcome.Record
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"transaction_id":    rec.TransactionID,
				"status":            rec.Status,
				"from_account":      rec.SourceAccount,
				"to_account":        rec.DestinationAccount,
				"amount":            rec.Amount,
				"currency":          rec.Currency,
				"fees":              rec.Fees,
				"risk_level":        outcome.RiskLevel,
				"cross_bank":        rec.CrossBank,
				"execution_time":    rec.BookingDate,
				"estimated_arrival": outcome.EstimatedArrival,
			},
			"metadata": gin.H{
				"from_bank": rec.SourceBank,
				"to_bank":   rec.DestinationBank,
			},
		})
	case models.StatusPendingReview:
		// The raw score stays internal; callers see the level and next steps.
		c.JSON(http.StatusAccepted, gin.H{
			"success": false,
			"error":   string(outcome.Reason),
			"message": outcome.Message,
			"data": gin.H{
				"transaction_id": outcome.Record.TransactionID,
				"status":         outcome.Status,
				"risk_level":     outcome.RiskLevel,
				"next_steps":     outcome.NextSteps,
			},
		})
	default:
		c.JSON(statusForReason(outcome.Reason), gin.H{
			"success": false,
			"error":   string(outcome.Reason),
			"message": outcome.Message,
		})
	}
}

func statusForReason(reason router.ReasonCode) int {
	switch reason {
	case router.ReasonInvalidData, router.ReasonAmountExceedsLimit:
		return http.StatusBadRequest
	case router.ReasonHighRisk:
		return http.StatusForbidden
	case router.ReasonBankUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleGetTransfer returns a single transaction record.
func (s *Server) handleGetTransfer(c *gin.Context) {
	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "TRANSACTION_NOT_FOUND",
			"message": "No transaction with that id",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

// handleCancelTransfer cancels a held transaction (administrative action).
func (s *Server) handleCancelTransfer(c *gin.Context) {
	id := c.Param("id")
	if err := s.routerSvc.CancelPending(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "CANCELLATION_NOT_PERMITTED",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"transaction_id": id, "status": models.StatusCancelled},
	})
}

// handleReverseTransfer issues a compensating reversal for an executed
// transfer (administrative action).
func (s *Server) handleReverseTransfer(c *gin.Context) {
	rev, err := s.routerSvc.Reverse(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "REVERSAL_NOT_PERMITTED",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rev})
}

// handleBalance performs a real-time balance inquiry with currency-converted
// equivalents from the latest rate snapshot.
func (s *Server) handleBalance(c *gin.Context) {
	accountNumber := c.Param("accountNumber")
	bankCode := c.DefaultQuery("bankCode", s.registry.CodeForAccount(accountNumber))
	if !s.registry.Exists(bankCode) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "UNKNOWN_BANK",
			"message": "Bank " + bankCode + " is not registered",
		})
		return
	}

	conn, err := s.connections.ConnectWithRetry(c.Request.Context(), bankCode)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   string(router.ReasonBankUnavailable),
			"message": "Unable to connect to " + bankCode,
		})
		return
	}

	balance := s.simulator.Balance(accountNumber, bankCode)

	equivalents := gin.H{}
	var rateTimestamp time.Time
	if snap := s.feedSvc.Current(); snap != nil {
		rateTimestamp = snap.Rates.Timestamp
		for _, currency := range []string{"USD", "EUR", "GBP"} {
			if rate, ok := snap.Rates.Rates[currency]; ok && rate > 0 {
				value, _ := balance.Available.Float64()
				equivalents[currency] = value / rate
			}
		}
	}

	bank, _ := s.registry.Get(bankCode)
	s.logger.Info("balance inquiry",
		zap.String("user_id", c.GetString(userIDKey)),
		zap.String("account", accountNumber),
		zap.String("bank", bankCode))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"balance":            balance,
			"equivalent_amounts": equivalents,
			"rate_timestamp":     rateTimestamp,
		},
		"metadata": gin.H{
			"bank_name":        bank.Name,
			"response_time_ms": conn.Latency.Milliseconds(),
			"query_time":       time.Now(),
		},
	})
}

// handleTransactionHistory returns the account statement for a date window.
func (s *Server) handleTransactionHistory(c *gin.Context) {
	accountNumber := c.Param("accountNumber")
	bankCode := c.Query("bankCode")

	to := time.Now()
	from := to.Add(-30 * 24 * time.Hour)
	if raw := c.Query("fromDate"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			from = t
		}
	}
	if raw := c.Query("toDate"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			to = t
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	ownerBank := bankCode
	if ownerBank == "" {
		ownerBank = s.registry.CodeForAccount(accountNumber)
	}
	if err := s.simulator.EnsureHistory(c.Request.Context(), accountNumber, ownerBank, from, to); err != nil {
		s.logger.Error("failed to seed account history", zap.Error(err))
	}

	result, err := s.store.History(c.Request.Context(), ledger.HistoryQuery{
		Account:  accountNumber,
		From:     from,
		To:       to,
		BankCode: bankCode,
		Limit:    limit,
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "TRANSACTION_HISTORY_UNAVAILABLE",
			"message": "Unable to retrieve transaction history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
		"metadata": gin.H{
			"account_number": accountNumber,
			"from_date":      from,
			"to_date":        to,
			"query_time":     time.Now(),
		},
	})
}

// handleMarketData returns the latest market and metrics snapshots.
func (s *Server) handleMarketData(c *gin.Context) {
	market := s.feedSvc.Current()
	if market == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "MARKET_DATA_UNAVAILABLE",
			"message": "Real-time market data service is initializing",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"market":      market,
			"banking":     s.metricsSvc.Current(),
			"last_update": market.Timestamp,
		},
	})
}

// handleSystemStatus reports per-bank connectivity and engine health.
func (s *Server) handleSystemStatus(c *gin.Context) {
	metricsSnap := s.metricsSvc.Current()

	type bankStatus struct {
		Code         string    `json:"code"`
		Name         string    `json:"name"`
		Status       string    `json:"status"`
		ResponseTime float64   `json:"response_time_ms"`
		LastCheck    time.Time `json:"last_check"`
	}

	responseTimes := s.connections.ResponseTimes()
	banks := make([]bankStatus, 0)
	for _, bank := range s.registry.All() {
		status := "OFFLINE"
		if s.connections.IsHealthy(bank.Code) {
			status = "ONLINE"
		}
		banks = append(banks, bankStatus{
			Code:         bank.Code,
			Name:         bank.Name,
			Status:       status,
			ResponseTime: responseTimes[bank.Code],
			LastCheck:    time.Now(),
		})
	}

	data := gin.H{
		"system_health":     "HEALTHY",
		"bank_connectivity": banks,
		"active_alerts":     s.bus.CountAtLeast(models.SeverityHigh),
		"last_update":       time.Now(),
	}
	if metricsSnap != nil {
		data["uptime"] = metricsSnap.SystemUptime
		data["total_transactions"] = metricsSnap.TotalTransactions
		data["fraud_detection_rate"] = metricsSnap.FraudDetectionRate
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"data":     data,
		"metadata": gin.H{"monitored_banks": len(banks)},
	})
}

// handleRecentAlerts returns the catch-up batch from the alert ring buffer.
func (s *Server) handleRecentAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.bus.Recent(limit),
	})
}
