package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dzpay/bankcore/pkg/models"
)

var transactionDescriptions = []string{
	"ATM Withdrawal - Algiers Centre",
	"POS Purchase - Carrefour",
	"Online Transfer",
	"Salary Deposit",
	"Utility Bill Payment",
	"Mobile Recharge",
	"Insurance Premium",
	"Rent Payment",
	"Grocery Shopping",
	"Fuel Purchase",
}

var balanceBases = []int64{25000, 50000, 100000, 250000, 500000, 1000000}

// Simulator generates realistic balances and back-dated account history for
// accounts the engine has never seen. Real deployments replace it with the
// owning bank's records.
type Simulator struct {
	store *Store
	mu    sync.Mutex
	rng   *rand.Rand
}

// NewSimulator creates a simulator backed by the given store.
func NewSimulator(store *Store, seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{store: store, rng: rand.New(rand.NewSource(seed))}
}

// Balance produces a realistic DZD balance inquiry result.
func (sim *Simulator) Balance(accountNumber, bankCode string) models.Balance {
	sim.mu.Lock()
	available := sim.realisticAmount()
	current := sim.realisticAmount()
	sim.mu.Unlock()

	return models.Balance{
		AccountNumber: accountNumber,
		BankCode:      bankCode,
		Available:     available,
		Current:       current,
		Currency:      "DZD",
		AccountType:   "CHECKING",
		AccountStatus: "ACTIVE",
		Limits: models.BalanceLimits{
			DailyWithdrawal: decimal.NewFromInt(100000),
			MonthlyTransfer: decimal.NewFromInt(1000000),
			ATMDaily:        decimal.NewFromInt(50000),
		},
		LastUpdated: time.Now(),
	}
}

func (sim *Simulator) realisticAmount() decimal.Decimal {
	base := balanceBases[sim.rng.Intn(len(balanceBases))]
	variation := (sim.rng.Float64() - 0.5) * float64(base) * 0.3
	return decimal.NewFromFloat(float64(base) + variation).Round(0)
}

// EnsureHistory back-fills simulated executed records for an account across
// the window when the ledger has none, so first-time history queries return
// plausible statements. Idempotent per account.
func (sim *Simulator) EnsureHistory(ctx context.Context, account, bankCode string, from, to time.Time) error {
	existing, err := sim.store.History(ctx, HistoryQuery{Account: account, From: from, To: to, Limit: 1})
	if err != nil {
		return err
	}
	if existing.TotalCount > 0 {
		return nil
	}

	days := int(to.Sub(from).Hours()/24) + 1
	if days > 90 {
		days = 90
	}

	sim.mu.Lock()
	defer sim.mu.Unlock()
	for day := 0; day < days; day++ {
		txnCount := sim.rng.Intn(5) + 1
		for j := 0; j < txnCount; j++ {
			at := from.Add(time.Duration(day) * 24 * time.Hour).
				Add(time.Duration(sim.rng.Intn(86400)) * time.Second)
			if at.After(to) {
				continue
			}
			kind := models.KindDebit
			if sim.rng.Float64() > 0.6 {
				kind = models.KindCredit
			}
			rec := models.TransactionRecord{
				TransactionID: fmt.Sprintf("TXN%d%d%d", at.UnixNano(), day, j),
				MessageID:     fmt.Sprintf("MSG%d%d%d", at.UnixNano(), day, j),
				SourceAccount: account,
				Amount:        decimal.NewFromInt(int64(sim.rng.Intn(50000) + 1000)),
				Currency:      "DZD",
				Kind:          kind,
				Description:   transactionDescriptions[sim.rng.Intn(len(transactionDescriptions))],
				SourceBank:    bankCode,
				Status:        models.StatusExecuted,
				ValueDate:     at,
				BookingDate:   at,
				CreatedAt:     at,
			}
			if err := sim.store.Save(ctx, &rec); err != nil {
				return err
			}
		}
	}
	return nil
}
