package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/stellar/go/protocols/horizon/operations"
	"go.uber.org/zap"

	"github.com/lumenwallet/lumen/internal/horizon"
)

// Direction tells whether the queried account was the payment's source.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// BalanceInfo is the native-asset balance view. Raw keeps full ledger
// precision; Display is rounded to two decimals for rendering only.
type BalanceInfo struct {
	Raw     string
	Display string
	Asset   string
}

// Payment is one row of the recent-payments view, derived from a ledger
// operation record and discarded on the next refresh.
type Payment struct {
	ID            string
	Direction     Direction
	Amount        string // full precision
	AmountDisplay string // two decimals
	Counterparty  string
	Time          time.Time
	Memo          string
	TxHash        string
}

// Snapshot is one refresh of the dashboard: balance plus the newest native
// payments. It is a pure function of the ledger responses, so refreshing an
// unchanged account yields an identical snapshot.
type Snapshot struct {
	Address  string
	Balance  *BalanceInfo // nil when the account has no native entry
	Payments []Payment
}

const (
	opPageSize         = 10
	maxPayments        = 5
	defaultMemoWorkers = 4

	nativeAssetCode = "XLM"
)

// DashboardService aggregates balance and recent payment history for a
// connected address.
type DashboardService struct {
	Ledger horizon.Ledger
	Log    *zap.SugaredLogger

	// MemoWorkers caps the parallel parent-transaction lookups; zero means
	// the default.
	MemoWorkers int
}

// Snapshot fetches the account and its recent operations, keeps native
// payments, and resolves memos. An account or operations failure aborts the
// whole snapshot; a memo lookup failure only leaves that row's memo absent.
func (s *DashboardService) Snapshot(ctx context.Context, address string) (Snapshot, error) {
	snap := Snapshot{Address: address}

	acct, err := s.Ledger.Account(ctx, address)
	if err != nil {
		return Snapshot{}, err
	}
	for _, b := range acct.Balances {
		if b.Asset.Type == "native" {
			snap.Balance = &BalanceInfo{
				Raw:     b.Balance,
				Display: formatAmount(b.Balance),
				Asset:   nativeAssetCode,
			}
			break
		}
	}

	records, err := s.Ledger.Operations(ctx, address, opPageSize)
	if err != nil {
		return Snapshot{}, err
	}

	for _, rec := range records {
		p, ok := rec.(operations.Payment)
		if !ok {
			continue
		}
		if p.Asset.Type != "native" {
			continue
		}
		row := Payment{
			ID:            p.ID,
			Amount:        p.Amount,
			AmountDisplay: formatAmount(p.Amount),
			Time:          p.LedgerCloseTime,
			TxHash:        p.TransactionHash,
		}
		if p.From == address {
			row.Direction = DirectionSent
			row.Counterparty = p.To
		} else {
			row.Direction = DirectionReceived
			row.Counterparty = p.From
		}
		snap.Payments = append(snap.Payments, row)
		if len(snap.Payments) == maxPayments {
			break
		}
	}

	s.resolveMemos(ctx, snap.Payments)
	return snap, nil
}

// resolveMemos fans out parent-transaction lookups with bounded concurrency.
// Each lookup fails in isolation: the row keeps an empty memo and the batch
// always completes.
func (s *DashboardService) resolveMemos(ctx context.Context, payments []Payment) {
	workers := s.MemoWorkers
	if workers <= 0 {
		workers = defaultMemoWorkers
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range payments {
		wg.Add(1)
		go func(row *Payment) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			tx, err := s.Ledger.Transaction(ctx, row.TxHash)
			if err != nil {
				if s.Log != nil {
					s.Log.Debugw("memo lookup failed", "op", row.ID, "tx", row.TxHash, "err", err)
				}
				return
			}
			if tx.MemoType != "" && tx.MemoType != "none" {
				row.Memo = tx.Memo
			}
		}(&payments[i])
	}
	wg.Wait()
}

// formatAmount rounds a decimal amount string to two places for display.
// Unparseable input is returned as-is rather than rendered wrong.
func formatAmount(v string) string {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	return fmt.Sprintf("%.2f", f)
}
