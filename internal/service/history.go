package service

import (
	"context"
	"time"

	"github.com/lumenwallet/lumen/internal/horizon"
)

// TxRecord is one row of the transaction history view.
type TxRecord struct {
	Hash       string
	Memo       string
	Time       time.Time
	Successful bool
}

// HistoryService lists recent transactions for an address.
type HistoryService struct {
	Ledger horizon.Ledger
}

// Recent returns up to limit transactions, newest first.
func (s *HistoryService) Recent(ctx context.Context, address string, limit int) ([]TxRecord, error) {
	txs, err := s.Ledger.Transactions(ctx, address, limit)
	if err != nil {
		return nil, err
	}
	out := make([]TxRecord, 0, len(txs))
	for _, tx := range txs {
		rec := TxRecord{
			Hash:       tx.Hash,
			Time:       tx.LedgerCloseTime,
			Successful: tx.Successful,
		}
		if tx.MemoType != "" && tx.MemoType != "none" {
			rec.Memo = tx.Memo
		}
		out = append(out, rec)
	}
	return out, nil
}
