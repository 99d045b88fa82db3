package service

import (
	"context"
	"sync"

	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/operations"
)

// mockLedger scripts Horizon responses and counts calls so tests can assert
// that validation failures never reach the network.
type mockLedger struct {
	mu sync.Mutex

	account    hProtocol.Account
	accountErr error

	ops    []operations.Operation
	opsErr error

	txs    []hProtocol.Transaction
	txsErr error

	txByHash map[string]hProtocol.Transaction
	txErrs   map[string]error

	submitRes hProtocol.Transaction
	submitErr error

	accountCalls     int
	operationsCalls  int
	transactionCalls int
	listTxCalls      int
	submitCalls      int
	submittedXDR     string
}

func (m *mockLedger) Account(ctx context.Context, address string) (hProtocol.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountCalls++
	return m.account, m.accountErr
}

func (m *mockLedger) Operations(ctx context.Context, address string, limit int) ([]operations.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationsCalls++
	if m.opsErr != nil {
		return nil, m.opsErr
	}
	if len(m.ops) > limit {
		return m.ops[:limit], nil
	}
	return m.ops, nil
}

func (m *mockLedger) Transactions(ctx context.Context, address string, limit int) ([]hProtocol.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listTxCalls++
	if m.txsErr != nil {
		return nil, m.txsErr
	}
	if len(m.txs) > limit {
		return m.txs[:limit], nil
	}
	return m.txs, nil
}

func (m *mockLedger) Transaction(ctx context.Context, hash string) (hProtocol.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactionCalls++
	if err, ok := m.txErrs[hash]; ok {
		return hProtocol.Transaction{}, err
	}
	return m.txByHash[hash], nil
}

func (m *mockLedger) SubmitXDR(ctx context.Context, signedXDR string) (hProtocol.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls++
	m.submittedXDR = signedXDR
	if m.submitErr != nil {
		return hProtocol.Transaction{}, m.submitErr
	}
	return m.submitRes, nil
}

func (m *mockLedger) networkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accountCalls + m.operationsCalls + m.transactionCalls + m.listTxCalls + m.submitCalls
}
