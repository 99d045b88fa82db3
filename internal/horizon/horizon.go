package horizon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stellar/go/clients/horizonclient"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/operations"
)

// Ledger is the slice of the Horizon API the app consumes: account reads,
// operation/transaction listings, parent-transaction lookups, and submission.
// All calls are single request/response; no retries, no streaming.
type Ledger interface {
	Account(ctx context.Context, address string) (hProtocol.Account, error)
	Operations(ctx context.Context, address string, limit int) ([]operations.Operation, error)
	Transactions(ctx context.Context, address string, limit int) ([]hProtocol.Transaction, error)
	Transaction(ctx context.Context, hash string) (hProtocol.Transaction, error)
	SubmitXDR(ctx context.Context, signedXDR string) (hProtocol.Transaction, error)
}

// Client adapts the Stellar SDK Horizon client to the Ledger interface.
type Client struct {
	hz *horizonclient.Client
}

func NewClient(horizonURL string) *Client {
	return &Client{hz: &horizonclient.Client{
		HorizonURL: horizonURL,
		HTTP:       http.DefaultClient,
	}}
}

func (c *Client) Account(ctx context.Context, address string) (hProtocol.Account, error) {
	if err := ctx.Err(); err != nil {
		return hProtocol.Account{}, err
	}
	acct, err := c.hz.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if err != nil {
		return hProtocol.Account{}, fmt.Errorf("fetch account: %w", friendly(err))
	}
	return acct, nil
}

// Operations returns the newest operations for the address, newest first.
func (c *Client) Operations(ctx context.Context, address string, limit int) ([]operations.Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := c.hz.Operations(horizonclient.OperationRequest{
		ForAccount: address,
		Order:      horizonclient.OrderDesc,
		Limit:      uint(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch operations: %w", friendly(err))
	}
	return page.Embedded.Records, nil
}

// Transactions returns the newest transactions for the address, newest first.
func (c *Client) Transactions(ctx context.Context, address string, limit int) ([]hProtocol.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := c.hz.Transactions(horizonclient.TransactionRequest{
		ForAccount: address,
		Order:      horizonclient.OrderDesc,
		Limit:      uint(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", friendly(err))
	}
	return page.Embedded.Records, nil
}

func (c *Client) Transaction(ctx context.Context, hash string) (hProtocol.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return hProtocol.Transaction{}, err
	}
	tx, err := c.hz.TransactionDetail(hash)
	if err != nil {
		return hProtocol.Transaction{}, fmt.Errorf("fetch transaction %s: %w", hash, friendly(err))
	}
	return tx, nil
}

func (c *Client) SubmitXDR(ctx context.Context, signedXDR string) (hProtocol.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return hProtocol.Transaction{}, err
	}
	tx, err := c.hz.SubmitTransactionXDR(signedXDR)
	if err != nil {
		return hProtocol.Transaction{}, fmt.Errorf("submit transaction: %w", friendly(err))
	}
	return tx, nil
}

// friendly flattens a Horizon problem response into a single readable error,
// appending result codes when the ledger rejected the transaction.
func friendly(err error) error {
	herr := asHorizonError(err)
	if herr == nil {
		return err
	}
	msg := herr.Problem.Title
	if herr.Problem.Detail != "" && herr.Problem.Detail != msg {
		msg += ": " + herr.Problem.Detail
	}
	if codes, cerr := herr.ResultCodes(); cerr == nil && codes != nil {
		parts := []string{codes.TransactionCode}
		parts = append(parts, codes.OperationCodes...)
		msg += " (" + strings.Join(nonEmpty(parts), ", ") + ")"
	}
	return errors.New(msg)
}

func asHorizonError(err error) *horizonclient.Error {
	var ptr *horizonclient.Error
	if errors.As(err, &ptr) {
		return ptr
	}
	var val horizonclient.Error
	if errors.As(err, &val) {
		return &val
	}
	return nil
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
