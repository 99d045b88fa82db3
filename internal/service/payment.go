package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"

	"github.com/lumenwallet/lumen/internal/horizon"
)

// Request is a user-entered payment: validated before submission, discarded
// on success, left intact on failure for correction.
type Request struct {
	Recipient string
	Amount    string
	Memo      string
}

// Receipt references the submitted transaction.
type Receipt struct {
	Hash string
}

// Validation errors, surfaced before any network call is made.
var (
	ErrMissingFields    = errors.New("recipient and amount are required")
	ErrInvalidRecipient = errors.New("invalid Stellar address")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMemoTooLong      = errors.New("memo must be at most 28 bytes")
)

const (
	memoMaxBytes = 28
	// transactions expire this many seconds after building; an unsigned
	// envelope older than this is no longer valid to submit
	txValiditySeconds = 30
)

// Signer is the slice of the wallet kit the payment flow needs.
type Signer interface {
	SignTransaction(ctx context.Context, xdrBase64, networkPassphrase string) (string, error)
}

// PaymentService validates and submits single native-asset payments.
// Submission is at-most-once: no client-side retries, duplicate protection
// belongs to the ledger.
type PaymentService struct {
	Ledger     horizon.Ledger
	Signer     Signer
	Passphrase string
}

// Validate checks the request in order, first failure wins. It performs no
// network calls.
func Validate(req Request) error {
	recipient := strings.TrimSpace(req.Recipient)
	amt := strings.TrimSpace(req.Amount)
	if recipient == "" || amt == "" {
		return ErrMissingFields
	}
	if !strkey.IsValidEd25519PublicKey(recipient) {
		return ErrInvalidRecipient
	}
	f, err := strconv.ParseFloat(amt, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return ErrInvalidAmount
	}
	if _, err := amount.ParseInt64(amt); err != nil {
		// more than 7 decimal places, or out of ledger range
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if len(req.Memo) > memoMaxBytes {
		return ErrMemoTooLong
	}
	return nil
}

// Send validates the request, builds and serializes an unsigned payment,
// obtains a signature from the wallet kit scoped to the configured network,
// and submits the signed envelope. Any failure is returned verbatim so the
// view can surface it and keep the inputs.
func (s *PaymentService) Send(ctx context.Context, sender string, req Request) (Receipt, error) {
	if err := Validate(req); err != nil {
		return Receipt{}, err
	}

	acct, err := s.Ledger.Account(ctx, sender)
	if err != nil {
		return Receipt{}, fmt.Errorf("load sender account: %w", err)
	}

	tx, err := buildUnsigned(&acct, req)
	if err != nil {
		return Receipt{}, fmt.Errorf("build transaction: %w", err)
	}
	unsignedXDR, err := tx.Base64()
	if err != nil {
		return Receipt{}, fmt.Errorf("encode transaction: %w", err)
	}

	signedXDR, err := s.Signer.SignTransaction(ctx, unsignedXDR, s.Passphrase)
	if err != nil {
		return Receipt{}, fmt.Errorf("sign transaction: %w", err)
	}
	// reconstruct before submission so a mangled envelope is caught here,
	// not by the ledger
	if _, err := parseSigned(signedXDR); err != nil {
		return Receipt{}, err
	}

	res, err := s.Ledger.SubmitXDR(ctx, signedXDR)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Hash: res.Hash}, nil
}

// buildUnsigned assembles a transaction holding exactly one native payment
// operation with an optional text memo and a fixed validity window.
func buildUnsigned(source txnbuild.Account, req Request) (*txnbuild.Transaction, error) {
	params := txnbuild.TransactionParams{
		SourceAccount:        source,
		IncrementSequenceNum: true,
		BaseFee:              txnbuild.MinBaseFee,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: strings.TrimSpace(req.Recipient),
				Amount:      strings.TrimSpace(req.Amount),
				Asset:       txnbuild.NativeAsset{},
			},
		},
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(txValiditySeconds)},
	}
	if memo := strings.TrimSpace(req.Memo); memo != "" {
		params.Memo = txnbuild.MemoText(memo)
	}
	return txnbuild.NewTransaction(params)
}

func parseSigned(signedXDR string) (*txnbuild.Transaction, error) {
	generic, err := txnbuild.TransactionFromXDR(signedXDR)
	if err != nil {
		return nil, fmt.Errorf("parse signed transaction: %w", err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		return nil, errors.New("signed envelope is not a plain transaction")
	}
	return tx, nil
}
