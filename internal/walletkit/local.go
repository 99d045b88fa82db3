package walletkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

// LocalKit is an in-process signer around a single ed25519 keypair, for
// development and tests where no external wallet is running. It mimics the
// kit surface (authorization gate, passphrase-scoped signing) so the rest of
// the app behaves identically against a real wallet.
type LocalKit struct {
	kp *keypair.Full

	mu         sync.Mutex
	authorized bool
}

func NewLocalKit(seed string) (*LocalKit, error) {
	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return nil, fmt.Errorf("parse signing seed: %w", err)
	}
	return &LocalKit{kp: kp}, nil
}

func (k *LocalKit) Name() string { return "local" }

func (k *LocalKit) Address(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.authorized {
		return "", nil
	}
	return k.kp.Address(), nil
}

func (k *LocalKit) RequestAuthorization(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.authorized = true
	return k.kp.Address(), nil
}

func (k *LocalKit) SignTransaction(ctx context.Context, xdrBase64, networkPassphrase string) (string, error) {
	k.mu.Lock()
	authorized := k.authorized
	k.mu.Unlock()
	if !authorized {
		return "", fmt.Errorf("wallet not authorized")
	}

	generic, err := txnbuild.TransactionFromXDR(xdrBase64)
	if err != nil {
		return "", fmt.Errorf("parse transaction envelope: %w", err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		return "", fmt.Errorf("unsupported envelope type")
	}
	signed, err := tx.Sign(networkPassphrase, k.kp)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	out, err := signed.Base64()
	if err != nil {
		return "", fmt.Errorf("encode signed transaction: %w", err)
	}
	return out, nil
}

func (k *LocalKit) Disconnect(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.authorized = false
	return nil
}
