package walletkit

import "context"

// Kit brokers connection, authorization, and signing with a user's external
// wallet. The app is a pure consumer of this surface; kit internals (key
// custody, approval UX) live behind the implementation.
type Kit interface {
	// Name identifies the kit for logs and the settings view.
	Name() string
	// Address returns the currently authorized address, or "" when the
	// wallet has not granted access. Covers the restart-while-authorized case.
	Address(ctx context.Context) (string, error)
	// RequestAuthorization runs the kit's interactive authorization flow and
	// returns the granted address.
	RequestAuthorization(ctx context.Context) (string, error)
	// SignTransaction signs the base64 XDR envelope scoped to the given
	// network passphrase and returns the signed envelope.
	SignTransaction(ctx context.Context, xdrBase64, networkPassphrase string) (string, error)
	// Disconnect tears down the kit session.
	Disconnect(ctx context.Context) error
}
