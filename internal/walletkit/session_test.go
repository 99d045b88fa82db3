package walletkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/require"
)

// stubKit scripts kit behavior for session tests.
type stubKit struct {
	address      string
	addressErr   error
	authAddress  string
	authErr      error
	disconnectFn func() error

	addressCalls    int
	authCalls       int
	disconnectCalls int
}

func (k *stubKit) Name() string { return "stub" }

func (k *stubKit) Address(ctx context.Context) (string, error) {
	k.addressCalls++
	return k.address, k.addressErr
}

func (k *stubKit) RequestAuthorization(ctx context.Context) (string, error) {
	k.authCalls++
	return k.authAddress, k.authErr
}

func (k *stubKit) SignTransaction(ctx context.Context, xdrBase64, networkPassphrase string) (string, error) {
	return xdrBase64, nil
}

func (k *stubKit) Disconnect(ctx context.Context) error {
	k.disconnectCalls++
	if k.disconnectFn != nil {
		return k.disconnectFn()
	}
	return nil
}

func testAddress(t *testing.T) string {
	t.Helper()
	return keypair.MustRandom().Address()
}

func TestBootstrapPicksUpAuthorizedAddress(t *testing.T) {
	addr := testAddress(t)
	kit := &stubKit{address: addr}
	s := NewSession(kit, nil)

	require.NoError(t, s.Bootstrap(context.Background()))
	require.Equal(t, addr, s.Address())
}

func TestBootstrapIsIdempotent(t *testing.T) {
	kit := &stubKit{address: testAddress(t)}
	s := NewSession(kit, nil)

	require.NoError(t, s.Bootstrap(context.Background()))
	require.NoError(t, s.Bootstrap(context.Background()))
	require.NoError(t, s.Bootstrap(context.Background()))
	require.Equal(t, 1, kit.addressCalls)
}

func TestBootstrapNoWallet(t *testing.T) {
	kit := &stubKit{address: ""}
	s := NewSession(kit, nil)

	require.NoError(t, s.Bootstrap(context.Background()))
	require.Empty(t, s.Address())
}

func TestBootstrapRejectsMalformedAddress(t *testing.T) {
	kit := &stubKit{address: "not-an-address"}
	s := NewSession(kit, nil)

	err := s.Bootstrap(context.Background())
	require.Error(t, err)
	require.Empty(t, s.Address())
}

func TestConnectSuccess(t *testing.T) {
	addr := testAddress(t)
	kit := &stubKit{authAddress: addr}
	s := NewSession(kit, nil)

	got, err := s.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, addr, got)
	require.Equal(t, addr, s.Address())
}

func TestConnectFailureLeavesAddressUnset(t *testing.T) {
	kit := &stubKit{authErr: errors.New("user declined")}
	s := NewSession(kit, nil)

	_, err := s.Connect(context.Background())
	require.Error(t, err)
	require.Empty(t, s.Address())
}

func TestDisconnectClearsAddressEvenWhenTeardownFails(t *testing.T) {
	addr := testAddress(t)
	kit := &stubKit{authAddress: addr, disconnectFn: func() error { return errors.New("bridge gone") }}
	s := NewSession(kit, nil)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	s.Disconnect(context.Background())
	require.Empty(t, s.Address())
	require.Equal(t, 1, kit.disconnectCalls)
}

func TestEventBeatsBootstrapResult(t *testing.T) {
	stale := testAddress(t)
	fresh := testAddress(t)
	kit := &stubKit{address: stale, authAddress: fresh}
	s := NewSession(kit, nil)

	// mark bootstrap started, then let a change event land before its result
	// is applied: the event must win.
	s.mu.Lock()
	s.bootstrapped = true
	s.mu.Unlock()

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	s.mu.Lock()
	if s.rev == 0 {
		s.setAddressLocked(stale)
	}
	s.mu.Unlock()

	require.Equal(t, fresh, s.Address())
}

func TestWatchDeliversEvents(t *testing.T) {
	addr := testAddress(t)
	kit := &stubKit{authAddress: addr}
	s := NewSession(kit, nil)

	events, cancel := s.Watch()
	defer cancel()

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, addr, ev.Address)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestWatchLastWriteWins(t *testing.T) {
	kit := &stubKit{}
	s := NewSession(kit, nil)

	events, cancel := s.Watch()
	defer cancel()

	first := testAddress(t)
	second := testAddress(t)
	s.mu.Lock()
	s.setAddressLocked(first)
	s.setAddressLocked(second)
	s.mu.Unlock()

	// the slow subscriber sees only the newest state
	select {
	case ev := <-events:
		require.Equal(t, second, ev.Address)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event %+v", ev)
	default:
	}
}

func TestWatchUnsubscribeClosesChannel(t *testing.T) {
	s := NewSession(&stubKit{}, nil)

	events, cancel := s.Watch()
	cancel()

	_, open := <-events
	require.False(t, open)

	// publishing after unsubscribe must not panic
	s.mu.Lock()
	s.setAddressLocked(testAddress(t))
	s.mu.Unlock()

	// double-cancel is safe
	cancel()
}
