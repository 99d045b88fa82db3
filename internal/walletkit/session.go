package walletkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/stellar/go/strkey"
	"go.uber.org/zap"
)

// Event carries a change of the connected address. An empty Address means
// disconnected.
type Event struct {
	Address string
}

// Session is the explicitly constructed handle around a Kit's connection
// state. It owns the current-address projection and fans out change events
// to subscribers with last-write-wins delivery. Construction is the
// initialization contract; there is no hidden module-level state.
type Session struct {
	kit Kit
	log *zap.SugaredLogger

	mu           sync.Mutex
	address      string
	rev          int // bumps on every address change
	bootstrapped bool
	subs         map[int]chan Event
	nextSub      int
}

func NewSession(kit Kit, log *zap.SugaredLogger) *Session {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{
		kit:  kit,
		log:  log,
		subs: map[int]chan Event{},
	}
}

// Bootstrap queries the kit once for an already-authorized address, covering
// the start-while-connected case. Repeated calls are no-ops. If a change
// event arrived before the query resolved, the event wins.
func (s *Session) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	if s.bootstrapped {
		s.mu.Unlock()
		return nil
	}
	s.bootstrapped = true
	startRev := s.rev
	s.mu.Unlock()

	addr, err := s.kit.Address(ctx)
	if err != nil {
		return fmt.Errorf("query wallet address: %w", err)
	}
	if addr == "" {
		return nil
	}
	if !strkey.IsValidEd25519PublicKey(addr) {
		return fmt.Errorf("wallet returned malformed address %q", addr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rev != startRev {
		// an event landed first; the notification stream wins
		return nil
	}
	s.setAddressLocked(addr)
	return nil
}

// Connect runs the kit's interactive authorization flow. On failure the
// address stays unset and the error is returned for the view to surface.
func (s *Session) Connect(ctx context.Context) (string, error) {
	addr, err := s.kit.RequestAuthorization(ctx)
	if err != nil {
		return "", fmt.Errorf("wallet authorization: %w", err)
	}
	if !strkey.IsValidEd25519PublicKey(addr) {
		return "", fmt.Errorf("wallet returned malformed address %q", addr)
	}

	s.mu.Lock()
	s.setAddressLocked(addr)
	s.mu.Unlock()
	return addr, nil
}

// Disconnect clears the local address unconditionally, then attempts kit
// teardown. A teardown failure is logged, never allowed to leave the UI
// stuck in a connected state.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	s.setAddressLocked("")
	s.mu.Unlock()

	if err := s.kit.Disconnect(ctx); err != nil {
		s.log.Warnw("wallet kit teardown failed", "kit", s.kit.Name(), "err", err)
	}
}

// Address returns the current address projection, "" when disconnected.
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Watch subscribes to address change events. Each subscriber has a buffer of
// one with drop-oldest delivery, so a slow receiver always observes the
// latest state. The returned func unsubscribes and closes the channel.
func (s *Session) Watch() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 1)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// SignTransaction forwards to the kit; callers sign through the session so
// everything flows through one injected handle.
func (s *Session) SignTransaction(ctx context.Context, xdrBase64, networkPassphrase string) (string, error) {
	return s.kit.SignTransaction(ctx, xdrBase64, networkPassphrase)
}

// setAddressLocked records the address, bumps the revision, and publishes to
// subscribers. Caller holds s.mu.
func (s *Session) setAddressLocked(addr string) {
	if addr == s.address {
		return
	}
	s.address = addr
	s.rev++
	ev := Event{Address: addr}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// drop the stale buffered event, keep the newest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
