package api

import (
	"context"
	"sync"

	"github.com/codgamerofficial/Kultzr/internal/cart"
	"github.com/codgamerofficial/Kultzr/internal/pricing"
)

// Sessions hands out the one cart store per authenticated session. The first
// access for a session constructs the store and hydrates it from the remote
// copy; later accesses return the same store.
type Sessions struct {
	mu     sync.Mutex
	stores map[string]*cart.Store
	cfg    pricing.Config
	remote cart.Remote
}

func NewSessions(cfg pricing.Config, remote cart.Remote) *Sessions {
	return &Sessions{
		stores: make(map[string]*cart.Store),
		cfg:    cfg,
		remote: remote,
	}
}

func (s *Sessions) CartFor(ctx context.Context, sessionID string) *cart.Store {
	s.mu.Lock()
	store, ok := s.stores[sessionID]
	if !ok {
		store = cart.NewStore(sessionID, s.cfg, s.remote)
		s.stores[sessionID] = store
	}
	s.mu.Unlock()

	if !ok {
		store.Hydrate(ctx)
	}
	return store
}

// Drop forgets a session's in-memory store, e.g. on sign-out. The remote
// copy is untouched so the cart survives into the next session.
func (s *Sessions) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.stores, sessionID)
	s.mu.Unlock()
}
