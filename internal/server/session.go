package server

import (
	"sync"

	"github.com/Ardhiffamada1/PointOfSale/internal/cart"
	"github.com/Ardhiffamada1/PointOfSale/internal/checkout"
)

// sessionData is the server-side state of one login session: its cart and,
// while one is active, its checkout. The per-session mutex serialises the
// session's own requests, mirroring the single-threaded client flow where
// in-flight buttons are disabled.
type sessionData struct {
	mu       sync.Mutex
	cart     *cart.Cart
	checkout *checkout.Checkout
}

type sessionState struct {
	mu   sync.Mutex
	data map[string]*sessionData
}

func newSessionState() *sessionState {
	return &sessionState{data: make(map[string]*sessionData)}
}

func (s *sessionState) get(token string) *sessionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[token]
	if !ok {
		d = &sessionData{cart: cart.New()}
		s.data[token] = d
	}
	return d
}

func (s *sessionState) drop(token string) {
	s.mu.Lock()
	delete(s.data, token)
	s.mu.Unlock()
}
