package session

import (
	"sync"

	"lademeter/internal/freight"
)

// Session holds the most recent quote of one form session. Each new quote
// replaces the previous one; injection only reads it.
type Session struct {
	mu   sync.RWMutex
	last *freight.Quote
}

func New() *Session {
	return &Session{}
}

// Record stores q as the last computed quote.
func (s *Session) Record(q freight.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &q
}

// LastQuote returns a copy of the last quote and false if none was computed yet.
func (s *Session) LastQuote() (freight.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return freight.Quote{}, false
	}
	q := *s.last
	q.Notices = append([]string(nil), s.last.Notices...)
	return q, true
}
