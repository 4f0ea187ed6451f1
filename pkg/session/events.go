package session

import (
	"time"
)

type EventKind string

const (
	EventSession    EventKind = "session"
	EventMarketData EventKind = "market_data"
	EventOrderBook  EventKind = "order_book"
	EventTrade      EventKind = "trade"
	EventPortfolio  EventKind = "portfolio"
	EventWallet     EventKind = "wallet"
)

type Event struct {
	Kind      EventKind   `json:"kind"`
	SessionID string      `json:"session_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Time      time.Time   `json:"time"`
}

// subscribers fans events out to registered callbacks. Callbacks run on the
// emitting goroutine and must not block.
type subscribers struct {
	next int
	fns  map[int]func(Event)
}

func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.subs.next
	s.subs.next++
	s.subs.fns[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs.fns, id)
	}
}

func (s *Session) emit(kind EventKind, payload interface{}) {
	ev := Event{
		Kind:      kind,
		SessionID: s.id,
		Payload:   payload,
		Time:      s.clock.Now(),
	}

	s.subMu.RLock()
	fns := make([]func(Event), 0, len(s.subs.fns))
	for _, fn := range s.subs.fns {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
