// README: Single applied-promo slot for one booking flow (busy flag + last-write-wins).
package promo

import (
	"context"
	"sync"
)

// ApplyFunc receives slot changes: (promo, discount) on success and (nil, 0) on Clear.
type ApplyFunc func(promo *PromoCode, discount int64)

// Evaluation is satisfied by *Evaluator.
type Evaluation interface {
	Evaluate(ctx context.Context, code string, ec EvaluationContext) (*Result, error)
}

// Session is the client-side slot for callers that embed the evaluator in a
// long-lived booking flow; the stateless HTTP API does not construct one.
//
// Session holds the currently applied promo for one booking flow. Each Apply
// is tagged with a sequence number and only the latest one may write the
// slot; Clear bumps the sequence so anything still in flight is dropped.
type Session struct {
	mu       sync.Mutex
	seq      uint64
	inflight uint64
	applied  *Result
	onApply  ApplyFunc
}

func NewSession(onApply ApplyFunc) *Session {
	return &Session{onApply: onApply}
}

// Apply evaluates code and, if it is still the latest request when the
// evaluation returns, replaces the slot. A failed evaluation leaves the slot
// untouched. Returns ErrBusy while the latest evaluation is pending and
// ErrSuperseded when Clear ran in the meantime.
func (s *Session) Apply(ctx context.Context, ev Evaluation, code string, ec EvaluationContext) (*Result, error) {
	s.mu.Lock()
	if s.inflight != 0 && s.inflight == s.seq {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.seq++
	ticket := s.seq
	s.inflight = ticket
	s.mu.Unlock()

	res, err := ev.Evaluate(ctx, code, ec)

	s.mu.Lock()
	if s.inflight == ticket {
		s.inflight = 0
	}
	if ticket != s.seq {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.applied = res
	cb := s.onApply
	s.mu.Unlock()

	// callbacks may read the slot, so they run unlocked
	if cb != nil {
		cb(res.Promo, res.Discount)
	}
	return res, nil
}

// Clear empties the slot without touching the backend.
func (s *Session) Clear() {
	s.mu.Lock()
	s.seq++
	s.applied = nil
	cb := s.onApply
	s.mu.Unlock()

	if cb != nil {
		cb(nil, 0)
	}
}

// Applied returns the promo in the slot and its discount, or (nil, 0).
func (s *Session) Applied() (*PromoCode, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied == nil {
		return nil, 0
	}
	return s.applied.Promo, s.applied.Discount
}

// Pending reports whether the latest Apply is still waiting on its evaluation.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight != 0 && s.inflight == s.seq
}
