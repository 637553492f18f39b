// README: Applied-promo slot tests (busy rejection, supersede on Clear, callbacks).
package promo

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

// gatedEvaluation blocks each Evaluate until its code's release channel receives a value.
type gatedEvaluation struct {
	started chan struct{}
	release map[string]chan evalOutcome
}

type evalOutcome struct {
	res *Result
	err error
}

func newGatedEvaluation() *gatedEvaluation {
	return &gatedEvaluation{started: make(chan struct{}, 4), release: map[string]chan evalOutcome{}}
}

func (g *gatedEvaluation) gate(code string) chan evalOutcome {
	ch := make(chan evalOutcome)
	g.release[code] = ch
	return ch
}

func (g *gatedEvaluation) Evaluate(ctx context.Context, code string, ec EvaluationContext) (*Result, error) {
	ch := g.release[code]
	g.started <- struct{}{}
	out := <-ch
	return out.res, out.err
}

type instantEvaluation struct {
	res *Result
	err error
}

func (i instantEvaluation) Evaluate(ctx context.Context, code string, ec EvaluationContext) (*Result, error) {
	return i.res, i.err
}

type applyCall struct {
	promo    *PromoCode
	discount int64
}

func recordingSession() (*Session, *[]applyCall) {
	var calls []applyCall
	s := NewSession(func(p *PromoCode, d int64) {
		calls = append(calls, applyCall{promo: p, discount: d})
	})
	return s, &calls
}

func waitStarted(t *testing.T, g *gatedEvaluation) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(time.Second):
		t.Fatal("evaluation never started")
	}
}

func TestSessionCallbackCanReadSlot(t *testing.T) {
	var s *Session
	type seen struct {
		promo    *PromoCode
		discount int64
		pending  bool
	}
	var calls []seen
	s = NewSession(func(p *PromoCode, d int64) {
		applied, discount := s.Applied()
		calls = append(calls, seen{promo: applied, discount: discount, pending: s.Pending()})
	})
	p := percentPromo("SAVE10", 10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.Apply(context.Background(), instantEvaluation{res: &Result{Promo: p, Discount: 50}}, "SAVE10", EvaluationContext{}); err != nil {
			t.Errorf("apply: %v", err)
		}
		s.Clear()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback reading the slot blocked Apply or Clear")
	}

	if len(calls) != 2 {
		t.Fatalf("expected 2 callbacks, got %d", len(calls))
	}
	if calls[0].promo != p || calls[0].discount != 50 || calls[0].pending {
		t.Fatalf("apply callback saw %+v", calls[0])
	}
	if calls[1].promo != nil || calls[1].discount != 0 {
		t.Fatalf("clear callback saw %+v", calls[1])
	}
}

func TestSessionApplyAndClear(t *testing.T) {
	s, calls := recordingSession()
	p := percentPromo("SAVE10", 10)

	res, err := s.Apply(context.Background(), instantEvaluation{res: &Result{Promo: p, Discount: 50}}, "SAVE10", EvaluationContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Discount != 50 {
		t.Fatalf("expected 50, got %d", res.Discount)
	}
	if got, d := s.Applied(); got != p || d != 50 {
		t.Fatalf("slot not set: %v %d", got, d)
	}

	s.Clear()
	if got, d := s.Applied(); got != nil || d != 0 {
		t.Fatalf("slot not cleared: %v %d", got, d)
	}
	if len(*calls) != 2 || (*calls)[1].promo != nil || (*calls)[1].discount != 0 {
		t.Fatalf("unexpected callbacks: %+v", *calls)
	}
}

func TestSessionFailureLeavesSlotUntouched(t *testing.T) {
	s, calls := recordingSession()
	p := percentPromo("SAVE10", 10)
	if _, err := s.Apply(context.Background(), instantEvaluation{res: &Result{Promo: p, Discount: 50}}, "SAVE10", EvaluationContext{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := s.Apply(context.Background(), instantEvaluation{err: newError(KindExpired)}, "OLD", EvaluationContext{})
	if !IsKind(err, KindExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if got, d := s.Applied(); got != p || d != 50 {
		t.Fatalf("failed apply changed slot: %v %d", got, d)
	}
	if len(*calls) != 1 {
		t.Fatalf("failed apply must not notify, got %d calls", len(*calls))
	}
}

func TestSessionRejectsWhilePending(t *testing.T) {
	s := NewSession(nil)
	g := newGatedEvaluation()
	p := fixedPromo("FLAT", 20)
	flat := g.gate("FLAT")

	done := make(chan error, 1)
	go func() {
		_, err := s.Apply(context.Background(), g, "FLAT", EvaluationContext{})
		done <- err
	}()
	waitStarted(t, g)

	if !s.Pending() {
		t.Fatal("expected pending evaluation")
	}
	if _, err := s.Apply(context.Background(), g, "FLAT", EvaluationContext{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	flat <- evalOutcome{res: &Result{Promo: p, Discount: 20}}
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Pending() {
		t.Fatal("expected no pending evaluation")
	}
	if got, d := s.Applied(); got != p || d != 20 {
		t.Fatalf("slot not set: %v %d", got, d)
	}
}

func TestSessionClearSupersedesInFlight(t *testing.T) {
	s, calls := recordingSession()
	g := newGatedEvaluation()
	save := g.gate("SAVE10")

	done := make(chan error, 1)
	go func() {
		_, err := s.Apply(context.Background(), g, "SAVE10", EvaluationContext{})
		done <- err
	}()
	waitStarted(t, g)

	s.Clear()
	save <- evalOutcome{res: &Result{Promo: percentPromo("SAVE10", 10), Discount: 50}}

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if got, _ := s.Applied(); got != nil {
		t.Fatalf("stale result written to slot: %v", got)
	}
	if len(*calls) != 1 || (*calls)[0].promo != nil {
		t.Fatalf("expected only the clear callback, got %+v", *calls)
	}
}

func TestSessionNewApplyAfterClearWins(t *testing.T) {
	s := NewSession(nil)
	g := newGatedEvaluation()
	stale := percentPromo("OLD", 10)
	fresh := fixedPromo("NEW", 5)
	oldGate := g.gate("OLD")
	newGate := g.gate("NEW")

	first := make(chan error, 1)
	go func() {
		_, err := s.Apply(context.Background(), g, "OLD", EvaluationContext{})
		first <- err
	}()
	waitStarted(t, g)
	s.Clear()

	second := make(chan error, 1)
	go func() {
		_, err := s.Apply(context.Background(), g, "NEW", EvaluationContext{})
		second <- err
	}()
	waitStarted(t, g)

	newGate <- evalOutcome{res: &Result{Promo: fresh, Discount: 5}}
	if err := <-second; err != nil {
		t.Fatalf("latest apply failed: %v", err)
	}
	oldGate <- evalOutcome{res: &Result{Promo: stale, Discount: 50}}
	if err := <-first; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if got, d := s.Applied(); got != fresh || d != 5 {
		t.Fatalf("expected latest promo in slot, got %v %d", got, d)
	}
}
