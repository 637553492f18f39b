// README: Booking service tests against an in-memory repository.
package booking

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"carpool/internal/config"
	"carpool/internal/modules/promo"
	"carpool/internal/modules/ride"
	"carpool/internal/types"
)

type memPromos struct {
	codes  map[string]*promo.PromoCode
	usages map[string]bool
}

func (m *memPromos) FindActivePromoByCode(ctx context.Context, code string) (*promo.PromoCode, error) {
	p, ok := m.codes[code]
	if !ok || !p.IsActive {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPromos) FindUsageRecord(ctx context.Context, promoID, userID types.ID) (*promo.UsageRecord, error) {
	if m.usages[string(promoID)+"/"+string(userID)] {
		return &promo.UsageRecord{PromoCodeID: promoID, UserID: userID}, nil
	}
	return nil, nil
}

// memRepo mirrors the store's transaction: seats, usage record and used_count
// change together or not at all.
type memRepo struct {
	rides     map[types.ID]*ride.Ride
	promos    *memPromos
	bookings  map[types.ID]*Booking
	completed int
}

func (m *memRepo) Create(ctx context.Context, b *Booking, r *Redemption) error {
	rd := m.rides[b.RideID]
	if rd.SeatsAvailable < b.Seats {
		return ErrNoSeats
	}
	if r != nil {
		key := string(r.PromoCodeID) + "/" + string(r.UserID)
		if m.promos.usages[key] {
			return &promo.EligibilityError{Kind: promo.KindAlreadyUsed}
		}
		for _, p := range m.promos.codes {
			if p.ID == r.PromoCodeID {
				p.UsedCount++
			}
		}
		m.promos.usages[key] = true
	}
	rd.SeatsAvailable -= b.Seats
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memRepo) Get(ctx context.Context, id types.ID) (*Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) Cancel(ctx context.Context, id, passengerID types.ID) (*Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.PassengerID != passengerID {
		return nil, ErrForbidden
	}
	if b.Status != StatusConfirmed {
		return nil, ErrNotCancellable
	}
	b.Status = StatusCancelled
	m.rides[b.RideID].SeatsAvailable += b.Seats
	cp := *b
	return &cp, nil
}

func (m *memRepo) ListByPassenger(ctx context.Context, passengerID types.ID) ([]Booking, error) {
	var out []Booking
	for _, b := range m.bookings {
		if b.PassengerID == passengerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memRepo) CompletedRideCount(ctx context.Context, passengerID types.ID) (int, error) {
	return m.completed, nil
}

type rideReader map[types.ID]*ride.Ride

func (r rideReader) Get(ctx context.Context, id types.ID) (*ride.Ride, error) {
	rd, ok := r[id]
	if !ok {
		return nil, ride.ErrNotFound
	}
	cp := *rd
	return &cp, nil
}

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestService(promos ...*promo.PromoCode) (*Service, *memRepo) {
	rd := &ride.Ride{
		ID:             "ride-1",
		DriverID:       "driver-1",
		DepartAt:       now.Add(2 * time.Hour),
		SeatsTotal:     3,
		SeatsAvailable: 3,
		PricePerSeat:   types.NewMoney(250, "INR"),
		Status:         ride.StatusActive,
	}
	pr := &memPromos{codes: map[string]*promo.PromoCode{}, usages: map[string]bool{}}
	for _, p := range promos {
		pr.codes[p.Code] = p
	}
	repo := &memRepo{rides: map[types.ID]*ride.Ride{rd.ID: rd}, promos: pr, bookings: map[types.ID]*Booking{}}
	ev := promo.NewEvaluator(pr, config.PromoConfig{EvaluateTimeout: time.Second})
	svc := NewService(repo, rideReader(repo.rides), ev)
	svc.now = func() time.Time { return now }
	return svc, repo
}

func TestBookWithoutPromo(t *testing.T) {
	svc, repo := newTestService()
	b, err := svc.Book(context.Background(), BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 2})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if b.Subtotal != 500 || b.PlatformFee != 50 || b.Discount != 0 || b.Total != 550 {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
	if repo.rides["ride-1"].SeatsAvailable != 1 {
		t.Fatalf("expected 1 seat left, got %d", repo.rides["ride-1"].SeatsAvailable)
	}
}

func TestBookWithPercentagePromo(t *testing.T) {
	save10 := &promo.PromoCode{ID: "promo-1", Code: "SAVE10", DiscountType: promo.DiscountPercentage, DiscountValue: 10, IsActive: true}
	svc, repo := newTestService(save10)

	b, err := svc.Book(context.Background(), BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 2, PromoCode: "save10"})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	// subtotal 500, fee 50, discount 10% of subtotal only
	if b.Discount != 50 || b.Total != 500 || b.PromoCode != "SAVE10" {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
	if save10.UsedCount != 1 {
		t.Fatalf("expected used_count 1, got %d", save10.UsedCount)
	}

	_, err = svc.Book(context.Background(), BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 1, PromoCode: "SAVE10"})
	if !promo.IsKind(err, promo.KindAlreadyUsed) {
		t.Fatalf("expected already_used on second booking, got %v", err)
	}
	if repo.rides["ride-1"].SeatsAvailable != 1 {
		t.Fatal("rejected promo must not hold seats")
	}
}

func TestBookFixedPromoNeverExceedsSubtotal(t *testing.T) {
	flat := &promo.PromoCode{ID: "promo-2", Code: "FLAT1000", DiscountType: promo.DiscountFixed, DiscountValue: 1000, IsActive: true}
	svc, _ := newTestService(flat)
	b, err := svc.Book(context.Background(), BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 1, PromoCode: "FLAT1000"})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if b.Discount != 250 || b.Total != 25 {
		t.Fatalf("expected discount capped at subtotal with fee still charged, got %+v", b)
	}
}

func TestBookFirstRideOnly(t *testing.T) {
	first := &promo.PromoCode{ID: "promo-3", Code: "FIRST", DiscountType: promo.DiscountFixed, DiscountValue: 30, IsFirstRideOnly: true, IsActive: true}
	svc, repo := newTestService(first)
	repo.completed = 2
	_, err := svc.Book(context.Background(), BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 1, PromoCode: "FIRST"})
	if !promo.IsKind(err, promo.KindFirstRideOnly) {
		t.Fatalf("expected first_ride_only, got %v", err)
	}
}

func TestBookRejections(t *testing.T) {
	tests := []struct {
		name string
		cmd  BookCommand
		prep func(*memRepo)
		want error
	}{
		{name: "own ride", cmd: BookCommand{RideID: "ride-1", PassengerID: "driver-1", Seats: 1}, want: ErrOwnRide},
		{name: "too many seats", cmd: BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 4}, want: ErrNoSeats},
		{name: "zero seats", cmd: BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 0}, want: ErrBadRequest},
		{name: "no passenger", cmd: BookCommand{RideID: "ride-1", Seats: 1}, want: ErrBadRequest},
		{name: "unknown ride", cmd: BookCommand{RideID: "nope", PassengerID: "p-1", Seats: 1}, want: ride.ErrNotFound},
		{
			name: "started ride",
			cmd:  BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 1},
			prep: func(m *memRepo) { m.rides["ride-1"].Status = ride.StatusStarted },
			want: ErrRideUnavailable,
		},
		{
			name: "departed ride",
			cmd:  BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 1},
			prep: func(m *memRepo) { m.rides["ride-1"].DepartAt = now.Add(-time.Minute) },
			want: ErrRideUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService()
			if tt.prep != nil {
				tt.prep(repo)
			}
			if _, err := svc.Book(context.Background(), tt.cmd); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPreviewDoesNotBook(t *testing.T) {
	save10 := &promo.PromoCode{ID: "promo-1", Code: "SAVE10", DiscountType: promo.DiscountPercentage, DiscountValue: 10, IsActive: true}
	svc, repo := newTestService(save10)
	b, err := svc.Preview(context.Background(), BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 3, PromoCode: "SAVE10"})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if b.Total != 750+75-75 {
		t.Fatalf("unexpected total: %d", b.Total)
	}
	if len(repo.bookings) != 0 || save10.UsedCount != 0 || repo.rides["ride-1"].SeatsAvailable != 3 {
		t.Fatal("preview must not change state")
	}
}

func TestCancelRestoresSeats(t *testing.T) {
	svc, repo := newTestService()
	b, err := svc.Book(context.Background(), BookCommand{RideID: "ride-1", PassengerID: "p-1", Seats: 2})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), b.ID, "p-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	got, err := svc.Cancel(context.Background(), b.ID, "p-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != StatusCancelled || repo.rides["ride-1"].SeatsAvailable != 3 {
		t.Fatalf("unexpected state after cancel: %+v seats=%d", got, repo.rides["ride-1"].SeatsAvailable)
	}
	if _, err := svc.Cancel(context.Background(), b.ID, "p-1"); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable, got %v", err)
	}
}

func TestEvaluatePromoSkipsBackendOnBadFormat(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.EvaluatePromo(context.Background(), "p-1", "NOT VALID", 100)
	if !promo.IsKind(err, promo.KindFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}
