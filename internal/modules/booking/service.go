// README: Booking service prices seats, applies promo codes and books atomically.
package booking

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"carpool/internal/modules/pricing"
	"carpool/internal/modules/promo"
	"carpool/internal/modules/ride"
	"carpool/internal/types"
)

var (
	ErrNotFound        = errors.New("booking not found")
	ErrForbidden       = errors.New("booking belongs to another passenger")
	ErrBadRequest      = errors.New("bad request")
	ErrNoSeats         = errors.New("not enough seats available")
	ErrOwnRide         = errors.New("drivers cannot book their own ride")
	ErrRideUnavailable = errors.New("ride is no longer open for booking")
	ErrNotCancellable  = errors.New("booking can no longer be cancelled")
)

type Repository interface {
	Create(ctx context.Context, b *Booking, r *Redemption) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	Cancel(ctx context.Context, id, passengerID types.ID) (*Booking, error)
	ListByPassenger(ctx context.Context, passengerID types.ID) ([]Booking, error)
	CompletedRideCount(ctx context.Context, passengerID types.ID) (int, error)
}

type RideReader interface {
	Get(ctx context.Context, id types.ID) (*ride.Ride, error)
}

// PromoEvaluator is satisfied by *promo.Evaluator.
type PromoEvaluator interface {
	Evaluate(ctx context.Context, code string, ec promo.EvaluationContext) (*promo.Result, error)
}

type Service struct {
	repo   Repository
	rides  RideReader
	promos PromoEvaluator
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(repo Repository, rides RideReader, promos PromoEvaluator) *Service {
	return &Service{
		repo:   repo,
		rides:  rides,
		promos: promos,
		tracer: otel.Tracer("carpool/booking"),
		now:    time.Now,
	}
}

type BookCommand struct {
	RideID      types.ID
	PassengerID types.ID
	Seats       int
	PromoCode   string
}

// Preview prices cmd exactly as Book would without holding seats or
// redeeming the code.
func (s *Service) Preview(ctx context.Context, cmd BookCommand) (*Booking, error) {
	b, _, err := s.price(ctx, cmd)
	return b, err
}

func (s *Service) Book(ctx context.Context, cmd BookCommand) (b *Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Book", trace.WithAttributes(
		attribute.String("ride.id", cmd.RideID.String()),
		attribute.String("user.id", cmd.PassengerID.String()),
		attribute.Int("booking.seats", cmd.Seats),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	b, redemption, err := s.price(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, b, redemption); err != nil {
		return nil, err
	}

	bookingsTotal.WithLabelValues(strconv.FormatBool(redemption != nil)).Inc()
	discountTotal.Add(float64(b.Discount))
	span.SetAttributes(attribute.Int64("booking.total", b.Total))
	log.Info().
		Str("booking_id", b.ID.String()).
		Str("ride_id", b.RideID.String()).
		Str("passenger_id", b.PassengerID.String()).
		Int("seats", b.Seats).
		Int64("total", b.Total).
		Int64("discount", b.Discount).
		Str("promo_code", b.PromoCode).
		Msg("booking created")
	return b, nil
}

func (s *Service) price(ctx context.Context, cmd BookCommand) (*Booking, *Redemption, error) {
	if cmd.PassengerID == "" {
		return nil, nil, errors.Wrap(ErrBadRequest, "passenger is required")
	}
	if cmd.Seats < 1 {
		return nil, nil, errors.Wrap(ErrBadRequest, "at least one seat is required")
	}

	r, err := s.rides.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	if r.DriverID == cmd.PassengerID {
		return nil, nil, ErrOwnRide
	}
	if !r.Bookable(now) {
		return nil, nil, ErrRideUnavailable
	}
	if r.SeatsAvailable < cmd.Seats {
		return nil, nil, ErrNoSeats
	}

	totals, err := pricing.TotalForSeats(r.PricePerSeat.Amount, cmd.Seats)
	if err != nil {
		return nil, nil, errors.Wrap(err, "price seats")
	}

	b := &Booking{
		ID:          types.NewID(),
		RideID:      r.ID,
		PassengerID: cmd.PassengerID,
		Seats:       cmd.Seats,
		Subtotal:    totals.Subtotal,
		PlatformFee: totals.PlatformFee,
		Total:       totals.TotalPrice,
		Currency:    r.PricePerSeat.Currency,
		Status:      StatusConfirmed,
		CreatedAt:   now,
	}

	if strings.TrimSpace(cmd.PromoCode) == "" {
		return b, nil, nil
	}
	res, err := s.EvaluatePromo(ctx, cmd.PassengerID, cmd.PromoCode, totals.Subtotal)
	if err != nil {
		return nil, nil, err
	}
	// the platform fee is never discounted
	b.Discount = res.Discount
	b.Total = totals.Subtotal + totals.PlatformFee - res.Discount
	b.PromoCodeID = &res.Promo.ID
	b.PromoCode = res.Promo.Code
	return b, &Redemption{PromoCodeID: res.Promo.ID, UserID: cmd.PassengerID}, nil
}

// EvaluatePromo runs the evaluator for a passenger, filling in their ride history.
func (s *Service) EvaluatePromo(ctx context.Context, passengerID types.ID, code string, subtotal int64) (*promo.Result, error) {
	if _, err := promo.Canonicalize(code); err != nil {
		return nil, err
	}
	count := 0
	if passengerID != "" {
		var err error
		count, err = s.repo.CompletedRideCount(ctx, passengerID)
		if err != nil {
			return nil, &promo.EligibilityError{Kind: promo.KindBackend, Err: err}
		}
	}
	return s.promos.Evaluate(ctx, code, promo.EvaluationContext{
		Subtotal:               subtotal,
		UserID:                 passengerID,
		UserCompletedRideCount: count,
	})
}

func (s *Service) Get(ctx context.Context, id, passengerID types.ID) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.PassengerID != passengerID {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) Cancel(ctx context.Context, id, passengerID types.ID) (*Booking, error) {
	b, err := s.repo.Cancel(ctx, id, passengerID)
	if err != nil {
		return nil, err
	}
	cancellationsTotal.Inc()
	log.Info().Str("booking_id", b.ID.String()).Str("ride_id", b.RideID.String()).Msg("booking cancelled")
	return b, nil
}

func (s *Service) ListByPassenger(ctx context.Context, passengerID types.ID) ([]Booking, error) {
	return s.repo.ListByPassenger(ctx, passengerID)
}

func (s *Service) CompletedRideCount(ctx context.Context, passengerID types.ID) (int, error) {
	return s.repo.CompletedRideCount(ctx, passengerID)
}
