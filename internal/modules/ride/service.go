// README: Ride service: publish, search and the driver-driven status transitions.
package ride

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"carpool/internal/config"
	"carpool/internal/modules/pricing"
	"carpool/internal/types"
)

const (
	maxSeats           = 8
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

var (
	ErrNotFound     = errors.New("ride not found")
	ErrInvalidState = errors.New("invalid ride state transition")
	ErrConflict     = errors.New("ride state conflict")
	ErrForbidden    = errors.New("only the driver can change this ride")
	ErrBadRequest   = errors.New("bad request")
	ErrPriceTooHigh = errors.New("price per seat exceeds the maximum allowed for this distance")
)

type Repository interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	GetMany(ctx context.Context, ids []types.ID) ([]Ride, error)
	ListUpcoming(ctx context.Context, after time.Time, limit int) ([]Ride, error)
	ListByDriver(ctx context.Context, driverID types.ID) ([]Ride, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
}

// Index is the geo index of bookable rides keyed by departure point.
type Index interface {
	Add(ctx context.Context, rideID types.ID, p types.Point) error
	Remove(ctx context.Context, rideID types.ID) error
	Nearby(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]types.ID, error)
}

// Geocoder fills in coordinates for places sent without them.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

type Pricer interface {
	QuoteDistance(distanceKm float64) (pricing.Quote, error)
	DistanceKm(ctx context.Context, origin, destination string) (float64, error)
	Currency() string
}

type Service struct {
	repo     Repository
	index    Index
	pricer   Pricer
	geocoder Geocoder
	events   EventPublisher
	radiusKm float64
	now      func() time.Time
}

func NewService(repo Repository, index Index, pricer Pricer, geocoder Geocoder, events EventPublisher, cfg config.SearchConfig) *Service {
	radius := cfg.RadiusKm
	if radius <= 0 {
		radius = config.Default().Search.RadiusKm
	}
	return &Service{
		repo:     repo,
		index:    index,
		pricer:   pricer,
		geocoder: geocoder,
		events:   events,
		radiusKm: radius,
		now:      time.Now,
	}
}

type PublishCommand struct {
	DriverID     types.ID
	Origin       types.Place
	Destination  types.Place
	DepartAt     time.Time
	Seats        int
	PricePerSeat int64
	// DistanceKm is resolved through the mapping API when zero.
	DistanceKm float64
}

type SearchQuery struct {
	Near     *types.Point
	RadiusKm float64
	// DestinationNear keeps rides whose drop-off lies within RadiusKm of it.
	DestinationNear *types.Point
	Destination     string
	// Date restricts results to rides departing on the same calendar day.
	Date  *time.Time
	Seats int
	Limit int
}

func (s *Service) Publish(ctx context.Context, cmd PublishCommand) (*Ride, error) {
	now := s.now()
	if err := validatePublish(cmd, now); err != nil {
		return nil, err
	}

	km := cmd.DistanceKm
	if km <= 0 {
		var err error
		km, err = s.pricer.DistanceKm(ctx, cmd.Origin.Name, cmd.Destination.Name)
		if err != nil {
			return nil, err
		}
	}
	if err := s.locate(ctx, &cmd.Origin); err != nil {
		return nil, err
	}
	if err := s.locate(ctx, &cmd.Destination); err != nil {
		return nil, err
	}
	ok, err := pricing.ValidatePrice(cmd.PricePerSeat, km)
	if err != nil {
		return nil, errors.Wrap(ErrBadRequest, err.Error())
	}
	if !ok {
		return nil, ErrPriceTooHigh
	}

	r := &Ride{
		ID:             types.NewID(),
		DriverID:       cmd.DriverID,
		Origin:         cmd.Origin,
		Destination:    cmd.Destination,
		DepartAt:       cmd.DepartAt,
		SeatsTotal:     cmd.Seats,
		SeatsAvailable: cmd.Seats,
		PricePerSeat:   types.NewMoney(cmd.PricePerSeat, s.pricer.Currency()),
		DistanceKm:     km,
		Status:         StatusActive,
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, r.ID, StatusNone, StatusActive, &cmd.DriverID, now)
	if s.index != nil {
		if err := s.index.Add(ctx, r.ID, r.Origin.Point); err != nil {
			log.Warn().Err(err).Str("ride_id", r.ID.String()).Msg("index ride failed")
		}
	}

	log.Info().
		Str("ride_id", r.ID.String()).
		Str("driver_id", r.DriverID.String()).
		Int("seats", r.SeatsTotal).
		Int64("price_per_seat", r.PricePerSeat.Amount).
		Float64("distance_km", km).
		Msg("ride published")
	return r, nil
}

func (s *Service) locate(ctx context.Context, p *types.Place) error {
	if p.Point != (types.Point{}) || s.geocoder == nil {
		return nil
	}
	pt, err := s.geocoder.Geocode(ctx, p.Name)
	if err != nil {
		return errors.Wrapf(err, "locate %q", p.Name)
	}
	p.Point = pt
	return nil
}

func validatePublish(cmd PublishCommand, now time.Time) error {
	switch {
	case cmd.DriverID == "":
		return errors.Wrap(ErrBadRequest, "driver is required")
	case strings.TrimSpace(cmd.Origin.Name) == "" || strings.TrimSpace(cmd.Destination.Name) == "":
		return errors.Wrap(ErrBadRequest, "origin and destination are required")
	case cmd.Seats < 1 || cmd.Seats > maxSeats:
		return errors.Wrapf(ErrBadRequest, "seats must be between 1 and %d", maxSeats)
	case cmd.PricePerSeat < 0:
		return errors.Wrap(ErrBadRequest, "price must not be negative")
	case !cmd.DepartAt.After(now):
		return errors.Wrap(ErrBadRequest, "departure must be in the future")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Ride, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByDriver(ctx context.Context, driverID types.ID) ([]Ride, error) {
	return s.repo.ListByDriver(ctx, driverID)
}

// Search returns bookable rides matching q, soonest departure first.
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]Ride, error) {
	now := s.now()
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	seats := q.Seats
	if seats <= 0 {
		seats = 1
	}

	radius := q.RadiusKm
	if radius <= 0 {
		radius = s.radiusKm
	}

	var candidates []Ride
	var err error
	if q.Near != nil && s.index != nil {
		var ids []types.ID
		ids, err = s.index.Nearby(ctx, *q.Near, radius, 0)
		if err != nil {
			return nil, err
		}
		candidates, err = s.repo.GetMany(ctx, ids)
	} else {
		candidates, err = s.repo.ListUpcoming(ctx, now, maxSearchLimit)
	}
	if err != nil {
		return nil, err
	}

	dest := strings.ToLower(strings.TrimSpace(q.Destination))
	out := make([]Ride, 0, len(candidates))
	for _, r := range candidates {
		if !r.Bookable(now) || r.SeatsAvailable < seats {
			continue
		}
		if dest != "" && !strings.Contains(strings.ToLower(r.Destination.Name), dest) {
			continue
		}
		if q.Date != nil && !sameDay(r.DepartAt, *q.Date) {
			continue
		}
		// without an index the pickup radius is applied here
		if q.Near != nil && s.index == nil && !within(r.Origin.Point, *q.Near, radius) {
			continue
		}
		if q.DestinationNear != nil && !within(r.Destination.Point, *q.DestinationNear, radius) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DepartAt.Before(out[j].DepartAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sameDay(t, day time.Time) bool {
	t = t.In(day.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Quote prices a route for drivers before they publish.
func (s *Service) Quote(ctx context.Context, distanceKm float64) (pricing.Quote, error) {
	return s.pricer.QuoteDistance(distanceKm)
}

func (s *Service) Start(ctx context.Context, rideID, driverID types.ID) (*Ride, error) {
	return s.transition(ctx, rideID, driverID, StatusStarted)
}

func (s *Service) Complete(ctx context.Context, rideID, driverID types.ID) (*Ride, error) {
	return s.transition(ctx, rideID, driverID, StatusCompleted)
}

func (s *Service) Cancel(ctx context.Context, rideID, driverID types.ID) (*Ride, error) {
	return s.transition(ctx, rideID, driverID, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, rideID, driverID types.ID, to Status) (*Ride, error) {
	r, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.DriverID != driverID {
		return nil, ErrForbidden
	}
	if !CanTransition(r.Status, to) {
		return nil, ErrInvalidState
	}
	ok, err := s.repo.UpdateStatus(ctx, r.ID, r.Status, to, r.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	now := s.now()
	from := r.Status
	r.Status = to
	r.StatusVersion++
	switch to {
	case StatusStarted:
		r.StartedAt = &now
	case StatusCompleted:
		r.CompletedAt = &now
	case StatusCancelled:
		r.CancelledAt = &now
	}

	s.appendEvent(ctx, r.ID, from, to, &driverID, now)
	if s.index != nil {
		if err := s.index.Remove(ctx, r.ID); err != nil {
			log.Warn().Err(err).Str("ride_id", r.ID.String()).Msg("unindex ride failed")
		}
	}
	if s.events != nil {
		ev := StatusEvent{
			RideID:      r.ID,
			DriverID:    r.DriverID,
			From:        from,
			To:          to,
			Origin:      r.Origin.Name,
			Destination: r.Destination.Name,
			DepartAt:    r.DepartAt,
			OccurredAt:  now,
		}
		if err := s.events.PublishStatus(ctx, ev); err != nil {
			log.Error().Err(err).Str("ride_id", r.ID.String()).Str("status", string(to)).Msg("publish ride status failed")
		}
	}

	log.Info().Str("ride_id", r.ID.String()).Str("from", string(from)).Str("to", string(to)).Msg("ride status changed")
	return r, nil
}

func (s *Service) appendEvent(ctx context.Context, rideID types.ID, from, to Status, actor *types.ID, at time.Time) {
	err := s.repo.AppendEvent(ctx, &Event{RideID: rideID, FromStatus: from, ToStatus: to, ActorID: actor, CreatedAt: at})
	if err != nil {
		log.Warn().Err(err).Str("ride_id", rideID.String()).Msg("append ride event failed")
	}
}
