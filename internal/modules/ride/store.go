// README: Ride store backed by PostgreSQL with optimistic status versioning.
package ride

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"carpool/internal/types"
)

const rideColumns = `
	id, driver_id,
	origin_name, origin_lat, origin_lng,
	destination_name, destination_lat, destination_lng,
	depart_at, seats_total, seats_available, price_per_seat, currency,
	distance_km, status, status_version,
	created_at, started_at, completed_at, cancelled_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *Ride) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (
			id, driver_id,
			origin_name, origin_lat, origin_lng,
			destination_name, destination_lat, destination_lng,
			depart_at, seats_total, seats_available, price_per_seat, currency,
			distance_km, status, status_version, created_at
		) VALUES (
			$1, $2,
			$3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17
		)`,
		string(r.ID), string(r.DriverID),
		r.Origin.Name, r.Origin.Point.Lat, r.Origin.Point.Lng,
		r.Destination.Name, r.Destination.Point.Lat, r.Destination.Point.Lng,
		r.DepartAt, r.SeatsTotal, r.SeatsAvailable, r.PricePerSeat.Amount, r.PricePerSeat.Currency,
		r.DistanceKm, string(r.Status), r.StatusVersion, r.CreatedAt,
	)
	return errors.Wrap(err, "insert ride")
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Ride, error) {
	r, err := scanRide(s.db.QueryRow(ctx, `SELECT`+rideColumns+` FROM rides WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select ride %s", id)
	}
	return r, nil
}

// GetMany loads the given rides; unknown IDs are skipped.
func (s *Store) GetMany(ctx context.Context, ids []types.ID) ([]Ride, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	return s.query(ctx, `SELECT`+rideColumns+` FROM rides WHERE id::text = ANY($1)`, raw)
}

// ListUpcoming returns active rides departing after the given time, soonest first.
func (s *Store) ListUpcoming(ctx context.Context, after time.Time, limit int) ([]Ride, error) {
	return s.query(ctx, `SELECT`+rideColumns+`
		FROM rides
		WHERE status = 'active' AND depart_at > $1
		ORDER BY depart_at
		LIMIT $2`, after, limit)
}

func (s *Store) ListByDriver(ctx context.Context, driverID types.ID) ([]Ride, error) {
	return s.query(ctx, `SELECT`+rideColumns+`
		FROM rides
		WHERE driver_id = $1
		ORDER BY depart_at DESC`, string(driverID))
}

func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET status = $1,
			status_version = status_version + 1,
			started_at = CASE WHEN $1 = 'started' THEN NOW() ELSE started_at END,
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
			cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), version,
	)
	if err != nil {
		return false, errors.Wrapf(err, "update ride %s status", id)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	var actor *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actor = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO ride_events (ride_id, from_status, to_status, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(e.RideID), string(e.FromStatus), string(e.ToStatus), actor, e.CreatedAt,
	)
	return errors.Wrap(err, "insert ride event")
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]Ride, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query rides")
	}
	defer rows.Close()

	var out []Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan ride")
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRide(row pgx.Row) (*Ride, error) {
	var r Ride
	var status string
	err := row.Scan(
		&r.ID, &r.DriverID,
		&r.Origin.Name, &r.Origin.Point.Lat, &r.Origin.Point.Lng,
		&r.Destination.Name, &r.Destination.Point.Lat, &r.Destination.Point.Lng,
		&r.DepartAt, &r.SeatsTotal, &r.SeatsAvailable, &r.PricePerSeat.Amount, &r.PricePerSeat.Currency,
		&r.DistanceKm, &status, &r.StatusVersion,
		&r.CreatedAt, &r.StartedAt, &r.CompletedAt, &r.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = Status(status)
	return &r, nil
}
