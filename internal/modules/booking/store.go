// README: Booking store: seat holds, promo redemptions and cancellations in one transaction each.
package booking

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"carpool/internal/modules/promo"
	"carpool/internal/types"
)

const bookingColumns = `
	b.id, b.ride_id, b.passenger_id, b.seats,
	b.subtotal, b.platform_fee, b.discount, b.total, b.currency,
	b.promo_code_id, COALESCE(p.code, ''), b.status, b.created_at, b.cancelled_at`

const bookingFrom = `
	FROM bookings b
	LEFT JOIN promo_codes p ON p.id = b.promo_code_id`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Create holds the seats, inserts the booking and, when r is set, records
// the redemption and bumps the code's used_count. Any failure rolls back all of it.
func (s *Store) Create(ctx context.Context, b *Booking, r *Redemption) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin booking tx")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE rides
		SET seats_available = seats_available - $1
		WHERE id = $2 AND status = 'active' AND seats_available >= $1`,
		b.Seats, string(b.RideID),
	)
	if err != nil {
		return errors.Wrap(err, "hold seats")
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSeats
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (
			id, ride_id, passenger_id, seats,
			subtotal, platform_fee, discount, total, currency,
			promo_code_id, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(b.ID), string(b.RideID), string(b.PassengerID), b.Seats,
		b.Subtotal, b.PlatformFee, b.Discount, b.Total, b.Currency,
		idPtr(b.PromoCodeID), string(b.Status), b.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert booking")
	}

	if r != nil {
		if err := redeem(ctx, tx, b.ID, r); err != nil {
			return err
		}
	}
	return errors.Wrap(tx.Commit(ctx), "commit booking")
}

func redeem(ctx context.Context, tx pgx.Tx, bookingID types.ID, r *Redemption) error {
	tag, err := tx.Exec(ctx, `
		UPDATE promo_codes
		SET used_count = used_count + 1
		WHERE id = $1 AND is_active AND (usage_limit IS NULL OR used_count < usage_limit)`,
		string(r.PromoCodeID),
	)
	if err != nil {
		return errors.Wrap(err, "increment promo usage")
	}
	if tag.RowsAffected() == 0 {
		return redeemRejection(ctx, tx, r.PromoCodeID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO promo_usages (id, promo_code_id, user_id, booking_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		types.NewID().String(), string(r.PromoCodeID), string(r.UserID), string(bookingID),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &promo.EligibilityError{Kind: promo.KindAlreadyUsed}
	}
	return errors.Wrap(err, "insert promo usage")
}

// redeemRejection tells a code deactivated since evaluation apart from one
// whose usage limit filled up.
func redeemRejection(ctx context.Context, tx pgx.Tx, id types.ID) error {
	var active bool
	err := tx.QueryRow(ctx, `SELECT is_active FROM promo_codes WHERE id = $1`, string(id)).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return &promo.EligibilityError{Kind: promo.KindNotFound}
	}
	if err != nil {
		return errors.Wrap(err, "recheck promo state")
	}
	if !active {
		return &promo.EligibilityError{Kind: promo.KindNotFound}
	}
	return &promo.EligibilityError{Kind: promo.KindLimitReached}
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Booking, error) {
	b, err := scanBooking(s.db.QueryRow(ctx, `SELECT`+bookingColumns+bookingFrom+` WHERE b.id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select booking %s", id)
	}
	return b, nil
}

// Cancel releases the seats and any promo redemption. Only confirmed bookings
// on rides that have not started can be cancelled.
func (s *Store) Cancel(ctx context.Context, id, passengerID types.ID) (*Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin cancel tx")
	}
	defer tx.Rollback(ctx)

	b, err := scanBooking(tx.QueryRow(ctx, `SELECT`+bookingColumns+bookingFrom+` WHERE b.id = $1 FOR UPDATE OF b`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select booking %s", id)
	}
	if b.PassengerID != passengerID {
		return nil, ErrForbidden
	}
	if b.Status != StatusConfirmed {
		return nil, ErrNotCancellable
	}

	tag, err := tx.Exec(ctx, `
		UPDATE rides
		SET seats_available = seats_available + $1
		WHERE id = $2 AND status = 'active'`,
		b.Seats, string(b.RideID),
	)
	if err != nil {
		return nil, errors.Wrap(err, "release seats")
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotCancellable
	}

	now := time.Now()
	if _, err := tx.Exec(ctx, `UPDATE bookings SET status = $1, cancelled_at = $2 WHERE id = $3`,
		string(StatusCancelled), now, string(b.ID)); err != nil {
		return nil, errors.Wrap(err, "cancel booking")
	}
	if b.PromoCodeID != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM promo_usages WHERE booking_id = $1`, string(b.ID)); err != nil {
			return nil, errors.Wrap(err, "release promo usage")
		}
		if _, err := tx.Exec(ctx, `UPDATE promo_codes SET used_count = GREATEST(used_count - 1, 0) WHERE id = $1`,
			string(*b.PromoCodeID)); err != nil {
			return nil, errors.Wrap(err, "decrement promo usage")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit cancel")
	}

	b.Status = StatusCancelled
	b.CancelledAt = &now
	return b, nil
}

func (s *Store) ListByPassenger(ctx context.Context, passengerID types.ID) ([]Booking, error) {
	rows, err := s.db.Query(ctx, `SELECT`+bookingColumns+bookingFrom+`
		WHERE b.passenger_id = $1
		ORDER BY b.created_at DESC`, string(passengerID))
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan booking")
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// CompletedRideCount counts confirmed bookings on completed rides.
func (s *Store) CompletedRideCount(ctx context.Context, passengerID types.ID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bookings b
		JOIN rides r ON r.id = b.ride_id
		WHERE b.passenger_id = $1 AND b.status = 'confirmed' AND r.status = 'completed'`,
		string(passengerID),
	).Scan(&n)
	return n, errors.Wrap(err, "count completed rides")
}

// PassengersForRide lists passengers holding a confirmed booking on the ride.
func (s *Store) PassengersForRide(ctx context.Context, rideID types.ID) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT passenger_id
		FROM bookings
		WHERE ride_id = $1 AND status = 'confirmed'`, string(rideID))
	if err != nil {
		return nil, errors.Wrap(err, "list ride passengers")
	}
	defer rows.Close()

	var out []types.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan passenger")
		}
		out = append(out, types.ID(id))
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var promoID *string
	var status string
	err := row.Scan(
		&b.ID, &b.RideID, &b.PassengerID, &b.Seats,
		&b.Subtotal, &b.PlatformFee, &b.Discount, &b.Total, &b.Currency,
		&promoID, &b.PromoCode, &status, &b.CreatedAt, &b.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if promoID != nil {
		id := types.ID(*promoID)
		b.PromoCodeID = &id
	}
	b.Status = Status(status)
	return &b, nil
}

func idPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
