// README: Promo store backed by PostgreSQL (point lookups plus admin writes).
package promo

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"carpool/internal/types"
)

const promoColumns = `
	id, code, discount_type, discount_value, min_ride_amount, max_discount,
	is_first_ride_only, valid_until, usage_limit, used_count, is_active,
	description, created_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// FindActivePromoByCode filters on is_active in SQL so inactive codes look absent.
func (s *Store) FindActivePromoByCode(ctx context.Context, code string) (*PromoCode, error) {
	row := s.db.QueryRow(ctx, `SELECT`+promoColumns+`
		FROM promo_codes
		WHERE code = $1 AND is_active`, code)
	p, err := scanPromo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select promo code")
	}
	return p, nil
}

func (s *Store) FindUsageRecord(ctx context.Context, promoID, userID types.ID) (*UsageRecord, error) {
	var u UsageRecord
	var bookingID *string
	err := s.db.QueryRow(ctx, `
		SELECT id, promo_code_id, user_id, booking_id, created_at
		FROM promo_usages
		WHERE promo_code_id = $1 AND user_id = $2`,
		string(promoID), string(userID),
	).Scan(&u.ID, &u.PromoCodeID, &u.UserID, &bookingID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select promo usage")
	}
	if bookingID != nil {
		id := types.ID(*bookingID)
		u.BookingID = &id
	}
	return &u, nil
}

func (s *Store) Create(ctx context.Context, p *PromoCode) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO promo_codes (`+promoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(p.ID), p.Code, string(p.DiscountType), p.DiscountValue, p.MinRideAmount, p.MaxDiscount,
		p.IsFirstRideOnly, p.ValidUntil, p.UsageLimit, p.UsedCount, p.IsActive,
		p.Description, p.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return errors.Wrap(err, "insert promo code")
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]PromoCode, error) {
	rows, err := s.db.Query(ctx, `SELECT`+promoColumns+`
		FROM promo_codes
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list promo codes")
	}
	defer rows.Close()

	var out []PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan promo code")
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) Deactivate(ctx context.Context, code string) error {
	tag, err := s.db.Exec(ctx, `UPDATE promo_codes SET is_active = false WHERE code = $1`, code)
	if err != nil {
		return errors.Wrap(err, "deactivate promo code")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPromo(row pgx.Row) (*PromoCode, error) {
	var p PromoCode
	var discountType string
	var description *string
	var validUntil *time.Time
	err := row.Scan(
		&p.ID, &p.Code, &discountType, &p.DiscountValue, &p.MinRideAmount, &p.MaxDiscount,
		&p.IsFirstRideOnly, &validUntil, &p.UsageLimit, &p.UsedCount, &p.IsActive,
		&description, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.DiscountType = DiscountType(strings.ToLower(discountType))
	p.ValidUntil = validUntil
	if description != nil {
		p.Description = *description
	}
	return &p, nil
}
