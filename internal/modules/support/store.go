// README: Monthly support-chat quota in PostgreSQL with a lazy month reset.
package support

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type Store struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) month() string {
	return s.now().UTC().Format("2006-01")
}

// UseToken deducts one token, resetting the allowance first when the stored
// month is behind. Returns ErrInsufficientTokens when nothing was updated,
// which also covers a missing row.
func (s *Store) UseToken(ctx context.Context, uid string) (int, error) {
	var remaining int
	err := s.db.QueryRow(ctx, `
		UPDATE support_usage SET
			tokens_remaining = CASE WHEN last_reset_month <> $1 THEN $2 - 1 ELSE tokens_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR tokens_remaining > 0)
		RETURNING tokens_remaining`, s.month(), DefaultTokens, uid,
	).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientTokens
	}
	if err != nil {
		return 0, errors.Wrap(err, "use support token")
	}
	return remaining, nil
}

func (s *Store) EnsureUser(ctx context.Context, uid string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO support_usage (uid, tokens_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING`, uid, DefaultTokens, s.month())
	return errors.Wrap(err, "ensure support usage row")
}

// Refund gives back a token consumed by a request the assistant could not answer.
func (s *Store) Refund(ctx context.Context, uid string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE support_usage
		SET tokens_remaining = LEAST(tokens_remaining + 1, $2)
		WHERE uid = $1 AND last_reset_month = $3`, uid, DefaultTokens, s.month())
	return errors.Wrap(err, "refund support token")
}
