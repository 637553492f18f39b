// README: Device token store backed by PostgreSQL.
package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"carpool/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Upsert moves a token to the given user if another account registered it before.
func (s *Store) Upsert(ctx context.Context, t DeviceToken) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_tokens (token, user_id, platform, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = EXCLUDED.updated_at`,
		t.Token, string(t.UserID), t.Platform, t.UpdatedAt,
	)
	return errors.Wrap(err, "upsert device token")
}

func (s *Store) TokensForUsers(ctx context.Context, userIDs []types.ID) ([]DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
		SELECT token, user_id, platform, updated_at
		FROM device_tokens
		WHERE user_id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select device tokens")
	}
	defer rows.Close()

	var out []DeviceToken
	for rows.Next() {
		var t DeviceToken
		if err := rows.Scan(&t.Token, &t.UserID, &t.Platform, &t.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan device token")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM device_tokens WHERE token = $1`, token)
	return errors.Wrap(err, "delete device token")
}
