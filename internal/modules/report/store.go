// README: Report store backed by PostgreSQL.
package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"carpool/internal/types"
)

const reportColumns = `
	id, reporter_id, ride_id, reported_user_id, reason, details,
	status, COALESCE(resolution, ''), created_at, resolved_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *Report) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reports (id, reporter_id, ride_id, reported_user_id, reason, details, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(r.ID), string(r.ReporterID), idPtr(r.RideID), idPtr(r.ReportedUserID),
		string(r.Reason), r.Details, string(r.Status), r.CreatedAt,
	)
	return errors.Wrap(err, "insert report")
}

// List returns reports newest first; an empty status means all.
func (s *Store) List(ctx context.Context, status Status, limit, offset int) ([]Report, error) {
	rows, err := s.db.Query(ctx, `SELECT`+reportColumns+`
		FROM reports
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, string(status), limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list reports")
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan report")
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Resolve closes an open report. Resolving twice returns ErrAlreadyResolved.
func (s *Store) Resolve(ctx context.Context, id types.ID, resolution string, at time.Time) (*Report, error) {
	r, err := scanReport(s.db.QueryRow(ctx, `
		UPDATE reports
		SET status = 'resolved', resolution = $2, resolved_at = $3
		WHERE id = $1 AND status = 'open'
		RETURNING`+reportColumns, string(id), resolution, at))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(err, "resolve report %s", id)
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1)`, string(id)).Scan(&exists); err != nil {
		return nil, errors.Wrapf(err, "lookup report %s", id)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrAlreadyResolved
}

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	var rideID, reportedID *string
	var reason, status string
	err := row.Scan(&r.ID, &r.ReporterID, &rideID, &reportedID, &reason, &r.Details,
		&status, &r.Resolution, &r.CreatedAt, &r.ResolvedAt)
	if err != nil {
		return nil, err
	}
	if rideID != nil {
		id := types.ID(*rideID)
		r.RideID = &id
	}
	if reportedID != nil {
		id := types.ID(*reportedID)
		r.ReportedUserID = &id
	}
	r.Reason = Reason(reason)
	r.Status = Status(status)
	return &r, nil
}

func idPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
