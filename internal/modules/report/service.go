// README: Report service validates, files and resolves reports.
package report

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"carpool/internal/types"
)

const maxDetailsLength = 2000

var (
	ErrNotFound        = errors.New("report not found")
	ErrAlreadyResolved = errors.New("report already resolved")
	ErrBadRequest      = errors.New("bad request")
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	List(ctx context.Context, status Status, limit, offset int) ([]Report, error)
	Resolve(ctx context.Context, id types.ID, resolution string, at time.Time) (*Report, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type CreateCommand struct {
	ReporterID     types.ID
	RideID         *types.ID
	ReportedUserID *types.ID
	Reason         Reason
	Details        string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Report, error) {
	switch {
	case cmd.ReporterID == "":
		return nil, errors.Wrap(ErrBadRequest, "reporter is required")
	case cmd.RideID == nil && cmd.ReportedUserID == nil:
		return nil, errors.Wrap(ErrBadRequest, "a ride or a user must be reported")
	case cmd.ReportedUserID != nil && *cmd.ReportedUserID == cmd.ReporterID:
		return nil, errors.Wrap(ErrBadRequest, "cannot report yourself")
	case !cmd.Reason.Valid():
		return nil, errors.Wrapf(ErrBadRequest, "unknown reason %q", cmd.Reason)
	case len(cmd.Details) > maxDetailsLength:
		return nil, errors.Wrapf(ErrBadRequest, "details longer than %d characters", maxDetailsLength)
	}

	r := &Report{
		ID:             types.NewID(),
		ReporterID:     cmd.ReporterID,
		RideID:         cmd.RideID,
		ReportedUserID: cmd.ReportedUserID,
		Reason:         cmd.Reason,
		Details:        strings.TrimSpace(cmd.Details),
		Status:         StatusOpen,
		CreatedAt:      s.now(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	log.Info().Str("report_id", r.ID.String()).Str("reason", string(r.Reason)).Msg("report filed")
	return r, nil
}

func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]Report, error) {
	if status != "" && status != StatusOpen && status != StatusResolved {
		return nil, errors.Wrapf(ErrBadRequest, "unknown status %q", status)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) Resolve(ctx context.Context, id types.ID, resolution string) (*Report, error) {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, errors.Wrap(ErrBadRequest, "resolution is required")
	}
	r, err := s.repo.Resolve(ctx, id, resolution, s.now())
	if err != nil {
		return nil, err
	}
	log.Info().Str("report_id", r.ID.String()).Msg("report resolved")
	return r, nil
}
