// README: Admin operations on promo codes (create, list, deactivate).
package promo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"carpool/internal/types"
)

type AdminStore interface {
	Create(ctx context.Context, p *PromoCode) error
	List(ctx context.Context, limit, offset int) ([]PromoCode, error)
	Deactivate(ctx context.Context, code string) error
}

type AdminService struct {
	store AdminStore
	now   func() time.Time
}

func NewAdminService(store AdminStore) *AdminService {
	return &AdminService{store: store, now: time.Now}
}

type CreateCommand struct {
	Code            string
	DiscountType    DiscountType
	DiscountValue   float64
	MinRideAmount   *int64
	MaxDiscount     *int64
	IsFirstRideOnly bool
	ValidUntil      *time.Time
	UsageLimit      *int
	Description     string
}

func (s *AdminService) Create(ctx context.Context, cmd CreateCommand) (*PromoCode, error) {
	code, err := Canonicalize(cmd.Code)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPromo, err.Error())
	}
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}
	p := &PromoCode{
		ID:              types.NewID(),
		Code:            code,
		DiscountType:    cmd.DiscountType,
		DiscountValue:   cmd.DiscountValue,
		MinRideAmount:   cmd.MinRideAmount,
		MaxDiscount:     cmd.MaxDiscount,
		IsFirstRideOnly: cmd.IsFirstRideOnly,
		ValidUntil:      cmd.ValidUntil,
		UsageLimit:      cmd.UsageLimit,
		IsActive:        true,
		Description:     cmd.Description,
		CreatedAt:       s.now(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Str("promo_code", p.Code).Str("discount_type", string(p.DiscountType)).Msg("promo code created")
	return p, nil
}

func validateCreate(cmd CreateCommand) error {
	switch {
	case !cmd.DiscountType.Valid():
		return errors.Wrapf(ErrInvalidPromo, "unknown discount type %q", cmd.DiscountType)
	case cmd.DiscountValue < 0:
		return errors.Wrap(ErrInvalidPromo, "discount value must not be negative")
	case cmd.DiscountType == DiscountPercentage && cmd.DiscountValue > 100:
		return errors.Wrap(ErrInvalidPromo, "percentage must be between 0 and 100")
	case cmd.MinRideAmount != nil && *cmd.MinRideAmount < 0:
		return errors.Wrap(ErrInvalidPromo, "min ride amount must not be negative")
	case cmd.MaxDiscount != nil && *cmd.MaxDiscount < 0:
		return errors.Wrap(ErrInvalidPromo, "max discount must not be negative")
	case cmd.UsageLimit != nil && *cmd.UsageLimit < 0:
		return errors.Wrap(ErrInvalidPromo, "usage limit must not be negative")
	}
	return nil
}

func (s *AdminService) List(ctx context.Context, limit, offset int) ([]PromoCode, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}

func (s *AdminService) Deactivate(ctx context.Context, code string) error {
	canonical, err := Canonicalize(code)
	if err != nil {
		return ErrNotFound
	}
	if err := s.store.Deactivate(ctx, canonical); err != nil {
		return err
	}
	log.Info().Str("promo_code", canonical).Msg("promo code deactivated")
	return nil
}
