// README: Promo evaluator runs the eligibility checks and computes the discount.
package promo

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"carpool/internal/config"
	"carpool/internal/modules/pricing"
	"carpool/internal/types"
)

const maxCodeLength = 50

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Repository is the read side the evaluator depends on. Both lookups return
// (nil, nil) when nothing matches.
type Repository interface {
	FindActivePromoByCode(ctx context.Context, code string) (*PromoCode, error)
	FindUsageRecord(ctx context.Context, promoID, userID types.ID) (*UsageRecord, error)
}

type Evaluator struct {
	repo    Repository
	timeout time.Duration
	now     func() time.Time
	tracer  trace.Tracer
}

func NewEvaluator(repo Repository, cfg config.PromoConfig) *Evaluator {
	timeout := cfg.EvaluateTimeout
	if timeout <= 0 {
		timeout = config.Default().Promo.EvaluateTimeout
	}
	return &Evaluator{
		repo:    repo,
		timeout: timeout,
		now:     time.Now,
		tracer:  otel.Tracer("carpool/promo"),
	}
}

// Canonicalize trims and upper-cases code, or fails with KindFormat.
func Canonicalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) == 0 || len(code) > maxCodeLength || !codePattern.MatchString(code) {
		return "", newError(KindFormat)
	}
	return strings.ToUpper(code), nil
}

// Evaluate checks code against ec and returns the discount it grants.
// Checks run in a fixed order and the first failure is returned as an
// *EligibilityError. Input validation happens before any repository call.
func (e *Evaluator) Evaluate(ctx context.Context, code string, ec EvaluationContext) (res *Result, err error) {
	ctx, span := e.tracer.Start(ctx, "promo.Evaluate")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("promo.rejection", string(KindOf(err))))
		} else {
			span.SetAttributes(attribute.Int64("promo.discount", res.Discount))
		}
		observeEvaluation(err)
		span.End()
	}()

	canonical, err := Canonicalize(code)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("promo.code", canonical),
		attribute.String("user.id", string(ec.UserID)),
		attribute.Int64("ride.subtotal", ec.Subtotal),
	)
	if ec.UserID == "" {
		return nil, newError(KindNotAuthenticated)
	}
	if ec.Subtotal < 0 {
		return nil, newError(KindInvalidAmount)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	promo, err := e.repo.FindActivePromoByCode(ctx, canonical)
	if err != nil {
		span.RecordError(err)
		return nil, backendError(errors.Wrap(err, "find promo code"))
	}
	if promo == nil || !promo.IsActive {
		return nil, newError(KindNotFound)
	}
	if promo.ValidUntil != nil && e.now().After(*promo.ValidUntil) {
		return nil, newError(KindExpired)
	}
	if promo.UsageLimit != nil && promo.UsedCount >= *promo.UsageLimit {
		return nil, newError(KindLimitReached)
	}
	if promo.MinRideAmount != nil && ec.Subtotal < *promo.MinRideAmount {
		return nil, &EligibilityError{Kind: KindBelowMinimum, MinAmount: *promo.MinRideAmount}
	}
	if promo.IsFirstRideOnly && ec.UserCompletedRideCount > 0 {
		return nil, newError(KindFirstRideOnly)
	}

	usage, err := e.repo.FindUsageRecord(ctx, promo.ID, ec.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, backendError(errors.Wrap(err, "find usage record"))
	}
	if usage != nil {
		return nil, newError(KindAlreadyUsed)
	}

	discount, err := Discount(promo, ec.Subtotal)
	if err != nil {
		return nil, backendError(err)
	}
	return &Result{Promo: promo, Discount: discount}, nil
}

// Discount computes the amount p takes off subtotal. Percentage discounts are
// capped by MaxDiscount first, then every discount is capped by subtotal.
func Discount(p *PromoCode, subtotal int64) (int64, error) {
	var raw int64
	var err error
	switch p.DiscountType {
	case DiscountPercentage:
		raw, err = pricing.PercentageDiscount(subtotal, p.DiscountValue)
		if err != nil {
			return 0, errors.Wrapf(err, "promo %s percentage", p.Code)
		}
		if p.MaxDiscount != nil && raw > *p.MaxDiscount {
			raw = *p.MaxDiscount
		}
	case DiscountFixed:
		raw, err = pricing.Units(p.DiscountValue)
		if err != nil {
			return 0, errors.Wrapf(err, "promo %s fixed value", p.Code)
		}
	default:
		return 0, errors.Errorf("promo %s has unknown discount type %q", p.Code, p.DiscountType)
	}
	return pricing.ClampDiscount(raw, subtotal), nil
}
