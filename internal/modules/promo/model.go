// README: Promo code aggregate, usage record and evaluation inputs/outputs.
package promo

import (
	"time"

	"carpool/internal/types"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// PromoCode is owned by the backend; the evaluator only reads it.
type PromoCode struct {
	ID              types.ID     `json:"id"`
	Code            string       `json:"code"`
	DiscountType    DiscountType `json:"discount_type"`
	DiscountValue   float64      `json:"discount_value"`
	MinRideAmount   *int64       `json:"min_ride_amount,omitempty"`
	MaxDiscount     *int64       `json:"max_discount,omitempty"`
	IsFirstRideOnly bool         `json:"is_first_ride_only"`
	ValidUntil      *time.Time   `json:"valid_until,omitempty"`
	UsageLimit      *int         `json:"usage_limit,omitempty"`
	UsedCount       int          `json:"used_count"`
	IsActive        bool         `json:"is_active"`
	Description     string       `json:"description,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// UsageRecord marks that a user redeemed a code; one per (code, user).
type UsageRecord struct {
	ID          types.ID  `json:"id"`
	PromoCodeID types.ID  `json:"promo_code_id"`
	UserID      types.ID  `json:"user_id"`
	BookingID   *types.ID `json:"booking_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EvaluationContext is supplied per request by the caller.
type EvaluationContext struct {
	Subtotal               int64
	UserID                 types.ID
	UserCompletedRideCount int
}

type Result struct {
	Promo    *PromoCode `json:"promo"`
	Discount int64      `json:"discount"`
}
