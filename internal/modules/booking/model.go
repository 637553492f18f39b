// README: Booking aggregate: seats held on a ride with the price breakdown charged.
package booking

import (
	"time"

	"carpool/internal/types"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Booking stores the breakdown at booking time: Total = Subtotal + PlatformFee - Discount.
type Booking struct {
	ID          types.ID   `json:"id"`
	RideID      types.ID   `json:"ride_id"`
	PassengerID types.ID   `json:"passenger_id"`
	Seats       int        `json:"seats"`
	Subtotal    int64      `json:"subtotal"`
	PlatformFee int64      `json:"platform_fee"`
	Discount    int64      `json:"discount"`
	Total       int64      `json:"total"`
	Currency    string     `json:"currency"`
	PromoCodeID *types.ID  `json:"promo_code_id,omitempty"`
	PromoCode   string     `json:"promo_code,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// Redemption is written with the booking when a promo code applied.
type Redemption struct {
	PromoCodeID types.ID
	UserID      types.ID
}
