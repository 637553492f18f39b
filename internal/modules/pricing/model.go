// README: Pricing constants, results and errors.
package pricing

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrNegativeInput      = errors.New("pricing input must not be negative")
	ErrRoutesUnavailable  = errors.New("route estimation is not configured")
	ErrInvalidDestination = errors.New("origin and destination are required")
)

var (
	// feeRate is the marketplace commission on the driver-set price.
	feeRate = decimal.RequireFromString("0.10")
	// maxPerKm caps the per-seat price a driver may publish.
	maxPerKm = decimal.NewFromInt(5)
	// suggestedPerKm is the price offered to drivers as a starting point.
	suggestedPerKm = decimal.NewFromInt(4)
	hundred        = decimal.NewFromInt(100)
)

// SeatTotal is what a passenger pays for a number of seats before any promo.
type SeatTotal struct {
	Subtotal    int64 `json:"subtotal"`
	PlatformFee int64 `json:"platform_fee"`
	TotalPrice  int64 `json:"total_price"`
}

// Quote describes the price bounds for a route.
type Quote struct {
	DistanceKm      float64 `json:"distance_km"`
	SuggestedPrice  int64   `json:"suggested_price"`
	MaxAllowedPrice int64   `json:"max_allowed_price"`
	PlatformFee     int64   `json:"platform_fee"`
	PassengerPrice  int64   `json:"passenger_price"`
	Currency        string  `json:"currency"`
}
