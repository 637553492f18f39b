// README: Pure price arithmetic: platform fee, caps, seat totals and discounts.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// All amounts are whole currency units. Rounding is half-up, which for the
// non-negative inputs accepted here is what decimal.Round(0) does.

// PlatformFee is the platform's 10% cut on a driver price.
func PlatformFee(driverPrice int64) (int64, error) {
	if driverPrice < 0 {
		return 0, ErrNegativeInput
	}
	return roundUnits(decimal.NewFromInt(driverPrice).Mul(feeRate)), nil
}

// FinalPrice is what the passenger sees for one seat.
func FinalPrice(driverPrice int64) (int64, error) {
	fee, err := PlatformFee(driverPrice)
	if err != nil {
		return 0, err
	}
	return driverPrice + fee, nil
}

// MaxAllowedPrice caps a seat price at 5 units per km.
func MaxAllowedPrice(distanceKm float64) (int64, error) {
	d, err := distance(distanceKm)
	if err != nil {
		return 0, err
	}
	return roundUnits(d.Mul(maxPerKm)), nil
}

// SuggestedPrice is the 4-units-per-km default offered to drivers.
func SuggestedPrice(distanceKm float64) (int64, error) {
	d, err := distance(distanceKm)
	if err != nil {
		return 0, err
	}
	return roundUnits(d.Mul(suggestedPerKm)), nil
}

// ValidatePrice reports whether price respects the per-km cap for the distance.
func ValidatePrice(price int64, distanceKm float64) (bool, error) {
	if price < 0 {
		return false, ErrNegativeInput
	}
	maxPrice, err := MaxAllowedPrice(distanceKm)
	if err != nil {
		return false, err
	}
	return price <= maxPrice, nil
}

// TotalForSeats charges the fee on the whole subtotal, not per seat, so the
// result can differ by one unit from seats * FinalPrice(pricePerSeat).
func TotalForSeats(pricePerSeat int64, seats int) (SeatTotal, error) {
	if pricePerSeat < 0 || seats < 0 {
		return SeatTotal{}, ErrNegativeInput
	}
	subtotal := pricePerSeat * int64(seats)
	fee := roundUnits(decimal.NewFromInt(subtotal).Mul(feeRate))
	return SeatTotal{
		Subtotal:    subtotal,
		PlatformFee: fee,
		TotalPrice:  subtotal + fee,
	}, nil
}

// PercentageDiscount returns round(amount * percent / 100).
func PercentageDiscount(amount int64, percent float64) (int64, error) {
	if amount < 0 || percent < 0 || math.IsNaN(percent) || math.IsInf(percent, 0) {
		return 0, ErrNegativeInput
	}
	return roundUnits(decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(percent)).Div(hundred)), nil
}

// ClampDiscount bounds a raw discount to [0, subtotal] so totals never go negative.
func ClampDiscount(raw, subtotal int64) int64 {
	if raw < 0 {
		return 0
	}
	if raw > subtotal {
		return subtotal
	}
	return raw
}

// Units rounds a non-negative amount such as a fixed promo value to whole units.
func Units(amount float64) (int64, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrNegativeInput
	}
	return roundUnits(decimal.NewFromFloat(amount)), nil
}

func distance(km float64) (decimal.Decimal, error) {
	if km < 0 || math.IsNaN(km) || math.IsInf(km, 0) {
		return decimal.Zero, ErrNegativeInput
	}
	return decimal.NewFromFloat(km), nil
}

func roundUnits(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
