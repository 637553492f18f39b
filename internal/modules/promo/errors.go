// README: Eligibility error taxonomy returned by the evaluator.
package promo

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindFormat           Kind = "format"
	KindInvalidAmount    Kind = "invalid_amount"
	KindNotAuthenticated Kind = "not_authenticated"
	KindNotFound         Kind = "not_found"
	KindExpired          Kind = "expired"
	KindLimitReached     Kind = "limit_reached"
	KindBelowMinimum     Kind = "below_minimum"
	KindFirstRideOnly    Kind = "first_ride_only"
	KindAlreadyUsed      Kind = "already_used"
	KindBackend          Kind = "backend"
)

var (
	ErrInvalidPromo  = errors.New("invalid promo code definition")
	ErrDuplicateCode = errors.New("promo code already exists")
	ErrNotFound      = errors.New("promo code not found")
	ErrBusy          = errors.New("promo evaluation already in progress")
	ErrSuperseded    = errors.New("promo evaluation superseded by a newer request")
)

// EligibilityError is the single error an evaluation ends with.
// MinAmount is only set for KindBelowMinimum; Err only for KindBackend.
type EligibilityError struct {
	Kind      Kind
	MinAmount int64
	Err       error
}

func (e *EligibilityError) Error() string {
	switch e.Kind {
	case KindFormat:
		return "promo code must be 1-50 letters, digits, '-' or '_'"
	case KindInvalidAmount:
		return "ride amount must not be negative"
	case KindNotAuthenticated:
		return "sign in to apply a promo code"
	case KindNotFound:
		return "invalid promo code"
	case KindExpired:
		return "promo code has expired"
	case KindLimitReached:
		return "promo code usage limit reached"
	case KindBelowMinimum:
		return fmt.Sprintf("minimum ride amount of %d required for this promo code", e.MinAmount)
	case KindFirstRideOnly:
		return "promo code is valid only on your first ride"
	case KindAlreadyUsed:
		return "you have already used this promo code"
	default:
		return "failed to apply promo code"
	}
}

func (e *EligibilityError) Unwrap() error {
	return e.Err
}

func newError(kind Kind) *EligibilityError {
	return &EligibilityError{Kind: kind}
}

func backendError(err error) *EligibilityError {
	return &EligibilityError{Kind: KindBackend, Err: err}
}

// KindOf returns the eligibility kind of err, or "" if err is not one.
func KindOf(err error) Kind {
	var e *EligibilityError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an EligibilityError of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
