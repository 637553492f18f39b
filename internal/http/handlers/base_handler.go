// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"carpool/internal/maps"
	"carpool/internal/modules/booking"
	"carpool/internal/modules/notify"
	"carpool/internal/modules/pricing"
	"carpool/internal/modules/promo"
	"carpool/internal/modules/report"
	"carpool/internal/modules/ride"
	"carpool/internal/modules/support"
	"carpool/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
	// Kind is set for promo eligibility failures.
	Kind      promo.Kind `json:"kind,omitempty"`
	MinAmount int64      `json:"min_amount,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	writeError(c, http.StatusInternalServerError, "internal error")
}

// pathID reads a UUID path parameter, writing 400 when it is malformed.
func pathID(c *gin.Context, name string) (types.ID, bool) {
	id := types.ID(c.Param(name))
	if !id.Valid() {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

func writePromoError(c *gin.Context, err error) {
	var e *promo.EligibilityError
	if !errors.As(err, &e) {
		writeInternal(c, err)
		return
	}
	status := http.StatusUnprocessableEntity
	switch e.Kind {
	case promo.KindFormat, promo.KindInvalidAmount:
		status = http.StatusBadRequest
	case promo.KindNotAuthenticated:
		status = http.StatusUnauthorized
	case promo.KindNotFound:
		status = http.StatusNotFound
	case promo.KindBackend:
		_ = c.Error(err)
		log.Error().Err(err).Msg("promo evaluation backend failure")
		status = http.StatusServiceUnavailable
	}
	writeJSON(c, status, errorResponse{Error: e.Error(), Kind: e.Kind, MinAmount: e.MinAmount})
}

func writePricingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricing.ErrNegativeInput), errors.Is(err, pricing.ErrInvalidDestination):
		writeError(c, http.StatusBadRequest, errors.Cause(err).Error())
	case errors.Is(err, maps.ErrNoRoute):
		writeError(c, http.StatusUnprocessableEntity, maps.ErrNoRoute.Error())
	case errors.Is(err, pricing.ErrRoutesUnavailable):
		writeError(c, http.StatusServiceUnavailable, pricing.ErrRoutesUnavailable.Error())
	default:
		writeInternal(c, err)
	}
}

func writeRideError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ride.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ride.ErrPriceTooHigh):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ride.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ride.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ride.ErrInvalidState), errors.Is(err, ride.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, pricing.ErrNegativeInput), errors.Is(err, pricing.ErrInvalidDestination),
		errors.Is(err, pricing.ErrRoutesUnavailable), errors.Is(err, maps.ErrNoRoute):
		writePricingError(c, err)
	default:
		writeInternal(c, err)
	}
}

func writeBookingError(c *gin.Context, err error) {
	if promo.KindOf(err) != "" {
		writePromoError(c, err)
		return
	}
	switch {
	case errors.Is(err, booking.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, ride.ErrNotFound):
		writeError(c, http.StatusNotFound, errors.Cause(err).Error())
	case errors.Is(err, booking.ErrForbidden), errors.Is(err, booking.ErrOwnRide):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrNoSeats), errors.Is(err, booking.ErrRideUnavailable),
		errors.Is(err, booking.ErrNotCancellable):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeAdminPromoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, promo.ErrInvalidPromo):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, promo.ErrDuplicateCode):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, promo.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, report.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, report.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, report.ErrAlreadyResolved):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeNotifyError(c *gin.Context, err error) {
	if errors.Is(err, notify.ErrBadRequest) {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	writeInternal(c, err)
}

func writeSupportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, support.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, support.ErrInsufficientTokens):
		writeError(c, http.StatusTooManyRequests, support.ErrInsufficientTokens.Error())
	case errors.Is(err, support.ErrUnavailable):
		writeError(c, http.StatusServiceUnavailable, support.ErrUnavailable.Error())
	default:
		writeInternal(c, err)
	}
}
