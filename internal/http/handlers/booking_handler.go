// README: Booking handlers for passengers: preview, book, list, cancel.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/booking"
	"carpool/internal/types"
)

// BookingService is satisfied by *booking.Service.
type BookingService interface {
	Preview(ctx context.Context, cmd booking.BookCommand) (*booking.Booking, error)
	Book(ctx context.Context, cmd booking.BookCommand) (*booking.Booking, error)
	Get(ctx context.Context, id, passengerID types.ID) (*booking.Booking, error)
	Cancel(ctx context.Context, id, passengerID types.ID) (*booking.Booking, error)
	ListByPassenger(ctx context.Context, passengerID types.ID) ([]booking.Booking, error)
}

type BookingHandler struct {
	bookings BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{bookings: svc}
}

type bookReq struct {
	RideID    string `json:"ride_id"`
	Seats     int    `json:"seats"`
	PromoCode string `json:"promo_code"`
}

func (h *BookingHandler) command(c *gin.Context) (booking.BookCommand, bool) {
	var req bookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return booking.BookCommand{}, false
	}
	if !types.ID(req.RideID).Valid() {
		writeError(c, http.StatusBadRequest, "invalid ride_id")
		return booking.BookCommand{}, false
	}
	return booking.BookCommand{
		RideID:      types.ID(req.RideID),
		PassengerID: types.ID(middleware.CallerUID(c)),
		Seats:       req.Seats,
		PromoCode:   req.PromoCode,
	}, true
}

// Preview handles POST /api/bookings/preview: the price breakdown including
// any promo discount, without holding seats.
func (h *BookingHandler) Preview(c *gin.Context) {
	cmd, ok := h.command(c)
	if !ok {
		return
	}
	b, err := h.bookings.Preview(c.Request.Context(), cmd)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *BookingHandler) Create(c *gin.Context) {
	cmd, ok := h.command(c)
	if !ok {
		return
	}
	b, err := h.bookings.Book(c.Request.Context(), cmd)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, b)
}

func (h *BookingHandler) List(c *gin.Context) {
	list, err := h.bookings.ListByPassenger(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"bookings": list})
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id, types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Cancel(c.Request.Context(), id, types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"booking_id": b.ID, "status": b.Status})
}
