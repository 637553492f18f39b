// README: Ride handlers: publish, search, get and driver status transitions.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/ride"
	"carpool/internal/types"
)

// RideService is satisfied by *ride.Service.
type RideService interface {
	Publish(ctx context.Context, cmd ride.PublishCommand) (*ride.Ride, error)
	Get(ctx context.Context, id types.ID) (*ride.Ride, error)
	ListByDriver(ctx context.Context, driverID types.ID) ([]ride.Ride, error)
	Search(ctx context.Context, q ride.SearchQuery) ([]ride.Ride, error)
	Start(ctx context.Context, rideID, driverID types.ID) (*ride.Ride, error)
	Complete(ctx context.Context, rideID, driverID types.ID) (*ride.Ride, error)
	Cancel(ctx context.Context, rideID, driverID types.ID) (*ride.Ride, error)
}

type RideHandler struct {
	rides RideService
}

func NewRideHandler(svc RideService) *RideHandler {
	return &RideHandler{rides: svc}
}

type publishRideReq struct {
	Origin       types.Place `json:"origin"`
	Destination  types.Place `json:"destination"`
	DepartAt     time.Time   `json:"depart_at"`
	Seats        int         `json:"seats"`
	PricePerSeat int64       `json:"price_per_seat"`
	DistanceKm   float64     `json:"distance_km"`
}

// Publish handles POST /api/rides (driver role).
func (h *RideHandler) Publish(c *gin.Context) {
	var req publishRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.rides.Publish(c.Request.Context(), ride.PublishCommand{
		DriverID:     types.ID(middleware.CallerUID(c)),
		Origin:       req.Origin,
		Destination:  req.Destination,
		DepartAt:     req.DepartAt,
		Seats:        req.Seats,
		PricePerSeat: req.PricePerSeat,
		DistanceKm:   req.DistanceKm,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

// Search handles GET /api/rides?lat=&lng=&dest_lat=&dest_lng=&radius_km=&destination=&date=YYYY-MM-DD&seats=&limit=.
func (h *RideHandler) Search(c *gin.Context) {
	q := ride.SearchQuery{Destination: strings.TrimSpace(c.Query("destination"))}

	lat, lng := c.Query("lat"), c.Query("lng")
	if lat != "" || lng != "" {
		p, ok := parsePoint(lat, lng)
		if !ok {
			writeError(c, http.StatusBadRequest, "invalid lat/lng")
			return
		}
		q.Near = &p
	}
	dlat, dlng := c.Query("dest_lat"), c.Query("dest_lng")
	if dlat != "" || dlng != "" {
		p, ok := parsePoint(dlat, dlng)
		if !ok {
			writeError(c, http.StatusBadRequest, "invalid dest_lat/dest_lng")
			return
		}
		q.DestinationNear = &p
	}
	if v := c.Query("radius_km"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil || km <= 0 {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		q.RadiusKm = km
	}
	if v := c.Query("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		q.Date = &d
	}
	var ok bool
	if q.Seats, ok = queryInt(c, "seats", 1); !ok {
		return
	}
	if q.Limit, ok = queryInt(c, "limit", 0); !ok {
		return
	}

	rides, err := h.rides.Search(c.Request.Context(), q)
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"rides": rides})
}

func parsePoint(lat, lng string) (types.Point, bool) {
	la, err1 := strconv.ParseFloat(lat, 64)
	ln, err2 := strconv.ParseFloat(lng, 64)
	if err1 != nil || err2 != nil || la < -90 || la > 90 || ln < -180 || ln > 180 {
		return types.Point{}, false
	}
	return types.Point{Lat: la, Lng: ln}, true
}

func (h *RideHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.rides.Get(c.Request.Context(), id)
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

// Mine handles GET /api/rides/mine (driver role).
func (h *RideHandler) Mine(c *gin.Context) {
	rides, err := h.rides.ListByDriver(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"rides": rides})
}

func (h *RideHandler) Start(c *gin.Context) {
	h.transition(c, h.rides.Start)
}

func (h *RideHandler) Complete(c *gin.Context) {
	h.transition(c, h.rides.Complete)
}

func (h *RideHandler) Cancel(c *gin.Context) {
	h.transition(c, h.rides.Cancel)
}

func (h *RideHandler) transition(c *gin.Context, fn func(ctx context.Context, rideID, driverID types.ID) (*ride.Ride, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := fn(c.Request.Context(), id, types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"ride_id": r.ID, "status": r.Status})
}
