// README: Ride aggregate, status flow and the status event published on transitions.
package ride

import (
	"time"

	"carpool/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusActive    Status = "active"
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Ride struct {
	ID             types.ID    `json:"id"`
	DriverID       types.ID    `json:"driver_id"`
	Origin         types.Place `json:"origin"`
	Destination    types.Place `json:"destination"`
	DepartAt       time.Time   `json:"depart_at"`
	SeatsTotal     int         `json:"seats_total"`
	SeatsAvailable int         `json:"seats_available"`
	PricePerSeat   types.Money `json:"price_per_seat"`
	DistanceKm     float64     `json:"distance_km"`
	Status         Status      `json:"status"`
	StatusVersion  int         `json:"status_version"`
	CreatedAt      time.Time   `json:"created_at"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	CancelledAt    *time.Time  `json:"cancelled_at,omitempty"`
}

// Bookable reports whether seats can still be booked at now.
func (r *Ride) Bookable(now time.Time) bool {
	return r.Status == StatusActive && r.SeatsAvailable > 0 && r.DepartAt.After(now)
}

type Event struct {
	ID         int64
	RideID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorID    *types.ID
	CreatedAt  time.Time
}

// StatusEvent is the message written to the ride status topic.
type StatusEvent struct {
	RideID      types.ID  `json:"ride_id"`
	DriverID    types.ID  `json:"driver_id"`
	From        Status    `json:"from"`
	To          Status    `json:"to"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartAt    time.Time `json:"depart_at"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// AllowedTransitions is the ride status flow.
var AllowedTransitions = map[Status][]Status{
	StatusNone:    {StatusActive},
	StatusActive:  {StatusStarted, StatusCancelled},
	StatusStarted: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
