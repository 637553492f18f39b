// README: Safety/abuse report filed against a ride or a user.
package report

import (
	"time"

	"carpool/internal/types"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

type Reason string

const (
	ReasonSafety    Reason = "safety"
	ReasonNoShow    Reason = "no_show"
	ReasonBehaviour Reason = "behaviour"
	ReasonPayment   Reason = "payment"
	ReasonOther     Reason = "other"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonSafety, ReasonNoShow, ReasonBehaviour, ReasonPayment, ReasonOther:
		return true
	}
	return false
}

type Report struct {
	ID             types.ID   `json:"id"`
	ReporterID     types.ID   `json:"reporter_id"`
	RideID         *types.ID  `json:"ride_id,omitempty"`
	ReportedUserID *types.ID  `json:"reported_user_id,omitempty"`
	Reason         Reason     `json:"reason"`
	Details        string     `json:"details"`
	Status         Status     `json:"status"`
	Resolution     string     `json:"resolution,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}
