// README: Device push tokens registered by the mobile app.
package notify

import (
	"time"

	"carpool/internal/types"
)

type DeviceToken struct {
	Token     string    `json:"token"`
	UserID    types.ID  `json:"user_id"`
	Platform  string    `json:"platform"`
	UpdatedAt time.Time `json:"updated_at"`
}
