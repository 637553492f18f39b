// README: Push token registration handler.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/types"
)

// DeviceRegistrar is satisfied by *notify.Service.
type DeviceRegistrar interface {
	Register(ctx context.Context, userID types.ID, token, platform string) error
}

type DeviceHandler struct {
	devices DeviceRegistrar
}

func NewDeviceHandler(svc DeviceRegistrar) *DeviceHandler {
	return &DeviceHandler{devices: svc}
}

type registerDeviceReq struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// Register handles PUT /api/devices.
func (h *DeviceHandler) Register(c *gin.Context) {
	var req registerDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.devices.Register(c.Request.Context(), types.ID(middleware.CallerUID(c)), req.Token, req.Platform); err != nil {
		writeNotifyError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
