// README: Support chat handler (token-guarded assistant relay).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/support"
)

const supportTimeout = 20 * time.Second

type SupportService interface {
	Chat(ctx context.Context, uid, message string, history []support.Turn) (*support.Reply, error)
}

type SupportHandler struct {
	support SupportService
}

func NewSupportHandler(svc SupportService) *SupportHandler {
	return &SupportHandler{support: svc}
}

type supportChatReq struct {
	Message string         `json:"message"`
	History []support.Turn `json:"history"`
}

// Chat handles POST /api/support/chat.
func (h *SupportHandler) Chat(c *gin.Context) {
	var req supportChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), supportTimeout)
	defer cancel()

	reply, err := h.support.Chat(ctx, middleware.CallerUID(c), req.Message, req.History)
	if err != nil {
		writeSupportError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, reply)
}
