// README: Promo handlers: caller eligibility check and admin code management.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/promo"
	"carpool/internal/types"
)

// PromoChecker is satisfied by *booking.Service, which fills in the caller's
// completed-ride count before evaluating.
type PromoChecker interface {
	EvaluatePromo(ctx context.Context, passengerID types.ID, code string, subtotal int64) (*promo.Result, error)
}

// PromoAdmin is satisfied by *promo.AdminService.
type PromoAdmin interface {
	Create(ctx context.Context, cmd promo.CreateCommand) (*promo.PromoCode, error)
	List(ctx context.Context, limit, offset int) ([]promo.PromoCode, error)
	Deactivate(ctx context.Context, code string) error
}

type PromoHandler struct {
	checker PromoChecker
	admin   PromoAdmin
}

func NewPromoHandler(checker PromoChecker, admin PromoAdmin) *PromoHandler {
	return &PromoHandler{checker: checker, admin: admin}
}

type evaluatePromoReq struct {
	Code     string `json:"code"`
	Subtotal int64  `json:"subtotal"`
}

type evaluatePromoResp struct {
	Code         string             `json:"code"`
	DiscountType promo.DiscountType `json:"discount_type"`
	Discount     int64              `json:"discount"`
	Description  string             `json:"description,omitempty"`
}

// Evaluate handles POST /api/promos/evaluate. Nothing is redeemed.
func (h *PromoHandler) Evaluate(c *gin.Context) {
	var req evaluatePromoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.checker.EvaluatePromo(c.Request.Context(), types.ID(middleware.CallerUID(c)), req.Code, req.Subtotal)
	if err != nil {
		writePromoError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, evaluatePromoResp{
		Code:         res.Promo.Code,
		DiscountType: res.Promo.DiscountType,
		Discount:     res.Discount,
		Description:  res.Promo.Description,
	})
}

type createPromoReq struct {
	Code            string             `json:"code"`
	DiscountType    promo.DiscountType `json:"discount_type"`
	DiscountValue   float64            `json:"discount_value"`
	MinRideAmount   *int64             `json:"min_ride_amount"`
	MaxDiscount     *int64             `json:"max_discount"`
	IsFirstRideOnly bool               `json:"is_first_ride_only"`
	ValidUntil      *time.Time         `json:"valid_until"`
	UsageLimit      *int               `json:"usage_limit"`
	Description     string             `json:"description"`
}

// Create handles POST /api/admin/promos.
func (h *PromoHandler) Create(c *gin.Context) {
	var req createPromoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.admin.Create(c.Request.Context(), promo.CreateCommand(req))
	if err != nil {
		writeAdminPromoError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, p)
}

func (h *PromoHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	codes, err := h.admin.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeAdminPromoError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"promos": codes})
}

func (h *PromoHandler) Deactivate(c *gin.Context) {
	code := c.Param("code")
	if err := h.admin.Deactivate(c.Request.Context(), code); err != nil {
		writeAdminPromoError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"code": code, "is_active": false})
}
