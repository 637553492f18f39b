// README: Pricing quote handler for drivers setting a seat price.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/modules/pricing"
)

// Quoter is satisfied by *pricing.Service.
type Quoter interface {
	QuoteDistance(distanceKm float64) (pricing.Quote, error)
	QuoteRoute(ctx context.Context, origin, destination string) (pricing.Quote, error)
}

type PricingHandler struct {
	quotes Quoter
}

func NewPricingHandler(q Quoter) *PricingHandler {
	return &PricingHandler{quotes: q}
}

type quoteReq struct {
	DistanceKm  *float64 `json:"distance_km"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
}

// Quote handles POST /api/pricing/quote. A supplied distance wins over the
// origin/destination pair.
func (h *PricingHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	var (
		q   pricing.Quote
		err error
	)
	if req.DistanceKm != nil {
		q, err = h.quotes.QuoteDistance(*req.DistanceKm)
	} else {
		q, err = h.quotes.QuoteRoute(c.Request.Context(), req.Origin, req.Destination)
	}
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}
