// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carpool/internal/http/handlers"
	"carpool/internal/http/middleware"
	"carpool/internal/infra"
)

const (
	roleDriver = "driver"
	roleAdmin  = "admin"
)

// Deps are the services behind the API. Every field is required.
type Deps struct {
	Verifier infra.TokenVerifier
	Pricing  handlers.Quoter
	Rides    handlers.RideService
	Bookings interface {
		handlers.BookingService
		handlers.PromoChecker
	}
	PromoAdmin handlers.PromoAdmin
	Reports    handlers.ReportService
	Devices    handlers.DeviceRegistrar
	Support    handlers.SupportService
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))
	driverOnly := middleware.RequireRole(roleDriver)

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	api.POST("/pricing/quote", pricingHandler.Quote)

	rideHandler := handlers.NewRideHandler(deps.Rides)
	api.POST("/rides", driverOnly, rideHandler.Publish)
	api.GET("/rides", rideHandler.Search)
	api.GET("/rides/mine", driverOnly, rideHandler.Mine)
	api.GET("/rides/:id", rideHandler.Get)
	api.POST("/rides/:id/start", driverOnly, rideHandler.Start)
	api.POST("/rides/:id/complete", driverOnly, rideHandler.Complete)
	api.POST("/rides/:id/cancel", driverOnly, rideHandler.Cancel)

	promoHandler := handlers.NewPromoHandler(deps.Bookings, deps.PromoAdmin)
	api.POST("/promos/evaluate", promoHandler.Evaluate)

	bookingHandler := handlers.NewBookingHandler(deps.Bookings)
	api.POST("/bookings/preview", bookingHandler.Preview)
	api.POST("/bookings", bookingHandler.Create)
	api.GET("/bookings", bookingHandler.List)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)

	reportHandler := handlers.NewReportHandler(deps.Reports)
	api.POST("/reports", reportHandler.Create)

	deviceHandler := handlers.NewDeviceHandler(deps.Devices)
	api.PUT("/devices", deviceHandler.Register)

	supportHandler := handlers.NewSupportHandler(deps.Support)
	api.POST("/support/chat", supportHandler.Chat)

	admin := api.Group("/admin", middleware.RequireRole(roleAdmin))
	admin.POST("/promos", promoHandler.Create)
	admin.GET("/promos", promoHandler.List)
	admin.POST("/promos/:code/deactivate", promoHandler.Deactivate)
	admin.GET("/reports", reportHandler.List)
	admin.POST("/reports/:id/resolve", reportHandler.Resolve)

	return r
}
