// README: Entry point; loads config, wires services and runs the HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"carpool/internal/config"
	httptransport "carpool/internal/http"
	"carpool/internal/infra"
	"carpool/internal/maps"
	"carpool/internal/modules/booking"
	"carpool/internal/modules/notify"
	"carpool/internal/modules/pricing"
	"carpool/internal/modules/promo"
	"carpool/internal/modules/report"
	"carpool/internal/modules/ride"
	"carpool/internal/modules/search"
	"carpool/internal/modules/support"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	infra.NewLogger(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := infra.InitTracerProvider(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal().Msg("CARPOOL_FIREBASE_PROJECT_ID is required")
	}
	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("firebase init")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		log.Fatal().Err(err).Msg("firebase auth init")
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db init")
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	rideEvents := ride.NewKafkaPublisher(infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.RideTopic))
	defer rideEvents.Close()

	var (
		routes   pricing.RouteEstimator
		geocoder ride.Geocoder
	)
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("maps init")
		}
		routes, geocoder = routeSvc, routeSvc
	} else {
		log.Warn().Msg("maps api key not set; distances must be supplied by clients")
	}

	var assistant support.Assistant
	if cfg.AI.GeminiKey != "" {
		gemini, err := support.NewGeminiAssistant(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Fatal().Err(err).Msg("gemini init")
		}
		defer gemini.Close()
		assistant = gemini
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set; support chat disabled")
	}

	pricingSvc := pricing.NewService(routes, cfg.Pricing.Currency)

	rideStore := ride.NewStore(dbPool)
	rideSvc := ride.NewService(rideStore, search.NewStore(redisClient), pricingSvc, geocoder, rideEvents, cfg.Search)

	promoStore := promo.NewStore(dbPool)
	evaluator := promo.NewEvaluator(promoStore, cfg.Promo)

	bookingStore := booking.NewStore(dbPool)
	bookingSvc := booking.NewService(bookingStore, rideSvc, evaluator)

	notifySvc := notify.NewService(notify.NewStore(dbPool), bookingStore, nil)

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.Deps{
		Verifier:   verifier,
		Pricing:    pricingSvc,
		Rides:      rideSvc,
		Bookings:   bookingSvc,
		PromoAdmin: promo.NewAdminService(promoStore),
		Reports:    report.NewService(report.NewStore(dbPool)),
		Devices:    notifySvc,
		Support:    support.NewService(support.NewStore(dbPool), assistant),
	})

	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("api server")
	}
}
