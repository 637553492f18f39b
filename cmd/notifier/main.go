// README: Ride status notifier; consumes ride.status from Kafka and pushes via FCM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"carpool/internal/config"
	"carpool/internal/infra"
	"carpool/internal/modules/booking"
	"carpool/internal/modules/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	infra.NewLogger(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := infra.InitTracerProvider("carpool-notifier", cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("firebase init")
	}
	fcm, err := infra.NewMessaging(ctx, app)
	if err != nil {
		log.Fatal().Err(err).Msg("fcm init")
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db init")
	}
	defer dbPool.Close()

	reader := infra.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.RideTopic, cfg.Kafka.GroupID)
	defer reader.Close()

	notifier := notify.NewService(notify.NewStore(dbPool), booking.NewStore(dbPool), fcm)
	consumer := notify.NewConsumer(reader, notifier)

	log.Info().Str("topic", cfg.Kafka.RideTopic).Str("group", cfg.Kafka.GroupID).Msg("notifier started")
	if err := consumer.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("notifier stopped")
	}
	log.Info().Msg("notifier stopped")
}
