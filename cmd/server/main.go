package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/app"
	"github.com/preetsinghmakkar/CampusConnect/internal/config"
	"github.com/preetsinghmakkar/CampusConnect/internal/database"
	"github.com/preetsinghmakkar/CampusConnect/internal/events"
	"github.com/preetsinghmakkar/CampusConnect/internal/handlers"
	"github.com/preetsinghmakkar/CampusConnect/internal/logger"
	"github.com/preetsinghmakkar/CampusConnect/internal/presence"
	"github.com/preetsinghmakkar/CampusConnect/internal/repositories"
	"github.com/preetsinghmakkar/CampusConnect/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load")
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := app.Deps{Config: cfg, Log: log}
	var closers []func() error

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.OpenPostgres(ctx, cfg.Database.PostgresDSN, cfg.Database.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres")
		}
		closers = append(closers, db.Close)

		if err := database.Migrate(ctx, db, log); err != nil {
			log.Fatal().Err(err).Msg("migrations")
		}

		deps.Sessions = repositories.NewPostgresSessionRepository(db)
		deps.Messages = repositories.NewPostgresMessageRepository(db)
		deps.HealthChecks = append(deps.HealthChecks, handlers.HealthCheck{Name: "postgres", Check: db.PingContext})

	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.Database.MongoURI, cfg.Database.MongoName, cfg.Database.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("mongo")
		}
		closers = append(closers, func() error { return client.Disconnect(context.Background()) })

		sessionRepo := repositories.NewMongoSessionRepository(db)
		messageRepo := repositories.NewMongoMessageRepository(db)
		if err := sessionRepo.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("session indexes")
		}
		if err := messageRepo.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("message indexes")
		}

		deps.Sessions = sessionRepo
		deps.Messages = messageRepo
		deps.HealthChecks = append(deps.HealthChecks, handlers.HealthCheck{
			Name:  "mongo",
			Check: func(ctx context.Context) error { return client.Ping(ctx, nil) },
		})

	default:
		log.Warn().Msg("using in-memory store, data is lost on restart")
	}

	var broker *presence.RedisBroker
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		closers = append(closers, rdb.Close)

		broker = presence.NewRedisBroker(rdb, cfg.Redis.Channel, log)
		deps.Registry = presence.NewRedisRegistry(rdb, "campusconnect", cfg.Redis.PresenceTTL)
		deps.Broker = broker
		deps.HealthChecks = append(deps.HealthChecks, handlers.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		closers = append(closers, kafkaPublisher.Close)
		deps.Publishers = append(deps.Publishers, kafkaPublisher)
	}

	if cfg.Payments.Enabled() {
		deps.PaymentGateway = services.NewRazorpayGateway(
			cfg.Payments.RazorpayKeyID,
			cfg.Payments.RazorpayKeySecret,
			cfg.Payments.WebhookSecret,
		)
	} else {
		log.Warn().Msg("razorpay not configured, only the direct payment route is available")
	}

	server := app.New(deps)

	if broker != nil {
		go func() {
			if err := broker.Subscribe(ctx, server.Hub.DeliverEnvelope); err != nil {
				log.Error().Err(err).Msg("relay subscription stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("driver", cfg.Database.Driver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	server.Hub.Close()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			log.Warn().Err(err).Msg("close dependency")
		}
	}
	log.Info().Msg("server stopped")
}
