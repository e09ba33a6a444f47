package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/srgjo27/puja_booking/internal/adapter/cache"
	"github.com/srgjo27/puja_booking/internal/adapter/handler"
	"github.com/srgjo27/puja_booking/internal/adapter/lock"
	"github.com/srgjo27/puja_booking/internal/adapter/messaging/rabbitmq"
	"github.com/srgjo27/puja_booking/internal/adapter/repository/memory"
	"github.com/srgjo27/puja_booking/internal/adapter/repository/postgres"
	"github.com/srgjo27/puja_booking/internal/core/ports"
	"github.com/srgjo27/puja_booking/internal/core/services"
	"github.com/srgjo27/puja_booking/internal/platform/config"
	"github.com/srgjo27/puja_booking/internal/platform/database"
	"github.com/srgjo27/puja_booking/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Fatal("server exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logg *zap.Logger) error {
	var (
		bookings   ports.BookingRepository
		locker     ports.BookingLocker
		breakdowns ports.BreakdownCache
	)

	switch cfg.StorageDriver {
	case "postgres":
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:            cfg.DB.Host,
			Port:            cfg.DB.Port,
			User:            cfg.DB.User,
			Password:        cfg.DB.Password,
			DBName:          cfg.DB.Name,
			SSLMode:         cfg.DB.SSLMode,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		}, logg)
		if err != nil {
			return err
		}
		defer closeDB(db, logg)

		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		bookings = postgres.NewBookingRepository(db)
	default:
		logg.Warn("using in-memory storage; bookings are lost on restart")
		bookings = memory.NewBookingRepository()
	}

	if cfg.LockDriver == "redis" {
		logg.Info("connecting to redis", zap.String("addr", cfg.Redis.Addr()))

		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr(),
			DB:   cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		defer redisClient.Close()
		logg.Info("redis connected")

		locker = lock.NewRedisLocker(redisClient, lock.RedisOptions{
			TTL:  cfg.Redis.LockTTL,
			Wait: cfg.Redis.LockWait,
		}, logg)
		breakdowns = cache.NewBreakdownCache(redisClient, cfg.Redis.BreakdownTTL)
	} else {
		locker = lock.NewLocalLocker()
	}

	var (
		notifier    ports.Notifier           = rabbitmq.LogOnly{Log: logg}
		obligations ports.ObligationRecorder = rabbitmq.LogOnly{Log: logg}
	)
	if cfg.RabbitMQ.URL != "" {
		conn, ch, err := rabbitmq.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		defer conn.Close()

		pub, err := rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange, logg)
		if err != nil {
			return err
		}
		notifier, obligations = pub, pub
	}

	policy, err := cfg.Booking.RefundPolicy()
	if err != nil {
		return err
	}

	bookingService := services.NewBookingService(services.Dependencies{
		Bookings:    bookings,
		Locker:      locker,
		Rates:       config.NewStaticRates(cfg.Rates.Sheet()),
		Notifier:    notifier,
		Obligations: obligations,
		Cache:       breakdowns,
		Logger:      logg,
	}, services.Config{
		RequestWindow:   cfg.Booking.RequestWindow,
		BoundaryTimeout: cfg.Booking.BoundaryTimeout,
		RefundPolicy:    policy,
	})

	if cfg.Booking.SweepEnabled {
		go bookingService.RunExpirySweeper(ctx, cfg.Booking.SweepInterval)
	}
	if cfg.RabbitMQ.URL != "" {
		consumer := rabbitmq.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.PaymentFactQueue, bookingService, logg)
		go consumer.Run(ctx)
	}

	mux := http.NewServeMux()
	handler.NewBookingHandler(bookingService, logg).Register(mux)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("server starting", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logg.Info("server exiting")
	return nil
}

func closeDB(db *sql.DB, logg *zap.Logger) {
	if err := db.Close(); err != nil {
		logg.Warn("failed to close database", zap.Error(err))
	}
}
