package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventory-payments/internal/client"
	"eventory-payments/internal/config"
	"eventory-payments/internal/middleware"
	"eventory-payments/internal/ratelimit"
	"eventory-payments/internal/repository"
	"eventory-payments/internal/server"
	"eventory-payments/internal/service"
	"eventory-payments/internal/signature"
	"eventory-payments/internal/worker"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(&cfg.Log)

	if err := run(cfg); err != nil {
		logrus.WithError(err).Fatal("service stopped")
	}
}

func setupLogging(cfg *config.Log) {
	if cfg.Format == "text" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		rdb, err = client.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	paymentClient, err := newPaymentClient(&cfg.Payment)
	if err != nil {
		return err
	}

	eventRepo := repository.NewEventRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	orphanRepo := repository.NewOrphanedChargeRepository(db)
	logRepo := repository.NewLogRepository(db)

	verifier := signature.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.SignaturePrefix)
	if cfg.Webhook.Secret == "" {
		logrus.Warn("WEBHOOK_SECRET is not set, webhook deliveries will be rejected")
	}

	services := server.Services{
		Payment: service.NewPaymentService(
			db,
			paymentClient,
			service.PaymentConfig{
				MaxAmount:       cfg.Payment.MaxAmount,
				Currencies:      cfg.Payment.Currencies,
				DuplicateWindow: cfg.Payment.DuplicateWindow,
			},
			eventRepo,
			ticketRepo,
			orphanRepo,
			logRepo,
		),
		Webhook: service.NewWebhookService(
			db,
			verifier,
			cfg.AttendanceCASRetries,
			eventRepo,
			ticketRepo,
			webhookEventRepo,
			logRepo,
		),
		Scan:   service.NewScanService(db, ticketRepo, logRepo),
		Health: service.NewHealthService(db, redisOrNil(rdb)),
	}

	var webhookLimiter ratelimit.Limiter
	if rdb != nil {
		webhookLimiter = ratelimit.NewRedisLimiter(rdb, "ratelimit:webhook:", cfg.Webhook.RateLimit, cfg.Webhook.RateWindow)
	} else {
		logrus.Warn("REDIS_URL is not set, webhook rate limits are kept in memory")
		webhookLimiter = ratelimit.NewMemoryLimiter(cfg.Webhook.RateLimit, cfg.Webhook.RateWindow)
	}

	tokens := middleware.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience)
	srv := server.NewServer(cfg, services, tokens, webhookLimiter)

	reconciler := worker.NewReconciler(worker.ReconcilerConfig{
		Interval:    cfg.Reconcile.Interval,
		BatchSize:   cfg.Reconcile.BatchSize,
		AutoRefund:  cfg.Reconcile.AutoRefund,
		MaxAttempts: cfg.Reconcile.MaxAttempts,
	}, orphanRepo, paymentClient)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return reconciler.Run(ctx)
	})

	g.Go(func() error {
		if err := srv.Start(cfg.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("Signal received, starting graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newPaymentClient(cfg *config.Payment) (client.PaymentClient, error) {
	switch cfg.Provider {
	case "http":
		if cfg.HTTP.BaseApiURL == "" || cfg.HTTP.SecretKey == "" {
			logrus.Warn("payment processor credentials missing, intake will return 503")
			return nil, nil
		}
		return client.NewProcessorClient(&cfg.HTTP), nil
	case "braintree":
		return client.NewBraintreeClient(&cfg.Braintree), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown PAYMENT_PROVIDER %q", cfg.Provider)
	}
}

// redisOrNil avoids handing a typed nil pointer to an interface parameter.
func redisOrNil(rdb *redis.Client) redis.UniversalClient {
	if rdb == nil {
		return nil
	}
	return rdb
}
