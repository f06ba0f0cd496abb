package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadranker_backend/internal/alerts"
	"leadranker_backend/internal/billing/payments"
	"leadranker_backend/internal/email"
	"leadranker_backend/internal/events"
	"leadranker_backend/internal/ingest"
	referralrepo "leadranker_backend/internal/referrals/repository"
	referralservice "leadranker_backend/internal/referrals/service"
	"leadranker_backend/internal/scheduler"
	"leadranker_backend/internal/scoring"
	"leadranker_backend/internal/tenants"
	"leadranker_backend/platform/config"
	"leadranker_backend/platform/db"
	"leadranker_backend/platform/logger"
	"leadranker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Reward and hot-lead emails raised by worker jobs go through the same
	// dispatcher the API uses.
	alertsModule := alerts.NewModule(sender, cfg, log)
	alertsModule.RegisterHandlers(eventBus)

	val := validator.New()

	// Worker-side wiring: the sweep handler credits referrers through Stripe,
	// so the tenant ledger needs the payments client even without HTTP.
	tenantsModule := tenants.NewModule(pool, eventBus, log)
	tenantsModule.Service().SetCreditIssuer(payments.NewClient(cfg, log))

	referralsService := referralservice.New(referralrepo.New(pool), tenantsModule.Service(), eventBus, log)

	scoringModule, err := scoring.NewModule(pool, tenantsModule.Service(), eventBus, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize scoring module", "error", err)
		panic("failed to initialize scoring module: " + err.Error())
	}

	poller := ingest.NewPoller(cfg, scoringModule.Service(), log)
	go poller.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, referralsService, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
