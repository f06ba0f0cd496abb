package scheduler

import (
	"context"
	"fmt"

	"leadranker_backend/platform/config"
	"leadranker_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// RewardSweeper runs the referral reward sweep for one paying customer.
// Implemented by the referrals service.
type RewardSweeper interface {
	MaybeReward(ctx context.Context, stripeCustomerID string) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	rewards RewardSweeper
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, rewards RewardSweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		rewards: rewards,
		log:     log,
	}

	mux.HandleFunc(TaskReferralRewardSweep, w.handleReferralRewardSweep)

	return w, nil
}

// handleReferralRewardSweep is safe to retry: the sweep's conditional
// claim makes crediting at-most-once per referral regardless of how often
// the task runs.
func (w *Worker) handleReferralRewardSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReferralRewardSweepPayload(task)
	if err != nil {
		return err
	}
	if payload.StripeCustomerID == "" {
		return nil
	}

	w.log.Info("running referral reward sweep", "stripe_customer_id", payload.StripeCustomerID)
	return w.rewards.MaybeReward(ctx, payload.StripeCustomerID)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
