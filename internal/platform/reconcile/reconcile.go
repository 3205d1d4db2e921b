// Package reconcile polls the transactional outbox for pending
// gateway-call records and publishes each one, keyed by its idempotency
// key, so a recorded gateway call is not lost if its first publish fails.
package reconcile

import (
	"context"
	"time"

	"github.com/marwanAmeen/beeline-server/internal/platform/logging"
	"github.com/marwanAmeen/beeline-server/internal/platform/outbox"
)

// Reconciler periodically drains pending outbox messages through a
// Publisher, marking each sent, retried, or failed.
type Reconciler struct {
	repo       *outbox.Repository
	publisher  outbox.Publisher
	interval   time.Duration
	batchSize  int
	maxRetries int

	stopCh chan struct{}
}

func New(repo *outbox.Repository, publisher outbox.Publisher, interval time.Duration, batchSize, maxRetries int) *Reconciler {
	return &Reconciler{
		repo:       repo,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		stopCh:     make(chan struct{}),
	}
}

// Run blocks, polling every interval, until ctx is cancelled or Stop is
// called.
func (r *Reconciler) Run(ctx context.Context) {
	logger := logging.FromContext(ctx)
	logger.Info("outbox reconciler started", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox reconciler stopping: context cancelled")
			return
		case <-r.stopCh:
			logger.Info("outbox reconciler stopping")
			return
		case <-ticker.C:
			r.processPending(ctx)
		}
	}
}

// Stop makes Run return; a batch already being processed finishes first.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) processPending(ctx context.Context) {
	logger := logging.FromContext(ctx)
	messages, err := r.repo.PendingMessages(ctx, r.batchSize)
	if err != nil {
		logger.Error("failed to query pending outbox messages", "error", err)
		return
	}
	for _, msg := range messages {
		r.dispatch(ctx, msg)
	}
}

func (r *Reconciler) dispatch(ctx context.Context, msg *outbox.Message) {
	logger := logging.FromContext(ctx)

	if err := r.publisher.Publish(msg.Topic, msg.Key, msg.Payload); err != nil {
		logger.Warn("outbox dispatch failed", "id", msg.ID, "topic", msg.Topic, "error", err)
		if uerr := r.repo.IncrementRetry(ctx, msg.ID); uerr != nil {
			logger.Error("failed to increment outbox retry count", "id", msg.ID, "error", uerr)
		}
		if msg.RetryCount+1 >= r.maxRetries {
			if uerr := r.repo.MarkFailed(ctx, msg.ID); uerr != nil {
				logger.Error("failed to mark outbox message failed", "id", msg.ID, "error", uerr)
			} else {
				logger.Warn("outbox message exceeded max retries, marked failed", "id", msg.ID)
			}
		}
		return
	}

	if err := r.repo.MarkSent(ctx, msg.ID); err != nil {
		logger.Error("failed to mark outbox message sent", "id", msg.ID, "error", err)
		return
	}
	logger.Info("outbox message dispatched", "id", msg.ID, "topic", msg.Topic, "key", msg.Key)
}
