// Package reconcile closes orders left in created when neither verification
// nor a webhook reached the service, asking the gateway what really happened.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gatewaytypes "github.com/frahmantamala/credit-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/credit-payments/internal/core/events"
	"github.com/frahmantamala/credit-payments/internal/observability"
	"github.com/frahmantamala/credit-payments/internal/order"
	"github.com/frahmantamala/credit-payments/internal/payment"
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomePending   = "pending"
	OutcomeSkipped   = "skipped"
)

type Config struct {
	Interval  time.Duration
	MinAge    time.Duration
	BatchSize int
	Workers   int
}

type OrderPaymentsAPI interface {
	FetchOrderPayments(ctx context.Context, orderID string) ([]gatewaytypes.Payment, error)
}

type Reconciler struct {
	config    Config
	orders    order.RepositoryAPI
	gateway   OrderPaymentsAPI
	completer payment.CompleterAPI
	publisher payment.Publisher
	pool      *Pool
	logger    *slog.Logger
	now       func() time.Time
}

func NewReconciler(config Config, orders order.RepositoryAPI, gateway OrderPaymentsAPI, completer payment.CompleterAPI, publisher payment.Publisher, logger *slog.Logger) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.MinAge <= 0 {
		config.MinAge = 2 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if publisher == nil {
		publisher = payment.NoopPublisher()
	}
	return &Reconciler{
		config:    config,
		orders:    orders,
		gateway:   gateway,
		completer: completer,
		publisher: publisher,
		pool:      NewPool(config.Workers, config.BatchSize, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps immediately and then on every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	r.pool.Start(ctx, r.process)
	defer r.pool.Shutdown()

	r.logger.Info("reconciliation worker started", "interval", r.config.Interval, "min_age", r.config.MinAge)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("reconciliation sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sweep and returns how many stale orders it examined.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	r.pool.Start(ctx, r.process)
	defer r.pool.Shutdown()
	return r.sweep(ctx)
}

func (r *Reconciler) sweep(ctx context.Context) (int, error) {
	cutoff := r.now().UTC().Add(-r.config.MinAge)

	stale, err := r.orders.ListStale(ctx, cutoff, r.config.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	r.logger.Info("found stale orders", "count", len(stale), "created_before", cutoff)

	ids := make([]string, len(stale))
	for i, o := range stale {
		ids[i] = o.ID
	}
	return len(ids), r.pool.RunBatch(ctx, ids)
}

func (r *Reconciler) process(ctx context.Context, job Job) {
	outcome := r.reconcile(ctx, job.OrderID)
	observability.RecordReconciled(outcome)
}

func (r *Reconciler) reconcile(ctx context.Context, orderID string) string {
	lg := r.logger.With("order_id", orderID)

	payments, err := r.gateway.FetchOrderPayments(ctx, orderID)
	if err != nil {
		lg.Warn("gateway lookup failed, retrying next sweep", "error", err)
		return OutcomeSkipped
	}

	var (
		captured   *gatewaytypes.Payment
		lastFailed *gatewaytypes.Payment
		unsettled  bool
	)
	for i := range payments {
		p := &payments[i]
		switch p.Status {
		case gatewaytypes.PaymentStatusCaptured:
			if captured == nil {
				captured = p
			}
		case gatewaytypes.PaymentStatusFailed:
			lastFailed = p
		default:
			// created or authorized attempts may still settle
			unsettled = true
		}
	}

	if captured != nil {
		result, err := r.completer.CompleteOrder(ctx, orderID, captured.ID, payment.SourceReconcile)
		if err != nil {
			lg.Warn("failed to complete stale order", "payment_id", captured.ID, "error", err)
			return OutcomeSkipped
		}
		lg.Info("stale order completed from gateway capture", "payment_id", captured.ID, "credited", result.Credited)
		return OutcomeCompleted
	}

	if unsettled || lastFailed == nil {
		return OutcomePending
	}

	failure := order.Failure{
		PaymentID:     lastFailed.ID,
		PaymentStatus: string(lastFailed.Status),
		Code:          lastFailed.FailureCode(),
		Reason:        lastFailed.FailureReason(),
		At:            r.now().UTC(),
	}
	if failure.Code == "" {
		failure.Code = payment.FailureCodeNotCaptured
	}

	changed, err := r.orders.MarkFailed(ctx, orderID, failure)
	if err != nil {
		lg.Error("failed to mark stale order failed", "error", err)
		return OutcomeSkipped
	}
	if !changed {
		return OutcomeSkipped
	}

	lg.Info("stale order marked failed", "payment_id", failure.PaymentID, "failure_code", failure.Code)
	if err := r.publisher.Publish(ctx, events.NewPaymentFailedEvent(orderID, failure.PaymentID, failure.Code, failure.Reason, payment.SourceReconcile)); err != nil {
		lg.Warn("failed to publish payment failed event", "error", err)
	}
	return OutcomeFailed
}
