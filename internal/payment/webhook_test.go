package payment_test

import (
	"context"
	"errors"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/credit-payments/internal"
	orderDatamodel "github.com/frahmantamala/credit-payments/internal/core/datamodel/order"
	"github.com/frahmantamala/credit-payments/internal/core/datamodel/webhookevent"
	"github.com/frahmantamala/credit-payments/internal/payment"
	paymentpg "github.com/frahmantamala/credit-payments/internal/payment/postgres"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

type failingCompleter struct{}

func (failingCompleter) CompleteOrder(context.Context, string, string, string) (*payment.CompletionResult, error) {
	return nil, internal.ErrPersistence.WithCause(errors.New("database is locked"))
}

var _ = ginkgo.Describe("WebhookProcessor", func() {
	var (
		h       *harness
		ctx     context.Context
		userID  string
		created *payment.CreatedOrder
	)

	ginkgo.BeforeEach(func() {
		h = newHarness()
		ctx = context.Background()
		userID = "user-webhook-1"
		created = h.starterOrder(userID)
	})

	recorded := func(eventID string) bool {
		var count int64
		gomega.Expect(h.db.Model(&webhookevent.WebhookEvent{}).Where("event_id = ?", eventID).Count(&count).Error).To(gomega.Succeed())
		return count == 1
	}

	ginkgo.Describe("payment.captured", func() {
		ginkgo.It("completes the order and credits its owner", func() {
			body := paymentWebhookBody(payment.WebhookEventPaymentCaptured, capturedPayment("pay_1", created.ID, created.Amount))

			result, err := h.webhook.Process(ctx, "evt_1", body)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.Duplicate).To(gomega.BeFalse())
			gomega.Expect(loadOrder(h.db, created.ID).Status).To(gomega.Equal(orderDatamodel.StatusCompleted))
			gomega.Expect(balanceOf(h.db, userID)).To(gomega.Equal(int64(20)))
			gomega.Expect(recorded("evt_1")).To(gomega.BeTrue())
		})

		ginkgo.It("does not reprocess a redelivered event", func() {
			body := paymentWebhookBody(payment.WebhookEventPaymentCaptured, capturedPayment("pay_1", created.ID, created.Amount))
			_, err := h.webhook.Process(ctx, "evt_1", body)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			result, err := h.webhook.Process(ctx, "evt_1", body)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.Duplicate).To(gomega.BeTrue())
			gomega.Expect(balanceOf(h.db, userID)).To(gomega.Equal(int64(20)))
		})

		ginkgo.It("is a no-op success for an order this service does not know", func() {
			body := paymentWebhookBody(payment.WebhookEventPaymentCaptured, capturedPayment("pay_9", "order_elsewhere", 100))

			_, err := h.webhook.Process(ctx, "evt_unknown", body)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(balanceOf(h.db, userID)).To(gomega.BeZero())
		})

		ginkgo.It("leaves the event unrecorded when processing fails so the gateway retries", func() {
			processor := payment.NewWebhookProcessor(h.orders, failingCompleter{}, paymentpg.NewWebhookEventRepository(h.db), nil, logger.Discard())
			body := paymentWebhookBody(payment.WebhookEventPaymentCaptured, capturedPayment("pay_1", created.ID, created.Amount))

			_, err := processor.Process(ctx, "evt_retry", body)

			gomega.Expect(errors.Is(err, internal.ErrPersistence)).To(gomega.BeTrue())
			gomega.Expect(recorded("evt_retry")).To(gomega.BeFalse())

			// the redelivery then succeeds through the real completer
			_, err = h.webhook.Process(ctx, "evt_retry", body)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(balanceOf(h.db, userID)).To(gomega.Equal(int64(20)))
		})
	})

	ginkgo.Describe("order.paid", func() {
		ginkgo.It("reads the order id from the order entity", func() {
			body := orderPaidWebhookBody(created.ID, capturedPayment("pay_1", created.ID, created.Amount))

			_, err := h.webhook.Process(ctx, "evt_paid", body)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			row := loadOrder(h.db, created.ID)
			gomega.Expect(row.Status).To(gomega.Equal(orderDatamodel.StatusCompleted))
			gomega.Expect(*row.PaymentID).To(gomega.Equal("pay_1"))
			gomega.Expect(balanceOf(h.db, userID)).To(gomega.Equal(int64(20)))
		})
	})

	ginkgo.Describe("payment.failed", func() {
		ginkgo.It("marks the order failed with the gateway failure details", func() {
			body := paymentWebhookBody(payment.WebhookEventPaymentFailed, failedPayment("pay_1", created.ID, "GATEWAY_ERROR", "issuer unavailable"))

			_, err := h.webhook.Process(ctx, "evt_failed", body)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			row := loadOrder(h.db, created.ID)
			gomega.Expect(row.Status).To(gomega.Equal(orderDatamodel.StatusFailed))
			gomega.Expect(*row.PaymentID).To(gomega.Equal("pay_1"))
			gomega.Expect(*row.FailureCode).To(gomega.Equal("GATEWAY_ERROR"))
			gomega.Expect(*row.FailureReason).To(gomega.Equal("issuer unavailable"))
			gomega.Expect(row.CompletedAt).ToNot(gomega.BeNil())
			gomega.Expect(balanceOf(h.db, userID)).To(gomega.BeZero())
		})

		ginkgo.It("never downgrades a completed order", func() {
			_, err := h.webhook.Process(ctx, "evt_ok", paymentWebhookBody(payment.WebhookEventPaymentCaptured, capturedPayment("pay_2", created.ID, created.Amount)))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = h.webhook.Process(ctx, "evt_late_fail", paymentWebhookBody(payment.WebhookEventPaymentFailed, failedPayment("pay_1", created.ID, "BAD_REQUEST_ERROR", "declined")))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(loadOrder(h.db, created.ID).Status).To(gomega.Equal(orderDatamodel.StatusCompleted))
			gomega.Expect(balanceOf(h.db, userID)).To(gomega.Equal(int64(20)))
		})
	})

	ginkgo.It("ignores other event types", func() {
		result, err := h.webhook.Process(ctx, "evt_refund", []byte(`{"entity":"event","event":"refund.created","payload":{}}`))

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(result.Ignored).To(gomega.BeTrue())
		gomega.Expect(loadOrder(h.db, created.ID).Status).To(gomega.Equal(orderDatamodel.StatusCreated))
	})

	ginkgo.It("rejects a body that is not JSON", func() {
		_, err := h.webhook.Process(ctx, "evt_bad", []byte("not json"))
		gomega.Expect(errors.Is(err, internal.ErrInvalidInput)).To(gomega.BeTrue())
	})
})

var _ = ginkgo.Describe("EventID", func() {
	ginkgo.It("prefers the gateway header", func() {
		gomega.Expect(payment.EventID("evt_abc", []byte("{}"))).To(gomega.Equal("evt_abc"))
	})

	ginkgo.It("derives a stable id from the body otherwise", func() {
		first := payment.EventID("", []byte(`{"a":1}`))
		gomega.Expect(first).To(gomega.HavePrefix("sha256:"))
		gomega.Expect(payment.EventID("", []byte(`{"a":1}`))).To(gomega.Equal(first))
		gomega.Expect(payment.EventID("", []byte(`{"a":2}`))).ToNot(gomega.Equal(first))
	})
})
