package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/payment"
	"github.com/frahmantamala/credit-payments/internal/transport"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

type stubProcessor struct {
	eventID string
	body    []byte
	calls   int
	err     error
}

func (s *stubProcessor) Process(_ context.Context, eventID string, body []byte) (*payment.WebhookResult, error) {
	s.calls++
	s.eventID = eventID
	s.body = body
	if s.err != nil {
		return nil, s.err
	}
	return &payment.WebhookResult{EventID: eventID}, nil
}

var _ = ginkgo.Describe("WebhookHandler", func() {
	var (
		processor *stubProcessor
		handler   *payment.WebhookHandler
		rec       *httptest.ResponseRecorder
		body      []byte
	)

	ginkgo.BeforeEach(func() {
		processor = &stubProcessor{}
		handler = payment.NewWebhookHandler(transport.NewBaseHandler(logger.Discard()), processor, testWebhookSecret)
		rec = httptest.NewRecorder()
		body = []byte(`{"entity":"event","event":"payment.captured","payload":{}}`)
	})

	signed := func(sig, eventID string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
		req.Header.Set(payment.HeaderWebhookSignature, sig)
		if eventID != "" {
			req.Header.Set(payment.HeaderWebhookEventID, eventID)
		}
		return req
	}

	ginkgo.It("passes an authentic body through untouched", func() {
		handler.HandleWebhook(rec, signed(payment.Sign(testWebhookSecret, string(body)), "evt_1"))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.MatchJSON(`{"success":true}`))
		gomega.Expect(processor.eventID).To(gomega.Equal("evt_1"))
		gomega.Expect(processor.body).To(gomega.Equal(body))
	})

	ginkgo.It("derives the event id from the body when the header is absent", func() {
		handler.HandleWebhook(rec, signed(payment.Sign(testWebhookSecret, string(body)), ""))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(processor.eventID).To(gomega.Equal(payment.EventID("", body)))
	})

	ginkgo.It("rejects a bad signature before processing", func() {
		handler.HandleWebhook(rec, signed(payment.Sign("wrong", string(body)), "evt_1"))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		var resp map[string]string
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
		gomega.Expect(resp).To(gomega.HaveKey("error"))
		gomega.Expect(processor.calls).To(gomega.BeZero())
	})

	ginkgo.It("rejects a missing signature", func() {
		handler.HandleWebhook(rec, signed("", "evt_1"))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(processor.calls).To(gomega.BeZero())
	})

	ginkgo.It("answers 500 on a processing failure so the gateway redelivers", func() {
		processor.err = internal.ErrPersistence.WithCause(errors.New("connection reset"))

		handler.HandleWebhook(rec, signed(payment.Sign(testWebhookSecret, string(body)), "evt_1"))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusInternalServerError))
	})

	ginkgo.It("answers 400 for an authentic but malformed payload", func() {
		processor.err = internal.ErrInvalidInput.WithMessage("invalid webhook payload")

		handler.HandleWebhook(rec, signed(payment.Sign(testWebhookSecret, string(body)), "evt_1"))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})
})
