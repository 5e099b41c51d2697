package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/catalog"
	"github.com/frahmantamala/credit-payments/internal/payment"
	"github.com/frahmantamala/credit-payments/internal/transport"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

type stubCheckout struct {
	calls   int
	created *payment.CreatedOrder
	err     error
}

func (s *stubCheckout) CreateOrder(_ context.Context, userID, productID string) (*payment.CreatedOrder, error) {
	s.calls++
	return s.created, s.err
}

type stubVerification struct {
	calls int
	resp  *payment.VerifyPaymentResponse
	err   error
}

func (s *stubVerification) Verify(_ context.Context, userID string, req payment.VerifyPaymentRequest) (*payment.VerifyPaymentResponse, error) {
	s.calls++
	return s.resp, s.err
}

func jsonRequest(target, identity string, body interface{}) *http.Request {
	payload, err := json.Marshal(body)
	gomega.Expect(err).ToNot(gomega.HaveOccurred())

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		req = req.WithContext(internal.ContextWithUserID(req.Context(), identity))
	}
	return req
}

func decodeError(rec *httptest.ResponseRecorder) internal.ErrorResponse {
	var body internal.ErrorResponse
	gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
	return body
}

var _ = ginkgo.Describe("Handler", func() {
	var (
		checkout     *stubCheckout
		verification *stubVerification
		handler      *payment.Handler
		rec          *httptest.ResponseRecorder
	)

	ginkgo.BeforeEach(func() {
		starter, _ := catalog.Default().Lookup(catalog.StarterPackID)
		checkout = &stubCheckout{created: &payment.CreatedOrder{
			ID:          "order_1",
			Amount:      starter.Price,
			Currency:    starter.Currency,
			Receipt:     "rcpt_user-1_12345678",
			PackageInfo: starter,
		}}
		verification = &stubVerification{resp: &payment.VerifyPaymentResponse{Success: true, Credits: 20}}
		handler = payment.NewHandler(transport.NewBaseHandler(logger.Discard()), checkout, verification)
		rec = httptest.NewRecorder()
	})

	ginkgo.Describe("CreateOrder", func() {
		ginkgo.It("returns the order with its package info", func() {
			handler.CreateOrder(rec, jsonRequest("/api/v1/orders", "user-1", map[string]string{"productId": "starter", "userId": "user-1"}))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			var body map[string]map[string]interface{}
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
			gomega.Expect(body["order"]).To(gomega.HaveKeyWithValue("id", "order_1"))
			gomega.Expect(body["order"]).To(gomega.HaveKeyWithValue("currency", "USD"))
			gomega.Expect(body["order"]["packageInfo"]).To(gomega.HaveKeyWithValue("name", "Starter Pack"))
		})

		ginkgo.It("requires an identity", func() {
			handler.CreateOrder(rec, jsonRequest("/api/v1/orders", "", map[string]string{"productId": "starter", "userId": "user-1"}))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(checkout.calls).To(gomega.BeZero())
		})

		ginkgo.It("forbids buying on behalf of another user", func() {
			handler.CreateOrder(rec, jsonRequest("/api/v1/orders", "user-2", map[string]string{"productId": "starter", "userId": "user-1"}))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(decodeError(rec).Code).To(gomega.Equal(internal.ErrCodeForbidden))
			gomega.Expect(checkout.calls).To(gomega.BeZero())
		})

		ginkgo.It("reports missing fields as invalid input", func() {
			handler.CreateOrder(rec, jsonRequest("/api/v1/orders", "user-1", map[string]string{"userId": "user-1"}))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			body := decodeError(rec)
			gomega.Expect(body.Code).To(gomega.Equal(internal.ErrCodeInvalidInput))
			gomega.Expect(body.Error).To(gomega.ContainSubstring("productId is required"))
		})

		ginkgo.It("maps service errors onto their status", func() {
			checkout.err = internal.ErrUnknownProduct
			handler.CreateOrder(rec, jsonRequest("/api/v1/orders", "user-1", map[string]string{"productId": "gold", "userId": "user-1"}))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(decodeError(rec).Code).To(gomega.Equal(internal.ErrCodeUnknownProduct))
		})

		ginkgo.It("rejects a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString("{"))
			req = req.WithContext(internal.ContextWithUserID(req.Context(), "user-1"))

			handler.CreateOrder(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("VerifyPayment", func() {
		validBody := map[string]string{
			"orderId":   "order_1",
			"paymentId": "pay_1",
			"signature": "abc",
			"userId":    "user-1",
		}

		ginkgo.It("returns success with the credited amount", func() {
			handler.VerifyPayment(rec, jsonRequest("/api/v1/payments/verify", "user-1", validBody))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			var body payment.VerifyPaymentResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
			gomega.Expect(body.Success).To(gomega.BeTrue())
			gomega.Expect(body.Credits).To(gomega.Equal(int64(20)))
		})

		ginkgo.It("forbids verifying for another user", func() {
			handler.VerifyPayment(rec, jsonRequest("/api/v1/payments/verify", "user-2", validBody))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(verification.calls).To(gomega.BeZero())
		})

		ginkgo.It("requires every field", func() {
			handler.VerifyPayment(rec, jsonRequest("/api/v1/payments/verify", "user-1", map[string]string{"orderId": "order_1", "userId": "user-1"}))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(verification.calls).To(gomega.BeZero())
		})

		ginkgo.DescribeTable("maps verification errors",
			func(err error, status int, code internal.ErrorCode) {
				verification.err = err
				handler.VerifyPayment(rec, jsonRequest("/api/v1/payments/verify", "user-1", validBody))

				gomega.Expect(rec.Code).To(gomega.Equal(status))
				gomega.Expect(decodeError(rec).Code).To(gomega.Equal(code))
			},
			ginkgo.Entry("invalid signature", internal.ErrInvalidSignature, http.StatusBadRequest, internal.ErrCodeInvalidSignature),
			ginkgo.Entry("not found", internal.ErrOrderNotFound, http.StatusNotFound, internal.ErrCodeOrderNotFound),
			ginkgo.Entry("not captured", internal.ErrPaymentNotCaptured, http.StatusBadRequest, internal.ErrCodePaymentNotCaptured),
			ginkgo.Entry("gateway down", internal.ErrPaymentGateway, http.StatusInternalServerError, internal.ErrCodePaymentGateway),
			ginkgo.Entry("persistence", internal.ErrPersistence, http.StatusInternalServerError, internal.ErrCodePersistence),
		)
	})
})
