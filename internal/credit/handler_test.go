package credit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/credit"
	"github.com/frahmantamala/credit-payments/internal/transport"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

var _ = Describe("Credit Handler", func() {
	var handler *credit.Handler

	BeforeEach(func() {
		service := credit.NewService(NewMockRepository(4), nil, time.Minute, logger.Discard())
		handler = credit.NewHandler(transport.NewBaseHandler(logger.Discard()), service)
	})

	withUser := func(req *http.Request, userID string) *http.Request {
		return req.WithContext(internal.ContextWithUserID(context.Background(), userID))
	}

	It("returns the balance of the authenticated user", func() {
		w := httptest.NewRecorder()

		handler.GetBalance(w, withUser(httptest.NewRequest(http.MethodGet, "/credits", nil), "user-1"))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp credit.BalanceResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Credits).To(Equal(int64(4)))
	})

	It("requires an identity", func() {
		w := httptest.NewRecorder()

		handler.GetBalance(w, httptest.NewRequest(http.MethodGet, "/credits", nil))

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("consumes credits", func() {
		body, _ := json.Marshal(credit.ConsumeRequest{Amount: 3})
		w := httptest.NewRecorder()

		handler.ConsumeCredits(w, withUser(httptest.NewRequest(http.MethodPost, "/credits/consume", bytes.NewReader(body)), "user-1"))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp credit.ConsumeResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp).To(Equal(credit.ConsumeResponse{Success: true, Credits: 1}))
	})

	It("answers 400 when the balance is too low", func() {
		body, _ := json.Marshal(credit.ConsumeRequest{Amount: 9})
		w := httptest.NewRecorder()

		handler.ConsumeCredits(w, withUser(httptest.NewRequest(http.MethodPost, "/credits/consume", bytes.NewReader(body)), "user-1"))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		var resp internal.ErrorResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Code).To(Equal(internal.ErrCodeInsufficientCredits))
	})

	It("rejects a zero amount", func() {
		w := httptest.NewRecorder()

		handler.ConsumeCredits(w, withUser(httptest.NewRequest(http.MethodPost, "/credits/consume", bytes.NewBufferString(`{"amount":0}`)), "user-1"))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
