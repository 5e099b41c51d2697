package internal_test

import (
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/credit-payments/internal"
)

var _ = Describe("AppError", func() {
	Describe("sentinel matching", func() {
		It("matches a sentinel after WithCause without mutating it", func() {
			// Given
			cause := errors.New("connection reset")

			// When
			err := internal.ErrPaymentGateway.WithCause(cause)

			// Then
			Expect(errors.Is(err, internal.ErrPaymentGateway)).To(BeTrue())
			Expect(errors.Is(err, cause)).To(BeTrue())
			Expect(internal.ErrPaymentGateway.Cause).To(BeNil())
		})

		It("finds an AppError wrapped by fmt.Errorf", func() {
			wrapped := fmt.Errorf("verify: %w", internal.ErrInvalidSignature)

			appErr, ok := internal.IsAppError(wrapped)

			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidSignature))
		})

		It("does not match different codes", func() {
			Expect(errors.Is(internal.ErrForbidden, internal.ErrUnauthorized)).To(BeFalse())
		})
	})

	DescribeTable("HTTP status mapping",
		func(err *internal.AppError, status int) {
			code, body := err.ToHTTPResponse()
			Expect(code).To(Equal(status))
			Expect(body.Error).NotTo(BeEmpty())
			Expect(body.Code).To(Equal(err.Code))
		},
		Entry("invalid input", internal.ErrInvalidInput, http.StatusBadRequest),
		Entry("unknown product", internal.ErrUnknownProduct, http.StatusBadRequest),
		Entry("unauthorized", internal.ErrUnauthorized, http.StatusUnauthorized),
		Entry("forbidden", internal.ErrForbidden, http.StatusForbidden),
		Entry("not found", internal.ErrOrderNotFound, http.StatusNotFound),
		Entry("invalid signature", internal.ErrInvalidSignature, http.StatusBadRequest),
		Entry("payment not captured", internal.ErrPaymentNotCaptured, http.StatusBadRequest),
		Entry("gateway error", internal.ErrPaymentGateway, http.StatusInternalServerError),
		Entry("persistence error", internal.ErrPersistence, http.StatusInternalServerError),
	)

	It("joins field validation messages", func() {
		err := internal.NewValidationFieldError("productId", "productId is required", internal.ErrCodeInvalidInput)

		_, body := err.ToHTTPResponse()

		Expect(body.Error).To(Equal("productId is required"))
		Expect(body.Details).To(BeAssignableToTypeOf(internal.ValidationErrors{}))
	})
})
