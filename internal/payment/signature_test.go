package payment_test

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/credit-payments/internal/payment"
)

var _ = ginkgo.Describe("Signatures", func() {
	ginkgo.It("produces the gateway's hex HMAC-SHA256 of order|payment", func() {
		// reference value computed with: printf 'order_1|pay_1' | openssl dgst -sha256 -hmac secret
		sig := payment.CheckoutSignature("secret", "order_1", "pay_1")
		gomega.Expect(sig).To(gomega.Equal("52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb"))
		gomega.Expect(sig).To(gomega.Equal(payment.Sign("secret", "order_1|pay_1")))
		gomega.Expect(payment.VerifyPaymentSignature("secret", "order_1", "pay_1", sig)).To(gomega.BeTrue())
	})

	ginkgo.It("rejects signatures made with another secret or for another payment", func() {
		sig := payment.CheckoutSignature("secret", "order_1", "pay_1")
		gomega.Expect(payment.VerifyPaymentSignature("other", "order_1", "pay_1", sig)).To(gomega.BeFalse())
		gomega.Expect(payment.VerifyPaymentSignature("secret", "order_1", "pay_2", sig)).To(gomega.BeFalse())
		gomega.Expect(payment.VerifyPaymentSignature("secret", "order_1", "pay_1", "")).To(gomega.BeFalse())
	})

	ginkgo.It("verifies webhook bodies byte for byte", func() {
		body := []byte(`{"event":"payment.captured"}`)
		sig := payment.Sign("whsec", string(body))

		gomega.Expect(payment.VerifyWebhookSignature("whsec", body, sig)).To(gomega.BeTrue())
		gomega.Expect(payment.VerifyWebhookSignature("whsec", []byte(`{"event": "payment.captured"}`), sig)).To(gomega.BeFalse())
		gomega.Expect(payment.VerifyWebhookSignature("whsec", body, "")).To(gomega.BeFalse())
	})
})
