package rest_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/credit-payments/internal/auth"
	"github.com/frahmantamala/credit-payments/internal/catalog"
	"github.com/frahmantamala/credit-payments/internal/credit"
	"github.com/frahmantamala/credit-payments/internal/payment"
	"github.com/frahmantamala/credit-payments/internal/transport"
	"github.com/frahmantamala/credit-payments/internal/transport/rest"
)

type stubCredits struct {
	balance int64
}

func (s *stubCredits) Balance(context.Context, string) (int64, error) {
	return s.balance, nil
}

func (s *stubCredits) Consume(_ context.Context, _ string, amount int64) (int64, error) {
	s.balance -= amount
	return s.balance, nil
}

type stubCheckout struct{}

func (stubCheckout) CreateOrder(_ context.Context, userID, productID string) (*payment.CreatedOrder, error) {
	return &payment.CreatedOrder{ID: "order_1", Currency: "USD"}, nil
}

type stubVerification struct{}

func (stubVerification) Verify(context.Context, string, payment.VerifyPaymentRequest) (*payment.VerifyPaymentResponse, error) {
	return &payment.VerifyPaymentResponse{Success: true, Credits: 20}, nil
}

type stubProcessor struct{}

func (stubProcessor) Process(_ context.Context, eventID string, _ []byte) (*payment.WebhookResult, error) {
	return &payment.WebhookResult{EventID: eventID, EventType: "payment.captured"}, nil
}

var _ = Describe("Router", func() {
	const webhookSecret = "whsec"

	var (
		server *httptest.Server
		tokens *auth.JWTTokenGenerator
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		base := transport.NewBaseHandler(lg)
		tokens = auth.NewJWTTokenGenerator("test-secret", "test", time.Hour)

		router := chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Routes{
			Auth:           auth.NewHandler(base, tokens),
			Catalog:        catalog.NewHandler(base, catalog.Default()),
			Payment:        payment.NewHandler(base, stubCheckout{}, stubVerification{}),
			Webhook:        payment.NewWebhookHandler(base, stubProcessor{}, webhookSecret),
			Credit:         credit.NewHandler(base, &stubCredits{balance: 7}),
			AllowedOrigins: "https://app.example.com, https://admin.example.com",
			MetricsPath:    "/metrics",
		}, lg)

		server = httptest.NewServer(router)
		DeferCleanup(server.Close)
	})

	do := func(method, path, token, body string) *http.Response {
		req, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	It("serves the catalog without a token", func() {
		resp := do(http.MethodGet, "/api/v1/catalog", "", "")

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("X-Request-ID")).NotTo(BeEmpty())
	})

	It("requires a bearer token for orders and credits", func() {
		Expect(do(http.MethodPost, "/api/v1/orders", "", `{}`).StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(do(http.MethodGet, "/api/v1/credits", "", "").StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("reads the balance of the token holder", func() {
		token, err := tokens.GenerateAccessToken("user-1", "")
		Expect(err).NotTo(HaveOccurred())

		resp := do(http.MethodGet, "/api/v1/credits", token, "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(MatchJSON(`{"credits":7}`))
	})

	It("lets signed webhooks through without a bearer token", func() {
		payload := `{"event":"payment.captured"}`
		req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/payments/webhook", strings.NewReader(payload))
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set(payment.HeaderWebhookSignature, payment.Sign(webhookSecret, payload))

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	Describe("CORS", func() {
		preflight := func(origin, method string) *http.Response {
			req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/v1/orders", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Origin", origin)
			req.Header.Set("Access-Control-Request-Method", method)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(resp.Body.Close)
			return resp
		}

		It("echoes a configured origin on simple requests", func() {
			req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/catalog", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Origin", "https://admin.example.com")

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("https://admin.example.com"))
		})

		It("answers preflights from a configured origin", func() {
			resp := preflight("https://app.example.com", http.MethodPost)

			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("https://app.example.com"))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring(http.MethodPost))
		})

		It("withholds CORS headers from other origins", func() {
			resp := preflight("https://evil.example.com", http.MethodPost)

			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(BeEmpty())
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(BeEmpty())
		})

		It("withholds CORS headers for methods outside the allow list", func() {
			resp := preflight("https://app.example.com", http.MethodDelete)

			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(BeEmpty())
		})
	})

	It("exposes prometheus metrics", func() {
		do(http.MethodGet, "/api/v1/catalog", "", "")

		resp := do(http.MethodGet, "/metrics", "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(ContainSubstring("http_requests_total"))
	})
})
