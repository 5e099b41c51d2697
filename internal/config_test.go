package internal_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/credit-payments/internal"
)

func validConfig() *internal.Config {
	return &internal.Config{
		Server: internal.ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: time.Second,
			ReadTimeout:       5 * time.Second,
		},
		Database: internal.DatabaseConfig{
			Source:       "postgres://localhost/credits",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Security: internal.SecurityConfig{JWTSecret: "0123456789abcdef0123456789abcdef"},
		Payment: internal.PaymentConfig{
			BaseURL:       "https://api.razorpay.com",
			KeyID:         "rzp_test_key",
			KeySecret:     "secret",
			WebhookSecret: "whsec",
			Timeout:       5 * time.Second,
		},
		Reconcile: internal.ReconcileConfig{Interval: time.Minute, BatchSize: 10},
	}
}

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("Config", func() {
	It("accepts a complete configuration", func() {
		Expect(validConfig().Validate()).To(Succeed())
	})

	It("joins every section error", func() {
		// Given
		cfg := validConfig()
		cfg.Database.Source = ""
		cfg.Payment.WebhookSecret = ""

		// When
		err := cfg.Validate()

		// Then
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("database config: source is required"))
		Expect(err.Error()).To(ContainSubstring("; payment config: webhook_secret is required"))
	})

	It("rejects a short jwt secret", func() {
		cfg := validConfig()
		cfg.Security.JWTSecret = "short"

		Expect(cfg.Validate()).To(MatchError(ContainSubstring("jwt_secret")))
	})

	It("requires brokers only when kafka is enabled", func() {
		cfg := validConfig()
		Expect(cfg.Validate()).To(Succeed())

		cfg.Kafka.Enabled = true
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("broker")))
	})

	Describe("LoadConfigFromEnv", func() {
		It("reads values from the environment", func() {
			setenv("HTTP_PORT", "9090")
			setenv("RAZORPAY_TIMEOUT", "3s")
			setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
			setenv("CREDITS_STARTER_BALANCE", "5")

			cfg := internal.LoadConfigFromEnv()

			Expect(cfg.Server.Port).To(Equal(9090))
			Expect(cfg.Payment.Timeout).To(Equal(3 * time.Second))
			Expect(cfg.Kafka.Brokers).To(Equal([]string{"k1:9092", "k2:9092"}))
			Expect(cfg.Credits.StarterBalance).To(Equal(int64(5)))
		})
	})
})
