package cmd

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/credit-payments/internal"
	orderDatamodel "github.com/frahmantamala/credit-payments/internal/core/datamodel/order"
	"github.com/frahmantamala/credit-payments/internal/credit"
	creditpg "github.com/frahmantamala/credit-payments/internal/credit/postgres"
	"github.com/frahmantamala/credit-payments/internal/payment"
	paymentpg "github.com/frahmantamala/credit-payments/internal/payment/postgres"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

// Runs against a real Postgres so the CHECK constraint and row locking are exercised. Opt in with INTEGRATION=1.
var _ = Describe("Postgres integration", Ordered, Label("integration"), func() {
	var (
		ctx context.Context
		sql *sqlx.DB
		db  *gorm.DB
	)

	BeforeAll(func() {
		if os.Getenv("INTEGRATION") != "1" {
			Skip("set INTEGRATION=1 to run postgres integration specs")
		}
		ctx = context.Background()

		ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("credit_payments"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			tcpostgres.BasicWaitStrategies(),
		)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = testcontainers.TerminateContainer(ctr)
		})

		dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		sql, err = initDB(internal.DatabaseConfig{Source: dsn, MaxOpenConns: 10, MaxIdleConns: 2})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = sql.Close() })

		Expect(migrate(ctx, sql.DB, "../db/migrations", "up")).To(Succeed())

		db, err = openGorm(sql)
		Expect(err).NotTo(HaveOccurred())
	})

	It("credits a concurrently completed order exactly once", func() {
		now := time.Now().UTC()
		Expect(db.Create(&orderDatamodel.Order{
			ID:        "order_it_1",
			UserID:    "user-it",
			ProductID: "starter",
			Amount:    20,
			Currency:  "USD",
			Credits:   20,
			Status:    orderDatamodel.StatusCreated,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error).To(Succeed())

		completer := paymentpg.NewOrderCompleter(db, 0, credit.NoopCache(), payment.NoopPublisher(), logger.Discard())

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			credited int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				res, err := completer.CompleteOrder(ctx, "order_it_1", "pay_it_1", payment.SourceWebhook)
				Expect(err).NotTo(HaveOccurred())
				if res.Credited {
					mu.Lock()
					credited++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Expect(credited).To(Equal(1))

		balance, found, err := creditpg.NewCreditRepository(db, 0).GetBalance(ctx, "user-it")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(balance).To(Equal(int64(20)))
	})

	It("never lets concurrent consumption go negative", func() {
		repo := creditpg.NewCreditRepository(db, 0)
		Expect(repo.AddCredits(ctx, "user-spender", 5)).To(Succeed())

		var (
			wg sync.WaitGroup
			mu sync.Mutex
			ok int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				consumed, err := repo.ConsumeCredits(ctx, "user-spender", 1)
				Expect(err).NotTo(HaveOccurred())
				if consumed {
					mu.Lock()
					ok++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Expect(ok).To(Equal(5))
		balance, _, err := repo.GetBalance(ctx, "user-spender")
		Expect(err).NotTo(HaveOccurred())
		Expect(balance).To(BeZero())
	})

	It("rejects a negative balance at the schema level", func() {
		err := db.Exec("UPDATE user_credits SET credits = -1 WHERE user_id = ?", "user-spender").Error
		Expect(err).To(HaveOccurred())
	})

	It("rolls the schema back", func() {
		Expect(migrate(ctx, sql.DB, "../db/migrations", "down")).To(Succeed())
		Expect(migrate(ctx, sql.DB, "../db/migrations", "up")).To(Succeed())
	})
})
