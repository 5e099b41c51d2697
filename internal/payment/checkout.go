package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/catalog"
	orderDatamodel "github.com/frahmantamala/credit-payments/internal/core/datamodel/order"
	gatewaytypes "github.com/frahmantamala/credit-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/credit-payments/internal/core/events"
	"github.com/frahmantamala/credit-payments/internal/observability"
	"github.com/frahmantamala/credit-payments/internal/order"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

const tracerName = "github.com/frahmantamala/credit-payments/internal/payment"

type CheckoutService struct {
	catalog   *catalog.Catalog
	gateway   GatewayAPI
	orders    order.RepositoryAPI
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewCheckoutService(cat *catalog.Catalog, gateway GatewayAPI, orders order.RepositoryAPI, publisher Publisher, logger *slog.Logger) *CheckoutService {
	if publisher == nil {
		publisher = NoopPublisher()
	}
	return &CheckoutService{
		catalog:   cat,
		gateway:   gateway,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrder registers a gateway order for productID and persists it locally
// in the created state. Identity checks happen at the handler boundary.
func (s *CheckoutService) CreateOrder(ctx context.Context, userID, productID string) (*CreatedOrder, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "payment.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("product_id", productID))

	if err := (CreateOrderRequest{ProductID: productID, UserID: userID}).Validate(); err != nil {
		return nil, err
	}

	lg := logger.FromOr(ctx, s.logger)

	pkg, ok := s.catalog.Lookup(productID)
	if !ok {
		return nil, internal.ErrUnknownProduct.WithMessage(fmt.Sprintf("unknown product %q", productID))
	}

	receipt := Receipt(userID, s.now())

	gatewayOrder, err := s.gateway.CreateOrder(ctx, &gatewaytypes.CreateOrderRequest{
		Amount:   pkg.Price,
		Currency: pkg.Currency,
		Receipt:  receipt,
		Notes: map[string]string{
			"user_id":    userID,
			"product_id": pkg.ID,
		},
	})
	if err != nil {
		lg.Error("gateway order creation failed", "error", err, "product_id", pkg.ID, "receipt", receipt)
		return nil, internal.ErrPaymentGateway.WithCause(err)
	}

	now := s.now().UTC()
	record := &orderDatamodel.Order{
		ID:        gatewayOrder.ID,
		UserID:    userID,
		ProductID: pkg.ID,
		Amount:    pkg.Price,
		Currency:  pkg.Currency,
		Credits:   pkg.Credits,
		Receipt:   receipt,
		Status:    orderDatamodel.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.Create(ctx, record); err != nil {
		// the gateway order now exists without a local row; keep its id for manual reconciliation
		lg.Error("failed to persist order", "error", err, "order_id", gatewayOrder.ID, "receipt", receipt)
		return nil, internal.ErrPersistence.WithMessage("failed to save order").WithCause(err)
	}

	observability.RecordOrderCreated(pkg.ID)
	if err := s.publisher.Publish(ctx, events.NewOrderCreatedEvent(record.ID, userID, pkg.ID, pkg.Price, pkg.Currency)); err != nil {
		lg.Warn("failed to publish order created event", "error", err, "order_id", record.ID)
	}

	lg.Info("order created", "order_id", record.ID, "product_id", pkg.ID, "amount", pkg.Price, "currency", pkg.Currency)

	return &CreatedOrder{
		ID:          record.ID,
		Amount:      record.Amount,
		Currency:    record.Currency,
		Receipt:     record.Receipt,
		PackageInfo: pkg,
	}, nil
}

// Receipt builds rcpt_<last 8 of userID>_<last 8 digits of unix millis>.
func Receipt(userID string, at time.Time) string {
	suffix := userID
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	millis := fmt.Sprintf("%d", at.UnixMilli())
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}
	return "rcpt_" + suffix + "_" + millis
}
