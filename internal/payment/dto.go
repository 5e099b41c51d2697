package payment

import (
	errors "github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/catalog"
	"github.com/frahmantamala/credit-payments/internal/core/common/validation"
)

type CreateOrderRequest struct {
	ProductID string `json:"productId"`
	UserID    string `json:"userId"`
}

func (r CreateOrderRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("productId", r.ProductID).Required()
	v.Field("userId", r.UserID).Required().MaxLength(128)
	return v.Validate()
}

type CreatedOrder struct {
	ID          string          `json:"id"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Receipt     string          `json:"receipt"`
	PackageInfo catalog.Package `json:"packageInfo"`
}

type CreateOrderResponse struct {
	Order *CreatedOrder `json:"order"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
	UserID    string `json:"userId"`
}

func (r VerifyPaymentRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("orderId", r.OrderID).Required()
	v.Field("paymentId", r.PaymentID).Required()
	v.Field("signature", r.Signature).Required()
	v.Field("userId", r.UserID).Required()
	return v.Validate()
}

type VerifyPaymentResponse struct {
	Success bool  `json:"success"`
	Credits int64 `json:"credits"`
}

type WebhookResponse struct {
	Success bool `json:"success"`
}
