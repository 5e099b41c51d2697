package paymentgateway

import (
	"errors"
)

type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "created"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusFailed     PaymentStatus = "failed"
)

type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

func (r *CreateOrderRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	if len(r.Receipt) > 40 {
		return errors.New("receipt must not exceed 40 characters")
	}
	return nil
}

type Order struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	Amount     int64             `json:"amount"`
	AmountPaid int64             `json:"amount_paid"`
	AmountDue  int64             `json:"amount_due"`
	Currency   string            `json:"currency"`
	Receipt    string            `json:"receipt"`
	Status     string            `json:"status"`
	Attempts   int               `json:"attempts"`
	Notes      map[string]string `json:"notes,omitempty"`
	CreatedAt  int64             `json:"created_at"`
}

type Payment struct {
	ID               string        `json:"id"`
	Entity           string        `json:"entity"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Status           PaymentStatus `json:"status"`
	OrderID          string        `json:"order_id"`
	Method           string        `json:"method"`
	Captured         bool          `json:"captured"`
	ErrorCode        *string       `json:"error_code"`
	ErrorDescription *string       `json:"error_description"`
	ErrorReason      *string       `json:"error_reason"`
	CreatedAt        int64         `json:"created_at"`
}

func (p *Payment) IsCaptured() bool {
	return p.Status == PaymentStatusCaptured
}

func (p *Payment) FailureCode() string {
	if p.ErrorCode == nil {
		return ""
	}
	return *p.ErrorCode
}

func (p *Payment) FailureReason() string {
	if p.ErrorDescription != nil && *p.ErrorDescription != "" {
		return *p.ErrorDescription
	}
	if p.ErrorReason != nil {
		return *p.ErrorReason
	}
	return ""
}

type PaymentCollection struct {
	Entity string    `json:"entity"`
	Count  int       `json:"count"`
	Items  []Payment `json:"items"`
}

// ErrorResponse is the gateway's error envelope.
type ErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Source      string `json:"source,omitempty"`
		Step        string `json:"step,omitempty"`
		Reason      string `json:"reason,omitempty"`
	} `json:"error"`
}
