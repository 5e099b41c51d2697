// Package paymentgateway is a client for the Razorpay REST API.
package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/frahmantamala/credit-payments/internal"
	gatewaytypes "github.com/frahmantamala/credit-payments/internal/core/datamodel/paymentgateway"
)

const tracerName = "github.com/frahmantamala/credit-payments/internal/paymentgateway"

type Config struct {
	BaseURL    string
	KeyID      string
	KeySecret  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	timeout   time.Duration
	client    *http.Client
	logger    *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = internal.DefaultGatewayTimeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		keyID:     config.KeyID,
		keySecret: config.KeySecret,
		timeout:   timeout,
		client:    httpClient,
		logger:    logger,
	}
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway returned %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("gateway returned %d", e.StatusCode)
}

// IsRetryable reports whether err is a timeout, transport failure or 5xx, as opposed to a definitive 4xx.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func (c *Client) CreateOrder(ctx context.Context, req *gatewaytypes.CreateOrderRequest) (*gatewaytypes.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var order gatewaytypes.Order
	if err := c.do(ctx, "CreateOrder", http.MethodPost, "/v1/orders", req, &order); err != nil {
		c.logger.Error("gateway create order failed", "error", err, "receipt", req.Receipt, "amount", req.Amount)
		return nil, err
	}

	c.logger.Info("gateway order created", "order_id", order.ID, "receipt", order.Receipt, "amount", order.Amount)
	return &order, nil
}

func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*gatewaytypes.Payment, error) {
	if paymentID == "" {
		return nil, errors.New("payment id is required")
	}

	var payment gatewaytypes.Payment
	path := "/v1/payments/" + url.PathEscape(paymentID)
	if err := c.do(ctx, "FetchPayment", http.MethodGet, path, nil, &payment); err != nil {
		c.logger.Error("gateway fetch payment failed", "error", err, "payment_id", paymentID)
		return nil, err
	}

	c.logger.Debug("gateway payment fetched", "payment_id", payment.ID, "order_id", payment.OrderID, "status", payment.Status)
	return &payment, nil
}

// FetchOrderPayments lists every payment attempt made against an order.
func (c *Client) FetchOrderPayments(ctx context.Context, orderID string) ([]gatewaytypes.Payment, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}

	var collection gatewaytypes.PaymentCollection
	path := "/v1/orders/" + url.PathEscape(orderID) + "/payments"
	if err := c.do(ctx, "FetchOrderPayments", http.MethodGet, path, nil, &collection); err != nil {
		c.logger.Error("gateway fetch order payments failed", "error", err, "order_id", orderID)
		return nil, err
	}

	return collection.Items, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "razorpay."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)

	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("request creation error: %w", err)
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("response read error: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope gatewaytypes.ErrorResponse
		if json.Unmarshal(respBody, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Description = envelope.Error.Description
		}
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("response unmarshal error: %w", err)
	}
	return nil
}
