package credit

import (
	errors "github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/core/common/validation"
)

type BalanceResponse struct {
	Credits int64 `json:"credits"`
}

type ConsumeRequest struct {
	Amount int64 `json:"amount"`
}

func (r ConsumeRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("amount", r.Amount).Required().MinInt(1, errors.ErrCodeInvalidInput)
	return v.Validate()
}

type ConsumeResponse struct {
	Success bool  `json:"success"`
	Credits int64 `json:"credits"`
}
