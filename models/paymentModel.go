package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	// PaymentRefundRequired marks money collected for an order that could
	// no longer take it: already settled, rejected or confirmed.
	PaymentRefundRequired PaymentStatus = "refund_required"
)

// Payment is one attempt to settle an order. An order has at most one
// succeeded payment.
type Payment struct {
	gorm.Model
	OrderID               uint            `json:"orderId" gorm:"not null;index"`
	Amount                decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Provider              string          `json:"provider" gorm:"size:50;not null"`
	ProviderTransactionID string          `json:"providerTransactionId" gorm:"size:255;index"`
	Status                PaymentStatus   `json:"status" gorm:"size:20;not null;index"`
	ResultCode            *int            `json:"resultCode,omitempty"`
	ResultDesc            string          `json:"resultDesc,omitempty" gorm:"size:255"`
	Receipt               string          `json:"receipt,omitempty" gorm:"size:100"`
}
