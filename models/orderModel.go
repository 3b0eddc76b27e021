package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderConfirmed OrderStatus = "confirmed"
	OrderRejected  OrderStatus = "rejected"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderConfirmed || s == OrderRejected
}

type Order struct {
	gorm.Model
	BuyerID     uint            `json:"buyerId" gorm:"not null;index"`
	TotalAmount decimal.Decimal `json:"totalAmount" gorm:"type:decimal(10,2);not null"`
	Status      OrderStatus     `json:"status" gorm:"size:20;not null;index"`

	// M-Pesa correlation, filled in when an STK push is accepted and again
	// when its callback arrives.
	CheckoutRequestID string         `json:"checkoutRequestId,omitempty" gorm:"size:100;index"`
	MerchantRequestID string         `json:"merchantRequestId,omitempty" gorm:"size:100"`
	ResultCode        *int           `json:"resultCode,omitempty"`
	ResultDesc        string         `json:"resultDesc,omitempty" gorm:"size:255"`
	Receipt           string         `json:"receipt,omitempty" gorm:"size:100"`
	CallbackPayload   datatypes.JSON `json:"-"`

	OrderItems []OrderItem `json:"orderItems" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// HasFarmer reports whether farmerID owns at least one line of the order.
func (o Order) HasFarmer(farmerID uint) bool {
	for _, item := range o.OrderItems {
		if item.FarmerID == farmerID {
			return true
		}
	}
	return false
}

func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.OrderItems {
		total = total.Add(item.LineTotal())
	}
	return total
}

type OrderItem struct {
	gorm.Model
	OrderID   uint            `json:"orderId" gorm:"not null;index"`
	AnimalID  uint            `json:"animalId" gorm:"not null;index"`
	FarmerID  uint            `json:"farmerId" gorm:"not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unitPrice" gorm:"type:decimal(10,2);not null"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"-"`
	Animal    *Animal         `json:"animal,omitempty" gorm:"foreignKey:AnimalID"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *OrderItem) AfterFind(tx *gorm.DB) error {
	i.Subtotal = i.LineTotal()
	return nil
}

type PayOrderInput struct {
	Provider    string `json:"provider" binding:"omitempty,oneof=mock mpesa"`
	PhoneNumber string `json:"phoneNumber" binding:"omitempty,min=9,max=15"`
}
