package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusCooking   OrderStatus = "Cooking"
	StatusPlating   OrderStatus = "Plating"
	StatusServing   OrderStatus = "Serving"
	StatusCompleted OrderStatus = "Completed"
	StatusCancelled OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCooking, StatusPlating, StatusServing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentOnline PaymentMethod = "Online"
)

type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TableNumber   string          `gorm:"type:varchar(50);not null;index" json:"tableNumber"`
	Items         []OrderItem     `gorm:"serializer:json;type:text;not null" json:"items"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalPrice"`
	Status        OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(10);not null" json:"paymentMethod"`
	Note          string          `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;index" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updatedAt"`
}

// Recalculate sets TotalPrice from the items. It is the only writer of the total.
func (o *Order) Recalculate() {
	o.TotalPrice = TotalOf(o.Items)
}

func TotalOf(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// OrderInput is what a customer submits, either to create an order or to
// replace the items of a Pending one.
type OrderInput struct {
	TableNumber   string           `json:"tableNumber" validate:"required,max=50"`
	Items         []OrderItem      `json:"items" validate:"required,min=1,dive"`
	TotalPrice    *decimal.Decimal `json:"totalPrice,omitempty"`
	PaymentMethod PaymentMethod    `json:"paymentMethod" validate:"omitempty,oneof=Cash Online"`
	Note          string           `json:"note" validate:"max=500"`
}

// Validate checks the closed schema of a submission. A total, when present,
// must match the items.
func (in *OrderInput) Validate() error {
	in.TableNumber = strings.TrimSpace(in.TableNumber)
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for _, it := range in.Items {
		if it.Price.IsNegative() {
			return fmt.Errorf("%w: item %q has a negative price", ErrValidation, it.Name)
		}
	}
	if in.TotalPrice != nil && !in.TotalPrice.Equal(TotalOf(in.Items)) {
		return fmt.Errorf("%w: totalPrice %s does not match items total %s",
			ErrValidation, in.TotalPrice.String(), TotalOf(in.Items).String())
	}
	return nil
}
