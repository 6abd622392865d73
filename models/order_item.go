package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SelectedOption is a snapshot of one chosen value: group name, choice name, price delta.
type SelectedOption struct {
	Name   string          `json:"name" validate:"required"`
	Choice string          `json:"choice" validate:"required"`
	Price  decimal.Decimal `json:"price"`
}

type OrderItem struct {
	MenuID          uint             `json:"menuId" validate:"required"`
	Name            string           `json:"name" validate:"max=255"`
	Price           decimal.Decimal  `json:"price"`
	Quantity        int              `json:"quantity" validate:"min=1"`
	SelectedOptions []SelectedOption `json:"selectedOptions,omitempty" validate:"dive"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NormalizeOptions returns a copy sorted by group name, then choice name,
// so that two selections can be compared regardless of the order they were picked in.
func NormalizeOptions(opts []SelectedOption) []SelectedOption {
	out := make([]SelectedOption, len(opts))
	copy(out, opts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Choice < out[j].Choice
	})
	return out
}

// SameOptions reports whether a and b hold the same selection, ignoring order.
func SameOptions(a, b []SelectedOption) bool {
	if len(a) != len(b) {
		return false
	}
	na, nb := NormalizeOptions(a), NormalizeOptions(b)
	for i := range na {
		if na[i].Name != nb[i].Name || na[i].Choice != nb[i].Choice || !na[i].Price.Equal(nb[i].Price) {
			return false
		}
	}
	return true
}
