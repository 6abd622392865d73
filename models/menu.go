package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type SelectionMode string

const (
	SelectionSingle   SelectionMode = "single"
	SelectionMultiple SelectionMode = "multiple"
)

type Choice struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

// OptionGroup is one customization axis of a menu item, e.g. "Spice Level".
type OptionGroup struct {
	Name    string        `json:"name"`
	Type    SelectionMode `json:"type"`
	Choices []Choice      `json:"choices"`
}

type MenuItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    string          `gorm:"type:varchar(100);not null;index" json:"category" validate:"required,max=100"`
	Available   bool            `gorm:"not null" json:"available"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Image       string          `gorm:"type:varchar(255)" json:"image,omitempty" validate:"omitempty,max=255"`
	Options     []OptionGroup   `gorm:"serializer:json;type:text" json:"options,omitempty"`
	CreatedAt   time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updatedAt"`
}

// Validate rejects malformed catalog records before they are stored.
func (m *MenuItem) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if m.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	groups := make(map[string]bool, len(m.Options))
	for _, g := range m.Options {
		if g.Name == "" {
			return fmt.Errorf("%w: option group name is required", ErrValidation)
		}
		if groups[g.Name] {
			return fmt.Errorf("%w: duplicate option group %q", ErrValidation, g.Name)
		}
		groups[g.Name] = true

		if g.Type != SelectionSingle && g.Type != SelectionMultiple {
			return fmt.Errorf("%w: option group %q has unknown type %q", ErrValidation, g.Name, g.Type)
		}
		if len(g.Choices) == 0 {
			return fmt.Errorf("%w: option group %q has no choices", ErrValidation, g.Name)
		}
		choices := make(map[string]bool, len(g.Choices))
		for _, ch := range g.Choices {
			if ch.Name == "" {
				return fmt.Errorf("%w: choice name is required in group %q", ErrValidation, g.Name)
			}
			if choices[ch.Name] {
				return fmt.Errorf("%w: duplicate choice %q in group %q", ErrValidation, ch.Name, g.Name)
			}
			choices[ch.Name] = true
		}
	}
	return nil
}

func (m *MenuItem) group(name string) (OptionGroup, bool) {
	for _, g := range m.Options {
		if g.Name == name {
			return g, true
		}
	}
	return OptionGroup{}, false
}

// ResolveOptions checks a selection against the item's option groups and
// returns it with the catalog's price deltas.
func (m *MenuItem) ResolveOptions(selected []SelectedOption) ([]SelectedOption, error) {
	if len(selected) == 0 {
		return nil, nil
	}
	out := make([]SelectedOption, 0, len(selected))
	perGroup := make(map[string]int)
	seen := make(map[[2]string]bool)
	for _, sel := range selected {
		g, ok := m.group(sel.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q has no option group %q", ErrValidation, m.Name, sel.Name)
		}
		var found *Choice
		for i := range g.Choices {
			if g.Choices[i].Name == sel.Choice {
				found = &g.Choices[i]
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("%w: option group %q has no choice %q", ErrValidation, g.Name, sel.Choice)
		}
		if !found.Available {
			return nil, fmt.Errorf("%w: choice %q is not available", ErrValidation, found.Name)
		}
		pick := [2]string{g.Name, found.Name}
		if seen[pick] {
			return nil, fmt.Errorf("%w: choice %q selected twice in %q", ErrValidation, found.Name, g.Name)
		}
		seen[pick] = true
		perGroup[g.Name]++
		if g.Type == SelectionSingle && perGroup[g.Name] > 1 {
			return nil, fmt.Errorf("%w: option group %q allows a single choice", ErrValidation, g.Name)
		}
		out = append(out, SelectedOption{Name: g.Name, Choice: found.Name, Price: found.Price})
	}
	return out, nil
}

// UnitPrice is the base price plus the deltas of the given selection.
func (m *MenuItem) UnitPrice(selected []SelectedOption) decimal.Decimal {
	price := m.Price
	for _, sel := range selected {
		price = price.Add(sel.Price)
	}
	return price
}
