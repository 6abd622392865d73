package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curry() MenuItem {
	return MenuItem{
		Name:      "Curry",
		Price:     decimal.NewFromInt(50),
		Category:  "Mains",
		Available: true,
		Options: []OptionGroup{
			{Name: "Spice Level", Type: SelectionSingle, Choices: []Choice{
				{Name: "Mild", Price: decimal.Zero, Available: true},
				{Name: "Hot", Price: decimal.NewFromInt(20), Available: true},
			}},
			{Name: "Extras", Type: SelectionMultiple, Choices: []Choice{
				{Name: "Rice", Price: decimal.NewFromInt(10), Available: true},
				{Name: "Naan", Price: decimal.NewFromInt(15), Available: false},
				{Name: "Raita", Price: decimal.NewFromInt(5), Available: true},
			}},
		},
	}
}

func TestMenuItemValidate(t *testing.T) {
	m := curry()
	assert.NoError(t, m.Validate())

	bad := curry()
	bad.Options[0].Type = "some"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = curry()
	bad.Price = decimal.NewFromInt(-1)
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = curry()
	bad.Options = append(bad.Options, OptionGroup{Name: "Extras", Type: SelectionMultiple, Choices: []Choice{{Name: "x"}}})
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = curry()
	bad.Name = ""
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}

func TestResolveOptions(t *testing.T) {
	m := curry()

	got, err := m.ResolveOptions([]SelectedOption{{Name: "Spice Level", Choice: "Hot", Price: decimal.NewFromInt(999)}})
	require.NoError(t, err)
	assert.Equal(t, "20", got[0].Price.String(), "catalog delta wins over the submitted one")
	assert.Equal(t, "70", m.UnitPrice(got).String())

	_, err = m.ResolveOptions([]SelectedOption{
		{Name: "Spice Level", Choice: "Hot"},
		{Name: "Spice Level", Choice: "Mild"},
	})
	assert.ErrorIs(t, err, ErrValidation, "single group takes one choice")

	got, err = m.ResolveOptions([]SelectedOption{
		{Name: "Extras", Choice: "Rice"},
		{Name: "Extras", Choice: "Raita"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = m.ResolveOptions([]SelectedOption{
		{Name: "Extras", Choice: "Rice"},
		{Name: "Extras", Choice: "Rice"},
	})
	assert.ErrorIs(t, err, ErrValidation, "a choice counts once")

	_, err = m.ResolveOptions([]SelectedOption{{Name: "Extras", Choice: "Naan"}})
	assert.ErrorIs(t, err, ErrValidation, "unavailable choice")

	_, err = m.ResolveOptions([]SelectedOption{{Name: "Sauce", Choice: "Mint"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSameOptionsIgnoresOrder(t *testing.T) {
	a := []SelectedOption{
		{Name: "Spice Level", Choice: "Hot", Price: decimal.NewFromInt(20)},
		{Name: "Extras", Choice: "Rice", Price: decimal.NewFromInt(10)},
	}
	b := []SelectedOption{a[1], a[0]}
	assert.True(t, SameOptions(a, b))
	assert.False(t, SameOptions(a, a[:1]))
	assert.True(t, SameOptions(nil, []SelectedOption{}))

	c := []SelectedOption{a[0], {Name: "Extras", Choice: "Raita", Price: decimal.NewFromInt(5)}}
	assert.False(t, SameOptions(a, c))
}

func TestOrderInputValidate(t *testing.T) {
	total := decimal.NewFromInt(270)
	in := OrderInput{
		TableNumber: " 7 ",
		Items: []OrderItem{
			{MenuID: 1, Name: "A", Price: decimal.NewFromInt(100), Quantity: 2},
			{MenuID: 2, Name: "B", Price: decimal.NewFromInt(70), Quantity: 1},
		},
		TotalPrice:    &total,
		PaymentMethod: PaymentCash,
	}
	require.NoError(t, in.Validate())
	assert.Equal(t, "7", in.TableNumber)

	wrong := decimal.NewFromInt(260)
	in.TotalPrice = &wrong
	assert.ErrorIs(t, in.Validate(), ErrValidation)

	in.TotalPrice = nil
	in.PaymentMethod = "Card"
	assert.ErrorIs(t, in.Validate(), ErrValidation)

	in.PaymentMethod = PaymentOnline
	in.Items[0].Quantity = 0
	assert.ErrorIs(t, in.Validate(), ErrValidation)

	empty := OrderInput{TableNumber: "7"}
	assert.ErrorIs(t, empty.Validate(), ErrValidation)
}

func TestOrderJSONUsesPlainNumbers(t *testing.T) {
	o := Order{
		TableNumber: "7",
		Items:       []OrderItem{{MenuID: 1, Name: "A", Price: decimal.NewFromInt(100), Quantity: 2}},
		Status:      StatusPending,
	}
	o.Recalculate()
	raw, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"totalPrice":200`)
	assert.Contains(t, string(raw), `"tableNumber":"7"`)
	assert.Equal(t, 2, o.ItemCount())
}
