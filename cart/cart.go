// Package cart is the customer's order-in-progress for one browsing session.
// Every mutation is applied in memory first and then saved through a Storage,
// so a failing store never leaves a half-applied cart behind.
package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/tableorder/models"
)

// Line is one row of the cart. ID is local to the cart and unrelated to MenuID.
type Line struct {
	ID              string                  `json:"cartId"`
	MenuID          uint                    `json:"menuId"`
	Name            string                  `json:"name"`
	Price           decimal.Decimal         `json:"price"`
	Quantity        int                     `json:"quantity"`
	SelectedOptions []models.SelectedOption `json:"selectedOptions,omitempty"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	mu      sync.Mutex
	session string
	store   Storage
	lines   []Line
}

// New restores the session's cart from store, or starts empty when nothing was saved.
func New(ctx context.Context, session string, store Storage) (*Cart, error) {
	lines, err := store.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	c := &Cart{session: session, store: store}
	c.lines = sanitize(lines)
	return c, nil
}

func (c *Cart) Session() string { return c.session }

// AddItem merges into an existing line when the menu item and the option set
// (compared order-independently) match, otherwise it appends a new line.
// It returns the id of the line that received the quantity.
func (c *Cart) AddItem(ctx context.Context, item models.MenuItem, quantity int, selected []models.SelectedOption) (string, error) {
	if quantity < 1 {
		quantity = 1
	}
	opts := models.NormalizeOptions(selected)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MenuID == item.ID && models.SameOptions(c.lines[i].SelectedOptions, opts) {
			c.lines[i].Quantity += quantity
			return c.lines[i].ID, c.persist(ctx)
		}
	}

	line := Line{
		ID:              uuid.NewString(),
		MenuID:          item.ID,
		Name:            item.Name,
		Price:           item.UnitPrice(opts),
		Quantity:        quantity,
		SelectedOptions: opts,
	}
	c.lines = append(c.lines, line)
	return line.ID, c.persist(ctx)
}

// UpdateQuantity adds delta (which may be negative) to a line. A line that
// reaches zero is removed. Unknown ids are ignored.
func (c *Cart) UpdateQuantity(ctx context.Context, lineID string, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(lineID)
	if i < 0 {
		return nil
	}
	q := c.lines[i].Quantity + delta
	if q <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity = q
	}
	return c.persist(ctx)
}

// UpdateOptions replaces a line's selection and unit price in place. The line
// is not merged with another line that happens to hold the same selection.
func (c *Cart) UpdateOptions(ctx context.Context, lineID string, selected []models.SelectedOption, unitPrice decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(lineID)
	if i < 0 {
		return nil
	}
	c.lines[i].SelectedOptions = models.NormalizeOptions(selected)
	c.lines[i].Price = unitPrice
	return c.persist(ctx)
}

func (c *Cart) RemoveLine(ctx context.Context, lineID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(lineID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
	return c.persist(ctx)
}

// LoadCart replaces the whole cart.
func (c *Cart) LoadCart(ctx context.Context, lines []Line) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = sanitize(lines)
	return c.persist(ctx)
}

// LoadOrder puts the items of a submitted order back into the cart so they can
// be edited and submitted again against the same order.
func (c *Cart) LoadOrder(ctx context.Context, order models.Order) error {
	lines := make([]Line, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, Line{
			MenuID:          it.MenuID,
			Name:            it.Name,
			Price:           it.Price,
			Quantity:        it.Quantity,
			SelectedOptions: it.SelectedOptions,
		})
	}
	return c.LoadCart(ctx, lines)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	return c.persist(ctx)
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		l.SelectedOptions = append([]models.SelectedOption(nil), l.SelectedOptions...)
		out[i] = l
	}
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) Line(lineID string) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(lineID); i >= 0 {
		l := c.lines[i]
		l.SelectedOptions = append([]models.SelectedOption(nil), l.SelectedOptions...)
		return l, true
	}
	return Line{}, false
}

// TotalPrice is recomputed on every call.
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Submission builds the payload for the order store from the current lines.
func (c *Cart) Submission(table string, payment models.PaymentMethod, note string) models.OrderInput {
	lines := c.Lines()
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			MenuID:          l.MenuID,
			Name:            l.Name,
			Price:           l.Price,
			Quantity:        l.Quantity,
			SelectedOptions: l.SelectedOptions,
		})
	}
	total := c.TotalPrice()
	if payment == "" {
		payment = models.PaymentCash
	}
	return models.OrderInput{
		TableNumber:   table,
		Items:         items,
		TotalPrice:    &total,
		PaymentMethod: payment,
		Note:          note,
	}
}

func (c *Cart) index(lineID string) int {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

// persist must be called with c.mu held.
func (c *Cart) persist(ctx context.Context) error {
	snapshot := make([]Line, len(c.lines))
	copy(snapshot, c.lines)
	return c.store.Save(ctx, c.session, snapshot)
}

func sanitize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		l.SelectedOptions = models.NormalizeOptions(l.SelectedOptions)
		out = append(out, l)
	}
	return out
}
