package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/tableorder/kds"
	"github.com/yeremiapane/tableorder/lifecycle"
	"github.com/yeremiapane/tableorder/metrics"
	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/repository"
	"github.com/yeremiapane/tableorder/utils"
)

var ErrValidation = models.ErrValidation

// Broadcaster publishes order events to the realtime channel.
type Broadcaster interface {
	PublishNewOrder(ctx context.Context, order models.Order) error
	PublishStatus(ctx context.Context, upd kds.StatusUpdate) error
}

type OrderService struct {
	Orders      *repository.OrderStore
	Menu        *repository.MenuCatalog
	Broadcaster Broadcaster
}

func NewOrderService(orders *repository.OrderStore, menu *repository.MenuCatalog, b Broadcaster) *OrderService {
	return &OrderService{Orders: orders, Menu: menu, Broadcaster: b}
}

// PatchInput is the body of a generic order PATCH. Status and Items are
// mutually exclusive.
type PatchInput struct {
	Status        *models.OrderStatus   `json:"status,omitempty"`
	Items         []models.OrderItem    `json:"items,omitempty"`
	TotalPrice    *decimal.Decimal      `json:"totalPrice,omitempty"`
	Note          *string               `json:"note,omitempty"`
	PaymentMethod *models.PaymentMethod `json:"paymentMethod,omitempty"`
}

// Create validates a submission against the catalog and stores it as a
// Pending order.
func (s *OrderService) Create(ctx context.Context, in models.OrderInput, actor string) (*models.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	items, err := s.resolveItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		TableNumber:   in.TableNumber,
		Items:         items,
		Status:        models.StatusPending,
		PaymentMethod: in.PaymentMethod,
		Note:          in.Note,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = models.PaymentCash
	}
	order.Recalculate()

	if err := s.Orders.Create(ctx, order, actor); err != nil {
		return nil, err
	}
	metrics.OrdersCreated.Inc()

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"table":    order.TableNumber,
		"total":    order.TotalPrice.String(),
	}).Info("Order created")

	if s.Broadcaster != nil {
		if err := s.Broadcaster.PublishNewOrder(ctx, *order); err != nil {
			utils.ErrorLogger.Printf("Error broadcasting new order %d: %v", order.ID, err)
		}
	}
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	return s.Orders.Get(ctx, id)
}

func (s *OrderService) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.Orders.List(ctx, status)
}

func (s *OrderService) ListByTable(ctx context.Context, table string) ([]models.Order, error) {
	return s.Orders.ListByTable(ctx, table)
}

func (s *OrderService) History(ctx context.Context, id uint) ([]models.OrderStatusLog, error) {
	if _, err := s.Orders.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Orders.History(ctx, id)
}

// Advance moves the order one step forward. An empty to means the next
// status in the chain.
func (s *OrderService) Advance(ctx context.Context, id uint, to models.OrderStatus, actor string) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if to == "" {
		next, ok := lifecycle.Next(order.Status)
		if !ok {
			return nil, fmt.Errorf("%w: %s", lifecycle.ErrTerminal, order.Status)
		}
		to = next
	}
	if err := lifecycle.CanAdvance(order.Status, to); err != nil {
		return nil, err
	}
	return s.transition(ctx, order, to, actor)
}

func (s *OrderService) Cancel(ctx context.Context, id uint, actor string) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanCancel(order.Status); err != nil {
		return nil, err
	}
	return s.transition(ctx, order, models.StatusCancelled, actor)
}

// SetStatus applies any allowed transition to status. Asking for the status
// the order already has re-announces it without changing anything.
func (s *OrderService) SetStatus(ctx context.Context, id uint, status models.OrderStatus, actor string) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		s.publishStatus(ctx, order)
		return order, nil
	}
	if err := lifecycle.Validate(order.Status, status); err != nil {
		return nil, err
	}
	return s.transition(ctx, order, status, actor)
}

// RemoveItem drops the line at index. Removing the only line cancels the
// order instead.
func (s *OrderService) RemoveItem(ctx context.Context, id uint, index int, actor string) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanEdit(order.Status); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(order.Items) {
		return nil, fmt.Errorf("%w: item index %d out of range", ErrValidation, index)
	}
	if len(order.Items) == 1 {
		return s.transition(ctx, order, models.StatusCancelled, actor)
	}

	items := make([]models.OrderItem, 0, len(order.Items)-1)
	items = append(items, order.Items[:index]...)
	items = append(items, order.Items[index+1:]...)
	order.Items = items
	order.Recalculate()

	if err := s.Orders.SaveEditable(ctx, order, models.StatusPending); err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{"order_id": order.ID, "index": index, "by": actor}).Info("Order item removed")
	s.publishStatus(ctx, order)
	return order, nil
}

// ReplaceItems swaps the whole item list of a Pending order, keeping its
// identity. An empty note leaves the current one in place.
func (s *OrderService) ReplaceItems(ctx context.Context, id uint, in models.OrderInput, actor string) (*models.Order, error) {
	var note *string
	if in.Note != "" {
		note = &in.Note
	}
	return s.replaceItems(ctx, id, in, note, actor)
}

func (s *OrderService) replaceItems(ctx context.Context, id uint, in models.OrderInput, note *string, actor string) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanEdit(order.Status); err != nil {
		return nil, err
	}
	if in.TableNumber == "" {
		in.TableNumber = order.TableNumber
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.TableNumber != order.TableNumber {
		return nil, fmt.Errorf("%w: order belongs to table %s", ErrValidation, order.TableNumber)
	}
	items, err := s.resolveItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	order.Items = items
	order.Recalculate()
	if in.PaymentMethod != "" {
		order.PaymentMethod = in.PaymentMethod
	}
	if note != nil {
		order.Note = *note
	}
	if err := s.Orders.SaveEditable(ctx, order, models.StatusPending); err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{"order_id": order.ID, "items": len(items), "by": actor}).Info("Order items replaced")
	s.publishStatus(ctx, order)
	return order, nil
}

// Patch dispatches a generic update on the fields present in in.
func (s *OrderService) Patch(ctx context.Context, id uint, in PatchInput, actor string) (*models.Order, error) {
	switch {
	case in.Status != nil && in.Items != nil:
		return nil, fmt.Errorf("%w: status and items cannot be changed together", ErrValidation)
	case in.Status != nil:
		return s.SetStatus(ctx, id, *in.Status, actor)
	case in.Items != nil:
		edit := models.OrderInput{Items: in.Items, TotalPrice: in.TotalPrice}
		if in.Note != nil {
			edit.Note = *in.Note
		}
		if in.PaymentMethod != nil {
			edit.PaymentMethod = *in.PaymentMethod
		}
		return s.replaceItems(ctx, id, edit, in.Note, actor)
	case in.Note != nil || in.PaymentMethod != nil:
		return s.updateDetails(ctx, id, in.Note, in.PaymentMethod, actor)
	}
	return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
}

func (s *OrderService) updateDetails(ctx context.Context, id uint, note *string, method *models.PaymentMethod, actor string) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanEdit(order.Status); err != nil {
		return nil, err
	}
	if method != nil {
		if *method != models.PaymentCash && *method != models.PaymentOnline {
			return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, *method)
		}
		order.PaymentMethod = *method
	}
	if note != nil {
		if len(*note) > 500 {
			return nil, fmt.Errorf("%w: note is too long", ErrValidation)
		}
		order.Note = *note
	}
	if err := s.Orders.SaveEditable(ctx, order, models.StatusPending); err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{"order_id": order.ID, "by": actor}).Info("Order details updated")
	s.publishStatus(ctx, order)
	return order, nil
}

func (s *OrderService) transition(ctx context.Context, order *models.Order, to models.OrderStatus, actor string) (*models.Order, error) {
	updated, err := s.Orders.UpdateStatus(ctx, order.ID, order.Status, to, actor)
	if err != nil {
		return nil, err
	}
	metrics.Transitions.WithLabelValues(string(to)).Inc()
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": updated.ID,
		"table":    updated.TableNumber,
		"from":     order.Status,
		"to":       to,
		"by":       actor,
	}).Info("Order status changed")
	s.publishStatus(ctx, updated)
	return updated, nil
}

func (s *OrderService) publishStatus(ctx context.Context, order *models.Order) {
	if s.Broadcaster == nil {
		return
	}
	err := s.Broadcaster.PublishStatus(ctx, kds.StatusUpdate{
		OrderID:     order.ID,
		TableNumber: order.TableNumber,
		Status:      order.Status,
	})
	if err != nil {
		utils.ErrorLogger.Printf("Error broadcasting status of order %d: %v", order.ID, err)
	}
}

// resolveItems checks each line against the catalog and returns the lines
// with catalog names and prices.
func (s *OrderService) resolveItems(ctx context.Context, items []models.OrderItem) ([]models.OrderItem, error) {
	out := make([]models.OrderItem, 0, len(items))
	for i, it := range items {
		menu, err := s.Menu.Get(ctx, it.MenuID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: item %d: menu item %d does not exist", ErrValidation, i, it.MenuID)
			}
			return nil, err
		}
		if !menu.Available {
			return nil, fmt.Errorf("%w: %s is not available", ErrValidation, menu.Name)
		}
		selected, err := menu.ResolveOptions(it.SelectedOptions)
		if err != nil {
			return nil, err
		}
		unit := menu.UnitPrice(selected)
		if !it.Price.IsZero() && !it.Price.Equal(unit) {
			return nil, fmt.Errorf("%w: price of %s is %s, not %s", ErrValidation, menu.Name, unit.String(), it.Price.String())
		}
		out = append(out, models.OrderItem{
			MenuID:          menu.ID,
			Name:            menu.Name,
			Price:           unit,
			Quantity:        it.Quantity,
			SelectedOptions: selected,
		})
	}
	return out, nil
}
