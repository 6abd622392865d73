package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/tableorder/models"
)

// OrderStore persists orders and their status history.
type OrderStore struct {
	DB *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{DB: db}
}

// Create inserts order and records its initial status.
func (s *OrderStore) Create(ctx context.Context, order *models.Order, actor string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return tx.Create(&models.OrderStatusLog{
			OrderID:   order.ID,
			To:        order.Status,
			ChangedBy: actor,
			ChangedAt: order.CreatedAt,
		}).Error
	})
}

func (s *OrderStore) Get(ctx context.Context, id uint) (*models.Order, error) {
	return getOrder(s.DB.WithContext(ctx), id)
}

func getOrder(db *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	if err := db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &order, nil
}

// List returns orders newest first, optionally restricted to one status.
func (s *OrderStore) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderStore) ListByTable(ctx context.Context, table string) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Where("table_number = ?", table).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves order id from one status to another, provided it is
// still in from. The transition is logged in the same transaction.
func (s *OrderStore) UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus, actor string) (*models.Order, error) {
	var updated *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, from).
			Updates(models.Order{Status: to, UpdatedAt: now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrConflict(tx, id)
		}

		if err := tx.Create(&models.OrderStatusLog{
			OrderID:   id,
			From:      from,
			To:        to,
			ChangedBy: actor,
			ChangedAt: now,
		}).Error; err != nil {
			return err
		}

		order, err := getOrder(tx, id)
		if err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SaveEditable writes the editable fields of order (items, total, note and
// payment method) if its stored status is still expected.
func (s *OrderStore) SaveEditable(ctx context.Context, order *models.Order, expected models.OrderStatus) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order.UpdatedAt = time.Now()
		res := tx.Model(order).
			Where("status = ?", expected).
			Select("Items", "TotalPrice", "Note", "PaymentMethod", "UpdatedAt").
			Updates(order)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrConflict(tx, order.ID)
		}
		return nil
	})
}

// History returns the status log of an order, oldest first.
func (s *OrderStore) History(ctx context.Context, id uint) ([]models.OrderStatusLog, error) {
	var logs []models.OrderStatusLog
	err := s.DB.WithContext(ctx).
		Where("order_id = ?", id).
		Order("changed_at ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func missingOrConflict(tx *gorm.DB, id uint) error {
	if _, err := getOrder(tx, id); err != nil {
		return err
	}
	return fmt.Errorf("order %d: %w", id, ErrConflict)
}
