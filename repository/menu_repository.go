package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeremiapane/tableorder/models"
)

// MenuCatalog stores menu items. Records are validated on every write.
type MenuCatalog struct {
	DB *gorm.DB
}

func NewMenuCatalog(db *gorm.DB) *MenuCatalog {
	return &MenuCatalog{DB: db}
}

// List returns items sorted by category then name. An empty category lists
// everything.
func (m *MenuCatalog) List(ctx context.Context, category string) ([]models.MenuItem, error) {
	q := m.DB.WithContext(ctx).Order("category ASC, name ASC, id ASC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var items []models.MenuItem
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (m *MenuCatalog) Get(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := m.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("menu item %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &item, nil
}

func (m *MenuCatalog) Create(ctx context.Context, item *models.MenuItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	item.ID = 0
	return m.DB.WithContext(ctx).Create(item).Error
}

// Update replaces the stored record with item.
func (m *MenuCatalog) Update(ctx context.Context, item *models.MenuItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	existing, err := m.Get(ctx, item.ID)
	if err != nil {
		return err
	}
	item.CreatedAt = existing.CreatedAt
	return m.DB.WithContext(ctx).Save(item).Error
}

func (m *MenuCatalog) Delete(ctx context.Context, id uint) error {
	res := m.DB.WithContext(ctx).Delete(&models.MenuItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("menu item %d: %w", id, ErrNotFound)
	}
	return nil
}

func (m *MenuCatalog) Count(ctx context.Context) (int64, error) {
	var n int64
	err := m.DB.WithContext(ctx).Model(&models.MenuItem{}).Count(&n).Error
	return n, err
}
