package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/tableorder/lifecycle"
	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/repository"
)

type ReportService struct {
	DB     *gorm.DB
	Orders *repository.OrderStore
	Menu   *repository.MenuCatalog
}

func NewReportService(db *gorm.DB, orders *repository.OrderStore, menu *repository.MenuCatalog) *ReportService {
	return &ReportService{DB: db, Orders: orders, Menu: menu}
}

type Dashboard struct {
	TotalRevenue    decimal.Decimal              `json:"totalRevenue"`
	ActiveOrders    int64                        `json:"activeOrders"`
	CompletedOrders int64                        `json:"completedOrders"`
	CancelledOrders int64                        `json:"cancelledOrders"`
	MenuItems       int64                        `json:"menuItems"`
	ByStatus        map[models.OrderStatus]int64 `json:"byStatus"`
}

type TableSummary struct {
	TableNumber     string          `json:"tableNumber"`
	TotalSpent      decimal.Decimal `json:"totalSpent"`
	ItemCount       int             `json:"itemCount"`
	CompletedOrders int             `json:"completedOrders"`
	ActiveOrders    int             `json:"activeOrders"`
}

type PopularItem struct {
	MenuID   uint            `json:"menuId"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	d := &Dashboard{ByStatus: make(map[models.OrderStatus]int64)}
	for _, r := range rows {
		d.ByStatus[r.Status] = r.Count
		switch {
		case r.Status == models.StatusCompleted:
			d.CompletedOrders = r.Count
		case r.Status == models.StatusCancelled:
			d.CancelledOrders = r.Count
		case !lifecycle.IsTerminal(r.Status):
			d.ActiveOrders += r.Count
		}
	}

	completed, err := s.Orders.List(ctx, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	d.TotalRevenue = decimal.Zero
	for _, o := range completed {
		d.TotalRevenue = d.TotalRevenue.Add(o.TotalPrice)
	}

	if d.MenuItems, err = s.Menu.Count(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// TableSummary totals what a table has ordered, leaving cancelled orders out.
func (s *ReportService) TableSummary(ctx context.Context, table string) (*TableSummary, error) {
	orders, err := s.Orders.ListByTable(ctx, table)
	if err != nil {
		return nil, err
	}
	sum := &TableSummary{TableNumber: table, TotalSpent: decimal.Zero}
	for _, o := range orders {
		if o.Status == models.StatusCancelled {
			continue
		}
		sum.TotalSpent = sum.TotalSpent.Add(o.TotalPrice)
		sum.ItemCount += o.ItemCount()
		if o.Status == models.StatusCompleted {
			sum.CompletedOrders++
		} else {
			sum.ActiveOrders++
		}
	}
	return sum, nil
}

// Popular ranks menu items by quantity ordered. limit <= 0 returns all.
func (s *ReportService) Popular(ctx context.Context, limit int) ([]PopularItem, error) {
	orders, err := s.Orders.List(ctx, "")
	if err != nil {
		return nil, err
	}
	byMenu := make(map[uint]*PopularItem)
	for _, o := range orders {
		if o.Status == models.StatusCancelled {
			continue
		}
		for _, it := range o.Items {
			p, ok := byMenu[it.MenuID]
			if !ok {
				p = &PopularItem{MenuID: it.MenuID, Name: it.Name, Revenue: decimal.Zero}
				byMenu[it.MenuID] = p
			}
			p.Quantity += it.Quantity
			p.Revenue = p.Revenue.Add(it.Subtotal())
		}
	}

	out := make([]PopularItem, 0, len(byMenu))
	for _, p := range byMenu {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
