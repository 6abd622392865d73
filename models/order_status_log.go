package models

import "time"

// OrderStatusLog records one status transition of an order.
type OrderStatusLog struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"orderId"`
	From      OrderStatus `gorm:"type:varchar(20)" json:"from"`
	To        OrderStatus `gorm:"type:varchar(20);not null" json:"to"`
	ChangedBy string      `gorm:"type:varchar(50)" json:"changedBy"`
	ChangedAt time.Time   `gorm:"not null" json:"changedAt"`
}
