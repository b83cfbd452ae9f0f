package models

import "github.com/shopspring/decimal"

// OrderItem snapshots a product line at order time.
type OrderItem struct {
	ID          uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     uint64          `gorm:"column:order_id;not null;index:idx_order_items_order_id"`
	ProductID   uint64          `gorm:"column:product_id;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}

func (OrderItem) TableName() string { return "order_items" }
