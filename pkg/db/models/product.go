package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

// Product is one orderable menu item.
type Product struct {
	ID              uint64                `gorm:"column:id;primaryKey;autoIncrement"`
	Name            string                `gorm:"column:name;not null"`
	Description     string                `gorm:"column:description"`
	Price           decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	Category        enums.ProductCategory `gorm:"column:category;not null"`
	Available       bool                  `gorm:"column:available;not null;default:true"`
	PreparationTime int                   `gorm:"column:preparation_time;not null;default:30"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
