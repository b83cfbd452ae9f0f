package models

import (
	"time"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	"github.com/angelmondragon/kwetupizza-backend/pkg/types"
)

// OrderTracking is one append-only status history entry.
type OrderTracking struct {
	ID          uint64                  `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     uint64                  `gorm:"column:order_id;not null;index:idx_order_tracking_order_id"`
	Status      enums.OrderStatus       `gorm:"column:status;type:order_status;not null"`
	Description string                  `gorm:"column:description"`
	Location    *types.TrackingLocation `gorm:"column:location;type:jsonb;serializer:json"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (OrderTracking) TableName() string { return "order_tracking" }
