package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

// Order is a placed order with its customer snapshot and delivery state.
type Order struct {
	ID                    uint64                 `gorm:"column:id;primaryKey;autoIncrement"`
	TxRef                 *string                `gorm:"column:tx_ref;uniqueIndex:idx_orders_tx_ref"`
	PaymentAttempts       int                    `gorm:"column:payment_attempts;not null;default:0"`
	CustomerID            *uint64                `gorm:"column:customer_id"`
	CustomerName          string                 `gorm:"column:customer_name"`
	CustomerPhone         string                 `gorm:"column:customer_phone;not null;index:idx_orders_customer_phone"`
	DeliveryAddress       string                 `gorm:"column:delivery_address;not null"`
	DeliveryPhone         string                 `gorm:"column:delivery_phone"`
	Status                enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus         enums.PaymentStatus    `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`
	PaymentProvider       *enums.PaymentProvider `gorm:"column:payment_provider;type:payment_provider"`
	Total                 decimal.Decimal        `gorm:"column:total;type:numeric(12,2);not null"`
	Currency              enums.Currency         `gorm:"column:currency;not null;default:'TZS'"`
	ScheduledTime         *time.Time             `gorm:"column:scheduled_time"`
	EstimatedDeliveryTime *time.Time             `gorm:"column:estimated_delivery_time"`
	ActualDeliveryTime    *time.Time             `gorm:"column:actual_delivery_time"`
	DeliveryNotes         string                 `gorm:"column:delivery_notes"`
	DelayNotifiedAt       *time.Time             `gorm:"column:delay_notified_at"`
	NeedsReview           bool                   `gorm:"column:needs_review;not null;default:false"`
	ReviewReason          string                 `gorm:"column:review_reason"`
	Items                 []OrderItem            `gorm:"foreignKey:OrderID"`
	CreatedAt             time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// CurrentTxRef returns the live payment correlation key, if any.
func (o Order) CurrentTxRef() string {
	if o.TxRef == nil {
		return ""
	}
	return *o.TxRef
}
