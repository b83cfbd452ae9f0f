package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/internal/catalog"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	"github.com/angelmondragon/kwetupizza-backend/pkg/flutterwave"
)

// Repository defines persistence operations for orders, payments and tracking.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uint64) (*models.Order, error)
	FindByTxRef(ctx context.Context, txRef string) (*models.Order, error)
	List(ctx context.Context, params ListParams) (*OrderList, error)
	UpdateOrder(ctx context.Context, id uint64, updates map[string]any) error
	BeginPaymentAttempt(ctx context.Context, id uint64, previousAttempts int, updates map[string]any) (int64, error)
	MarkPaid(ctx context.Context, id uint64, txRef string) (int64, error)
	MarkPaymentFailed(ctx context.Context, id uint64, txRef string) (int64, error)
	UpdateStatus(ctx context.Context, id uint64, from enums.OrderStatus, updates map[string]any) (int64, error)
	MarkDelayNotified(ctx context.Context, id uint64, at time.Time) (int64, error)
	ListOverdue(ctx context.Context, statuses []enums.OrderStatus, now time.Time, limit int) ([]models.Order, error)
	FindTransactionByTxRef(ctx context.Context, txRef string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	UpdateTransaction(ctx context.Context, id uint64, updates map[string]any) error
	AppendTracking(ctx context.Context, entry *models.OrderTracking) error
	ListTracking(ctx context.Context, orderID uint64) ([]models.OrderTracking, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PaymentGateway starts mobile-money charges.
type PaymentGateway interface {
	ChargeMobileMoney(ctx context.Context, req flutterwave.ChargeRequest) (*flutterwave.ChargeResult, error)
}

// CatalogReader supplies preparation times for delivery estimates.
type CatalogReader interface {
	PreparationTimes(ctx context.Context, ids []uint64) (map[uint64]catalog.Item, error)
}

// Notifier tells customers and the business about order events.
type Notifier interface {
	PaymentConfirmed(ctx context.Context, order *models.Order, txn *models.Transaction) error
	PaymentFailed(ctx context.Context, order *models.Order, txn *models.Transaction) error
	StatusChanged(ctx context.Context, order *models.Order, entry *models.OrderTracking) error
	OrderDelayed(ctx context.Context, order *models.Order) error
	AlertAdmin(ctx context.Context, text string) error
}
