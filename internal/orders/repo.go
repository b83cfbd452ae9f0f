package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	"github.com/angelmondragon/kwetupizza-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTxRef(ctx context.Context, txRef string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("tx_ref = ?", txRef).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, params ListParams) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := &OrderList{Orders: rows}
	if len(rows) > limit {
		out.Orders = rows[:limit]
		last := out.Orders[limit-1]
		out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id uint64, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// BeginPaymentAttempt only applies when no other attempt started since the
// order was read.
func (r *repository) BeginPaymentAttempt(ctx context.Context, id uint64, previousAttempts int, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_attempts = ?", id, previousAttempts).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// MarkPaid records payment on the current attempt. A pending order moves to
// confirmed; a scheduled order keeps its status until opening time.
func (r *repository) MarkPaid(ctx context.Context, id uint64, txRef string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND tx_ref = ?", id, txRef).
		Where("payment_status <> ?", enums.PaymentStatusPaid).
		Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCancelled, enums.OrderStatusFailed}).
		Updates(map[string]any{
			"status":         gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", enums.OrderStatusPending, enums.OrderStatusConfirmed),
			"payment_status": enums.PaymentStatusPaid,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkPaymentFailed(ctx context.Context, id uint64, txRef string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND tx_ref = ? AND payment_status = ?", id, txRef, enums.PaymentStatusRequested).
		Update("payment_status", enums.PaymentStatusFailed)
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uint64, from enums.OrderStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) MarkDelayNotified(ctx context.Context, id uint64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND delay_notified_at IS NULL", id).
		Update("delay_notified_at", at)
	return res.RowsAffected, res.Error
}

func (r *repository) ListOverdue(ctx context.Context, statuses []enums.OrderStatus, now time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("estimated_delivery_time IS NOT NULL AND estimated_delivery_time < ?", now).
		Where("delay_notified_at IS NULL").
		Order("estimated_delivery_time ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// FindTransactionByTxRef returns nil without an error when no attempt with the
// tx_ref was recorded yet.
func (r *repository) FindTransactionByTxRef(ctx context.Context, txRef string) (*models.Transaction, error) {
	var txn models.Transaction
	res := r.db.WithContext(ctx).Where("tx_ref = ?", txRef).Limit(1).Find(&txn)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &txn, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) UpdateTransaction(ctx context.Context, id uint64, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) AppendTracking(ctx context.Context, entry *models.OrderTracking) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListTracking returns entries newest first.
func (r *repository) ListTracking(ctx context.Context, orderID uint64) ([]models.OrderTracking, error) {
	var rows []models.OrderTracking
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}
