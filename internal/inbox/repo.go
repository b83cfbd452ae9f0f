package inbox

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
)

// Repository appends and reads archived inbound messages.
type Repository interface {
	Append(ctx context.Context, msg *models.InboxMessage) error
	ListByPhone(ctx context.Context, phone string, limit int) ([]models.InboxMessage, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inbox repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, msg *models.InboxMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListByPhone returns the newest messages first.
func (r *repository) ListByPhone(ctx context.Context, phone string, limit int) ([]models.InboxMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.InboxMessage
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
