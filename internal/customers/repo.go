package customers

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
)

// Repository persists customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByPhone(ctx context.Context, phone string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) (*models.Customer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("phone_number = ?", phone).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}
