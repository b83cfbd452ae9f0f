package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

// Repository reads products.
type Repository interface {
	ListAvailable(ctx context.Context) ([]models.Product, error)
	ListByCategory(ctx context.Context, category enums.ProductCategory) ([]models.Product, error)
	FindByID(ctx context.Context, id uint64) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListAvailable(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("available = ?", true).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *repository) ListByCategory(ctx context.Context, category enums.ProductCategory) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("available = ? AND LOWER(category) = LOWER(?)", true, string(category)).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uint64) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}
