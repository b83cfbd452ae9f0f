package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
)

// Service exposes read-only catalog lookups.
type Service interface {
	Menu(ctx context.Context) (Menu, error)
	LookupProduct(ctx context.Context, id uint64) (*Item, error)
	ProductsByCategory(ctx context.Context, category enums.ProductCategory) ([]Item, error)
	PreparationTimes(ctx context.Context, ids []uint64) (map[uint64]Item, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Menu(ctx context.Context) (Menu, error) {
	products, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return Menu{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available products")
	}
	items := make([]Item, 0, len(products))
	for _, p := range products {
		items = append(items, ItemFromModel(p))
	}
	return NewMenu(items), nil
}

// LookupProduct returns nil when the product does not exist or is unavailable.
func (s *service) LookupProduct(ctx context.Context, id uint64) (*Item, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find product")
	}
	if !product.Available {
		return nil, nil
	}
	item := ItemFromModel(*product)
	return &item, nil
}

func (s *service) ProductsByCategory(ctx context.Context, category enums.ProductCategory) ([]Item, error) {
	products, err := s.repo.ListByCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products by category")
	}
	items := make([]Item, 0, len(products))
	for _, p := range products {
		items = append(items, ItemFromModel(p))
	}
	return items, nil
}

// PreparationTimes returns items keyed by id, including unavailable ones, so
// delivery estimates survive menu changes.
func (s *service) PreparationTimes(ctx context.Context, ids []uint64) (map[uint64]Item, error) {
	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find products")
	}
	out := make(map[uint64]Item, len(products))
	for _, p := range products {
		out[p.ID] = ItemFromModel(p)
	}
	return out, nil
}
