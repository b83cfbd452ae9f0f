package customers

import (
	"context"
	"strings"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
)

// Service resolves chat identities to customer profiles.
type Service interface {
	FindByPhone(ctx context.Context, phone string) (*models.Customer, error)
	Create(ctx context.Context, name, email, phone string) (*models.Customer, error)
}

type service struct {
	repo Repository
}

// NewService constructs the customers service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "customers repository required")
	}
	return &service{repo: repo}, nil
}

// FindByPhone returns nil without error when no profile exists.
func (s *service) FindByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	customer, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find customer")
	}
	return customer, nil
}

// Create stores a profile. A duplicate phone returns the existing record.
func (s *service) Create(ctx context.Context, name, email, phone string) (*models.Customer, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and phone are required")
	}
	created, err := s.repo.Create(ctx, &models.Customer{
		Name:        name,
		Email:       strings.TrimSpace(email),
		PhoneNumber: phone,
	})
	if err == nil {
		return created, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	existing, findErr := s.repo.FindByPhone(ctx, phone)
	if findErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load existing customer")
	}
	return existing, nil
}
