package customers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Customer{}))
	return db
}

func TestServiceFindByPhoneMissing(t *testing.T) {
	svc, err := NewService(NewRepository(setupCustomersTestDB(t)))
	require.NoError(t, err)

	customer, err := svc.FindByPhone(context.Background(), "255700000001")
	require.NoError(t, err)
	assert.Nil(t, customer)
}

func TestServiceCreateReturnsExistingOnDuplicate(t *testing.T) {
	svc, err := NewService(NewRepository(setupCustomersTestDB(t)))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.Create(ctx, "Asha", "asha@example.com", "255700000001")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := svc.Create(ctx, "Asha Again", "other@example.com", "255700000001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Asha", second.Name)

	found, err := svc.FindByPhone(ctx, "255700000001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "asha@example.com", found.Email)
}

func TestServiceCreateValidates(t *testing.T) {
	svc, err := NewService(NewRepository(setupCustomersTestDB(t)))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), " ", "x@example.com", "255700000001")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
