package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	profilesDDL := `
CREATE TABLE IF NOT EXISTS profiles (
  user_id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  mobile TEXT,
  email TEXT,
  location_lat REAL,
  location_lng REAL,
  location_address TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	productsDDL := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  crop_name TEXT NOT NULL,
  quantity TEXT NOT NULL,
  unit TEXT NOT NULL,
  price_per_unit TEXT NOT NULL,
  location_lat REAL NOT NULL,
  location_lng REAL NOT NULL,
  location_address TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(profilesDDL).Error)
	require.NoError(t, db.Exec(productsDDL).Error)
	return db
}

func seedProfile(t *testing.T, db *gorm.DB, userID uuid.UUID, name string) {
	t.Helper()
	require.NoError(t, db.Exec(
		"INSERT INTO profiles (user_id, name, created_at, updated_at) VALUES (?, ?, ?, ?)",
		userID.String(), name, time.Now(), time.Now(),
	).Error)
}

func TestCreateAndFindByID(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	sellerID := uuid.New()
	created, err := repo.Create(context.Background(), &models.Product{
		SellerID:     sellerID,
		CropName:     "Tomato",
		Quantity:     decimal.NewFromInt(50),
		Unit:         enums.ProductUnitKg,
		PricePerUnit: decimal.NewFromInt(22),
		LocationLat:  13.0827,
		LocationLng:  80.2707,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tomato", found.CropName)
	assert.Equal(t, sellerID, found.SellerID)
	assert.True(t, found.Quantity.Equal(decimal.NewFromInt(50)))
}

func TestListAllNewestFirstJoinsSellerName(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	sellerID := uuid.New()
	seedProfile(t, db, sellerID, "Lakshmi Farms")

	older := &models.Product{SellerID: sellerID, CropName: "Rice", Quantity: decimal.NewFromInt(1), Unit: enums.ProductUnitQuintal, PricePerUnit: decimal.NewFromInt(3000)}
	_, err := repo.Create(context.Background(), older)
	require.NoError(t, err)
	require.NoError(t, db.Exec("UPDATE products SET created_at = ? WHERE id = ?", time.Now().Add(-time.Hour), older.ID.String()).Error)

	newer := &models.Product{SellerID: sellerID, CropName: "Wheat", Quantity: decimal.NewFromInt(2), Unit: enums.ProductUnitQuintal, PricePerUnit: decimal.NewFromInt(2500)}
	_, err = repo.Create(context.Background(), newer)
	require.NoError(t, err)

	rows, err := repo.ListAllNewestFirst(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Wheat", rows[0].CropName)
	assert.Equal(t, "Lakshmi Farms", rows[0].SellerName)
	assert.Equal(t, "Rice", rows[1].CropName)
}

func TestListAllNewestFirstMissingProfile(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Create(context.Background(), &models.Product{
		SellerID: uuid.New(), CropName: "Onion", Quantity: decimal.NewFromInt(5),
		Unit: enums.ProductUnitKg, PricePerUnit: decimal.NewFromInt(30),
	})
	require.NoError(t, err)

	rows, err := repo.ListAllNewestFirst(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].SellerName)
}

func TestUpdateFieldsAndDelete(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	product := &models.Product{SellerID: uuid.New(), CropName: "Maize", Quantity: decimal.NewFromInt(10), Unit: enums.ProductUnitKg, PricePerUnit: decimal.NewFromInt(18)}
	_, err := repo.Create(context.Background(), product)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateFields(context.Background(), product.ID, map[string]any{"crop_name": "Sweet Corn"}))

	found, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sweet Corn", found.CropName)

	require.NoError(t, repo.Delete(context.Background(), product.ID))
	_, err = repo.FindByID(context.Background(), product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
