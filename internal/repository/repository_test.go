package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"spazatrack/internal/infra"
	"spazatrack/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewDatabase("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedShop(t *testing.T, db *gorm.DB, name string) *model.Shop {
	t.Helper()
	s := &model.Shop{Name: name}
	require.NoError(t, NewShopRepository(db).CreateTx(db, s))
	return s
}

func seedProduct(t *testing.T, db *gorm.DB, shopID uuid.UUID, name string, qty int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:         name,
		CostPrice:    decimal.NewFromInt(6),
		SellingPrice: decimal.NewFromInt(10),
		Quantity:     qty,
		ShopID:       shopID,
	}
	require.NoError(t, NewProductRepository(db).CreateTx(db, p))
	return p
}

func TestRunTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	shop := seedShop(t, db, "Corner")
	repo := NewProductRepository(db)
	boom := errors.New("boom")

	err := RunTx(context.Background(), db, func(tx *gorm.DB) error {
		require.NoError(t, repo.CreateTx(tx, &model.Product{
			Name: "Ghost", CostPrice: decimal.NewFromInt(1), SellingPrice: decimal.NewFromInt(2), ShopID: shop.ID,
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	products, err := repo.ListByShop(context.Background(), shop.ID)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductRepo_ScopedByShop(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := seedShop(t, db, "A")
	b := seedShop(t, db, "B")
	repo := NewProductRepository(db)

	seedProduct(t, db, a.ID, "Milk", 4)
	bread := seedProduct(t, db, a.ID, "Bread", 2)
	soap := seedProduct(t, db, b.ID, "Soap", 9)

	list, err := repo.ListByShop(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bread", list[0].Name)
	assert.Equal(t, "Milk", list[1].Name)

	got, err := repo.FindInShop(ctx, a.ID, bread.ID)
	require.NoError(t, err)
	assert.Equal(t, bread.ID, got.ID)
	assert.True(t, got.SellingPrice.Equal(decimal.NewFromInt(10)))

	_, err = repo.FindInShop(ctx, a.ID, soap.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, repo.SetQuantityTx(db, a.ID, soap.ID, 1), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.DeleteTx(db, a.ID, soap.ID), gorm.ErrRecordNotFound)
	_, err = repo.LockInShopTx(db, a.ID, soap.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepo_GuardedDecrement(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	shop := seedShop(t, db, "Corner")
	repo := NewProductRepository(db)
	p := seedProduct(t, db, shop.ID, "Bread", 3)

	ok, err := repo.DecrementStockTx(db, shop.ID, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStockTx(db, shop.ID, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "only 1 left")

	got, err := repo.FindInShop(ctx, shop.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)

	require.NoError(t, repo.SetQuantityTx(db, shop.ID, p.ID, 0))
	require.NoError(t, repo.DeleteTx(db, shop.ID, p.ID))
	_, err = repo.FindInShop(ctx, shop.ID, p.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	shop := seedShop(t, db, "Corner")
	other := seedShop(t, db, "Other")
	repo := NewUserRepository(db)

	u := &model.User{Username: "zanele", Email: "Zanele@Shop.test", PasswordHash: "x", Role: model.RoleAdmin, IsActive: true, ShopID: shop.ID}
	require.NoError(t, repo.CreateTx(db, u))
	require.NoError(t, repo.CreateTx(db, &model.User{Username: "abel", Email: "abel@shop.test", PasswordHash: "x", Role: model.RoleEmployee, IsActive: true, ShopID: shop.ID}))

	taken, err := repo.UsernameTakenTx(db, "zanele")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.EmailTakenTx(db, "zanele@shop.TEST")
	require.NoError(t, err)
	assert.True(t, taken, "email comparison is case-insensitive")
	taken, err = repo.UsernameTakenTx(db, "nobody")
	require.NoError(t, err)
	assert.False(t, taken)

	dup := repo.CreateTx(db, &model.User{Username: "zanele", Email: "z2@shop.test", PasswordHash: "x", Role: model.RoleEmployee, ShopID: shop.ID})
	assert.ErrorIs(t, dup, gorm.ErrDuplicatedKey)

	byName, err := repo.FindByUsername(ctx, "zanele")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Nil(t, byName.LastLogin)

	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastLoginTx(db, u.ID, at))
	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.LastLogin)
	assert.True(t, byID.LastLogin.Equal(at))

	list, err := repo.ListByShop(ctx, shop.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "abel", list[0].Username)

	require.NoError(t, repo.SetActiveTx(db, shop.ID, u.ID, false))
	got, err := repo.FindInShopTx(db, shop.ID, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, repo.SetActiveTx(db, other.ID, u.ID, true), gorm.ErrRecordNotFound)
	_, err = repo.FindInShopTx(db, other.ID, u.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSaleRepo_FilterAndOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	shop := seedShop(t, db, "Corner")
	other := seedShop(t, db, "Other")
	repo := NewSaleRepository(db)

	mk := func(shopID uuid.UUID, at time.Time) *model.Sale {
		s := &model.Sale{
			ProductID:    uuid.New(),
			ProductName:  "Bread",
			QuantitySold: 1,
			TotalPrice:   decimal.NewFromInt(10),
			Profit:       decimal.NewFromInt(4),
			EmployeeID:   uuid.New(),
			EmployeeName: "Abel",
			SaleDate:     at,
			DateKey:      at.Format(model.DateKeyLayout),
			ShopID:       shopID,
		}
		require.NoError(t, repo.CreateTx(db, s))
		return s
	}
	early := mk(shop.ID, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	late := mk(shop.ID, time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC))
	next := mk(shop.ID, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	mk(other.ID, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	all, err := repo.ListByShop(ctx, shop.ID, SaleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{next.ID, late.ID, early.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	day, err := repo.ListByShop(ctx, shop.ID, SaleFilter{DateKey: "2024-01-01"})
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, late.ID, day[0].ID)

	top, err := repo.ListByShop(ctx, shop.ID, SaleFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, next.ID, top[0].ID)

	n, err := repo.CountByShop(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestActivityRepo_NewestFirstWithLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	shop := seedShop(t, db, "Corner")
	other := seedShop(t, db, "Other")
	repo := NewActivityRepository(db)
	user := uuid.New()

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, action := range []string{model.ActionRegister, model.ActionLogin, model.ActionAddProduct} {
		require.NoError(t, repo.AppendTx(db, &model.ActivityLog{
			UserID: user, Action: action, Timestamp: base.Add(time.Duration(i) * time.Minute), ShopID: shop.ID,
		}))
	}
	require.NoError(t, repo.AppendTx(db, &model.ActivityLog{UserID: user, Action: model.ActionLogin, Timestamp: base.Add(time.Hour), ShopID: other.ID}))

	logs, err := repo.ListByShop(ctx, shop.ID, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ActionAddProduct, logs[0].Action)
	assert.Equal(t, model.ActionLogin, logs[1].Action)
}

func TestActivityRepo_EqualTimestampsOrderedByID(t *testing.T) {
	db := newTestDB(t)
	shop := seedShop(t, db, "Corner")
	repo := NewActivityRepository(db)

	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	ids := []uuid.UUID{
		uuid.MustParse("00000000-0000-0000-0000-000000000002"),
		uuid.MustParse("00000000-0000-0000-0000-000000000003"),
		uuid.MustParse("00000000-0000-0000-0000-000000000001"),
	}
	for _, id := range ids {
		require.NoError(t, repo.AppendTx(db, &model.ActivityLog{
			ID: id, UserID: uuid.New(), Action: model.ActionLogin, Timestamp: at, ShopID: shop.ID,
		}))
	}

	for i := 0; i < 3; i++ {
		logs, err := repo.ListByShop(context.Background(), shop.ID, 2)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, ids[1], logs[0].ID)
		assert.Equal(t, ids[0], logs[1].ID)
	}
}
