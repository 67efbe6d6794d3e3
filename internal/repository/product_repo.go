package repository

import (
	"context"

	"spazatrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for products.
// Every method takes the owning shop id; there is no unscoped lookup.
type ProductRepository interface {
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]model.Product, error)
	FindInShop(ctx context.Context, shopID, id uuid.UUID) (*model.Product, error)

	// Used inside transactions: callers must pass the tx instance
	CreateTx(tx *gorm.DB, p *model.Product) error
	LockInShopTx(tx *gorm.DB, shopID, id uuid.UUID) (*model.Product, error)
	SetQuantityTx(tx *gorm.DB, shopID, id uuid.UUID, quantity int) error
	DecrementStockTx(tx *gorm.DB, shopID, id uuid.UUID, qty int) (bool, error)
	DeleteTx(tx *gorm.DB, shopID, id uuid.UUID) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) ListByShop(ctx context.Context, shopID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) FindInShop(ctx context.Context, shopID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ? AND shop_id = ?", id, shopID).First(&p).Error
	return &p, err
}

func (r *productRepo) CreateTx(tx *gorm.DB, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return tx.Create(p).Error
}

// LockInShopTx reads the product with SELECT ... FOR UPDATE so that concurrent
// writers on the same row queue behind this transaction.
func (r *productRepo) LockInShopTx(tx *gorm.DB, shopID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND shop_id = ?", id, shopID).
		First(&p).Error
	return &p, err
}

func (r *productRepo) SetQuantityTx(tx *gorm.DB, shopID, id uuid.UUID, quantity int) error {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND shop_id = ?", id, shopID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStockTx subtracts qty only while enough stock remains. It reports
// false when the guard rejected the update.
func (r *productRepo) DecrementStockTx(tx *gorm.DB, shopID, id uuid.UUID, qty int) (bool, error) {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND shop_id = ? AND quantity >= ?", id, shopID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepo) DeleteTx(tx *gorm.DB, shopID, id uuid.UUID) error {
	res := tx.Where("id = ? AND shop_id = ?", id, shopID).Delete(&model.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
