package repository

import (
	"context"

	"spazatrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleFilter narrows a shop's sales. Zero values mean "no filter".
type SaleFilter struct {
	DateKey string
	Limit   int
}

// SaleRepository is append-only: there is no update or delete.
type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	ListByShop(ctx context.Context, shopID uuid.UUID, filter SaleFilter) ([]model.Sale, error)
	CountByShop(ctx context.Context, shopID uuid.UUID) (int64, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return tx.Create(s).Error
}

func (r *saleRepo) ListByShop(ctx context.Context, shopID uuid.UUID, filter SaleFilter) ([]model.Sale, error) {
	q := r.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if filter.DateKey != "" {
		q = q.Where("date_key = ?", filter.DateKey)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var sales []model.Sale
	err := q.Order("sale_date DESC").Order("id DESC").Find(&sales).Error
	return sales, err
}

func (r *saleRepo) CountByShop(ctx context.Context, shopID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Sale{}).Where("shop_id = ?", shopID).Count(&n).Error
	return n, err
}
