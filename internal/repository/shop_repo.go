package repository

import (
	"context"

	"spazatrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShopRepository interface {
	CreateTx(tx *gorm.DB, s *model.Shop) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shop, error)
}

type shopRepo struct{ db *gorm.DB }

func NewShopRepository(db *gorm.DB) ShopRepository { return &shopRepo{db: db} }

func (r *shopRepo) CreateTx(tx *gorm.DB, s *model.Shop) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return tx.Create(s).Error
}

func (r *shopRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	var s model.Shop
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}
