package repository

import (
	"context"
	"time"

	"spazatrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository is the data access contract for users. Lookups by id or
// username are global (login and token resolution happen before a shop is
// known); everything else is scoped by shop.
type UserRepository interface {
	CreateTx(tx *gorm.DB, u *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	UsernameTakenTx(tx *gorm.DB, username string) (bool, error)
	EmailTakenTx(tx *gorm.DB, email string) (bool, error)
	TouchLastLoginTx(tx *gorm.DB, id uuid.UUID, at time.Time) error

	ListByShop(ctx context.Context, shopID uuid.UUID) ([]model.User, error)
	FindInShopTx(tx *gorm.DB, shopID, id uuid.UUID) (*model.User, error)
	SetActiveTx(tx *gorm.DB, shopID, id uuid.UUID, active bool) error
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) CreateTx(tx *gorm.DB, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return tx.Create(u).Error
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return &u, err
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	return &u, err
}

func (r *userRepo) UsernameTakenTx(tx *gorm.DB, username string) (bool, error) {
	var n int64
	err := tx.Model(&model.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

func (r *userRepo) EmailTakenTx(tx *gorm.DB, email string) (bool, error) {
	var n int64
	err := tx.Model(&model.User{}).Where("LOWER(email) = LOWER(?)", email).Count(&n).Error
	return n > 0, err
}

func (r *userRepo) TouchLastLoginTx(tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return tx.Model(&model.User{}).Where("id = ?", id).Update("last_login", at).Error
}

func (r *userRepo) ListByShop(ctx context.Context, shopID uuid.UUID) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("username ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) FindInShopTx(tx *gorm.DB, shopID, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := tx.Where("id = ? AND shop_id = ?", id, shopID).First(&u).Error
	return &u, err
}

func (r *userRepo) SetActiveTx(tx *gorm.DB, shopID, id uuid.UUID, active bool) error {
	res := tx.Model(&model.User{}).
		Where("id = ? AND shop_id = ?", id, shopID).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
