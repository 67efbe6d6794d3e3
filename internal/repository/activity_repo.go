package repository

import (
	"context"

	"spazatrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityRepository is the append-only audit journal.
type ActivityRepository interface {
	AppendTx(tx *gorm.DB, l *model.ActivityLog) error
	ListByShop(ctx context.Context, shopID uuid.UUID, limit int) ([]model.ActivityLog, error)
}

type activityRepo struct{ db *gorm.DB }

func NewActivityRepository(db *gorm.DB) ActivityRepository { return &activityRepo{db: db} }

func (r *activityRepo) AppendTx(tx *gorm.DB, l *model.ActivityLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return tx.Create(l).Error
}

func (r *activityRepo) ListByShop(ctx context.Context, shopID uuid.UUID, limit int) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
