package service

import (
	"context"
	"time"

	"spazatrack/internal/authz"
	"spazatrack/internal/dto"
	"spazatrack/internal/model"
	"spazatrack/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxActivityLimit = 500

// Journal appends audit entries inside the caller's transaction. An append
// error must be returned from the transaction callback so the audited change
// rolls back with it.
type Journal struct {
	repo repository.ActivityRepository
	now  func() time.Time
}

func NewJournal(repo repository.ActivityRepository, now func() time.Time) *Journal {
	if now == nil {
		now = time.Now
	}
	return &Journal{repo: repo, now: now}
}

// Append records action for userID in shopID. An empty ip is stored as NULL.
func (j *Journal) Append(tx *gorm.DB, shopID, userID uuid.UUID, action, details, ip string) error {
	entry := &model.ActivityLog{
		UserID:    userID,
		Action:    action,
		Details:   truncateRunes(details, 500),
		Timestamp: j.now(),
		ShopID:    shopID,
	}
	if ip != "" {
		entry.IPAddress = &ip
	}
	return j.repo.AppendTx(tx, entry)
}

type ActivityService interface {
	List(ctx context.Context, p *authz.Principal, limit int) ([]dto.ActivityResponse, error)
}

type activityService struct {
	repo         repository.ActivityRepository
	defaultLimit int
	opts         Options
}

func NewActivityService(repo repository.ActivityRepository, defaultLimit int, opts Options) ActivityService {
	if defaultLimit < 1 || defaultLimit > maxActivityLimit {
		defaultLimit = 50
	}
	return &activityService{repo: repo, defaultLimit: defaultLimit, opts: opts.normalized()}
}

// List returns the shop's newest entries first. limit < 1 means the default;
// anything above maxActivityLimit is capped.
func (s *activityService) List(ctx context.Context, p *authz.Principal, limit int) ([]dto.ActivityResponse, error) {
	if err := authz.Require(p, authz.AdminOnly); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	ctx, cancel := s.opts.bound(ctx)
	defer cancel()
	logs, err := s.repo.ListByShop(ctx, p.ShopID, limit)
	if err != nil {
		return nil, translate("list activity", err)
	}
	resp := make([]dto.ActivityResponse, len(logs))
	for i := range logs {
		resp[i] = activityToResponse(&logs[i])
	}
	return resp, nil
}

func activityToResponse(l *model.ActivityLog) dto.ActivityResponse {
	return dto.ActivityResponse{
		ID:        l.ID.String(),
		UserID:    l.UserID.String(),
		Action:    l.Action,
		Details:   l.Details,
		IPAddress: l.IPAddress,
		Timestamp: l.Timestamp,
		ShopID:    l.ShopID.String(),
	}
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
