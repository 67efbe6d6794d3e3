package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"spazatrack/internal/apperr"
	"spazatrack/internal/authz"
	"spazatrack/internal/dto"
	"spazatrack/internal/model"
	"spazatrack/internal/repository"
	"spazatrack/internal/security"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Revoker invalidates a token id until its natural expiry.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

type AuthService interface {
	// Register creates a user. actor is nil for public sign-up, which may
	// only open a new shop with an admin; an authenticated admin actor adds
	// the user to the actor's own shop.
	Register(ctx context.Context, actor *authz.Principal, req dto.RegisterRequest, ip string) (*dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest, ip string) (*dto.AuthResponse, error)
	VerifyToken(ctx context.Context, token string) (*authz.Principal, error)
	Logout(ctx context.Context, p *authz.Principal) error
	Me(ctx context.Context, p *authz.Principal) (*dto.UserResponse, error)
	ListUsers(ctx context.Context, p *authz.Principal) ([]dto.UserResponse, error)
	SetUserActive(ctx context.Context, p *authz.Principal, id uuid.UUID, active bool) (*dto.UserResponse, error)
}

type authService struct {
	db      *gorm.DB
	users   repository.UserRepository
	shops   repository.ShopRepository
	journal *Journal
	hasher  security.Hasher
	tokens  *security.TokenManager
	guard   *authz.Guard
	revoker Revoker
	opts    Options

	// dummyHash is verified against when the username is unknown so that
	// both login failures cost one bcrypt comparison.
	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	db *gorm.DB,
	users repository.UserRepository,
	shops repository.ShopRepository,
	journal *Journal,
	hasher security.Hasher,
	tokens *security.TokenManager,
	guard *authz.Guard,
	revoker Revoker,
	opts Options,
) AuthService {
	return &authService{
		db:      db,
		users:   users,
		shops:   shops,
		journal: journal,
		hasher:  hasher,
		tokens:  tokens,
		guard:   guard,
		revoker: revoker,
		opts:    opts.normalized(),
	}
}

func (s *authService) Register(ctx context.Context, actor *authz.Principal, req dto.RegisterRequest, ip string) (*dto.AuthResponse, error) {
	req = normalizeRegister(req)
	if err := validateRegister(req); err != nil {
		return nil, err
	}
	switch {
	case actor == nil && req.Role != model.RoleAdmin:
		// Staff accounts are created by their shop's admin.
		return nil, apperr.ErrForbidden
	case actor != nil && !actor.IsAdmin():
		return nil, apperr.ErrForbidden
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
		IsActive:     true,
	}
	err = repository.RunTx(ctx, s.db, func(tx *gorm.DB) error {
		if taken, err := s.users.UsernameTakenTx(tx, user.Username); err != nil {
			return err
		} else if taken {
			return apperr.ErrDuplicateUsername
		}
		if taken, err := s.users.EmailTakenTx(tx, user.Email); err != nil {
			return err
		} else if taken {
			return apperr.ErrDuplicateEmail
		}

		if actor == nil {
			name := req.ShopName
			if name == "" {
				name = user.Username + "'s shop"
			}
			shop := &model.Shop{Name: name}
			if err := s.shops.CreateTx(tx, shop); err != nil {
				return err
			}
			user.ShopID = shop.ID
		} else {
			user.ShopID = actor.ShopID
		}

		if err := s.users.CreateTx(tx, user); err != nil {
			return err
		}
		// Journaled under whoever performed the registration.
		performedBy := user.ID
		if actor != nil {
			performedBy = actor.UserID
		}
		return s.journal.Append(tx, user.ShopID, performedBy, model.ActionRegister,
			fmt.Sprintf("New user registered: %s (%s)", user.Username, user.Role), ip)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race against a concurrent registration of the same name or email.
		err = s.duplicateCause(ctx, user.Username)
	}
	if err != nil {
		return nil, translate("register", err)
	}

	return s.authResponse(user)
}

func (s *authService) duplicateCause(ctx context.Context, username string) error {
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return apperr.ErrDuplicateUsername
	}
	return apperr.ErrDuplicateEmail
}

// Login fails with the same ErrInvalidCredentials for an unknown username, a
// wrong password and a deactivated account.
func (s *authService) Login(ctx context.Context, req dto.LoginRequest, ip string) (*dto.AuthResponse, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, translate("login", err)
		}
		s.hasher.Verify(req.Password, s.dummy())
		return nil, apperr.ErrInvalidCredentials
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) || !user.IsActive {
		return nil, apperr.ErrInvalidCredentials
	}

	now := s.opts.Now()
	err = repository.RunTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.users.TouchLastLoginTx(tx, user.ID, now); err != nil {
			return err
		}
		return s.journal.Append(tx, user.ShopID, user.ID, model.ActionLogin, "User logged in", ip)
	})
	if err != nil {
		return nil, translate("login", err)
	}
	user.LastLogin = &now

	return s.authResponse(user)
}

func (s *authService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			log.Warn().Err(err).Msg("auth: dummy hash unavailable")
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *authService) VerifyToken(ctx context.Context, token string) (*authz.Principal, error) {
	return s.guard.Authorize(ctx, token, authz.Authenticated)
}

// Logout revokes the principal's token until it would have expired anyway.
func (s *authService) Logout(ctx context.Context, p *authz.Principal) error {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return err
	}
	if s.revoker == nil || p.TokenID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return apperr.Storage("revoke token", err)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, p *authz.Principal) (*dto.UserResponse, error) {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return nil, err
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	user, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, translate("load user", err)
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) ListUsers(ctx context.Context, p *authz.Principal) ([]dto.UserResponse, error) {
	if err := authz.Require(p, authz.AdminOnly); err != nil {
		return nil, err
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	users, err := s.users.ListByShop(ctx, p.ShopID)
	if err != nil {
		return nil, translate("list users", err)
	}
	resp := make([]dto.UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(&users[i])
	}
	return resp, nil
}

// SetUserActive toggles a user of the admin's shop. Admins cannot deactivate
// their own account, so a shop never locks out its last admin by accident.
func (s *authService) SetUserActive(ctx context.Context, p *authz.Principal, id uuid.UUID, active bool) (*dto.UserResponse, error) {
	if err := authz.Require(p, authz.AdminOnly); err != nil {
		return nil, err
	}
	if id == p.UserID && !active {
		return nil, apperr.ErrForbidden
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	var user *model.User
	err := repository.RunTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		user, err = s.users.FindInShopTx(tx, p.ShopID, id)
		if err != nil {
			return err
		}
		if err := s.users.SetActiveTx(tx, p.ShopID, id, active); err != nil {
			return err
		}
		user.IsActive = active

		action, verb := model.ActionDeactivateUser, "Deactivated"
		if active {
			action, verb = model.ActionActivateUser, "Activated"
		}
		return s.journal.Append(tx, p.ShopID, p.UserID, action,
			fmt.Sprintf("%s user: %s", verb, user.Username), p.ClientIP)
	})
	if err != nil {
		return nil, translate("set user active", err)
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) authResponse(user *model.User) (*dto.AuthResponse, error) {
	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &dto.AuthResponse{
		User:        userToResponse(user),
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

func userToResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		ShopID:    u.ShopID.String(),
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}
