// Package authz resolves bearer tokens into a Principal and enforces the
// capability each operation requires. The Principal carries the tenant scope
// (ShopID) every downstream query is filtered by.
package authz

import (
	"context"
	"errors"
	"time"

	"spazatrack/internal/apperr"
	"spazatrack/internal/model"
	"spazatrack/internal/security"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Capability is the access level an operation demands.
type Capability int

const (
	Authenticated Capability = iota
	AdminOnly
)

func (c Capability) String() string {
	switch c {
	case AdminOnly:
		return "admin_only"
	default:
		return "authenticated"
	}
}

// Principal is the resolved identity behind a request.
type Principal struct {
	UserID    uuid.UUID
	Username  string
	FullName  string
	Role      string
	ShopID    uuid.UUID
	TokenID   string
	ExpiresAt time.Time
	// ClientIP is the request origin recorded in the journal. Set by the
	// HTTP layer, empty elsewhere.
	ClientIP string
}

func (p *Principal) IsAdmin() bool { return p != nil && p.Role == model.RoleAdmin }

// DisplayName mirrors model.User.DisplayName for sale snapshots.
func (p *Principal) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Username
}

// Require checks cap against an already resolved principal.
func Require(p *Principal, cap Capability) error {
	if p == nil {
		return apperr.ErrInvalidToken
	}
	if cap == AdminOnly && !p.IsAdmin() {
		return apperr.ErrForbidden
	}
	return nil
}

// UserFinder loads the stored user a token refers to.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// RevocationChecker reports logged-out token ids.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Guard turns a raw token into a Principal.
type Guard struct {
	tokens  *security.TokenManager
	users   UserFinder
	revoked RevocationChecker
}

// NewGuard builds a Guard. revoked may be nil when logout is not wired.
func NewGuard(tokens *security.TokenManager, users UserFinder, revoked RevocationChecker) *Guard {
	return &Guard{tokens: tokens, users: users, revoked: revoked}
}

// Authorize validates token and checks cap. Role and shop are read from the
// stored user, so a demoted or moved user loses access on the next request.
func (g *Guard) Authorize(ctx context.Context, token string, cap Capability) (*Principal, error) {
	claims, err := g.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	if g.revoked != nil {
		revoked, err := g.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, apperr.Storage("check revocation", err)
		}
		if revoked {
			return nil, apperr.ErrInvalidToken
		}
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}
	user, err := g.users.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, apperr.Storage("load user", err)
	}
	if !user.IsActive {
		return nil, apperr.ErrInvalidToken
	}

	p := &Principal{
		UserID:   user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Role:     user.Role,
		ShopID:   user.ShopID,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	if err := Require(p, cap); err != nil {
		return nil, err
	}
	return p, nil
}

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}
