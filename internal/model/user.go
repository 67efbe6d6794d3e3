package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles a User can hold.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// User stores shop staff with role-based access.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Email        string    `gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	FullName     string    `gorm:"type:varchar(100)"`
	Role         string    `gorm:"type:varchar(20);not null;default:'employee'"`
	IsActive     bool      `gorm:"not null;default:true"`
	ShopID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// DisplayName is the name captured on sales made by this user.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}
