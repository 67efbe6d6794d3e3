package model

import (
	"time"

	"github.com/google/uuid"
)

// Shop is the tenant boundary. Every other entity references exactly one shop.
type Shop struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time
}
