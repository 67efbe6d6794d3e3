package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Money columns are decimal(12,2). Amounts must fit both the scale and the
// precision or postgres rounds or rejects them.
const MoneyPlaces = 2

var MaxMoney = decimal.RequireFromString("9999999999.99")

// Product is a stock-keeping item owned by a shop. Quantity never goes negative.
type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name         string          `gorm:"type:varchar(100);index;not null"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity     int             `gorm:"not null;default:0;check:quantity >= 0"`
	CreatedBy    *uuid.UUID      `gorm:"type:uuid"`
	ShopID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
