package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateKeyLayout is the format of Sale.DateKey.
const DateKeyLayout = "2006-01-02"

// Sale is an immutable record of one product sold by one employee.
// ProductName and EmployeeName are snapshots taken when the sale was recorded,
// so the row stays accurate after the product or user changes or disappears.
// ProductID carries no foreign key constraint for the same reason.
type Sale struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName  string          `gorm:"type:varchar(100);not null"`
	QuantitySold int             `gorm:"not null"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Profit       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	EmployeeID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmployeeName string          `gorm:"type:varchar(100);not null"`
	SaleDate     time.Time       `gorm:"not null;index"`
	DateKey      string          `gorm:"type:varchar(10);not null;index"`
	ShopID       uuid.UUID       `gorm:"type:uuid;not null;index"`
}
