package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name         string          `json:"name"          validate:"required,min=1,max=100"`
	CostPrice    decimal.Decimal `json:"cost_price"    validate:"gt=0"`
	SellingPrice decimal.Decimal `json:"selling_price" validate:"gt=0"`
	Quantity     int             `json:"quantity"      validate:"min=0"`
}

// UpdateQuantityRequest sets the absolute stock level. Quantity is a pointer
// so that an explicit 0 passes "required".
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Quantity     int             `json:"quantity"`
	CreatedBy    *string         `json:"created_by"`
	ShopID       string          `json:"shop_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
