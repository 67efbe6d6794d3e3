package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RecordSaleRequest struct {
	ProductID    string `json:"product_id"    validate:"required,uuid"`
	QuantitySold int    `json:"quantity_sold" validate:"required,gt=0"`
}

// SaleFilter is bound from the query string of GET /api/sales and
// GET /api/reports/sales.
type SaleFilter struct {
	Date string `form:"date"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleResponse struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int             `json:"quantity_sold"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Profit       decimal.Decimal `json:"profit"`
	EmployeeID   string          `json:"employee_id"`
	EmployeeName string          `json:"employee_name"`
	SaleDate     time.Time       `json:"sale_date"`
	DateKey      string          `json:"date_key"`
	ShopID       string          `json:"shop_id"`
}
