package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type LowStockItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type DashboardStats struct {
	TotalProducts int             `json:"total_products"`
	TotalStock    int             `json:"total_stock"`
	StockValue    decimal.Decimal `json:"stock_value"`
	TotalSales    int             `json:"total_sales"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	LowStockItems []LowStockItem  `json:"low_stock_items"`
	RecentSales   []SaleResponse  `json:"recent_sales"`
}

type ActivityResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	IPAddress *string   `json:"ip_address"`
	Timestamp time.Time `json:"timestamp"`
	ShopID    string    `json:"shop_id"`
}

// ActivityFilter is bound from GET /api/activity?limit=N.
type ActivityFilter struct {
	Limit int `form:"limit"`
}
