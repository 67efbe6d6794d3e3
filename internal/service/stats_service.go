package service

import (
	"context"

	"spazatrack/internal/authz"
	"spazatrack/internal/dto"
	"spazatrack/internal/model"
	"spazatrack/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// StatsService computes the dashboard. Nothing is cached: every call folds the
// shop's current products and sales.
type StatsService interface {
	ComputeStats(ctx context.Context, p *authz.Principal) (*dto.DashboardStats, error)
}

type statsService struct {
	products  repository.ProductRepository
	sales     repository.SaleRepository
	threshold int
	recent    int
	opts      Options
}

func NewStatsService(products repository.ProductRepository, sales repository.SaleRepository, lowStockThreshold, recentSales int, opts Options) StatsService {
	return &statsService{
		products:  products,
		sales:     sales,
		threshold: lowStockThreshold,
		recent:    recentSales,
		opts:      opts.normalized(),
	}
}

func (s *statsService) ComputeStats(ctx context.Context, p *authz.Principal) (*dto.DashboardStats, error) {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return nil, err
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	var (
		products []model.Product
		sales    []model.Sale
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.products.ListByShop(gctx, p.ShopID)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.sales.ListByShop(gctx, p.ShopID, repository.SaleFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, translate("compute stats", err)
	}

	stats := foldStats(products, sales, s.threshold, s.recent)
	return &stats, nil
}

// foldStats is the pure aggregation. sales must be ordered newest first.
func foldStats(products []model.Product, sales []model.Sale, threshold, recent int) dto.DashboardStats {
	stats := dto.DashboardStats{
		TotalProducts: len(products),
		StockValue:    decimal.Zero,
		TotalSales:    len(sales),
		TotalRevenue:  decimal.Zero,
		TotalProfit:   decimal.Zero,
		LowStockItems: []dto.LowStockItem{},
		RecentSales:   []dto.SaleResponse{},
	}

	for i := range products {
		prod := &products[i]
		stats.TotalStock += prod.Quantity
		stats.StockValue = stats.StockValue.Add(prod.CostPrice.Mul(decimal.NewFromInt(int64(prod.Quantity))))
		if prod.Quantity <= threshold {
			stats.LowStockItems = append(stats.LowStockItems, dto.LowStockItem{
				ID:       prod.ID.String(),
				Name:     prod.Name,
				Quantity: prod.Quantity,
			})
		}
	}

	for i := range sales {
		stats.TotalRevenue = stats.TotalRevenue.Add(sales[i].TotalPrice)
		stats.TotalProfit = stats.TotalProfit.Add(sales[i].Profit)
		if i < recent {
			stats.RecentSales = append(stats.RecentSales, saleToResponse(&sales[i]))
		}
	}
	return stats
}
