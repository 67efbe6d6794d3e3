package service

import (
	"context"
	"errors"
	"fmt"

	"spazatrack/internal/apperr"
	"spazatrack/internal/authz"
	"spazatrack/internal/dto"
	"spazatrack/internal/metrics"
	"spazatrack/internal/model"
	"spazatrack/internal/repository"
	"spazatrack/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertQueue receives low-stock notifications after a sale commits.
type AlertQueue interface {
	EnqueueLowStock(ctx context.Context, payload worker.LowStockPayload) error
}

type SaleService interface {
	RecordSale(ctx context.Context, p *authz.Principal, req dto.RecordSaleRequest) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, p *authz.Principal, dateKey string) ([]dto.SaleResponse, error)
}

type saleService struct {
	db        *gorm.DB
	products  repository.ProductRepository
	sales     repository.SaleRepository
	journal   *Journal
	alerts    AlertQueue
	metrics   *metrics.Metrics
	threshold int
	opts      Options
}

// NewSaleService wires the sale recorder. alerts and m may be nil.
func NewSaleService(
	db *gorm.DB,
	products repository.ProductRepository,
	sales repository.SaleRepository,
	journal *Journal,
	alerts AlertQueue,
	m *metrics.Metrics,
	lowStockThreshold int,
	opts Options,
) SaleService {
	return &saleService{
		db:        db,
		products:  products,
		sales:     sales,
		journal:   journal,
		alerts:    alerts,
		metrics:   m,
		threshold: lowStockThreshold,
		opts:      opts.normalized(),
	}
}

// ── RecordSale ────────────────────────────────────────────────────────────────
// One transaction:
//   1. lock the product row inside the principal's shop
//   2. check stock
//   3. price the sale from the current prices
//   4. guarded decrement (quantity >= qty in the WHERE clause)
//   5. insert the sale with name snapshots and the local date key
//   6. journal record_sale
// Any failure rolls back all of it. Alerts and metrics run after commit.

func (s *saleService) RecordSale(ctx context.Context, p *authz.Principal, req dto.RecordSaleRequest) (*dto.SaleResponse, error) {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return nil, err
	}
	productID, err := parseSaleRequest(req)
	if err != nil {
		return nil, err
	}
	qty := req.QuantitySold

	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	var (
		sale      model.Sale
		remaining int
	)
	txErr := repository.RunTx(ctx, s.db, func(tx *gorm.DB) error {
		prod, err := s.products.LockInShopTx(tx, p.ShopID, productID)
		if err != nil {
			return err
		}
		if prod.Quantity < qty {
			return apperr.ErrInsufficientStock
		}

		units := decimal.NewFromInt(int64(qty))
		total := prod.SellingPrice.Mul(units)
		profit := prod.SellingPrice.Sub(prod.CostPrice).Mul(units)
		if err := validateSaleAmounts(total, profit); err != nil {
			return err
		}

		ok, err := s.products.DecrementStockTx(tx, p.ShopID, productID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrInsufficientStock
		}

		now := s.opts.Now()
		sale = model.Sale{
			ProductID:    prod.ID,
			ProductName:  prod.Name,
			QuantitySold: qty,
			TotalPrice:   total,
			Profit:       profit,
			EmployeeID:   p.UserID,
			EmployeeName: p.DisplayName(),
			SaleDate:     now,
			DateKey:      now.In(s.opts.Location).Format(model.DateKeyLayout),
			ShopID:       p.ShopID,
		}
		if err := s.sales.CreateTx(tx, &sale); err != nil {
			return err
		}
		remaining = prod.Quantity - qty

		return s.journal.Append(tx, p.ShopID, p.UserID, model.ActionRecordSale,
			fmt.Sprintf("Sold %dx %s (R%s)", qty, prod.Name, total.StringFixed(2)), p.ClientIP)
	})
	if txErr != nil {
		err := translate("record sale", txErr)
		switch {
		case errors.Is(err, apperr.ErrInsufficientStock):
			s.metrics.SaleRejected("insufficient_stock")
		case errors.Is(err, apperr.ErrNotFound):
			s.metrics.SaleRejected("not_found")
		case apperr.IsValidation(err):
			s.metrics.SaleRejected("validation")
		default:
			s.metrics.SaleRejected("storage")
			log.Error().Err(txErr).
				Str("shop_id", p.ShopID.String()).
				Str("product_id", productID.String()).
				Msg("record sale: transaction failed")
		}
		return nil, err
	}

	s.metrics.SaleRecorded(sale.TotalPrice)
	if remaining <= s.threshold {
		s.enqueueLowStock(ctx, &sale, remaining)
	}

	resp := saleToResponse(&sale)
	return &resp, nil
}

// enqueueLowStock is best effort: the sale is already committed.
func (s *saleService) enqueueLowStock(ctx context.Context, sale *model.Sale, remaining int) {
	if s.alerts == nil {
		return
	}
	err := s.alerts.EnqueueLowStock(ctx, worker.LowStockPayload{
		ShopID:      sale.ShopID.String(),
		ProductID:   sale.ProductID.String(),
		ProductName: sale.ProductName,
		Quantity:    remaining,
		Threshold:   s.threshold,
	})
	if err != nil {
		log.Warn().Err(err).
			Str("shop_id", sale.ShopID.String()).
			Str("product_id", sale.ProductID.String()).
			Msg("low-stock alert not enqueued")
	}
}

// ListSales returns the shop's sales newest first, optionally restricted to
// one date key.
func (s *saleService) ListSales(ctx context.Context, p *authz.Principal, dateKey string) ([]dto.SaleResponse, error) {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return nil, err
	}
	if dateKey != "" {
		if err := validateDateKey(dateKey); err != nil {
			return nil, err
		}
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	sales, err := s.sales.ListByShop(ctx, p.ShopID, repository.SaleFilter{DateKey: dateKey})
	if err != nil {
		return nil, translate("list sales", err)
	}
	resp := make([]dto.SaleResponse, len(sales))
	for i := range sales {
		resp[i] = saleToResponse(&sales[i])
	}
	return resp, nil
}

func saleToResponse(s *model.Sale) dto.SaleResponse {
	return dto.SaleResponse{
		ID:           s.ID.String(),
		ProductID:    s.ProductID.String(),
		ProductName:  s.ProductName,
		QuantitySold: s.QuantitySold,
		TotalPrice:   s.TotalPrice,
		Profit:       s.Profit,
		EmployeeID:   s.EmployeeID.String(),
		EmployeeName: s.EmployeeName,
		SaleDate:     s.SaleDate,
		DateKey:      s.DateKey,
		ShopID:       s.ShopID.String(),
	}
}
