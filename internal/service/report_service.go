package service

import (
	"context"

	"spazatrack/internal/authz"
	"spazatrack/internal/infra"
	"spazatrack/internal/model"
	"spazatrack/internal/repository"
)

// ReportService renders printable reports.
type ReportService interface {
	// SalesReportPDF renders one day of the shop's sales and returns the PDF
	// with the date key it covers. An empty dateKey means today in the
	// configured location.
	SalesReportPDF(ctx context.Context, p *authz.Principal, dateKey string) ([]byte, string, error)
}

type reportService struct {
	shops repository.ShopRepository
	sales repository.SaleRepository
	opts  Options
}

func NewReportService(shops repository.ShopRepository, sales repository.SaleRepository, opts Options) ReportService {
	return &reportService{shops: shops, sales: sales, opts: opts.normalized()}
}

func (s *reportService) SalesReportPDF(ctx context.Context, p *authz.Principal, dateKey string) ([]byte, string, error) {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return nil, "", err
	}
	if dateKey == "" {
		dateKey = s.opts.Now().In(s.opts.Location).Format(model.DateKeyLayout)
	} else if err := validateDateKey(dateKey); err != nil {
		return nil, "", err
	}

	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	shop, err := s.shops.FindByID(ctx, p.ShopID)
	if err != nil {
		return nil, "", translate("load shop", err)
	}
	sales, err := s.sales.ListByShop(ctx, p.ShopID, repository.SaleFilter{DateKey: dateKey})
	if err != nil {
		return nil, "", translate("list sales", err)
	}

	pdf, err := infra.GenerateSalesReportPDF(infra.SalesReport{
		ShopName: shop.Name,
		DateKey:  dateKey,
		Sales:    sales,
		Location: s.opts.Location,
	})
	if err != nil {
		return nil, "", err
	}
	return pdf, dateKey, nil
}
