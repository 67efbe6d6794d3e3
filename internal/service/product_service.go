package service

import (
	"context"
	"fmt"
	"strings"

	"spazatrack/internal/authz"
	"spazatrack/internal/dto"
	"spazatrack/internal/model"
	"spazatrack/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductService is the inventory ledger. Every method is scoped to the
// principal's shop; a product of another shop behaves as if it did not exist.
type ProductService interface {
	List(ctx context.Context, p *authz.Principal) ([]dto.ProductResponse, error)
	Get(ctx context.Context, p *authz.Principal, id uuid.UUID) (*dto.ProductResponse, error)
	Create(ctx context.Context, p *authz.Principal, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	UpdateQuantity(ctx context.Context, p *authz.Principal, id uuid.UUID, quantity int) (*dto.ProductResponse, error)
	Delete(ctx context.Context, p *authz.Principal, id uuid.UUID) error
}

type productService struct {
	db      *gorm.DB
	repo    repository.ProductRepository
	journal *Journal
	opts    Options
}

func NewProductService(db *gorm.DB, repo repository.ProductRepository, journal *Journal, opts Options) ProductService {
	return &productService{db: db, repo: repo, journal: journal, opts: opts.normalized()}
}

func (s *productService) List(ctx context.Context, p *authz.Principal) ([]dto.ProductResponse, error) {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return nil, err
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	products, err := s.repo.ListByShop(ctx, p.ShopID)
	if err != nil {
		return nil, translate("list products", err)
	}
	resp := make([]dto.ProductResponse, len(products))
	for i := range products {
		resp[i] = productToResponse(&products[i])
	}
	return resp, nil
}

func (s *productService) Get(ctx context.Context, p *authz.Principal, id uuid.UUID) (*dto.ProductResponse, error) {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return nil, err
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	prod, err := s.repo.FindInShop(ctx, p.ShopID, id)
	if err != nil {
		return nil, translate("get product", err)
	}
	resp := productToResponse(prod)
	return &resp, nil
}

func (s *productService) Create(ctx context.Context, p *authz.Principal, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return nil, err
	}
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	creator := p.UserID
	prod := &model.Product{
		Name:         strings.TrimSpace(req.Name),
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		Quantity:     req.Quantity,
		CreatedBy:    &creator,
		ShopID:       p.ShopID,
	}
	err := repository.RunTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, prod); err != nil {
			return err
		}
		return s.journal.Append(tx, p.ShopID, p.UserID, model.ActionAddProduct,
			"Added product: "+prod.Name, p.ClientIP)
	})
	if err != nil {
		return nil, translate("create product", err)
	}
	resp := productToResponse(prod)
	return &resp, nil
}

// UpdateQuantity sets an absolute stock level under a row lock so it cannot
// interleave with a concurrent sale of the same product.
func (s *productService) UpdateQuantity(ctx context.Context, p *authz.Principal, id uuid.UUID, quantity int) (*dto.ProductResponse, error) {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	var updated *model.Product
	err := repository.RunTx(ctx, s.db, func(tx *gorm.DB) error {
		prod, err := s.repo.LockInShopTx(tx, p.ShopID, id)
		if err != nil {
			return err
		}
		old := prod.Quantity
		if err := s.repo.SetQuantityTx(tx, p.ShopID, id, quantity); err != nil {
			return err
		}
		if err := s.journal.Append(tx, p.ShopID, p.UserID, model.ActionUpdateStock,
			fmt.Sprintf("Updated %s stock: %d → %d", prod.Name, old, quantity), p.ClientIP); err != nil {
			return err
		}
		updated, err = s.repo.LockInShopTx(tx, p.ShopID, id)
		return err
	})
	if err != nil {
		return nil, translate("update stock", err)
	}
	resp := productToResponse(updated)
	return &resp, nil
}

// Delete removes the product. Sales keep their product_id and name snapshot.
func (s *productService) Delete(ctx context.Context, p *authz.Principal, id uuid.UUID) error {
	if err := authz.Require(p, authz.Authenticated); err != nil {
		return err
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	err := repository.RunTx(ctx, s.db, func(tx *gorm.DB) error {
		prod, err := s.repo.LockInShopTx(tx, p.ShopID, id)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteTx(tx, p.ShopID, id); err != nil {
			return err
		}
		return s.journal.Append(tx, p.ShopID, p.UserID, model.ActionDeleteProduct,
			"Deleted product: "+prod.Name, p.ClientIP)
	})
	return translate("delete product", err)
}

func productToResponse(p *model.Product) dto.ProductResponse {
	var createdBy *string
	if p.CreatedBy != nil {
		s := p.CreatedBy.String()
		createdBy = &s
	}
	return dto.ProductResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		CostPrice:    p.CostPrice,
		SellingPrice: p.SellingPrice,
		Quantity:     p.Quantity,
		CreatedBy:    createdBy,
		ShopID:       p.ShopID.String(),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
