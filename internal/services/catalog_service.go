package services

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

const MaxProductPage = 100

type CatalogService struct {
	Cats  *repos.CategoryRepo
	Prods *repos.ProductRepo
}

func NewCatalogService(cats *repos.CategoryRepo, prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods}
}

type ProductInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	SKU         string  `json:"sku" validate:"required,sku"`
	Price       float64 `json:"price" validate:"gt=0"`
	Description string  `json:"description" validate:"max=5000"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url,max=500"`
	OnlineStock int     `json:"online_stock" validate:"gte=0"`
	IsFeatured  bool    `json:"is_featured"`
	IsActive    *bool   `json:"is_active"`
	ProductType string  `json:"product_type" validate:"max=50"`
	CategoryIDs []int64 `json:"category_ids" validate:"dive,gt=0"`
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64, includeInactive bool) (*domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if errors.Is(err, repos.ErrNotFound) || (err == nil && !p.IsActive && !includeInactive) {
		return nil, apperr.New(apperr.NotFound, "Product not found")
	}
	return p, err
}

func (s *CatalogService) ListProducts(ctx context.Context, f repos.ProductFilter) ([]domain.Product, error) {
	f.Limit = clamp(f.Limit, 1, MaxProductPage, 20)
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, apperr.New(apperr.Validation, "min_price cannot exceed max_price")
	}
	return s.Prods.List(ctx, f)
}

func (s *CatalogService) checkProduct(ctx context.Context, in ProductInput, excludeID int64) error {
	taken, err := s.Prods.SKUTaken(ctx, in.SKU, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.New(apperr.Conflict, "A product with this SKU already exists")
	}
	missing, err := s.Cats.Exists(ctx, in.CategoryIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperr.Newf(apperr.Validation, "Categories not found: %v", missing)
	}
	return nil
}

func fromInput(in ProductInput) domain.Product {
	return domain.Product{
		Name:        strings.TrimSpace(in.Name),
		SKU:         strings.TrimSpace(in.SKU),
		Price:       in.Price,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		OnlineStock: in.OnlineStock,
		IsFeatured:  in.IsFeatured,
		IsActive:    in.IsActive == nil || *in.IsActive,
		ProductType: in.ProductType,
		CategoryIDs: dedupe(in.CategoryIDs),
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := s.checkProduct(ctx, in, 0); err != nil {
		return nil, err
	}
	p := fromInput(in)
	id, err := s.Prods.Create(ctx, &p)
	if repos.IsUniqueViolation(err) {
		return nil, apperr.New(apperr.Conflict, "A product with this SKU already exists")
	}
	if err != nil {
		return nil, err
	}
	return s.Prods.Get(ctx, id)
}

// UpdateProduct replaces the product. Category links are replaced only when
// the input carries category_ids.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	cur, err := s.GetProduct(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := s.checkProduct(ctx, in, id); err != nil {
		return nil, err
	}
	p := fromInput(in)
	p.ID = id
	if in.IsActive == nil {
		p.IsActive = cur.IsActive
	}
	if err := s.Prods.Update(ctx, &p, in.CategoryIDs != nil); err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.Conflict, "A product with this SKU already exists")
		}
		return nil, err
	}
	return s.Prods.Get(ctx, id)
}

func (s *CatalogService) ToggleProduct(ctx context.Context, id int64) (*domain.Product, error) {
	cur, err := s.GetProduct(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := s.Prods.SetActive(ctx, id, !cur.IsActive); err != nil {
		return nil, err
	}
	return s.Prods.Get(ctx, id)
}

func (s *CatalogService) SetStock(ctx context.Context, id int64, stock int) (*domain.Product, error) {
	if stock < 0 {
		return nil, apperr.New(apperr.Validation, "Stock cannot be negative")
	}
	if _, err := s.GetProduct(ctx, id, true); err != nil {
		return nil, err
	}
	if err := s.Prods.SetStock(ctx, id, stock); err != nil {
		return nil, err
	}
	return s.Prods.Get(ctx, id)
}

// DeleteProduct is a soft delete; order history keeps referring to the row.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	cur, err := s.GetProduct(ctx, id, true)
	if err != nil {
		return err
	}
	if !cur.IsActive {
		return apperr.New(apperr.Validation, "Product is already inactive")
	}
	return s.Prods.SetActive(ctx, id, false)
}

type SearchResult struct {
	Query      string            `json:"query"`
	Products   []domain.Product  `json:"products"`
	Categories []domain.Category `json:"categories"`
}

// Search matches active products by name or sku and categories by name or
// description.
func (s *CatalogService) Search(ctx context.Context, q string, limit int) (SearchResult, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < 2 {
		return SearchResult{}, apperr.New(apperr.Validation, "Search term must be at least 2 characters")
	}
	limit = clamp(limit, 1, MaxProductPage, 20)
	prods, err := s.Prods.List(ctx, repos.ProductFilter{Query: q, Limit: limit})
	if err != nil {
		return SearchResult{}, err
	}
	cats, err := s.Cats.Search(ctx, q, limit)
	if err != nil {
		return SearchResult{}, err
	}
	active := cats[:0]
	for _, c := range cats {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return SearchResult{Query: q, Products: prods, Categories: active}, nil
}

func dedupe(ids []int64) []int64 {
	if ids == nil {
		return nil
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
