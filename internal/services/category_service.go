package services

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

const (
	MaxCategoryPage   = 500
	MaxCategorySearch = 200
	MaxBulkIDs        = 100
	DefaultTreeDepth  = 3
	MaxTreeDepth      = 10
)

type CategoryService struct {
	Cats *repos.CategoryRepo
}

func NewCategoryService(cats *repos.CategoryRepo) *CategoryService {
	return &CategoryService{Cats: cats}
}

// CategoryInput is a full category body. A ParentID of 0 means no parent.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=2000"`
	ImageURL    string `json:"category_image" validate:"omitempty,url,max=500"`
	ParentID    *int64 `json:"parent_category_id" validate:"omitempty,gte=0"`
	IsActive    *bool  `json:"is_active"`
}

// CategoryPatch changes only the fields that are set. SetParent
// distinguishes "make root" (ParentID nil) from "leave as is".
type CategoryPatch struct {
	Name        *string
	Description *string
	ImageURL    *string
	SetParent   bool
	ParentID    *int64
	IsActive    *bool
}

func normParent(p *int64) *int64 {
	if p == nil || *p == 0 {
		return nil
	}
	return p
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.Cats.Get(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Category not found")
	}
	return c, err
}

func (s *CategoryService) checkName(ctx context.Context, name string, excludeID int64) error {
	taken, err := s.Cats.NameTaken(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.New(apperr.Conflict, "A category with this name already exists")
	}
	return nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	c := &domain.Category{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ImageURL:    in.ImageURL,
		ParentID:    normParent(in.ParentID),
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if err := s.checkName(ctx, c.Name, 0); err != nil {
		return nil, err
	}
	if c.ParentID != nil {
		if err := ValidateParent(ctx, s.Cats, 0, *c.ParentID, c.IsActive); err != nil {
			return nil, err
		}
	}
	id, err := s.Cats.Create(ctx, c)
	if repos.IsUniqueViolation(err) {
		return nil, apperr.New(apperr.Conflict, "A category with this name already exists")
	}
	if err != nil {
		return nil, err
	}
	return s.Cats.Get(ctx, id)
}

// Replace overwrites every field of the category.
func (s *CategoryService) Replace(ctx context.Context, id int64, in CategoryInput) (*domain.Category, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *cur
	next.Name = strings.TrimSpace(in.Name)
	next.Description = in.Description
	next.ImageURL = in.ImageURL
	next.ParentID = normParent(in.ParentID)
	if in.IsActive != nil {
		next.IsActive = *in.IsActive
	}
	return s.apply(ctx, cur, &next)
}

func (s *CategoryService) Patch(ctx context.Context, id int64, p CategoryPatch) (*domain.Category, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *cur
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.ImageURL != nil {
		next.ImageURL = *p.ImageURL
	}
	if p.SetParent {
		next.ParentID = normParent(p.ParentID)
	}
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}
	return s.apply(ctx, cur, &next)
}

// apply runs every hierarchy rule that the change from cur to next touches,
// then writes next.
func (s *CategoryService) apply(ctx context.Context, cur, next *domain.Category) (*domain.Category, error) {
	if !strings.EqualFold(cur.Name, next.Name) {
		if err := s.checkName(ctx, next.Name, cur.ID); err != nil {
			return nil, err
		}
	}
	if next.ParentID != nil {
		if err := ValidateParent(ctx, s.Cats, cur.ID, *next.ParentID, next.IsActive); err != nil {
			return nil, err
		}
	}
	if cur.IsActive && !next.IsActive {
		if err := ValidateDeactivation(ctx, s.Cats, cur.ID); err != nil {
			return nil, err
		}
	}
	err := s.Cats.Update(ctx, next)
	if repos.IsUniqueViolation(err) {
		return nil, apperr.New(apperr.Conflict, "A category with this name already exists")
	}
	if err != nil {
		return nil, err
	}
	return s.Cats.Get(ctx, cur.ID)
}

// Move re-parents a category. A nil newParent makes it a root.
func (s *CategoryService) Move(ctx context.Context, id int64, newParent *int64) (*domain.Category, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	newParent = normParent(newParent)
	if newParent != nil {
		err := ValidateParent(ctx, s.Cats, id, *newParent, cur.IsActive)
		if errors.Is(err, ErrCycle) {
			return nil, apperr.Wrap(ErrCycle, apperr.Validation, "Cannot move category: would create circular reference")
		}
		if err != nil {
			return nil, err
		}
	}
	if err := s.Cats.SetParent(ctx, id, newParent); err != nil {
		return nil, err
	}
	return s.Cats.Get(ctx, id)
}

// ToggleStatus flips is_active, applying the activation or deactivation rule.
func (s *CategoryService) ToggleStatus(ctx context.Context, id int64) (*domain.Category, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.IsActive {
		err = ValidateDeactivation(ctx, s.Cats, id)
	} else {
		err = ValidateActivation(ctx, s.Cats, cur)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Cats.SetActive(ctx, id, !cur.IsActive); err != nil {
		return nil, err
	}
	return s.Cats.Get(ctx, id)
}

// SoftDelete deactivates the category and reports how many active products
// are still linked to it.
func (s *CategoryService) SoftDelete(ctx context.Context, id int64) (int, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if !cur.IsActive {
		return 0, apperr.New(apperr.Validation, "Category is already inactive")
	}
	if err := ValidateDeactivation(ctx, s.Cats, id); err != nil {
		return 0, err
	}
	if err := s.Cats.SetActive(ctx, id, false); err != nil {
		return 0, err
	}
	return s.Cats.CountProducts(ctx, id, false)
}

// HardDelete removes the row. With force, product links are detached in the
// same transaction; the number of detached links is returned.
func (s *CategoryService) HardDelete(ctx context.Context, id int64, force bool) (int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	products, err := ValidateHardDelete(ctx, s.Cats, id, force)
	if err != nil {
		return 0, err
	}
	return s.Cats.HardDelete(ctx, id, products > 0)
}

type BulkError struct {
	ID     int64  `json:"category_id"`
	Detail string `json:"detail"`
}

type BulkResult struct {
	Deactivated []int64     `json:"deactivated"`
	Errors      []BulkError `json:"errors"`
}

// BulkDeactivate deactivates each id independently; failures do not stop
// the rest.
func (s *CategoryService) BulkDeactivate(ctx context.Context, ids []int64) (BulkResult, error) {
	res := BulkResult{Deactivated: []int64{}, Errors: []BulkError{}}
	if len(ids) == 0 {
		return res, apperr.New(apperr.Validation, "No category ids given")
	}
	if len(ids) > MaxBulkIDs {
		return res, apperr.Newf(apperr.Validation, "At most %d categories per request", MaxBulkIDs)
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.SoftDelete(ctx, id); err != nil {
			if apperr.CodeOf(err) == apperr.Internal {
				return res, err
			}
			res.Errors = append(res.Errors, BulkError{ID: id, Detail: detailOf(err)})
			continue
		}
		res.Deactivated = append(res.Deactivated, id)
	}
	return res, nil
}

func detailOf(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

func (s *CategoryService) List(ctx context.Context, f repos.CategoryFilter) ([]domain.Category, error) {
	if f.ParentID != nil {
		if _, err := s.Cats.Get(ctx, *f.ParentID); errors.Is(err, repos.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Parent category not found")
		} else if err != nil {
			return nil, err
		}
	}
	f.Limit = clamp(f.Limit, 1, MaxCategoryPage, 100)
	if f.Skip < 0 {
		f.Skip = 0
	}
	return s.Cats.List(ctx, f)
}

func (s *CategoryService) Roots(ctx context.Context, isActive *bool) ([]domain.Category, error) {
	return s.Cats.List(ctx, repos.CategoryFilter{RootsOnly: true, IsActive: isActive})
}

func (s *CategoryService) Subcategories(ctx context.Context, id int64) ([]domain.Category, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Cats.Children(ctx, id, false)
}

func (s *CategoryService) Search(ctx context.Context, term string, limit int) ([]domain.Category, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < 2 {
		return nil, apperr.New(apperr.Validation, "Search term must be at least 2 characters")
	}
	return s.Cats.Search(ctx, term, clamp(limit, 1, MaxCategorySearch, 50))
}

func (s *CategoryService) ProductsCount(ctx context.Context, id int64, includeInactive bool) (int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	return s.Cats.CountProducts(ctx, id, includeInactive)
}

// Tree returns the category with its active descendants, maxDepth levels
// deep. The walk tracks visited ids so stored loops cannot recurse forever.
func (s *CategoryService) Tree(ctx context.Context, id int64, maxDepth int) (*domain.CategoryNode, error) {
	if maxDepth < 1 || maxDepth > MaxTreeDepth {
		return nil, apperr.Newf(apperr.Validation, "max_depth must be between 1 and %d", MaxTreeDepth)
	}
	root, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	visited := map[int64]bool{root.ID: true}
	node := &domain.CategoryNode{Category: *root}
	if err := s.fill(ctx, node, maxDepth, visited); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *CategoryService) fill(ctx context.Context, n *domain.CategoryNode, depth int, visited map[int64]bool) error {
	n.Children = []domain.CategoryNode{}
	if depth == 0 {
		return nil
	}
	kids, err := s.Cats.Children(ctx, n.ID, true)
	if err != nil {
		return err
	}
	for _, k := range kids {
		if visited[k.ID] {
			continue
		}
		visited[k.ID] = true
		child := domain.CategoryNode{Category: k}
		if err := s.fill(ctx, &child, depth-1, visited); err != nil {
			return err
		}
		n.Children = append(n.Children, child)
	}
	return nil
}

// clamp bounds v to [lo, hi], using def when v is unset.
func clamp(v, lo, hi, def int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
