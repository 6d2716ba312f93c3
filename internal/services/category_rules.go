package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

var (
	ErrSelfParent     = errors.New("category cannot be its own parent")
	ErrParentNotFound = errors.New("parent category not found")
	ErrParentInactive = errors.New("parent category is inactive")
	ErrCycle          = errors.New("parent assignment would create a cycle")
)

type HasActiveChildrenError struct{ Count int }

func (e *HasActiveChildrenError) Error() string {
	return fmt.Sprintf("category has %d active subcategories", e.Count)
}

type HasChildrenError struct{ Count int }

func (e *HasChildrenError) Error() string {
	return fmt.Sprintf("category has %d subcategories", e.Count)
}

type HasProductsError struct{ Count int }

func (e *HasProductsError) Error() string {
	return fmt.Sprintf("category has %d associated products", e.Count)
}

// CategoryReader is the read side the hierarchy rules need.
type CategoryReader interface {
	Get(ctx context.Context, id int64) (*domain.Category, error)
	CountChildren(ctx context.Context, id int64, activeOnly bool) (int, error)
	CountProducts(ctx context.Context, id int64, includeInactive bool) (int, error)
}

// ValidateParent checks that parentID may become the parent of categoryID.
// categoryID is 0 when the category does not exist yet. childActive is the
// active flag the child will have after the change.
func ValidateParent(ctx context.Context, r CategoryReader, categoryID, parentID int64, childActive bool) error {
	if categoryID != 0 && parentID == categoryID {
		return apperr.Wrap(ErrSelfParent, apperr.Validation, "A category cannot be its own parent")
	}
	parent, err := r.Get(ctx, parentID)
	if errors.Is(err, repos.ErrNotFound) {
		return apperr.Wrap(ErrParentNotFound, apperr.NotFound, "Parent category not found")
	}
	if err != nil {
		return err
	}
	if !parent.IsActive && childActive {
		return apperr.Wrap(ErrParentInactive, apperr.Validation, "Cannot assign an inactive parent category")
	}
	if categoryID == 0 {
		return nil
	}

	// Walk up from the proposed parent. Reaching categoryID means the
	// category would become its own ancestor. The visited set stops the
	// walk on loops already present in stored data.
	visited := map[int64]bool{}
	for cur := parent; ; {
		if cur.ID == categoryID || visited[cur.ID] {
			return apperr.Wrap(ErrCycle, apperr.Validation, "Cannot set parent category: would create circular reference")
		}
		visited[cur.ID] = true
		if cur.ParentID == nil {
			return nil
		}
		next, err := r.Get(ctx, *cur.ParentID)
		if errors.Is(err, repos.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		cur = next
	}
}

// ValidateActivation rejects activating a category whose parent is inactive.
func ValidateActivation(ctx context.Context, r CategoryReader, c *domain.Category) error {
	if c.ParentID == nil {
		return nil
	}
	parent, err := r.Get(ctx, *c.ParentID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !parent.IsActive {
		return apperr.Wrap(ErrParentInactive, apperr.Validation,
			fmt.Sprintf("Cannot activate: parent category (ID: %d) is inactive", parent.ID))
	}
	return nil
}

// ValidateDeactivation rejects deactivating a category with active children.
func ValidateDeactivation(ctx context.Context, r CategoryReader, categoryID int64) error {
	n, err := r.CountChildren(ctx, categoryID, true)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Wrap(&HasActiveChildrenError{Count: n}, apperr.Validation,
			fmt.Sprintf("Cannot deactivate category: has %d active subcategories. Deactivate them first.", n))
	}
	return nil
}

// ValidateHardDelete rejects removing a category that still has children,
// or products unless force is set. It returns the number of product links
// the caller must detach.
func ValidateHardDelete(ctx context.Context, r CategoryReader, categoryID int64, force bool) (int, error) {
	children, err := r.CountChildren(ctx, categoryID, false)
	if err != nil {
		return 0, err
	}
	if children > 0 {
		return 0, apperr.Wrap(&HasChildrenError{Count: children}, apperr.Validation,
			fmt.Sprintf("Cannot delete category: has %d subcategories. Delete or reassign them first.", children))
	}
	products, err := r.CountProducts(ctx, categoryID, true)
	if err != nil {
		return 0, err
	}
	if products > 0 && !force {
		return 0, apperr.Wrap(&HasProductsError{Count: products}, apperr.Validation,
			fmt.Sprintf("Cannot delete category: has %d associated products. Use force=true to detach them.", products))
	}
	return products, nil
}

// HierarchyRule names the hierarchy rule err violates, or "" when err is not
// a hierarchy rejection.
func HierarchyRule(err error) string {
	var (
		ac *HasActiveChildrenError
		hc *HasChildrenError
		hp *HasProductsError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSelfParent):
		return "self_parent"
	case errors.Is(err, ErrCycle):
		return "cycle"
	case errors.Is(err, ErrParentInactive):
		return "inactive_parent"
	case errors.Is(err, ErrParentNotFound):
		return "missing_parent"
	case errors.As(err, &ac):
		return "active_children"
	case errors.As(err, &hc):
		return "has_children"
	case errors.As(err, &hp):
		return "has_products"
	}
	return ""
}
