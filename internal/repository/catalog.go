// Package repository implements the storage operations of the catalog on top of gorm.
//
// Every create runs in a single transaction that checks the referenced rows
// and inserts the new one; callers never observe a partial write.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"servicecatalog.io/catalog/internal/model"
	"servicecatalog.io/catalog/internal/pkg/logger"
)

// ErrNotFound is returned when a delete targets a row that does not exist.
var ErrNotFound = errors.New("not found")

// Reference names a foreign-key field and the id it pointed at.
type Reference struct {
	Field string
	ID    int64
}

// MissingReferenceError reports foreign keys that point at no row.
type MissingReferenceError struct {
	Refs []Reference
}

// Error implements the error interface.
func (e *MissingReferenceError) Error() string {
	parts := make([]string, 0, len(e.Refs))
	for _, r := range e.Refs {
		parts = append(parts, fmt.Sprintf("%s=%d", r.Field, r.ID))
	}
	return "referenced row does not exist: " + strings.Join(parts, ", ")
}

// CatalogRepository stores categories, subcategories and services.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a repository backed by db.
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCategories returns all categories in insertion order.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows := []model.Category{}
	if err := r.db.WithContext(ctx).Order("category_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return rows, nil
}

// ListSubCategories returns all subcategories in insertion order.
func (r *CatalogRepository) ListSubCategories(ctx context.Context) ([]model.SubCategory, error) {
	rows := []model.SubCategory{}
	if err := r.db.WithContext(ctx).Order("subcategory_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	return rows, nil
}

// ListServices returns all services in insertion order.
func (r *CatalogRepository) ListServices(ctx context.Context) ([]model.Service, error) {
	rows := []model.Service{}
	if err := r.db.WithContext(ctx).Order("service_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return rows, nil
}

// CreateCategory inserts c and fills in its assigned id.
func (r *CatalogRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	c.ID = 0
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// CreateSubCategory inserts s after checking that its category exists.
func (r *CatalogRepository) CreateSubCategory(ctx context.Context, s *model.SubCategory) error {
	s.ID = 0
	refs := []Reference{{Field: "category", ID: s.CategoryID}}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := referenceExists(tx, refs[0])
		if err != nil {
			return err
		}
		if !found {
			return &MissingReferenceError{Refs: refs}
		}
		return tx.Omit(clause.Associations).Create(s).Error
	})
	if err != nil {
		return r.wrapCreateErr(ctx, "subcategory", err, refs)
	}
	return nil
}

// CreateService inserts s after checking that its category and subcategory exist.
// A subcategory that belongs to another category is accepted and logged.
func (r *CatalogRepository) CreateService(ctx context.Context, s *model.Service) error {
	s.ID = 0
	refs := []Reference{
		{Field: "category", ID: s.CategoryID},
		{Field: "subcategory", ID: s.SubCategoryID},
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var missing []Reference

		found, err := referenceExists(tx, refs[0])
		if err != nil {
			return err
		}
		if !found {
			missing = append(missing, refs[0])
		}

		var sub model.SubCategory
		err = tx.Select("subcategory_id", "category_id").
			Where("subcategory_id = ?", s.SubCategoryID).
			Take(&sub).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			missing = append(missing, refs[1])
		case err != nil:
			return fmt.Errorf("lookup subcategory %d: %w", s.SubCategoryID, err)
		}

		if len(missing) > 0 {
			return &MissingReferenceError{Refs: missing}
		}
		if sub.CategoryID != s.CategoryID {
			logger.Warn("service subcategory belongs to a different category",
				zap.Int64("category_id", s.CategoryID),
				zap.Int64("subcategory_id", s.SubCategoryID),
				zap.Int64("subcategory_category_id", sub.CategoryID),
			)
		}
		return tx.Omit(clause.Associations).Create(s).Error
	})
	if err != nil {
		return r.wrapCreateErr(ctx, "service", err, refs)
	}
	return nil
}

// DeleteCategory removes a category together with its subcategories and services.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Category{}, "category_id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete category %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete category %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSubCategory removes a subcategory together with its services.
func (r *CatalogRepository) DeleteSubCategory(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.SubCategory{}, "subcategory_id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete subcategory %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete subcategory %d: %w", id, ErrNotFound)
	}
	return nil
}

// referenceTargets maps a foreign-key field to the table it points at.
var referenceTargets = map[string]struct {
	model  any
	column string
}{
	"category":    {model: &model.Category{}, column: "category_id"},
	"subcategory": {model: &model.SubCategory{}, column: "subcategory_id"},
}

func referenceExists(tx *gorm.DB, ref Reference) (bool, error) {
	target, ok := referenceTargets[ref.Field]
	if !ok {
		return false, fmt.Errorf("unknown reference field %q", ref.Field)
	}
	var n int64
	if err := tx.Model(target.model).Where(target.column+" = ?", ref.ID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("lookup %s %d: %w", ref.Field, ref.ID, err)
	}
	return n > 0, nil
}

// wrapCreateErr keeps MissingReferenceError unwrapped and maps engine-level
// foreign-key violations onto it, reporting only the refs still missing.
func (r *CatalogRepository) wrapCreateErr(ctx context.Context, kind string, err error, refs []Reference) error {
	var missing *MissingReferenceError
	if errors.As(err, &missing) {
		return missing
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &MissingReferenceError{Refs: r.unresolved(ctx, refs)}
	}
	return fmt.Errorf("create %s: %w", kind, err)
}

// unresolved returns the refs that point at no row. When none can be singled
// out, every ref is returned.
func (r *CatalogRepository) unresolved(ctx context.Context, refs []Reference) []Reference {
	db := r.db.WithContext(ctx)
	out := make([]Reference, 0, len(refs))
	for _, ref := range refs {
		found, err := referenceExists(db, ref)
		if err != nil {
			return refs
		}
		if !found {
			out = append(out, ref)
		}
	}
	if len(out) == 0 {
		return refs
	}
	return out
}
