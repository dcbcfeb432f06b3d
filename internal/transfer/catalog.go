package transfer

import (
	"servicecatalog.io/catalog/internal/model"
	apperrors "servicecatalog.io/catalog/internal/pkg/errors"
)

// Category is the outbound representation of a category row.
type Category struct {
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
}

// SubCategory is the outbound representation of a subcategory row.
type SubCategory struct {
	SubCategoryID   int64  `json:"subcategory_id"`
	Category        int64  `json:"category"`
	SubCategoryName string `json:"subcategory_name"`
}

// Service is the outbound representation of a service row.
type Service struct {
	ServiceID   int64  `json:"service_id"`
	Category    int64  `json:"category"`
	SubCategory int64  `json:"subcategory"`
	Description string `json:"description"`
}

// FromCategory converts a stored category.
func FromCategory(m model.Category) Category {
	return Category{
		CategoryID:   m.ID,
		CategoryName: m.CategoryName,
	}
}

// FromSubCategory converts a stored subcategory.
func FromSubCategory(m model.SubCategory) SubCategory {
	return SubCategory{
		SubCategoryID:   m.ID,
		Category:        m.CategoryID,
		SubCategoryName: m.SubCategoryName,
	}
}

// FromService converts a stored service.
func FromService(m model.Service) Service {
	return Service{
		ServiceID:   m.ID,
		Category:    m.CategoryID,
		SubCategory: m.SubCategoryID,
		Description: m.Description,
	}
}

// ToCategory validates p as a category create request.
func ToCategory(p Payload) (model.Category, []apperrors.FieldError) {
	var errs fieldErrors
	m := model.Category{
		CategoryName: charField(p, "category_name", model.NameMaxLen, &errs),
	}
	return m, errs
}

// ToSubCategory validates p as a subcategory create request.
func ToSubCategory(p Payload) (model.SubCategory, []apperrors.FieldError) {
	var errs fieldErrors
	m := model.SubCategory{
		CategoryID:      pkField(p, "category", &errs),
		SubCategoryName: charField(p, "subcategory_name", model.NameMaxLen, &errs),
	}
	return m, errs
}

// ToService validates p as a service create request.
func ToService(p Payload) (model.Service, []apperrors.FieldError) {
	var errs fieldErrors
	m := model.Service{
		CategoryID:    pkField(p, "category", &errs),
		SubCategoryID: pkField(p, "subcategory", &errs),
		Description:   charField(p, "description", 0, &errs),
	}
	return m, errs
}
