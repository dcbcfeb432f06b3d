// Package model declares the persisted catalog schema.
//
// Tables and columns are spelled out explicitly. Primary keys are the ID field
// of each model so the association fields resolve as belongs-to: the
// constraints live on the referencing table with ON DELETE CASCADE.
package model

// NameMaxLen is the column width of category and subcategory names.
const NameMaxLen = 255

// Category is a top-level grouping of services.
type Category struct {
	ID           int64  `gorm:"column:category_id;primaryKey;autoIncrement"`
	CategoryName string `gorm:"column:category_name;size:255;not null"`
}

// TableName of the Category.
func (Category) TableName() string { return "categories" }

// SubCategory belongs to exactly one Category.
type SubCategory struct {
	ID              int64  `gorm:"column:subcategory_id;primaryKey;autoIncrement"`
	CategoryID      int64  `gorm:"column:category_id;not null;index"`
	SubCategoryName string `gorm:"column:subcategory_name;size:255;not null"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

// TableName of the SubCategory.
func (SubCategory) TableName() string { return "subcategories" }

// Service references a Category and a SubCategory. The two references are
// independent: nothing requires the subcategory to belong to the category.
type Service struct {
	ID            int64  `gorm:"column:service_id;primaryKey;autoIncrement"`
	CategoryID    int64  `gorm:"column:category_id;not null;index"`
	SubCategoryID int64  `gorm:"column:subcategory_id;not null;index"`
	Description   string `gorm:"column:description;type:text;not null"`

	Category    *Category    `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	SubCategory *SubCategory `gorm:"foreignKey:SubCategoryID;constraint:OnDelete:CASCADE"`
}

// TableName of the Service.
func (Service) TableName() string { return "service" }

// All lists every model in foreign-key dependency order.
func All() []any {
	return []any{&Category{}, &SubCategory{}, &Service{}}
}
