package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"servicecatalog.io/catalog/internal/model"
	"servicecatalog.io/catalog/internal/pkg/logger"
	"servicecatalog.io/catalog/internal/testutil"
)

func init() {
	_ = logger.Init("error", "json")
}

func newTestRepo(t *testing.T) *CatalogRepository {
	t.Helper()
	return NewCatalogRepository(testutil.OpenSQLite(t))
}

// seedTree creates one category, one subcategory under it and one service under both.
func seedTree(t *testing.T, repo *CatalogRepository) (model.Category, model.SubCategory, model.Service) {
	t.Helper()
	ctx := context.Background()

	cat := model.Category{CategoryName: "Home Repair"}
	require.NoError(t, repo.CreateCategory(ctx, &cat))

	sub := model.SubCategory{CategoryID: cat.ID, SubCategoryName: "Plumbing"}
	require.NoError(t, repo.CreateSubCategory(ctx, &sub))

	svc := model.Service{CategoryID: cat.ID, SubCategoryID: sub.ID, Description: "Fix leaky faucet"}
	require.NoError(t, repo.CreateService(ctx, &svc))

	return cat, sub, svc
}

func TestCreateCategory_AssignsID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := model.Category{ID: 42, CategoryName: "Home Repair"}
	require.NoError(t, repo.CreateCategory(ctx, &c))
	assert.Equal(t, int64(1), c.ID, "caller-supplied id must be replaced by the assigned one")

	rows, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{{ID: 1, CategoryName: "Home Repair"}}, rows)
}

func TestListCategories_EmptyIsNonNil(t *testing.T) {
	repo := newTestRepo(t)

	rows, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestList_InsertionOrderAndIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"Cleaning", "Appliances", "Beauty"} {
		c := model.Category{CategoryName: name}
		require.NoError(t, repo.CreateCategory(ctx, &c))
	}

	first, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	second, err := repo.ListCategories(ctx)
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, "Cleaning", first[0].CategoryName)
	assert.Equal(t, "Appliances", first[1].CategoryName)
	assert.Equal(t, "Beauty", first[2].CategoryName)
	assert.Equal(t, first, second)
}

func TestCreateSubCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := model.Category{CategoryName: "Home Repair"}
	require.NoError(t, repo.CreateCategory(ctx, &cat))

	sub := model.SubCategory{CategoryID: cat.ID, SubCategoryName: "Plumbing"}
	require.NoError(t, repo.CreateSubCategory(ctx, &sub))
	assert.Equal(t, int64(1), sub.ID)

	rows, err := repo.ListSubCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.SubCategory{{ID: 1, CategoryID: 1, SubCategoryName: "Plumbing"}}, rows)
}

func TestCreateSubCategory_MissingCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.CreateSubCategory(ctx, &model.SubCategory{CategoryID: 999, SubCategoryName: "X"})

	var missing *MissingReferenceError
	require.True(t, errors.As(err, &missing), "err = %v", err)
	assert.Equal(t, []Reference{{Field: "category", ID: 999}}, missing.Refs)

	rows, err := repo.ListSubCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows, "no row may be persisted on failure")
}

func TestCreateService(t *testing.T) {
	repo := newTestRepo(t)
	_, _, svc := seedTree(t, repo)
	assert.Equal(t, int64(1), svc.ID)

	rows, err := repo.ListServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Service{{ID: 1, CategoryID: 1, SubCategoryID: 1, Description: "Fix leaky faucet"}}, rows)
}

func TestCreateService_MissingReferences(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat, sub, _ := seedTree(t, repo)

	tests := []struct {
		name string
		svc  model.Service
		want []Reference
	}{
		{
			name: "category",
			svc:  model.Service{CategoryID: 999, SubCategoryID: sub.ID, Description: "x"},
			want: []Reference{{Field: "category", ID: 999}},
		},
		{
			name: "subcategory",
			svc:  model.Service{CategoryID: cat.ID, SubCategoryID: 888, Description: "x"},
			want: []Reference{{Field: "subcategory", ID: 888}},
		},
		{
			name: "both",
			svc:  model.Service{CategoryID: 999, SubCategoryID: 888, Description: "x"},
			want: []Reference{{Field: "category", ID: 999}, {Field: "subcategory", ID: 888}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := tt.svc
			err := repo.CreateService(ctx, &svc)

			var missing *MissingReferenceError
			require.True(t, errors.As(err, &missing), "err = %v", err)
			assert.Equal(t, tt.want, missing.Refs)
		})
	}

	rows, err := repo.ListServices(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "failed creates must not persist rows")
}

func TestCreateService_SubCategoryOfOtherCategoryIsAccepted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, sub, _ := seedTree(t, repo)

	other := model.Category{CategoryName: "Garden"}
	require.NoError(t, repo.CreateCategory(ctx, &other))

	svc := model.Service{CategoryID: other.ID, SubCategoryID: sub.ID, Description: "Mow lawn"}
	require.NoError(t, repo.CreateService(ctx, &svc))
	assert.NotZero(t, svc.ID)
}

func TestDeleteCategory_Cascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat, _, _ := seedTree(t, repo)

	keep := model.Category{CategoryName: "Garden"}
	require.NoError(t, repo.CreateCategory(ctx, &keep))
	keepSub := model.SubCategory{CategoryID: keep.ID, SubCategoryName: "Lawn"}
	require.NoError(t, repo.CreateSubCategory(ctx, &keepSub))

	require.NoError(t, repo.DeleteCategory(ctx, cat.ID))

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{keep}, cats)

	subs, err := repo.ListSubCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.SubCategory{keepSub}, subs)

	svcs, err := repo.ListServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, svcs)
}

func TestDeleteSubCategory_CascadesToServices(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat, sub, _ := seedTree(t, repo)

	require.NoError(t, repo.DeleteSubCategory(ctx, sub.ID))

	svcs, err := repo.ListServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, svcs)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{cat}, cats, "parent category is untouched")
}

func TestDelete_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.DeleteCategory(ctx, 5), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteSubCategory(ctx, 5), ErrNotFound)
}

func TestMissingReferenceError_Message(t *testing.T) {
	err := &MissingReferenceError{Refs: []Reference{{Field: "category", ID: 1}, {Field: "subcategory", ID: 2}}}
	assert.Equal(t, "referenced row does not exist: category=1, subcategory=2", err.Error())
}

func TestCreate_CanceledContext(t *testing.T) {
	repo := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.CreateSubCategory(ctx, &model.SubCategory{CategoryID: 1, SubCategoryName: "X"})
	require.Error(t, err)

	var missing *MissingReferenceError
	assert.False(t, errors.As(err, &missing), "a canceled transaction is not a validation failure")
}

func TestWrapCreateErr_ForeignKeyViolationReportsOnlyMissing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat, _, _ := seedTree(t, repo)

	refs := []Reference{
		{Field: "category", ID: cat.ID},
		{Field: "subcategory", ID: 888},
	}
	err := repo.wrapCreateErr(ctx, "service", fmt.Errorf("insert: %w", gorm.ErrForeignKeyViolated), refs)

	var missing *MissingReferenceError
	require.True(t, errors.As(err, &missing), "err = %v", err)
	assert.Equal(t, []Reference{{Field: "subcategory", ID: 888}}, missing.Refs)
}

func TestWrapCreateErr_AllResolvedFallsBackToEveryRef(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat, sub, _ := seedTree(t, repo)

	refs := []Reference{
		{Field: "category", ID: cat.ID},
		{Field: "subcategory", ID: sub.ID},
	}
	err := repo.wrapCreateErr(ctx, "service", gorm.ErrForeignKeyViolated, refs)

	var missing *MissingReferenceError
	require.True(t, errors.As(err, &missing), "err = %v", err)
	assert.Equal(t, refs, missing.Refs)
}

func TestWrapCreateErr_OtherErrorsAreWrapped(t *testing.T) {
	repo := newTestRepo(t)
	boom := errors.New("boom")

	err := repo.wrapCreateErr(context.Background(), "category", boom, nil)
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "create category: boom")
}

func TestEngineRejectsDanglingForeignKeys(t *testing.T) {
	db := testutil.OpenSQLite(t)
	ctx := context.Background()

	err := db.WithContext(ctx).Omit(clause.Associations).
		Create(&model.SubCategory{CategoryID: 77, SubCategoryName: "Orphan"}).Error
	require.Error(t, err, "subcategories.category_id must reference categories")

	err = db.WithContext(ctx).Omit(clause.Associations).
		Create(&model.Service{CategoryID: 77, SubCategoryID: 66, Description: "Orphan"}).Error
	require.Error(t, err, "service foreign keys must reference their parents")

	require.NoError(t, db.WithContext(ctx).Create(&model.Category{CategoryName: "Home Repair"}).Error,
		"categories has no outgoing foreign keys")
}
