package services_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"storefront/internal/apperr"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func TestCatalogService_ProductLifecycle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	svc := services.NewCatalogService(e.cats, e.prods)

	p, err := svc.CreateProduct(ctx, services.ProductInput{
		Name: "Neuromancer", SKU: "BK-NEURO", Price: 14.25, OnlineStock: 3,
		CategoryIDs: []int64{scifiID, booksID, scifiID},
	})
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Equal(t, []int64{booksID, scifiID}, p.CategoryIDs)

	_, err = svc.CreateProduct(ctx, services.ProductInput{Name: "Dup", SKU: "bk-neuro", Price: 1})
	assert.Equal(t, apperr.Conflict, apperr.CodeOf(err))

	_, err = svc.CreateProduct(ctx, services.ProductInput{Name: "Lost", SKU: "LOST-1", Price: 1, CategoryIDs: []int64{404}})
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))

	p, err = svc.UpdateProduct(ctx, p.ID, services.ProductInput{Name: "Neuromancer (pb)", SKU: "BK-NEURO", Price: 12})
	require.NoError(t, err)
	assert.Equal(t, []int64{booksID, scifiID}, p.CategoryIDs, "links kept without category_ids")

	p, err = svc.UpdateProduct(ctx, p.ID, services.ProductInput{Name: "Neuromancer", SKU: "BK-NEURO", Price: 12, CategoryIDs: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, p.CategoryIDs)

	p, err = svc.SetStock(ctx, p.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, p.OnlineStock)
	_, err = svc.SetStock(ctx, p.ID, -1)
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	assert.Equal(t, apperr.Validation, apperr.CodeOf(svc.DeleteProduct(ctx, p.ID)))

	_, err = svc.GetProduct(ctx, p.ID, false)
	assert.True(t, apperr.IsNotFound(err), "inactive products are hidden from the storefront")
	_, err = svc.GetProduct(ctx, p.ID, true)
	require.NoError(t, err)

	p, err = svc.ToggleProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
}

func TestCatalogService_ListAndSearch(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	svc := services.NewCatalogService(e.cats, e.prods)

	list, err := svc.ListProducts(ctx, repos.ProductFilter{CategoryID: ptr(scifiID)})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	lo, hi := 10.0, 20.0
	list, err = svc.ListProducts(ctx, repos.ProductFilter{MinPrice: &lo, MaxPrice: &hi})
	require.NoError(t, err)
	assert.Len(t, list, 2, "dune and foundation")

	_, err = svc.ListProducts(ctx, repos.ProductFilter{MinPrice: &hi, MaxPrice: &lo})
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))

	featured := true
	list, err = svc.ListProducts(ctx, repos.ProductFilter{IsFeatured: &featured})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	res, err := svc.Search(ctx, "fic", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Len(t, res.Categories, 2)

	res, err = svc.Search(ctx, "bk-", 0)
	require.NoError(t, err)
	assert.Len(t, res.Products, 3)

	_, err = svc.Search(ctx, " d ", 0)
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", ref, &r))
	}
	buf := &bytes.Buffer{}
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf
}

func TestCatalogService_ImportProducts(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	svc := services.NewCatalogService(e.cats, e.prods)

	buf := workbook(t, [][]any{
		{"name", "sku", "price", "online_stock", "description", "category_ids"},
		{"Hyperion", "BK-HYP", "16.5", "7", "Pilgrims", "1, 3"},
		{"Bad price", "BK-BAD", "free", "", "", ""},
		{"Dune again", "bk-dune", "10", "1", "", ""},
		{"Lamp", "HM-LAMP", "30", "", "", "404"},
	})
	res, err := svc.ImportProducts(ctx, buf, nil)
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 3, res.Errors[0].Row)
	assert.Equal(t, 4, res.Errors[1].Row)
	assert.Contains(t, res.Errors[1].Detail, "SKU")
	assert.Equal(t, 5, res.Errors[2].Row)

	p, err := e.prods.Get(ctx, res.Created[0])
	require.NoError(t, err)
	assert.Equal(t, "BK-HYP", p.SKU)
	assert.Equal(t, 7, p.OnlineStock)
	assert.Equal(t, []int64{booksID, scifiID}, p.CategoryIDs)

	_, err = svc.ImportProducts(ctx, workbook(t, [][]any{{"title", "code"}}), nil)
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))

	_, err = svc.ImportProducts(ctx, bytes.NewBufferString("not a workbook"), nil)
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
}

func TestImportTemplateRoundTrips(t *testing.T) {
	e := setup(t)
	svc := services.NewCatalogService(e.cats, e.prods)
	buf := &bytes.Buffer{}
	require.NoError(t, services.ImportTemplate(buf))
	res, err := svc.ImportProducts(context.Background(), buf, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Empty(t, res.Errors)
}
