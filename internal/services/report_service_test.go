package services_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func TestReportService_SalesAndTopProducts(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	carts, orders := newOrders(e)
	reports := services.NewReportService(e.reps)

	_, err := carts.Add(ctx, aliceID, duneID, 2)
	require.NoError(t, err)
	_, err = orders.Checkout(ctx, aliceID, shipping())
	require.NoError(t, err)

	_, err = carts.Add(ctx, bobID, prideID, 1)
	require.NoError(t, err)
	cancelled, err := orders.Checkout(ctx, bobID, shipping())
	require.NoError(t, err)
	_, err = orders.Cancel(ctx, bobID, cancelled.ID)
	require.NoError(t, err)

	sales, err := reports.Sales(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sales.TotalOrders)
	assert.InDelta(t, 37.00, sales.TotalRevenue, 0.001, "cancelled orders carry no revenue")
	assert.Equal(t, 4, sales.Counts.Products)

	top, err := reports.TopProducts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "BK-DUNE", top[0].SKU)
	assert.Equal(t, 2, top[0].Units)

	buf := &bytes.Buffer{}
	require.NoError(t, reports.WriteSalesXLSX(ctx, buf))
	wb, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"Sales", "Top products"}, wb.GetSheetList())
	rows, err := wb.GetRows("Top products")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "BK-DUNE", rows[1][1])
}

func TestUserService(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	svc := services.NewUserService(e.users)

	common, err := svc.List(ctx, repos.UserFilter{Role: domain.RoleCommon})
	require.NoError(t, err)
	assert.Len(t, common, 2)

	_, err = svc.List(ctx, repos.UserFilter{Role: "root"})
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))

	u, err := svc.SetRole(ctx, adminID, aliceID, domain.RoleStoreStaff)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStoreStaff, u.Role)

	_, err = svc.SetRole(ctx, adminID, adminID, domain.RoleCommon)
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
	_, err = svc.SetRole(ctx, adminID, 999, domain.RoleCommon)
	assert.True(t, apperr.IsNotFound(err))

	u, err = svc.SetActive(ctx, adminID, bobID, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	_, err = svc.SetActive(ctx, adminID, adminID, false)
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))

	inactive := false
	list, err := svc.List(ctx, repos.UserFilter{IsActive: &inactive})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bobID, list[0].ID)
}

func TestWishlistService(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	svc := services.NewWishlistService(e.wish, e.prods)

	items, err := svc.Save(ctx, aliceID, duneID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	items, err = svc.Save(ctx, aliceID, duneID)
	require.NoError(t, err)
	assert.Len(t, items, 1, "saving twice keeps one entry")

	_, err = svc.Save(ctx, aliceID, 999)
	assert.True(t, apperr.IsNotFound(err))

	items, err = svc.List(ctx, bobID)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = svc.Unsave(ctx, aliceID, duneID)
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = svc.Unsave(ctx, aliceID, duneID)
	assert.True(t, apperr.IsNotFound(err))
}
