package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func TestCartService(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	carts := services.NewCartService(e.carts, e.prods)

	cart, err := carts.Add(ctx, aliceID, duneID, 2)
	require.NoError(t, err)
	cart, err = carts.Add(ctx, aliceID, foundID, 1)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.InDelta(t, 52.00, cart.Total, 0.001)

	cart, err = carts.Add(ctx, aliceID, duneID, 1)
	require.NoError(t, err)
	for _, it := range cart.Items {
		if it.ProductID == duneID {
			assert.Equal(t, 3, it.Quantity)
		}
	}

	_, err = carts.Add(ctx, aliceID, duneID, 0)
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
	_, err = carts.Add(ctx, aliceID, 999, 1)
	assert.True(t, apperr.IsNotFound(err))

	cart, err = carts.Update(ctx, aliceID, foundID, 4)
	require.NoError(t, err)
	assert.InDelta(t, 3*18.50+4*15.00, cart.Total, 0.001)

	_, err = carts.Update(ctx, aliceID, prideID, 1)
	assert.True(t, apperr.IsNotFound(err))

	cart, err = carts.Remove(ctx, aliceID, foundID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	// carts are per principal
	other, err := carts.View(ctx, bobID)
	require.NoError(t, err)
	assert.Empty(t, other.Items)

	cart, err = carts.Clear(ctx, aliceID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)
}

func newOrders(e *env) (*services.CartService, *services.OrderService) {
	return services.NewCartService(e.carts, e.prods),
		services.NewOrderService(e.carts, e.inv, e.ords, e.prods)
}

func shipping() services.CheckoutInput {
	return services.CheckoutInput{DeliveryMethod: domain.DeliveryShipping, ShippingAddress: "221B Baker St"}
}

func TestOrderService_CheckoutShipping(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	carts, orders := newOrders(e)

	_, err := orders.Checkout(ctx, aliceID, shipping())
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err), "empty cart")

	_, err = carts.Add(ctx, aliceID, duneID, 2)
	require.NoError(t, err)

	_, err = orders.Checkout(ctx, aliceID, services.CheckoutInput{DeliveryMethod: domain.DeliveryShipping})
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err), "address required")

	o, err := orders.Checkout(ctx, aliceID, shipping())
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.NotEmpty(t, o.Reference)
	assert.InDelta(t, 37.00, o.Total, 0.001)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)

	p, err := e.prods.Get(ctx, duneID)
	require.NoError(t, err)
	assert.Equal(t, 38, p.OnlineStock)

	cart, err := carts.View(ctx, aliceID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestOrderService_CheckoutUsesCurrentPrice(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	carts, orders := newOrders(e)

	_, err := carts.Add(ctx, aliceID, duneID, 1)
	require.NoError(t, err)

	p, err := e.prods.Get(ctx, duneID)
	require.NoError(t, err)
	p.Price = 20
	require.NoError(t, e.prods.Update(ctx, p, false))

	stale := 18.50
	in := shipping()
	in.ExpectedTotal = &stale
	_, err = orders.Checkout(ctx, aliceID, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "20.00")

	o, err := orders.Checkout(ctx, aliceID, shipping())
	require.NoError(t, err)
	assert.InDelta(t, 20.00, o.Total, 0.001)
	assert.InDelta(t, 20.00, o.Items[0].PriceAtTime, 0.001)
}

func TestOrderService_InsufficientStockRollsBack(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	carts, orders := newOrders(e)

	_, err := carts.Add(ctx, aliceID, duneID, 1)
	require.NoError(t, err)
	_, err = carts.Add(ctx, aliceID, readerID, 6)
	require.NoError(t, err)

	_, err = orders.Checkout(ctx, aliceID, shipping())
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
	var short *repos.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, readerID, short.ProductID)

	dune, err := e.prods.Get(ctx, duneID)
	require.NoError(t, err)
	assert.Equal(t, 40, dune.OnlineStock, "earlier line released on rollback")

	cart, err := carts.View(ctx, aliceID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)

	list, err := orders.List(ctx, repos.OrderFilter{UserID: ptr(aliceID)})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOrderService_PickupReservesShelfAndCancelReleases(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	carts, orders := newOrders(e)

	_, err := carts.Add(ctx, bobID, duneID, 3)
	require.NoError(t, err)

	_, err = orders.Checkout(ctx, bobID, services.CheckoutInput{DeliveryMethod: domain.DeliveryStorePickup})
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err), "store required")
	_, err = orders.Checkout(ctx, bobID, services.CheckoutInput{DeliveryMethod: domain.DeliveryStorePickup, StoreID: ptr(42)})
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err), "unknown store")

	o, err := orders.Checkout(ctx, bobID, services.CheckoutInput{DeliveryMethod: domain.DeliveryStorePickup, StoreID: ptr(downtownID)})
	require.NoError(t, err)

	qty, _, err := e.inv.Qty(ctx, downtownID, duneID)
	require.NoError(t, err)
	assert.Zero(t, qty)
	dune, err := e.prods.Get(ctx, duneID)
	require.NoError(t, err)
	assert.Equal(t, 40, dune.OnlineStock, "pickup does not touch online stock")

	_, err = orders.Cancel(ctx, aliceID, o.ID)
	assert.True(t, apperr.IsNotFound(err), "not alice's order")

	o, err = orders.Cancel(ctx, bobID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, o.Status)

	qty, _, err = e.inv.Qty(ctx, downtownID, duneID)
	require.NoError(t, err)
	assert.Equal(t, 3, qty)

	moves, err := e.inv.Movements(ctx, downtownID, 10)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, domain.MovementRelease, moves[0].MovementType)
	assert.Equal(t, 3, moves[0].Quantity)
	assert.Equal(t, domain.MovementReservation, moves[1].MovementType)
	assert.Equal(t, -3, moves[1].Quantity)
	assert.Equal(t, o.Reference, moves[1].Reference)
}

func TestOrderService_StatusTransitions(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	carts, orders := newOrders(e)

	_, err := carts.Add(ctx, aliceID, prideID, 1)
	require.NoError(t, err)
	o, err := orders.Checkout(ctx, aliceID, shipping())
	require.NoError(t, err)

	_, err = orders.SetStatus(ctx, o.ID, domain.OrderShipped, "")
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err), "pending cannot ship")
	_, err = orders.SetStatus(ctx, o.ID, "lost", "")
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
	_, err = orders.SetStatus(ctx, 999, domain.OrderPaid, "")
	assert.True(t, apperr.IsNotFound(err))

	o, err = orders.SetStatus(ctx, o.ID, domain.OrderPaid, "")
	require.NoError(t, err)
	o, err = orders.SetStatus(ctx, o.ID, domain.OrderShipped, " TRK-1 ")
	require.NoError(t, err)
	assert.Equal(t, "TRK-1", o.TrackingNumber)

	_, err = orders.SetStatus(ctx, o.ID, domain.OrderCancelled, "")
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err), "shipped cannot cancel")

	o, err = orders.SetStatus(ctx, o.ID, domain.OrderDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, "TRK-1", o.TrackingNumber, "tracking kept")

	got, err := orders.Get(ctx, o.ID, ptr(aliceID))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, got.Status)
	_, err = orders.Get(ctx, o.ID, ptr(bobID))
	assert.True(t, apperr.IsNotFound(err))
}
