package port

import (
	"context"

	"github.com/rl1809/plug-checkout/internal/core/domain"
)

// OrdersAPI is the past-orders backend. Unknown ids return an error wrapping apperr.ErrNotFound.
type OrdersAPI interface {
	// FetchPastItems returns previously ordered items grouped by restaurant
	FetchPastItems(ctx context.Context) ([]domain.PastItemGroup, error)

	FetchPastOrders(ctx context.Context) ([]domain.PastOrder, error)

	// AddItemToCart checks that a past item can be ordered again
	AddItemToCart(ctx context.Context, itemID string) (domain.AddToCartResult, error)

	// ReorderPastOrder splits a past order into available and unavailable items
	ReorderPastOrder(ctx context.Context, orderID string) (domain.ReorderResult, error)

	AddMultipleItemsFromOrder(ctx context.Context, items []domain.PastItem) error
}
