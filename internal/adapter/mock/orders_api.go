package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/plug-checkout/internal/apperr"
	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/latency"
)

const (
	fetchPastItemsDelay  = 800 * time.Millisecond
	fetchPastOrdersDelay = 600 * time.Millisecond
	addItemDelay         = 300 * time.Millisecond
	reorderDelay         = 1000 * time.Millisecond
	addMultipleDelay     = 500 * time.Millisecond
)

var defaultDeliveryInfo = domain.DeliveryInfo{Fee: decimal.New(299, -2), Minutes: 25}

// OrdersAPI serves past orders from static in-memory data.
type OrdersAPI struct {
	latency latency.Simulator
	items   []domain.PastItem
	orders  []domain.PastOrder

	mu    sync.Mutex
	added []domain.PastItem
}

func NewOrdersAPI(sim latency.Simulator) *OrdersAPI {
	return NewOrdersAPIWith(sim, SeedPastItems(), SeedPastOrders())
}

func NewOrdersAPIWith(sim latency.Simulator, items []domain.PastItem, orders []domain.PastOrder) *OrdersAPI {
	return &OrdersAPI{
		latency: sim,
		items:   items,
		orders:  orders,
	}
}

func (a *OrdersAPI) FetchPastItems(ctx context.Context) ([]domain.PastItemGroup, error) {
	if err := a.latency.Wait(ctx, fetchPastItemsDelay); err != nil {
		return nil, err
	}
	return domain.GroupByRestaurant(a.items, restaurantLogoURL, defaultDeliveryInfo), nil
}

func (a *OrdersAPI) FetchPastOrders(ctx context.Context) ([]domain.PastOrder, error) {
	if err := a.latency.Wait(ctx, fetchPastOrdersDelay); err != nil {
		return nil, err
	}
	out := make([]domain.PastOrder, len(a.orders))
	copy(out, a.orders)
	return out, nil
}

func (a *OrdersAPI) AddItemToCart(ctx context.Context, itemID string) (domain.AddToCartResult, error) {
	if err := a.latency.Wait(ctx, addItemDelay); err != nil {
		return domain.AddToCartResult{}, err
	}

	item, ok := a.findItem(itemID)
	if !ok {
		return domain.AddToCartResult{}, fmt.Errorf("item %s: %w", itemID, apperr.ErrNotFound)
	}
	if !item.IsAvailable {
		return domain.AddToCartResult{Success: false, Message: domain.ErrMsgItemUnavailable, Item: item}, nil
	}
	return domain.AddToCartResult{Success: true, Item: item}, nil
}

func (a *OrdersAPI) ReorderPastOrder(ctx context.Context, orderID string) (domain.ReorderResult, error) {
	if err := a.latency.Wait(ctx, reorderDelay); err != nil {
		return domain.ReorderResult{}, err
	}

	for _, o := range a.orders {
		if o.OrderID == orderID {
			return domain.SplitByAvailability(o.Items), nil
		}
	}
	return domain.ReorderResult{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
}

func (a *OrdersAPI) AddMultipleItemsFromOrder(ctx context.Context, items []domain.PastItem) error {
	if err := a.latency.Wait(ctx, addMultipleDelay); err != nil {
		return err
	}

	a.mu.Lock()
	a.added = append(a.added, items...)
	a.mu.Unlock()
	return nil
}

// Added lists every item accepted by AddMultipleItemsFromOrder.
func (a *OrdersAPI) Added() []domain.PastItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.PastItem(nil), a.added...)
}

// findItem searches the catalog first, then the items of past orders.
func (a *OrdersAPI) findItem(itemID string) (domain.PastItem, bool) {
	for _, it := range a.items {
		if it.ItemID == itemID {
			return it, true
		}
	}
	for _, o := range a.orders {
		for _, it := range o.Items {
			if it.ItemID == itemID {
				return it, true
			}
		}
	}
	return domain.PastItem{}, false
}
