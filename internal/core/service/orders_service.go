package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/port"
)

// OrdersService is the "order again" flow on top of the past-orders backend.
type OrdersService struct {
	api      port.OrdersAPI
	checkout *CheckoutService
	logger   *zap.Logger
}

type OrderHistory struct {
	Items  []domain.PastItemGroup
	Orders []domain.PastOrder
}

type AddToCartOutcome struct {
	Result  domain.AddToCartResult
	Session *SessionView
}

type ReorderOutcome struct {
	Result  domain.ReorderResult
	Added   int
	Session *SessionView
}

func NewOrdersService(api port.OrdersAPI, checkout *CheckoutService, logger *zap.Logger) *OrdersService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrdersService{api: api, checkout: checkout, logger: logger}
}

func (s *OrdersService) FetchPastItems(ctx context.Context) ([]domain.PastItemGroup, error) {
	groups, err := s.api.FetchPastItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch past items: %w", err)
	}
	return groups, nil
}

func (s *OrdersService) FetchPastOrders(ctx context.Context) ([]domain.PastOrder, error) {
	orders, err := s.api.FetchPastOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch past orders: %w", err)
	}
	return orders, nil
}

// History loads past items and past orders concurrently. Either failure cancels the other.
func (s *OrdersService) History(ctx context.Context) (OrderHistory, error) {
	g, ctx := errgroup.WithContext(ctx)

	var h OrderHistory
	g.Go(func() error {
		items, err := s.FetchPastItems(ctx)
		h.Items = items
		return err
	})
	g.Go(func() error {
		orders, err := s.FetchPastOrders(ctx)
		h.Orders = orders
		return err
	})

	if err := g.Wait(); err != nil {
		return OrderHistory{}, err
	}
	return h, nil
}

// AddPastItemToCart adds one past item to the session's cart. An unavailable
// item is reported in the result, not as an error.
func (s *OrdersService) AddPastItemToCart(ctx context.Context, sessionID, itemID string) (AddToCartOutcome, error) {
	res, err := s.api.AddItemToCart(ctx, itemID)
	if err != nil {
		return AddToCartOutcome{}, fmt.Errorf("add item %s: %w", itemID, err)
	}
	if !res.Success {
		return AddToCartOutcome{Result: res}, nil
	}

	view, err := s.checkout.AddPastItems(ctx, sessionID, []domain.PastItem{res.Item})
	if err != nil {
		return AddToCartOutcome{}, err
	}
	return AddToCartOutcome{Result: res, Session: &view}, nil
}

// Reorder checks a past order's availability. With proceed set, the available
// items are added to the session's cart and the unavailable ones are skipped.
func (s *OrdersService) Reorder(ctx context.Context, sessionID, orderID string, proceed bool) (ReorderOutcome, error) {
	res, err := s.api.ReorderPastOrder(ctx, orderID)
	if err != nil {
		return ReorderOutcome{}, fmt.Errorf("reorder %s: %w", orderID, err)
	}
	out := ReorderOutcome{Result: res}
	if !proceed || len(res.Available) == 0 {
		return out, nil
	}

	// The backend records additions, so the session is checked before the call.
	if err := s.checkout.RequireCart(ctx, sessionID); err != nil {
		return ReorderOutcome{}, err
	}
	if err := s.api.AddMultipleItemsFromOrder(ctx, res.Available); err != nil {
		return ReorderOutcome{}, fmt.Errorf("add items from %s: %w", orderID, err)
	}
	view, err := s.checkout.AddPastItems(ctx, sessionID, res.Available)
	if err != nil {
		return ReorderOutcome{}, err
	}

	s.logger.Info("reordered past order",
		zap.String("order_id", orderID),
		zap.String("session_id", sessionID),
		zap.Int("added", len(res.Available)),
		zap.Int("skipped", len(res.Unavailable)),
	)
	out.Added = len(res.Available)
	out.Session = &view
	return out, nil
}
