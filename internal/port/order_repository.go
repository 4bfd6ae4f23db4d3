package port

import (
	"context"

	"github.com/rl1809/plug-checkout/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder persists a placed order together with its lines
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder returns an error wrapping apperr.ErrNotFound for unknown ids
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
}
