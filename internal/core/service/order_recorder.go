package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/port"
)

// OrderRecorder drains placed orders into the order repository.
type OrderRecorder struct {
	repo    port.OrderRepository
	logger  *zap.Logger
	timeout time.Duration
}

func NewOrderRecorder(repo port.OrderRepository, logger *zap.Logger) *OrderRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderRecorder{repo: repo, logger: logger, timeout: 5 * time.Second}
}

// Run consumes queue until it is closed and returns how many orders were saved.
func (r *OrderRecorder) Run(id int, queue <-chan domain.Order) int {
	saved := 0
	for order := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)

		if err := r.repo.CreateOrder(ctx, order); err != nil {
			r.logger.Error("failed to save order",
				zap.Int("worker", id),
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		} else {
			saved++
			r.logger.Debug("saved order", zap.Int("worker", id), zap.String("order_id", order.ID))
		}

		cancel()
	}
	return saved
}
