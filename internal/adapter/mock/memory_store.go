package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/rl1809/plug-checkout/internal/apperr"
	"github.com/rl1809/plug-checkout/internal/core/domain"
)

// MemoryStore backs the idempotency, preference and order ports when Redis
// and MySQL are not configured.
type MemoryStore struct {
	mu     sync.Mutex
	keys   map[string]struct{}
	modes  map[string]domain.Mode
	orders map[string]domain.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:   make(map[string]struct{}),
		modes:  make(map[string]domain.Mode),
		orders: make(map[string]domain.Order),
	}
}

func (m *MemoryStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

func (m *MemoryStore) LastUsedMode(ctx context.Context, deviceID string) (domain.Mode, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mode, ok := m.modes[deviceID]
	return mode, ok, nil
}

func (m *MemoryStore) SaveLastUsedMode(ctx context.Context, deviceID string, mode domain.Mode) (domain.Mode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.modes[deviceID]
	m.modes[deviceID] = mode
	return prev, nil
}

func (m *MemoryStore) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[order.ID]; ok {
		return fmt.Errorf("order %s already stored", order.ID)
	}
	order.Lines = append([]domain.CartLine(nil), order.Lines...)
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	}
	o.Lines = append([]domain.CartLine(nil), o.Lines...)
	return o, nil
}
