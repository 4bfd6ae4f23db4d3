package port

import (
	"context"

	"github.com/rl1809/plug-checkout/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
}

type PreferenceRepository interface {
	// LastUsedMode returns the stored mode and false when nothing was stored yet
	LastUsedMode(ctx context.Context, deviceID string) (domain.Mode, bool, error)

	// SaveLastUsedMode is called on every mode switch and returns the mode it
	// replaced, empty when nothing was stored
	SaveLastUsedMode(ctx context.Context, deviceID string, mode domain.Mode) (domain.Mode, error)
}
