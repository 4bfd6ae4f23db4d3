package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/plug-checkout/internal/apperr"
	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/port"
)

const defaultDeviceID = "default"

// PreferenceService remembers the last used mode per device.
type PreferenceService struct {
	repo   port.PreferenceRepository
	logger *zap.Logger
}

func NewPreferenceService(repo port.PreferenceRepository, logger *zap.Logger) *PreferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceService{repo: repo, logger: logger}
}

// LastUsedMode falls back to food when nothing was stored.
func (s *PreferenceService) LastUsedMode(ctx context.Context, deviceID string) (domain.Mode, error) {
	if deviceID == "" {
		deviceID = defaultDeviceID
	}
	mode, ok, err := s.repo.LastUsedMode(ctx, deviceID)
	if err != nil {
		return "", fmt.Errorf("load last used mode: %w", err)
	}
	if !ok {
		return domain.DefaultMode, nil
	}
	return mode, nil
}

func (s *PreferenceService) SwitchMode(ctx context.Context, deviceID, raw string) (domain.Mode, error) {
	mode, ok := domain.ParseMode(raw)
	if !ok {
		return "", apperr.NewValidation("mode", fmt.Sprintf("Unknown mode %q", raw))
	}
	if deviceID == "" {
		deviceID = defaultDeviceID
	}
	prev, err := s.repo.SaveLastUsedMode(ctx, deviceID, mode)
	if err != nil {
		return "", fmt.Errorf("save last used mode: %w", err)
	}
	s.logger.Debug("mode switched",
		zap.String("device_id", deviceID),
		zap.String("previous_mode", string(prev)),
		zap.String("mode", string(mode)),
	)
	return mode, nil
}
