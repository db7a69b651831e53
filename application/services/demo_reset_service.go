package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"elbiefit/application/ports"
	apperrors "elbiefit/pkg/errors"
)

// DemoSeeder restores the demo dataset into a user partition
type DemoSeeder interface {
	SeedDemo(ctx context.Context, userSub string) error
}

// DemoResetService wipes the shared demo account and seeds it again
type DemoResetService struct {
	demoSub  string
	cooldown time.Duration
	resets   ports.DemoResetRepository
	seeder   DemoSeeder
	logger   *zap.Logger
}

// NewDemoResetService creates a reset service for the account demoSub.
// An empty demoSub disables resets.
func NewDemoResetService(
	demoSub string,
	cooldown time.Duration,
	resets ports.DemoResetRepository,
	seeder DemoSeeder,
	logger *zap.Logger,
) *DemoResetService {
	return &DemoResetService{
		demoSub:  demoSub,
		cooldown: cooldown,
		resets:   resets,
		seeder:   seeder,
		logger:   logger,
	}
}

// Enabled reports whether a demo account is configured
func (s *DemoResetService) Enabled() bool {
	return s.demoSub != ""
}

// IsDemoUser reports whether userSub is the configured demo account
func (s *DemoResetService) IsDemoUser(userSub string) bool {
	return s.Enabled() && userSub == s.demoSub
}

// Reset claims the cooldown slot, purges the caller's partition and seeds
// the demo dataset. Only the demo account may reset.
func (s *DemoResetService) Reset(ctx context.Context, userSub string) error {
	if !s.Enabled() {
		return apperrors.NewNotFoundError("Demo account")
	}
	if userSub != s.demoSub {
		return apperrors.NewForbiddenError("Reset only allowed for demo user.")
	}

	if err := s.resets.ClaimReset(ctx, userSub, s.cooldown); err != nil {
		return err
	}

	deleted, err := s.resets.PurgeUser(ctx, userSub)
	if err != nil {
		return err
	}
	s.logger.Info("Purged demo user items", zap.String("user_sub", userSub), zap.Int("deleted", deleted))

	if err := s.seeder.SeedDemo(ctx, userSub); err != nil {
		s.logger.Error("Demo reseed failed", zap.String("user_sub", userSub), zap.Error(err))
		if apperrors.GetAppError(err) != nil {
			return err
		}
		return apperrors.NewInternalError("Demo reset failed.").WithCause(err)
	}
	return nil
}
