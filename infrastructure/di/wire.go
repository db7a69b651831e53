//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"elbiefit/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideClock,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideStore,
	ProvideRateCounter,
	ProvideRateLimiter,
	ProvideWorkoutRepository,
	ProvideExerciseRepository,
	ProvideProfileRepository,
	ProvideDemoResetRepository,
	ProvideSeeder,
	ProvideDemoResetService,
	ProvideVerifier,
	ProvideCognitoClient,
	ProvideMetrics,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned
// cleanup closes the store and any Redis client.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
