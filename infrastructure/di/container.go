package di

import (
	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/infrastructure/config"
	"elbiefit/infrastructure/persistence/abstractions"
	"elbiefit/infrastructure/seed"
	"elbiefit/interfaces/http/rest"
	"elbiefit/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      abstractions.Store
	Workouts   ports.WorkoutRepository
	Profiles   ports.ProfileRepository
	DemoResets ports.DemoResetRepository
	Seeder     *seed.Seeder
	Metrics    *observability.Collector
	Router     *rest.Router
}
