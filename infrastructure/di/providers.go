package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/application/services"
	"elbiefit/infrastructure/config"
	"elbiefit/infrastructure/persistence/abstractions"
	"elbiefit/infrastructure/persistence/badger"
	"elbiefit/infrastructure/persistence/dynamodb"
	"elbiefit/infrastructure/persistence/repository"
	"elbiefit/infrastructure/seed"
	"elbiefit/interfaces/http/rest"
	"elbiefit/pkg/auth"
	"elbiefit/pkg/observability"
	"elbiefit/pkg/ratelimit"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", cfg.ProjectName), zap.String("version", cfg.Version)), nil
}

// ProvideClock is the wall clock
func ProvideClock() ports.Clock {
	return time.Now
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at
// DYNAMODB_ENDPOINT when set
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideStore selects the item store backend
func ProvideStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (abstractions.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBadger:
		store, err := badger.NewStore(badger.Options{Path: cfg.BadgerPath}, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close embedded store", zap.Error(err))
			}
		}
		return store, cleanup, nil
	case config.StoreDynamoDB:
		return dynamodb.NewStore(client, cfg.TableName, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// ProvideRateCounter selects where rate-limit windows are counted
func ProvideRateCounter(cfg *config.Config, store abstractions.Store, logger *zap.Logger) (ratelimit.Counter, func(), error) {
	if cfg.RateLimit.Backend != config.CounterRedis {
		return ratelimit.NewStoreCounter(store), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	return ratelimit.NewRedisCounter(client), cleanup, nil
}

// ProvideRateLimiter creates the fixed-window limiter
func ProvideRateLimiter(counter ratelimit.Counter, logger *zap.Logger) *ratelimit.Limiter {
	return ratelimit.NewLimiter(counter, logger)
}

func ProvideWorkoutRepository(store abstractions.Store, logger *zap.Logger, clock ports.Clock) ports.WorkoutRepository {
	return repository.NewWorkoutRepository(store, logger, clock)
}

func ProvideExerciseRepository(store abstractions.Store, logger *zap.Logger, clock ports.Clock) ports.ExerciseRepository {
	return repository.NewExerciseRepository(store, logger, clock)
}

func ProvideProfileRepository(store abstractions.Store, logger *zap.Logger, clock ports.Clock) ports.ProfileRepository {
	return repository.NewProfileRepository(store, logger, clock)
}

func ProvideDemoResetRepository(store abstractions.Store, logger *zap.Logger, clock ports.Clock) ports.DemoResetRepository {
	return repository.NewDemoResetRepository(store, logger, clock)
}

// ProvideSeeder creates the dataset seeder
func ProvideSeeder(
	profiles ports.ProfileRepository,
	exercises ports.ExerciseRepository,
	workouts ports.WorkoutRepository,
	logger *zap.Logger,
	clock ports.Clock,
) *seed.Seeder {
	return seed.NewSeeder(profiles, exercises, workouts, logger, clock)
}

// ProvideDemoResetService creates the demo account reset service
func ProvideDemoResetService(cfg *config.Config, resets ports.DemoResetRepository, seeder *seed.Seeder, logger *zap.Logger) *services.DemoResetService {
	return services.NewDemoResetService(cfg.Demo.UserSub, cfg.Demo.ResetCooldown, resets, seeder, logger)
}

// ProvideVerifier creates the id-token verifier
func ProvideVerifier(cfg *config.Config, logger *zap.Logger) *auth.Verifier {
	return auth.NewVerifier(auth.VerifierConfig{
		Issuer:             cfg.Cognito.Issuer,
		Audience:           cfg.Cognito.Audience,
		Timeout:            cfg.Cognito.TokenTimeout,
		MinRefreshInterval: cfg.Cognito.JWKSRefreshInterval,
	}, logger)
}

// ProvideCognitoClient creates the hosted UI client
func ProvideCognitoClient(cfg *config.Config, logger *zap.Logger) *auth.CognitoClient {
	return auth.NewCognitoClient(auth.CognitoConfig{
		Domain:      cfg.Cognito.Domain,
		Region:      cfg.Region,
		ClientID:    cfg.Cognito.Audience,
		RedirectURI: cfg.Cognito.RedirectURI,
		Timeout:     cfg.Cognito.TokenTimeout,
	}, logger)
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("elbiefit")
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	workouts ports.WorkoutRepository,
	exercises ports.ExerciseRepository,
	profiles ports.ProfileRepository,
	demo *services.DemoResetService,
	verifier *auth.Verifier,
	cognito *auth.CognitoClient,
	limiter *ratelimit.Limiter,
	metrics *observability.Collector,
	clock ports.Clock,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(cfg, rest.Dependencies{
		Workouts:  workouts,
		Exercises: exercises,
		Profiles:  profiles,
		DemoReset: demo,
		Verifier:  verifier,
		Provider:  cognito,
		Limiter:   limiter,
		Metrics:   metrics,
		Clock:     clock,
	}, logger)
}
