package ports

import (
	"context"
	"time"

	"elbiefit/domain/models"
)

// Clock returns the current instant. Repositories and the rate limiter take
// one so tests can pin time.
type Clock func() time.Time

// WorkoutRepository persists workouts and their sets.
// Every method returns domain errors from pkg/errors: NOT_FOUND, VALIDATION,
// REPOSITORY or PARTIAL_MOVE.
type WorkoutRepository interface {
	// GetAllForUser returns the user's workouts, newest date first
	GetAllForUser(ctx context.Context, userSub string) ([]*models.Workout, error)

	// GetWorkoutWithSets loads a workout and its sets ordered by creation time
	GetWorkoutWithSets(ctx context.Context, userSub string, date time.Time, workoutID string) (*models.Workout, []*models.WorkoutSet, error)

	// CreateWorkout stores a new workout under a random id
	CreateWorkout(ctx context.Context, userSub string, in models.WorkoutCreateInput) (*models.Workout, error)

	// UpdateWorkout overwrites a workout's metadata without changing its key
	UpdateWorkout(ctx context.Context, workout *models.Workout) error

	// MoveWorkoutDate rekeys a workout and its sets under newDate.
	// Not atomic: a failed cleanup leaves both copies and returns PARTIAL_MOVE.
	MoveWorkoutDate(ctx context.Context, userSub string, workout *models.Workout, newDate time.Time, sets []*models.WorkoutSet) (*models.Workout, error)

	// ImportWorkout writes a prebuilt workout and its sets under their own keys
	ImportWorkout(ctx context.Context, workout *models.Workout, sets []*models.WorkoutSet) error

	// DeleteWorkoutAndSets removes every row under the workout; a missing
	// workout is a no-op
	DeleteWorkoutAndSets(ctx context.Context, userSub string, date time.Time, workoutID string) error

	GetSet(ctx context.Context, userSub string, date time.Time, workoutID string, setNumber int) (*models.WorkoutSet, error)

	// AddSet appends a set numbered one past the highest existing ordinal
	AddSet(ctx context.Context, userSub string, date time.Time, workoutID, exerciseID string, in models.SetInput) (*models.WorkoutSet, error)

	EditSet(ctx context.Context, userSub string, date time.Time, workoutID string, setNumber int, in models.SetInput) (*models.WorkoutSet, error)
	DeleteSet(ctx context.Context, userSub string, date time.Time, workoutID string, setNumber int) error
}

// ExerciseRepository persists a user's exercise catalogue.
type ExerciseRepository interface {
	GetAllForUser(ctx context.Context, userSub string) ([]*models.Exercise, error)
	GetExercise(ctx context.Context, userSub, exerciseID string) (*models.Exercise, error)
	SaveExercise(ctx context.Context, exercise *models.Exercise) error
}

// ProfileRepository persists the single profile row of each user.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userSub string) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error

	// UpdateAccount and UpdatePreferences only touch an existing profile.
	// Last writer wins.
	UpdateAccount(ctx context.Context, userSub string, in models.AccountUpdateInput) (*models.Profile, error)
	UpdatePreferences(ctx context.Context, userSub string, in models.PreferencesUpdateInput) (*models.Profile, error)
}

// DemoResetRepository guards and performs wipes of the demo partition.
type DemoResetRepository interface {
	// ClaimReset records a reset at now unless one happened within cooldown
	ClaimReset(ctx context.Context, userSub string, cooldown time.Duration) error

	// PurgeUser deletes every row in the user's partition and returns the count
	PurgeUser(ctx context.Context, userSub string) (int, error)
}
