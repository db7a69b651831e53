package repository

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/domain/keys"
	"elbiefit/domain/models"
	"elbiefit/infrastructure/persistence/abstractions"
	apperrors "elbiefit/pkg/errors"
)

type ExerciseRepository struct {
	base
}

var _ ports.ExerciseRepository = (*ExerciseRepository)(nil)

func NewExerciseRepository(store abstractions.Store, logger *zap.Logger, clock ports.Clock) *ExerciseRepository {
	return &ExerciseRepository{base: newBase(store, logger, clock)}
}

// GetAllForUser returns the catalogue ordered by name
func (r *ExerciseRepository) GetAllForUser(ctx context.Context, userSub string) ([]*models.Exercise, error) {
	items, err := r.store.Query(ctx, keys.UserPK(userSub), keys.ExercisePrefix)
	if err != nil {
		return nil, r.storageError("Failed to list exercises", err, zap.String("user_sub", userSub))
	}

	exercises := make([]*models.Exercise, 0, len(items))
	for _, item := range items {
		exercise, err := models.ExerciseFromItem(item)
		if err != nil {
			return nil, r.decodeError(item, err)
		}
		exercises = append(exercises, exercise)
	}

	sort.SliceStable(exercises, func(i, j int) bool {
		return strings.ToLower(exercises[i].Name) < strings.ToLower(exercises[j].Name)
	})
	return exercises, nil
}

func (r *ExerciseRepository) GetExercise(ctx context.Context, userSub, exerciseID string) (*models.Exercise, error) {
	key := abstractions.Key{PK: keys.UserPK(userSub), SK: keys.ExerciseSK(exerciseID)}
	item, err := r.store.GetItem(ctx, key)
	if err != nil {
		return nil, r.storageError("Failed to load exercise", err, zap.String("sk", key.SK))
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("Exercise")
	}
	exercise, err := models.ExerciseFromItem(item)
	if err != nil {
		return nil, r.decodeError(item, err)
	}
	return exercise, nil
}

func (r *ExerciseRepository) SaveExercise(ctx context.Context, exercise *models.Exercise) error {
	if err := exercise.Validate(); err != nil {
		return err
	}
	exercise.UpdatedAt = r.now()
	if exercise.CreatedAt.IsZero() {
		exercise.CreatedAt = exercise.UpdatedAt
	}

	item, err := exercise.ToItem()
	if err != nil {
		return apperrors.NewRepositoryError("Failed to encode exercise", err)
	}
	if err := r.store.PutItem(ctx, item); err != nil {
		return r.storageError("Failed to save exercise", err, zap.String("sk", exercise.SK))
	}
	return nil
}
