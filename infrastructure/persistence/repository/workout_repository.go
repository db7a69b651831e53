package repository

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/domain/keys"
	"elbiefit/domain/models"
	"elbiefit/infrastructure/persistence/abstractions"
	apperrors "elbiefit/pkg/errors"
)

// WorkoutRepository implements ports.WorkoutRepository
type WorkoutRepository struct {
	base
}

var _ ports.WorkoutRepository = (*WorkoutRepository)(nil)

func NewWorkoutRepository(store abstractions.Store, logger *zap.Logger, clock ports.Clock) *WorkoutRepository {
	return &WorkoutRepository{base: newBase(store, logger, clock)}
}

func (r *WorkoutRepository) GetAllForUser(ctx context.Context, userSub string) ([]*models.Workout, error) {
	items, err := r.store.Query(ctx, keys.UserPK(userSub), keys.WorkoutPrefix)
	if err != nil {
		return nil, r.storageError("Failed to list workouts", err, zap.String("user_sub", userSub))
	}

	var workouts []*models.Workout
	for _, item := range items {
		if models.ItemType(item) != models.TypeWorkout {
			continue
		}
		w, err := models.WorkoutFromItem(item)
		if err != nil {
			return nil, r.decodeError(item, err)
		}
		workouts = append(workouts, w)
	}

	sort.SliceStable(workouts, func(i, j int) bool {
		if !workouts[i].Date.Equal(workouts[j].Date) {
			return workouts[i].Date.After(workouts[j].Date)
		}
		return workouts[i].CreatedAt.After(workouts[j].CreatedAt)
	})
	return workouts, nil
}

// loadWorkout reads a workout row and every set row under it with one
// prefix query.
func (r *WorkoutRepository) loadWorkout(ctx context.Context, userSub string, date time.Time, workoutID string) (*models.Workout, []*models.WorkoutSet, error) {
	workoutSK := keys.WorkoutSK(date, workoutID)
	items, err := r.store.Query(ctx, keys.UserPK(userSub), workoutSK)
	if err != nil {
		return nil, nil, r.storageError("Failed to load workout", err,
			zap.String("user_sub", userSub),
			zap.String("sk", workoutSK),
		)
	}

	var (
		workout *models.Workout
		sets    []*models.WorkoutSet
		setsPfx = keys.WorkoutSetsPrefix(date, workoutID)
	)
	for _, item := range items {
		sk := models.StringAttr(item, "SK")
		switch {
		case sk == workoutSK:
			if workout, err = models.WorkoutFromItem(item); err != nil {
				return nil, nil, r.decodeError(item, err)
			}
		case strings.HasPrefix(sk, setsPfx):
			if _, ok := keys.SetNumber(sk); !ok {
				r.logger.Warn("Skipping set with malformed sort key", zap.String("sk", sk))
				continue
			}
			set, err := models.WorkoutSetFromItem(item)
			if err != nil {
				return nil, nil, r.decodeError(item, err)
			}
			sets = append(sets, set)
		}
	}
	return workout, sets, nil
}

func (r *WorkoutRepository) GetWorkoutWithSets(ctx context.Context, userSub string, date time.Time, workoutID string) (*models.Workout, []*models.WorkoutSet, error) {
	workout, sets, err := r.loadWorkout(ctx, userSub, date, workoutID)
	if err != nil {
		return nil, nil, err
	}
	if workout == nil {
		return nil, nil, apperrors.NewNotFoundError("Workout")
	}

	sort.SliceStable(sets, func(i, j int) bool {
		if !sets[i].CreatedAt.Equal(sets[j].CreatedAt) {
			return sets[i].CreatedAt.Before(sets[j].CreatedAt)
		}
		return sets[i].SetNumber < sets[j].SetNumber
	})
	return workout, sets, nil
}

func (r *WorkoutRepository) CreateWorkout(ctx context.Context, userSub string, in models.WorkoutCreateInput) (*models.Workout, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	workout := models.NewWorkout(userSub, in.Date, uuid.NewString(), in.Name, r.now())
	if err := r.put(ctx, workout); err != nil {
		return nil, err
	}

	r.logger.Info("Workout created",
		zap.String("user_sub", userSub),
		zap.String("workout_id", workout.WorkoutID),
		zap.String("date", workout.DateString()),
	)
	return workout, nil
}

func (r *WorkoutRepository) UpdateWorkout(ctx context.Context, workout *models.Workout) error {
	workout.UpdatedAt = r.now()
	return r.put(ctx, workout)
}

func (r *WorkoutRepository) put(ctx context.Context, workout *models.Workout) error {
	if err := workout.Validate(); err != nil {
		return err
	}
	item, err := workout.ToItem()
	if err != nil {
		return apperrors.NewRepositoryError("Failed to encode workout", err)
	}
	if err := r.store.PutItem(ctx, item); err != nil {
		return r.storageError("Failed to save workout", err, zap.String("sk", workout.SK))
	}
	return nil
}

// ImportWorkout writes a prebuilt workout and its sets with their keys as
// given. Used for seeding.
func (r *WorkoutRepository) ImportWorkout(ctx context.Context, workout *models.Workout, sets []*models.WorkoutSet) error {
	if err := r.put(ctx, workout); err != nil {
		return err
	}
	for _, set := range sets {
		if err := set.Validate(); err != nil {
			return err
		}
		item, err := set.ToItem()
		if err != nil {
			return apperrors.NewRepositoryError("Failed to encode set", err)
		}
		if err := r.store.PutItem(ctx, item); err != nil {
			return r.storageError("Failed to save set", err, zap.String("sk", set.SK))
		}
	}
	return nil
}

// MoveWorkoutDate writes the workout and the given sets under the new date,
// then removes everything still stored under the old one. Sets added to the
// old copy after the caller loaded it are removed with it.
func (r *WorkoutRepository) MoveWorkoutDate(ctx context.Context, userSub string, workout *models.Workout, newDate time.Time, sets []*models.WorkoutSet) (*models.Workout, error) {
	now := r.now()
	moved := *workout
	moved.Rekey(newDate)
	moved.UpdatedAt = now
	if err := moved.Validate(); err != nil {
		return nil, err
	}
	if moved.SK == workout.SK {
		if err := r.put(ctx, &moved); err != nil {
			return nil, err
		}
		return &moved, nil
	}

	items := make([]abstractions.Item, 0, len(sets)+1)
	workoutItem, err := moved.ToItem()
	if err != nil {
		return nil, apperrors.NewRepositoryError("Failed to encode workout", err)
	}
	items = append(items, workoutItem)
	for _, set := range sets {
		reparented := *set
		reparented.Reparent(newDate)
		reparented.UpdatedAt = now
		item, err := reparented.ToItem()
		if err != nil {
			return nil, apperrors.NewRepositoryError("Failed to encode set", err)
		}
		items = append(items, item)
	}

	for _, item := range items {
		if err := r.store.PutItem(ctx, item); err != nil {
			return nil, r.storageError("Failed to write new workout or sets", err,
				zap.String("user_sub", userSub),
				zap.String("workout_id", workout.WorkoutID),
			)
		}
	}

	if err := r.removeOldCopy(ctx, userSub, workout); err != nil {
		r.logger.Error("Workout move left the old copy behind",
			zap.String("user_sub", userSub),
			zap.String("workout_id", workout.WorkoutID),
			zap.String("from", workout.DateString()),
			zap.String("to", moved.DateString()),
			zap.Error(err),
		)
		return nil, apperrors.NewPartialMoveError(err)
	}

	r.logger.Info("Workout moved",
		zap.String("user_sub", userSub),
		zap.String("workout_id", workout.WorkoutID),
		zap.String("from", workout.DateString()),
		zap.String("to", moved.DateString()),
		zap.Int("sets", len(sets)),
	)
	return &moved, nil
}

func (r *WorkoutRepository) removeOldCopy(ctx context.Context, userSub string, workout *models.Workout) error {
	oldKeys, err := r.workoutRowKeys(ctx, userSub, workout.Date, workout.WorkoutID)
	if err != nil {
		return err
	}
	if len(oldKeys) == 0 {
		return nil
	}
	return r.store.BatchDelete(ctx, oldKeys)
}

func (r *WorkoutRepository) DeleteWorkoutAndSets(ctx context.Context, userSub string, date time.Time, workoutID string) error {
	rowKeys, err := r.workoutRowKeys(ctx, userSub, date, workoutID)
	if err != nil {
		return err
	}
	if len(rowKeys) == 0 {
		return nil
	}

	if err := r.store.BatchDelete(ctx, rowKeys); err != nil {
		return r.storageError("Failed to delete workout", err,
			zap.String("user_sub", userSub),
			zap.String("workout_id", workoutID),
		)
	}
	r.logger.Info("Workout deleted",
		zap.String("user_sub", userSub),
		zap.String("workout_id", workoutID),
		zap.Int("items", len(rowKeys)),
	)
	return nil
}

// workoutRowKeys lists the keys of a workout row and every set stored under
// it, as they are in the table right now.
func (r *WorkoutRepository) workoutRowKeys(ctx context.Context, userSub string, date time.Time, workoutID string) ([]abstractions.Key, error) {
	workoutSK := keys.WorkoutSK(date, workoutID)
	rows, err := r.store.Query(ctx, keys.UserPK(userSub), workoutSK)
	if err != nil {
		return nil, r.storageError("Failed to load workout", err,
			zap.String("user_sub", userSub),
			zap.String("sk", workoutSK),
		)
	}

	setsPfx := keys.WorkoutSetsPrefix(date, workoutID)
	var items []abstractions.Item
	for _, item := range rows {
		if sk := models.StringAttr(item, "SK"); sk == workoutSK || strings.HasPrefix(sk, setsPfx) {
			items = append(items, item)
		}
	}
	return keysOf(items), nil
}

func (r *WorkoutRepository) GetSet(ctx context.Context, userSub string, date time.Time, workoutID string, setNumber int) (*models.WorkoutSet, error) {
	key := abstractions.Key{PK: keys.UserPK(userSub), SK: keys.SetSK(date, workoutID, setNumber)}
	item, err := r.store.GetItem(ctx, key)
	if err != nil {
		return nil, r.storageError("Failed to load set", err, zap.String("sk", key.SK))
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("Set")
	}
	set, err := models.WorkoutSetFromItem(item)
	if err != nil {
		return nil, r.decodeError(item, err)
	}
	return set, nil
}

// AddSet numbers the new set one past the highest ordinal among the sort
// keys under the workout. Only keys are read, so a missing workout row or a
// damaged sibling set does not block the add. Two concurrent adds to the
// same workout can pick the same number.
func (r *WorkoutRepository) AddSet(ctx context.Context, userSub string, date time.Time, workoutID, exerciseID string, in models.SetInput) (*models.WorkoutSet, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	next, err := r.nextSetNumber(ctx, userSub, date, workoutID)
	if err != nil {
		return nil, err
	}

	set := models.NewWorkoutSet(userSub, date, workoutID, next, exerciseID, in, r.now())
	if err := set.Validate(); err != nil {
		return nil, err
	}
	item, err := set.ToItem()
	if err != nil {
		return nil, apperrors.NewRepositoryError("Failed to encode set", err)
	}
	if err := r.store.PutItem(ctx, item); err != nil {
		return nil, r.storageError("Failed to add set", err, zap.String("sk", set.SK))
	}
	return set, nil
}

func (r *WorkoutRepository) nextSetNumber(ctx context.Context, userSub string, date time.Time, workoutID string) (int, error) {
	prefix := keys.WorkoutSetsPrefix(date, workoutID)
	items, err := r.store.Query(ctx, keys.UserPK(userSub), prefix)
	if err != nil {
		return 0, r.storageError("Failed to read sets", err,
			zap.String("user_sub", userSub),
			zap.String("prefix", prefix),
		)
	}

	highest := 0
	for _, item := range items {
		if n, ok := keys.SetNumber(models.StringAttr(item, "SK")); ok && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

func (r *WorkoutRepository) EditSet(ctx context.Context, userSub string, date time.Time, workoutID string, setNumber int, in models.SetInput) (*models.WorkoutSet, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	update := abstractions.Update{Set: map[string]types.AttributeValue{
		"reps":       &types.AttributeValueMemberN{Value: strconv.Itoa(in.Reps)},
		"updated_at": &types.AttributeValueMemberS{Value: models.FormatTimestamp(r.now())},
	}}
	if in.WeightKG != nil {
		update.Set["weight_kg"] = models.DecimalValue(*in.WeightKG)
	} else {
		update.Remove = append(update.Remove, "weight_kg")
	}
	if in.RPE != nil {
		update.Set["rpe"] = &types.AttributeValueMemberN{Value: strconv.Itoa(*in.RPE)}
	} else {
		update.Remove = append(update.Remove, "rpe")
	}

	key := abstractions.Key{PK: keys.UserPK(userSub), SK: keys.SetSK(date, workoutID, setNumber)}
	item, err := r.store.UpdateExisting(ctx, key, update)
	if errors.Is(err, abstractions.ErrConditionFailed) {
		return nil, apperrors.NewNotFoundError("Set")
	}
	if err != nil {
		return nil, r.storageError("Failed to edit set", err, zap.String("sk", key.SK))
	}

	set, err := models.WorkoutSetFromItem(item)
	if err != nil {
		return nil, r.decodeError(item, err)
	}
	return set, nil
}

func (r *WorkoutRepository) DeleteSet(ctx context.Context, userSub string, date time.Time, workoutID string, setNumber int) error {
	key := abstractions.Key{PK: keys.UserPK(userSub), SK: keys.SetSK(date, workoutID, setNumber)}
	existed, err := r.store.DeleteItem(ctx, key)
	if err != nil {
		return r.storageError("Failed to delete set", err, zap.String("sk", key.SK))
	}
	if !existed {
		return apperrors.NewNotFoundError("Set")
	}
	return nil
}
