package repository

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"elbiefit/domain/models"
	apperrors "elbiefit/pkg/errors"
)

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*ProfileRepository, *faultyStore) {
		store := newFaultyStore(t)
		repo := NewProfileRepository(store, zap.NewNop(), newClock().Now)
		profile := models.NewProfile(sub, "Lisa", "lisa@example.com", "Europe/London", fixedTime)
		profile.Preferences.Extra = map[string]types.AttributeValue{
			"beta_features": &types.AttributeValueMemberBOOL{Value: true},
		}
		require.NoError(t, repo.SaveProfile(ctx, profile))
		return repo, store
	}

	t.Run("Should report not found for a missing profile", func(t *testing.T) {
		repo := NewProfileRepository(newFaultyStore(t), zap.NewNop(), nil)
		_, err := repo.GetProfile(ctx, "nobody")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Should update account fields", func(t *testing.T) {
		repo, _ := seed(t)

		updated, err := repo.UpdateAccount(ctx, sub, models.AccountUpdateInput{DisplayName: "  Lisa B ", Timezone: "America/New_York"})
		require.NoError(t, err)
		assert.Equal(t, "Lisa B", updated.DisplayName)
		assert.Equal(t, "America/New_York", updated.Timezone)
		assert.True(t, updated.UpdatedAt.After(fixedTime))
		assert.True(t, fixedTime.Equal(updated.CreatedAt))
	})

	t.Run("Should update preferences and keep unknown keys", func(t *testing.T) {
		repo, _ := seed(t)

		updated, err := repo.UpdatePreferences(ctx, sub, models.PreferencesUpdateInput{ShowTips: false, Theme: "Dark", Units: "imperial"})
		require.NoError(t, err)
		assert.False(t, updated.Preferences.ShowTips)
		assert.Equal(t, "dark", updated.Preferences.Theme)
		assert.Equal(t, "lb", updated.WeightUnit())
		assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, updated.Preferences.Extra["beta_features"])
	})

	t.Run("Should not create a profile on update", func(t *testing.T) {
		store := newFaultyStore(t)
		repo := NewProfileRepository(store, zap.NewNop(), nil)

		_, err := repo.UpdateAccount(ctx, "ghost", models.AccountUpdateInput{DisplayName: "Ghost", Timezone: "UTC"})
		assert.True(t, apperrors.IsNotFound(err))

		_, err = repo.GetProfile(ctx, "ghost")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Should name invalid fields", func(t *testing.T) {
		repo, _ := seed(t)

		_, err := repo.UpdateAccount(ctx, sub, models.AccountUpdateInput{DisplayName: "Lisa", Timezone: "Mars/Olympus"})
		assert.Contains(t, apperrors.FieldsOf(err), "timezone")
	})

	t.Run("Should wrap storage errors", func(t *testing.T) {
		repo, store := seed(t)
		store.failUpdate = errThrottled

		_, err := repo.UpdatePreferences(ctx, sub, models.PreferencesUpdateInput{Theme: "light", Units: "metric"})
		assert.True(t, apperrors.IsRepository(err))
		assert.ErrorIs(t, err, errThrottled)
	})
}

func TestExerciseRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewExerciseRepository(newFaultyStore(t), zap.NewNop(), nil)

	require.NoError(t, repo.SaveExercise(ctx, models.NewExercise(sub, "e2", "Squat", []string{"quads", "glutes"}, "barbell", "legs", time.Time{})))
	require.NoError(t, repo.SaveExercise(ctx, models.NewExercise(sub, "e1", "bench press", []string{"chest"}, "Barbell", "push", time.Time{})))

	t.Run("Should list by name", func(t *testing.T) {
		exercises, err := repo.GetAllForUser(ctx, sub)
		require.NoError(t, err)
		require.Len(t, exercises, 2)
		assert.Equal(t, "bench press", exercises[0].Name)
		assert.Equal(t, "barbell", exercises[0].Equipment)
		assert.False(t, exercises[0].CreatedAt.IsZero())
	})

	t.Run("Should reject equipment outside the taxonomy", func(t *testing.T) {
		err := repo.SaveExercise(ctx, models.NewExercise(sub, "e3", "Row", []string{"lats"}, "rowing machine", "pull", time.Time{}))
		assert.Contains(t, apperrors.FieldsOf(err), "equipment")
	})

	t.Run("Should report not found", func(t *testing.T) {
		_, err := repo.GetExercise(ctx, sub, "nope")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDemoResetRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Should enforce the cooldown", func(t *testing.T) {
		clock := newClock()
		repo := NewDemoResetRepository(newFaultyStore(t), zap.NewNop(), clock.Now)

		require.NoError(t, repo.ClaimReset(ctx, "demo", 5*time.Minute))

		clock.now = clock.now.Add(time.Minute)
		err := repo.ClaimReset(ctx, "demo", 5*time.Minute)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCooldown))
		assert.Equal(t, CooldownMessage, apperrors.GetAppError(err).Message)

		clock.now = clock.now.Add(5 * time.Minute)
		assert.NoError(t, repo.ClaimReset(ctx, "demo", 5*time.Minute))
	})

	t.Run("Should purge only the user partition", func(t *testing.T) {
		store := newFaultyStore(t)
		repo := NewDemoResetRepository(store, zap.NewNop(), nil)
		workouts := NewWorkoutRepository(store, zap.NewNop(), nil)

		for _, owner := range []string{"demo", "demo", "other"} {
			_, err := workouts.CreateWorkout(ctx, owner, models.WorkoutCreateInput{Date: day("2025-11-04"), Name: "Legs"})
			require.NoError(t, err)
		}

		n, err := repo.PurgeUser(ctx, "demo")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		left, err := workouts.GetAllForUser(ctx, "other")
		require.NoError(t, err)
		assert.Len(t, left, 1)

		n, err = repo.PurgeUser(ctx, "demo")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
