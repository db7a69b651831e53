package repository

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/domain/keys"
	"elbiefit/domain/models"
	"elbiefit/infrastructure/persistence/abstractions"
	apperrors "elbiefit/pkg/errors"
)

type ProfileRepository struct {
	base
}

var _ ports.ProfileRepository = (*ProfileRepository)(nil)

func NewProfileRepository(store abstractions.Store, logger *zap.Logger, clock ports.Clock) *ProfileRepository {
	return &ProfileRepository{base: newBase(store, logger, clock)}
}

func profileKey(userSub string) abstractions.Key {
	return abstractions.Key{PK: keys.UserPK(userSub), SK: keys.ProfileSK}
}

func (r *ProfileRepository) GetProfile(ctx context.Context, userSub string) (*models.Profile, error) {
	item, err := r.store.GetItem(ctx, profileKey(userSub))
	if err != nil {
		return nil, r.storageError("Failed to load profile", err, zap.String("user_sub", userSub))
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("Profile")
	}
	profile, err := models.ProfileFromItem(item)
	if err != nil {
		return nil, r.decodeError(item, err)
	}
	return profile, nil
}

func (r *ProfileRepository) SaveProfile(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	item, err := profile.ToItem()
	if err != nil {
		return apperrors.NewRepositoryError("Failed to encode profile", err)
	}
	if err := r.store.PutItem(ctx, item); err != nil {
		return r.storageError("Failed to save profile", err, zap.String("user_sub", profile.UserSub))
	}
	return nil
}

func (r *ProfileRepository) UpdateAccount(ctx context.Context, userSub string, in models.AccountUpdateInput) (*models.Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return r.update(ctx, userSub, abstractions.Update{Set: map[string]types.AttributeValue{
		"display_name": &types.AttributeValueMemberS{Value: in.DisplayName},
		"timezone":     &types.AttributeValueMemberS{Value: in.Timezone},
		"updated_at":   &types.AttributeValueMemberS{Value: models.FormatTimestamp(r.now())},
	}})
}

// UpdatePreferences writes only the known preference keys so any extra keys
// stored alongside them survive.
func (r *ProfileRepository) UpdatePreferences(ctx context.Context, userSub string, in models.PreferencesUpdateInput) (*models.Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return r.update(ctx, userSub, abstractions.Update{Set: map[string]types.AttributeValue{
		"preferences.show_tips": &types.AttributeValueMemberBOOL{Value: in.ShowTips},
		"preferences.theme":     &types.AttributeValueMemberS{Value: in.Theme},
		"preferences.units":     &types.AttributeValueMemberS{Value: in.Units},
		"updated_at":            &types.AttributeValueMemberS{Value: models.FormatTimestamp(r.now())},
	}})
}

func (r *ProfileRepository) update(ctx context.Context, userSub string, update abstractions.Update) (*models.Profile, error) {
	item, err := r.store.UpdateExisting(ctx, profileKey(userSub), update)
	if errors.Is(err, abstractions.ErrConditionFailed) {
		return nil, apperrors.NewNotFoundError("Profile")
	}
	if err != nil {
		return nil, r.storageError("Failed to update profile", err, zap.String("user_sub", userSub))
	}

	profile, err := models.ProfileFromItem(item)
	if err != nil {
		return nil, r.decodeError(item, err)
	}
	r.logger.Info("Profile updated", zap.String("user_sub", userSub))
	return profile, nil
}
