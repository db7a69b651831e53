package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/domain/keys"
	"elbiefit/infrastructure/persistence/abstractions"
	apperrors "elbiefit/pkg/errors"
)

const lastResetAttr = "last_reset_at"

// CooldownMessage is shown when a demo reset is refused.
const CooldownMessage = "Demo reset is on cooldown. Try again soon."

type DemoResetRepository struct {
	base
}

var _ ports.DemoResetRepository = (*DemoResetRepository)(nil)

func NewDemoResetRepository(store abstractions.Store, logger *zap.Logger, clock ports.Clock) *DemoResetRepository {
	return &DemoResetRepository{base: newBase(store, logger, clock)}
}

func (r *DemoResetRepository) ClaimReset(ctx context.Context, userSub string, cooldown time.Duration) error {
	now := r.now().Unix()
	item := abstractions.KeyItem(abstractions.Key{PK: keys.DemoResetPK(userSub), SK: keys.DemoResetSK})
	item[lastResetAttr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)}

	err := r.store.PutItemIfAtMost(ctx, item, lastResetAttr, now-int64(cooldown/time.Second))
	if errors.Is(err, abstractions.ErrConditionFailed) {
		r.logger.Info("Demo reset refused during cooldown", zap.String("user_sub", userSub))
		return apperrors.NewCooldownError(CooldownMessage)
	}
	if err != nil {
		return r.storageError("Failed to record demo reset", err, zap.String("user_sub", userSub))
	}
	return nil
}

func (r *DemoResetRepository) PurgeUser(ctx context.Context, userSub string) (int, error) {
	items, err := r.store.Query(ctx, keys.UserPK(userSub), "")
	if err != nil {
		return 0, r.storageError("Failed to list user items", err, zap.String("user_sub", userSub))
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := r.store.BatchDelete(ctx, keysOf(items)); err != nil {
		return 0, r.storageError("Failed to purge user items", err, zap.String("user_sub", userSub))
	}

	r.logger.Info("User partition purged",
		zap.String("user_sub", userSub),
		zap.Int("items", len(items)),
	)
	return len(items), nil
}
