// Package repository maps the domain models onto the single-table store.
// No method retries; every storage failure comes back as a domain error.
package repository

import (
	"time"

	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/domain/models"
	"elbiefit/infrastructure/persistence/abstractions"
	apperrors "elbiefit/pkg/errors"
)

type base struct {
	store  abstractions.Store
	logger *zap.Logger
	now    ports.Clock
}

func newBase(store abstractions.Store, logger *zap.Logger, clock ports.Clock) base {
	if clock == nil {
		clock = time.Now
	}
	return base{store: store, logger: logger, now: func() time.Time { return clock().UTC() }}
}

// storageError logs a failed store call and wraps it for the caller
func (b base) storageError(msg string, err error, fields ...zap.Field) error {
	b.logger.Error(msg, append(fields, zap.Error(err))...)
	return apperrors.NewRepositoryError(msg, err)
}

// decodeError marks a row that could not be turned into a model. It is never
// reported as not-found.
func (b base) decodeError(item models.Item, err error) error {
	b.logger.Error("Failed to decode item",
		zap.String("pk", models.StringAttr(item, "PK")),
		zap.String("sk", models.StringAttr(item, "SK")),
		zap.Error(err),
	)
	return apperrors.NewRepositoryError("Failed to decode stored item", err)
}

func keysOf(items []abstractions.Item) []abstractions.Key {
	out := make([]abstractions.Key, len(items))
	for i, item := range items {
		out[i] = abstractions.KeyOf(item)
	}
	return out
}
