package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"elbiefit/domain/keys"
	"elbiefit/infrastructure/persistence/abstractions"
	"elbiefit/infrastructure/persistence/badger"
)

// faultyStore wraps a real store and fails the operations it is told to
type faultyStore struct {
	abstractions.Store
	failPut         error
	failPutAfter    int
	puts            int
	failQuery       error
	failBatchDelete error
	failUpdate      error
	failDelete      error
}

func (f *faultyStore) PutItem(ctx context.Context, item abstractions.Item) error {
	f.puts++
	if f.failPut != nil && f.puts > f.failPutAfter {
		return f.failPut
	}
	return f.Store.PutItem(ctx, item)
}

func (f *faultyStore) Query(ctx context.Context, pk, skPrefix string) ([]abstractions.Item, error) {
	if f.failQuery != nil {
		return nil, f.failQuery
	}
	return f.Store.Query(ctx, pk, skPrefix)
}

func (f *faultyStore) BatchDelete(ctx context.Context, keys []abstractions.Key) error {
	if f.failBatchDelete != nil {
		return f.failBatchDelete
	}
	return f.Store.BatchDelete(ctx, keys)
}

func (f *faultyStore) UpdateExisting(ctx context.Context, key abstractions.Key, update abstractions.Update) (abstractions.Item, error) {
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	return f.Store.UpdateExisting(ctx, key, update)
}

func (f *faultyStore) DeleteItem(ctx context.Context, key abstractions.Key) (bool, error) {
	if f.failDelete != nil {
		return false, f.failDelete
	}
	return f.Store.DeleteItem(ctx, key)
}

var errThrottled = errors.New("ProvisionedThroughputExceededException")

// testClock advances one millisecond per call so creation order is stable
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newClock() *testClock {
	return &testClock{now: time.Date(2025, 11, 4, 18, 0, 0, 0, time.UTC)}
}

func newFaultyStore(t *testing.T) *faultyStore {
	t.Helper()
	store, err := badger.NewStore(badger.Options{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &faultyStore{Store: store}
}

func day(s string) time.Time {
	d, err := keys.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

var fixedTime = time.Date(2025, 11, 4, 12, 0, 0, 0, time.UTC)
