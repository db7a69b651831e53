package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"elbiefit/infrastructure/persistence/abstractions"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Options{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func row(pk, sk string, attrs map[string]types.AttributeValue) abstractions.Item {
	item := abstractions.KeyItem(abstractions.Key{PK: pk, SK: sk})
	for k, v := range attrs {
		item[k] = v
	}
	return item
}

func str(s string) types.AttributeValue { return &types.AttributeValueMemberS{Value: s} }
func num(n int64) types.AttributeValue  { return &types.AttributeValueMemberN{Value: fmt.Sprint(n)} }

func TestGetPutDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := abstractions.Key{PK: "USER#u1", SK: "PROFILE"}

	t.Run("Should return nil for a missing row", func(t *testing.T) {
		item, err := store.GetItem(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("Should round trip nested values", func(t *testing.T) {
		item := row(key.PK, key.SK, map[string]types.AttributeValue{
			"display_name": str("Lisa"),
			"preferences": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"show_tips": &types.AttributeValueMemberBOOL{Value: false},
				"theme":     str("dark"),
			}},
			"tags":  &types.AttributeValueMemberL{Value: []types.AttributeValue{str("a")}},
			"empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			"score": &types.AttributeValueMemberN{Value: "80.125"},
		})
		require.NoError(t, store.PutItem(ctx, item))

		got, err := store.GetItem(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, item, got)
	})

	t.Run("Should report whether a deleted row existed", func(t *testing.T) {
		existed, err := store.DeleteItem(ctx, key)
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = store.DeleteItem(ctx, key)
		require.NoError(t, err)
		assert.False(t, existed)
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, sk := range []string{
		"WORKOUT#2025-11-04#W1#SET#002",
		"WORKOUT#2025-11-04#W1",
		"WORKOUT#2025-11-04#W1#SET#001",
		"WORKOUT#2025-11-05#W2",
		"EXERCISE#e1",
	} {
		require.NoError(t, store.PutItem(ctx, row("USER#u1", sk, nil)))
	}
	require.NoError(t, store.PutItem(ctx, row("USER#u2", "WORKOUT#2025-11-04#W1", nil)))

	t.Run("Should return a prefix in ascending sort key order", func(t *testing.T) {
		items, err := store.Query(ctx, "USER#u1", "WORKOUT#2025-11-04#W1")
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "WORKOUT#2025-11-04#W1", abstractions.KeyOf(items[0]).SK)
		assert.Equal(t, "WORKOUT#2025-11-04#W1#SET#001", abstractions.KeyOf(items[1]).SK)
		assert.Equal(t, "WORKOUT#2025-11-04#W1#SET#002", abstractions.KeyOf(items[2]).SK)
	})

	t.Run("Should stay inside the partition", func(t *testing.T) {
		items, err := store.Query(ctx, "USER#u1", "")
		require.NoError(t, err)
		assert.Len(t, items, 5)

		items, err = store.Query(ctx, "USER#u", "")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestConditionalWrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := abstractions.Key{PK: "DEMO_RESET#u1", SK: "STATE"}

	t.Run("Should write when the attribute is absent or within the ceiling", func(t *testing.T) {
		require.NoError(t, store.PutItemIfAtMost(ctx, row(key.PK, key.SK, map[string]types.AttributeValue{"last_reset_at": num(1000)}), "last_reset_at", 700))
		require.NoError(t, store.PutItemIfAtMost(ctx, row(key.PK, key.SK, map[string]types.AttributeValue{"last_reset_at": num(1400)}), "last_reset_at", 1000))
	})

	t.Run("Should fail when the attribute is above the ceiling", func(t *testing.T) {
		err := store.PutItemIfAtMost(ctx, row(key.PK, key.SK, map[string]types.AttributeValue{"last_reset_at": num(1500)}), "last_reset_at", 1200)
		assert.ErrorIs(t, err, abstractions.ErrConditionFailed)
	})

	t.Run("Should refuse to update a missing row", func(t *testing.T) {
		_, err := store.UpdateExisting(ctx, abstractions.Key{PK: "USER#nobody", SK: "PROFILE"}, abstractions.Update{
			Set: map[string]types.AttributeValue{"display_name": str("x")},
		})
		assert.ErrorIs(t, err, abstractions.ErrConditionFailed)

		item, err := store.GetItem(ctx, abstractions.Key{PK: "USER#nobody", SK: "PROFILE"})
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("Should update dotted paths and keep sibling keys", func(t *testing.T) {
		profile := abstractions.Key{PK: "USER#u1", SK: "PROFILE"}
		require.NoError(t, store.PutItem(ctx, row(profile.PK, profile.SK, map[string]types.AttributeValue{
			"preferences": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"theme":         str("light"),
				"beta_features": &types.AttributeValueMemberBOOL{Value: true},
			}},
		})))

		updated, err := store.UpdateExisting(ctx, profile, abstractions.Update{
			Set: map[string]types.AttributeValue{"preferences.theme": str("dark")},
		})
		require.NoError(t, err)

		prefs := updated["preferences"].(*types.AttributeValueMemberM).Value
		assert.Equal(t, str("dark"), prefs["theme"])
		assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, prefs["beta_features"])
	})

	t.Run("Should reject a path through a non-map attribute", func(t *testing.T) {
		profile := abstractions.Key{PK: "USER#u1", SK: "PROFILE"}
		_, err := store.UpdateExisting(ctx, profile, abstractions.Update{
			Set: map[string]types.AttributeValue{"PK.theme": str("dark")},
		})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, abstractions.ErrConditionFailed)
	})
}

func TestBatchDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var keys []abstractions.Key
	for i := 1; i <= 60; i++ {
		key := abstractions.Key{PK: "USER#u1", SK: fmt.Sprintf("WORKOUT#2025-11-04#W1#SET#%03d", i)}
		keys = append(keys, key)
		require.NoError(t, store.PutItem(ctx, abstractions.KeyItem(key)))
	}

	require.NoError(t, store.BatchDelete(ctx, keys))
	items, err := store.Query(ctx, "USER#u1", "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestIncrement(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := abstractions.Key{PK: "RATE#ip:1.2.3.4", SK: "WIN#29000000"}

	t.Run("Should start at the delta", func(t *testing.T) {
		n, err := store.Increment(ctx, key, "count", 1, 1740000180)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Should count concurrent hits exactly", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 9; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Increment(ctx, key, "count", 1, 1740000180)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		item, err := store.GetItem(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, num(10), item["count"])
		assert.Equal(t, num(1740000180), item[abstractions.ExpiresAtAttr])
	})
}
