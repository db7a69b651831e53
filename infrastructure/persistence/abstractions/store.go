package abstractions

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a single row in the partition-key/sort-key table
type Item = map[string]types.AttributeValue

// ErrConditionFailed is returned when a conditional write's guard does not hold
var ErrConditionFailed = errors.New("conditional check failed")

// MaxBatchSize is the number of keys sent per batched delete request
const MaxBatchSize = 25

// Key addresses one row
type Key struct {
	PK string
	SK string
}

// Update describes an in-place modification of an existing row. Attribute
// names may be dotted paths into nested maps ("preferences.theme").
type Update struct {
	Set    map[string]types.AttributeValue
	Remove []string
}

// Store is a database-agnostic interface over a single wide-column table.
// Implementations never retry; every failure is returned to the caller.
type Store interface {
	// GetItem returns nil, nil when the row does not exist
	GetItem(ctx context.Context, key Key) (Item, error)

	// PutItem creates or replaces a row
	PutItem(ctx context.Context, item Item) error

	// PutItemIfAtMost writes item only when the row's numeric attribute attr
	// is absent or <= ceiling. Returns ErrConditionFailed otherwise.
	PutItemIfAtMost(ctx context.Context, item Item, attr string, ceiling int64) error

	// UpdateExisting applies an update only when the row exists and returns
	// the full row after the update. Returns ErrConditionFailed when absent.
	UpdateExisting(ctx context.Context, key Key, update Update) (Item, error)

	// DeleteItem removes a row and reports whether it existed
	DeleteItem(ctx context.Context, key Key) (bool, error)

	// Query returns every row in partition pk whose sort key begins with
	// skPrefix, in ascending sort-key order, following pagination
	Query(ctx context.Context, pk, skPrefix string) ([]Item, error)

	// BatchDelete removes rows in chunks of MaxBatchSize. Keys the backend
	// reports as unprocessed are returned as an error.
	BatchDelete(ctx context.Context, keys []Key) error

	// Increment atomically adds delta to the numeric attribute attr (created
	// at zero when missing), sets the "expires_at" attribute to expiresAt,
	// and returns the post-increment value
	Increment(ctx context.Context, key Key, attr string, delta int64, expiresAt int64) (int64, error)
}

// KeyOf extracts the primary key of an item
func KeyOf(item Item) Key {
	return Key{PK: stringAttr(item, "PK"), SK: stringAttr(item, "SK")}
}

// KeyItem builds the attribute map for a key
func KeyItem(key Key) Item {
	return Item{
		"PK": &types.AttributeValueMemberS{Value: key.PK},
		"SK": &types.AttributeValueMemberS{Value: key.SK},
	}
}

func stringAttr(item Item, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// ExpiresAtAttr is the TTL attribute maintained by Increment
const ExpiresAtAttr = "expires_at"
