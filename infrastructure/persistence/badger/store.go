// Package badger implements the table store on an embedded Badger database
// for local development and tests.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	badgerdb "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"elbiefit/infrastructure/persistence/abstractions"
)

// maxConflictAttempts bounds optimistic transaction replays for Increment
const maxConflictAttempts = 64

type Options struct {
	// Path of the database directory. Empty means in-memory.
	Path string
}

// Store implements abstractions.Store on Badger. Rows live under
// "<PK>\x00<SK>" so a prefix scan returns a partition in sort-key order.
type Store struct {
	db     *badgerdb.DB
	logger *zap.Logger
}

var _ abstractions.Store = (*Store)(nil)

func NewStore(opts Options, logger *zap.Logger) (*Store, error) {
	badgerOpts := badgerdb.DefaultOptions(opts.Path).WithLogger(nil)
	if opts.Path == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	db, err := badgerdb.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	logger.Info("Opened embedded store",
		zap.String("path", opts.Path),
		zap.Bool("in_memory", opts.Path == ""),
	)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetItem(ctx context.Context, key abstractions.Key) (abstractions.Item, error) {
	var item abstractions.Item
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		item, err = getItem(txn, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *Store) PutItem(ctx context.Context, item abstractions.Item) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return putItem(txn, item)
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

func (s *Store) PutItemIfAtMost(ctx context.Context, item abstractions.Item, attr string, ceiling int64) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		existing, err := getItem(txn, abstractions.KeyOf(item))
		if err != nil {
			return err
		}
		if existing != nil {
			if current, ok := numberAttr(existing, attr); ok && current > ceiling {
				return abstractions.ErrConditionFailed
			}
		}
		return putItem(txn, item)
	})
	return wrap("failed to put item", err)
}

func (s *Store) UpdateExisting(ctx context.Context, key abstractions.Key, update abstractions.Update) (abstractions.Item, error) {
	var updated abstractions.Item
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := getItem(txn, key)
		if err != nil {
			return err
		}
		if item == nil {
			return abstractions.ErrConditionFailed
		}
		for path, value := range update.Set {
			if err := setPath(item, path, value); err != nil {
				return err
			}
		}
		for _, path := range update.Remove {
			if err := removePath(item, path); err != nil {
				return err
			}
		}
		updated = item
		return putItem(txn, item)
	})
	if err != nil {
		return nil, wrap("failed to update item", err)
	}
	return updated, nil
}

func (s *Store) DeleteItem(ctx context.Context, key abstractions.Key) (bool, error) {
	var existed bool
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(encodeKey(key))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return txn.Delete(encodeKey(key))
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	return existed, nil
}

func (s *Store) Query(ctx context.Context, pk, skPrefix string) ([]abstractions.Item, error) {
	prefix := encodePrefix(pk, skPrefix)

	var items []abstractions.Item
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := decodeItem(data)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	return items, nil
}

func (s *Store) BatchDelete(ctx context.Context, keys []abstractions.Key) error {
	for start := 0; start < len(keys); start += abstractions.MaxBatchSize {
		end := min(start+abstractions.MaxBatchSize, len(keys))
		err := s.db.Update(func(txn *badgerdb.Txn) error {
			for _, key := range keys[start:end] {
				if err := txn.Delete(encodeKey(key)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
	}
	return nil
}

func (s *Store) Increment(ctx context.Context, key abstractions.Key, attr string, delta int64, expiresAt int64) (int64, error) {
	var count int64
	increment := func(txn *badgerdb.Txn) error {
		item, err := getItem(txn, key)
		if err != nil {
			return err
		}
		if item == nil {
			item = abstractions.KeyItem(key)
		}
		current, _ := numberAttr(item, attr)
		count = current + delta
		item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(count, 10)}
		item[abstractions.ExpiresAtAttr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt, 10)}

		return putItem(txn, item)
	}

	var err error
	for attempt := 0; attempt < maxConflictAttempts; attempt++ {
		if err = s.db.Update(increment); !errors.Is(err, badgerdb.ErrConflict) {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return count, nil
}

func getItem(txn *badgerdb.Txn, key abstractions.Key) (abstractions.Item, error) {
	entry, err := txn.Get(encodeKey(key))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := entry.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return decodeItem(data)
}

func putItem(txn *badgerdb.Txn, item abstractions.Item) error {
	key := abstractions.KeyOf(item)
	if key.PK == "" || key.SK == "" {
		return errors.New("item is missing PK or SK")
	}
	data, err := encodeItem(item)
	if err != nil {
		return err
	}
	return txn.Set(encodeKey(key), data)
}

func numberAttr(item abstractions.Item, attr string) (int64, bool) {
	n, ok := item[attr].(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func wrap(msg string, err error) error {
	if err == nil || errors.Is(err, abstractions.ErrConditionFailed) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
