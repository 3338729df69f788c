package ddbstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/acksell/electro/dynamodb/engine"
	"github.com/acksell/electro/dynamodb/table"
	"github.com/dgraph-io/badger/v4"
)

// query retrieves the items of one partition, optionally narrowed by an exact
// or prefix sort key match, that satisfy every condition.
func (s *Store) query(ctx context.Context, req engine.Request) ([]map[string]any, error) {
	enc, err := s.getBadgerKeyEncoder(req.Table, req.Index)
	if err != nil {
		return nil, err
	}
	key := req.Key
	if key.PartitionField != enc.keyDefs.PartitionKey.Name {
		return nil, fmt.Errorf("partition field %q does not match index key %q", key.PartitionField, enc.keyDefs.PartitionKey.Name)
	}
	if key.SortMatch != engine.SortNone && key.SortField != enc.keyDefs.SortKey.Name {
		return nil, fmt.Errorf("sort field %q does not match index key %q", key.SortField, enc.keyDefs.SortKey.Name)
	}

	prefix, err := enc.encodePartitionPrefix(key.PartitionValue)
	if err != nil {
		return nil, fmt.Errorf("encode partition key prefix: %w", err)
	}

	// String prefixes narrow the iteration itself since escaping keeps byte
	// prefixes intact.
	seek := prefix
	if key.SortMatch != engine.SortNone && enc.keyDefs.SortKey.Kind == table.KeyKindS {
		seek = append(append(bytes.Clone(prefix), keyTypeString), escapeBytes([]byte(key.SortValue))...)
	}

	return s.iterate(ctx, seek, req.Limit, func(fullKey []byte, item map[string]any) (bool, error) {
		if key.SortMatch != engine.SortNone {
			ok, err := matchesSortKey(fullKey, prefix, key)
			if err != nil || !ok {
				return false, err
			}
		}
		return matchesAll(req.Conditions, item)
	})
}

func matchesSortKey(fullKey, prefix []byte, key engine.KeyCondition) (bool, error) {
	sk, err := decodeSortKey(fullKey, prefix)
	if err != nil {
		return false, err
	}
	skStr, ok := sk.(string)
	if !ok {
		skStr = fmt.Sprint(sk)
	}
	switch key.SortMatch {
	case engine.SortEqual:
		return skStr == key.SortValue, nil
	case engine.SortPrefix:
		return strings.HasPrefix(skStr, key.SortValue), nil
	}
	return true, nil
}

// scan retrieves every item of a table or index that satisfies the conditions.
func (s *Store) scan(ctx context.Context, req engine.Request) ([]map[string]any, error) {
	enc, err := s.getBadgerKeyEncoder(req.Table, req.Index)
	if err != nil {
		return nil, err
	}
	return s.iterate(ctx, enc.tablePrefix(), req.Limit, func(_ []byte, item map[string]any) (bool, error) {
		return matchesAll(req.Conditions, item)
	})
}

type matchFunc func(key []byte, item map[string]any) (bool, error)

func (s *Store) iterate(ctx context.Context, prefix []byte, limit int, match matchFunc) ([]map[string]any, error) {
	var items []map[string]any

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var item map[string]any
			if err := it.Item().Value(func(val []byte) error {
				var err error
				item, err = deserializeItem(val)
				return err
			}); err != nil {
				return err
			}

			ok, err := match(it.Item().KeyCopy(nil), item)
			if err != nil {
				return fmt.Errorf("evaluate conditions: %w", err)
			}
			if !ok {
				continue
			}

			items = append(items, item)
			if limit > 0 && len(items) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
