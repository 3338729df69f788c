package ddbstore

import (
	"fmt"
	"maps"

	"github.com/acksell/electro/dynamodb/engine"
	"github.com/acksell/electro/dynamodb/table"
	"github.com/dgraph-io/badger/v4"
)

// primaryKey resolves the exact table key addressed by a request.
func (t *tableSchema) primaryKey(key engine.KeyCondition) (table.PrimaryKey, error) {
	defs := t.definition.KeyDefinitions
	if key.PartitionField != defs.PartitionKey.Name {
		return table.PrimaryKey{}, fmt.Errorf("partition field %q does not match table key %q", key.PartitionField, defs.PartitionKey.Name)
	}
	doc := map[string]any{key.PartitionField: key.PartitionValue}
	if defs.SortKey.Name != "" {
		if key.SortField != defs.SortKey.Name || key.SortMatch != engine.SortEqual {
			return table.PrimaryKey{}, fmt.Errorf("table %s requires an exact %q sort key", t.definition.Name, defs.SortKey.Name)
		}
		doc[key.SortField] = key.SortValue
	}
	return defs.ExtractPrimaryKey(doc)
}

func getItem(txn *badger.Txn, key []byte) (map[string]any, error) {
	existing, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item map[string]any
	err = existing.Value(func(val []byte) error {
		item, err = deserializeItem(val)
		return err
	})
	return item, err
}

func (s *Store) get(req engine.Request) (map[string]any, error) {
	tabl, err := s.getTable(req.Table)
	if err != nil {
		return nil, err
	}
	pk, err := tabl.primaryKey(req.Key)
	if err != nil {
		return nil, err
	}
	key, err := tabl.encoder().encodeKey(pk, nil)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}

	var item map[string]any
	err = s.db.View(func(txn *badger.Txn) error {
		item, err = getItem(txn, key)
		return err
	})
	return item, err
}

// put creates or replaces an item. Conditions are evaluated against the
// current item.
func (s *Store) put(req engine.Request) (map[string]any, error) {
	if req.Item == nil {
		return nil, fmt.Errorf("item is required")
	}
	tabl, err := s.getTable(req.Table)
	if err != nil {
		return nil, err
	}
	pk, err := tabl.definition.ExtractPrimaryKey(req.Item)
	if err != nil {
		return nil, fmt.Errorf("extract primary key: %w", err)
	}

	var oldItem map[string]any
	err = s.db.Update(func(txn *badger.Txn) error {
		oldItem, err = s.write(txn, tabl, pk, req.Conditions, func(map[string]any) (map[string]any, error) {
			return req.Item, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return oldItem, nil
}

// update merges req.Item into an existing item. A nil value removes the
// attribute. Updating a missing item fails the condition check.
func (s *Store) update(req engine.Request) (map[string]any, error) {
	tabl, err := s.getTable(req.Table)
	if err != nil {
		return nil, err
	}
	pk, err := tabl.primaryKey(req.Key)
	if err != nil {
		return nil, err
	}

	keyFields := pk.Item()
	var newItem map[string]any
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := s.write(txn, tabl, pk, req.Conditions, func(old map[string]any) (map[string]any, error) {
			if old == nil {
				return nil, engine.ErrConditionFailed
			}
			merged := maps.Clone(old)
			for k, v := range req.Item {
				if _, isKey := keyFields[k]; isKey {
					return nil, fmt.Errorf("cannot update key attribute %q", k)
				}
				if v == nil {
					delete(merged, k)
					continue
				}
				merged[k] = v
			}
			newItem = merged
			return merged, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return newItem, nil
}

// delete removes an item and its GSI entries. Deleting a missing item is not
// an error.
func (s *Store) delete(req engine.Request) (map[string]any, error) {
	tabl, err := s.getTable(req.Table)
	if err != nil {
		return nil, err
	}
	pk, err := tabl.primaryKey(req.Key)
	if err != nil {
		return nil, err
	}

	var oldItem map[string]any
	err = s.db.Update(func(txn *badger.Txn) error {
		oldItem, err = s.write(txn, tabl, pk, req.Conditions, func(map[string]any) (map[string]any, error) {
			return nil, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return oldItem, nil
}

// write replaces the item at pk by the result of next, keeping every GSI in
// step. A nil result deletes the item.
func (s *Store) write(txn *badger.Txn, tabl *tableSchema, pk table.PrimaryKey, conds []engine.Condition,
	next func(old map[string]any) (map[string]any, error)) (map[string]any, error) {

	key, err := tabl.encoder().encodeKey(pk, nil)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}

	oldItem, err := getItem(txn, key)
	if err != nil {
		return nil, err
	}

	if len(conds) > 0 {
		ok, err := matchesAll(conds, oldItem)
		if err != nil {
			return nil, fmt.Errorf("evaluate condition: %w", err)
		}
		if !ok {
			return nil, engine.ErrConditionFailed
		}
	}

	newItem, err := next(oldItem)
	if err != nil {
		return nil, err
	}

	if newItem == nil {
		if oldItem == nil {
			return nil, nil
		}
		if err := txn.Delete(key); err != nil {
			return nil, err
		}
	} else {
		itemBytes, err := serializeItem(newItem)
		if err != nil {
			return nil, fmt.Errorf("serialize item: %w", err)
		}
		if err := txn.Set(key, itemBytes); err != nil {
			return nil, err
		}
	}

	for _, gsi := range tabl.gsis {
		if err := s.updateGSI(txn, gsi, newItem, oldItem); err != nil {
			return nil, fmt.Errorf("update GSI %s: %w", gsi.definition.Name, err)
		}
	}
	return oldItem, nil
}

// updateGSI removes the old GSI entry of an item and inserts the new one.
// Items missing a GSI key attribute are not projected into that GSI.
func (s *Store) updateGSI(txn *badger.Txn, gsi *gsiSchema, newItem, oldItem map[string]any) error {
	enc := gsi.encoder()

	if oldItem != nil {
		if oldPK, err := gsi.definition.ExtractPrimaryKey(oldItem); err == nil {
			oldKey, err := enc.encodeKey(oldPK, oldItem)
			if err != nil {
				return fmt.Errorf("encode old GSI key: %w", err)
			}
			if err := txn.Delete(oldKey); err != nil {
				return err
			}
		}
	}

	if newItem == nil {
		return nil
	}
	newPK, err := gsi.definition.ExtractPrimaryKey(newItem)
	if err != nil {
		return nil // Skip - incomplete GSI key
	}
	gsiKey, err := enc.encodeKey(newPK, newItem)
	if err != nil {
		return fmt.Errorf("encode GSI key: %w", err)
	}

	// GSIs store the full item
	itemBytes, err := serializeItem(newItem)
	if err != nil {
		return fmt.Errorf("serialize item for GSI: %w", err)
	}
	return txn.Set(gsiKey, itemBytes)
}
