package schema

import (
	"fmt"
	"slices"

	"github.com/acksell/electro/dynamodb/keys"
)

type member struct {
	entity *Instance
	index  *Index
}

// buildCollections groups entity indexes sharing a collection name into one
// queryable instance per collection, in order of first appearance.
func buildCollections(service string, entities []*Instance) ([]*Instance, error) {
	var order []string
	groups := make(map[string][]member)
	for _, e := range entities {
		for _, idx := range e.indexes {
			if idx.Collection == "" {
				continue
			}
			if _, ok := groups[idx.Collection]; !ok {
				order = append(order, idx.Collection)
			}
			groups[idx.Collection] = append(groups[idx.Collection], member{entity: e, index: idx})
		}
	}

	out := make([]*Instance, 0, len(order))
	for _, name := range order {
		c, err := buildCollection(service, name, groups[name])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func buildCollection(service, name string, members []member) (*Instance, error) {
	first := members[0].index
	seen := make(map[string]bool)
	for _, m := range members {
		if seen[m.entity.Name] {
			return nil, fmt.Errorf("%w: collection %q: entity %q joins it more than once", ErrSchemaInvalid, name, m.entity.Name)
		}
		seen[m.entity.Name] = true

		idx := m.index
		switch {
		case idx.ID != first.ID:
			return nil, fmt.Errorf("%w: collection %q: entity %q uses index %q, expected %q", ErrSchemaInvalid, name, m.entity.Name, idx.ID, first.ID)
		case idx.PartitionKey.Field != first.PartitionKey.Field || idx.SortKey.Field != first.SortKey.Field:
			return nil, fmt.Errorf("%w: collection %q: entity %q uses different key fields", ErrSchemaInvalid, name, m.entity.Name)
		case !slices.Equal(idx.PartitionKey.Facets, first.PartitionKey.Facets):
			return nil, fmt.Errorf("%w: collection %q: entity %q partition facets %v differ from %v", ErrSchemaInvalid, name, m.entity.Name, idx.PartitionKey.Facets, first.PartitionKey.Facets)
		case idx.PartitionKey.Template.String() != first.PartitionKey.Template.String():
			return nil, fmt.Errorf("%w: collection %q: entity %q partition template %q differs from %q", ErrSchemaInvalid, name, m.entity.Name, idx.PartitionKey.Template, first.PartitionKey.Template)
		}
	}

	sk, err := collectionSortKey(name, members)
	if err != nil {
		return nil, err
	}

	c := &Instance{
		Name:    name,
		Kind:    KindCollection,
		Service: service,
		byName:  make(map[string]int),
		actions: map[Action]bool{ActionQuery: true},
		indexes: []*Index{{
			ID:            first.ID,
			AccessPattern: name,
			Collection:    name,
			PartitionKey:  first.PartitionKey,
			SortKey:       &sk,
		}},
	}
	for _, m := range members {
		c.Entities = append(c.Entities, m.entity.Name)
		for _, a := range m.entity.attributes {
			if _, ok := c.byName[a.Name]; ok {
				continue
			}
			c.byName[a.Name] = len(c.attributes)
			c.attributes = append(c.attributes, a)
		}
	}
	return c, nil
}

// collectionSortKey derives the sort key a collection queries with. Members
// using the default layout share their longest common facet prefix; members
// with a custom template must all declare the same one.
func collectionSortKey(name string, members []member) (Key, error) {
	first := members[0].index.SortKey
	custom := 0
	for _, m := range members {
		if isCustomSortTemplate(name, m.index.SortKey) {
			custom++
		}
	}

	if custom > 0 {
		for _, m := range members {
			if m.index.SortKey.Template.String() != first.Template.String() {
				return Key{}, fmt.Errorf("%w: collection %q: entity %q sort template %q differs from %q",
					ErrSchemaInvalid, name, m.entity.Name, m.index.SortKey.Template, first.Template)
			}
		}
		return *first, nil
	}

	common := slices.Clone(first.Facets)
	for _, m := range members[1:] {
		facets := m.index.SortKey.Facets
		n := 0
		for n < len(common) && n < len(facets) && common[n] == facets[n] {
			n++
		}
		common = common[:n]
	}
	return Key{
		Field:    first.Field,
		Facets:   common,
		Template: keys.Default(name, common),
	}, nil
}

func isCustomSortTemplate(collection string, k *Key) bool {
	return k.Template.String() != keys.Default(collection, k.Facets).String()
}
