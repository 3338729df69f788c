// Package table derives physical table and index definitions from a schema
// and composes key fields for items written through it.
package table

import (
	"fmt"

	"github.com/acksell/electro/dynamodb/schema"
)

type TableDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	GSIs           []GSIDefinition
}

// GSIDefinition represents a Global Secondary Index definition.
type GSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
}

// ExtractPrimaryKey extracts the primary key values from a document.
func (g GSIDefinition) ExtractPrimaryKey(doc map[string]any) (PrimaryKey, error) {
	return g.KeyDefinitions.ExtractPrimaryKey(doc)
}

func (t TableDefinition) ExtractPrimaryKey(doc map[string]any) (PrimaryKey, error) {
	return t.KeyDefinitions.ExtractPrimaryKey(doc)
}

// GSI returns the secondary index with the given name.
func (t TableDefinition) GSI(name string) (GSIDefinition, bool) {
	for _, g := range t.GSIs {
		if g.Name == name {
			return g, true
		}
	}
	return GSIDefinition{}, false
}

// FromSchema derives the table definition every instance of the schema is
// stored in. Entities must agree on the key fields of each physical index.
// Composed keys are always strings.
func FromSchema(name string, s *schema.Schema) (TableDefinition, error) {
	def := TableDefinition{Name: name}
	seen := make(map[string]PrimaryKeyDefinition)
	var order []string

	for _, inst := range s.Entities() {
		for _, idx := range inst.Indexes() {
			kd := PrimaryKeyDefinition{
				PartitionKey: KeyDef{Name: idx.PartitionKey.Field, Kind: KeyKindS},
			}
			if idx.SortKey != nil {
				kd.SortKey = KeyDef{Name: idx.SortKey.Field, Kind: KeyKindS}
			}
			prev, ok := seen[idx.ID]
			if !ok {
				seen[idx.ID] = kd
				order = append(order, idx.ID)
				continue
			}
			if prev != kd {
				return TableDefinition{}, fmt.Errorf("entity %q declares index %q with keys %s, other entities use %s",
					inst.Name, indexLabel(idx.ID), kd, prev)
			}
		}
	}

	for _, id := range order {
		if id == "" {
			def.KeyDefinitions = seen[id]
			continue
		}
		def.GSIs = append(def.GSIs, GSIDefinition{Name: id, KeyDefinitions: seen[id]})
	}
	return def, nil
}

func indexLabel(id string) string {
	if id == "" {
		return "(table)"
	}
	return id
}
