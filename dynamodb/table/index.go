package table

import (
	"errors"
	"fmt"

	"github.com/acksell/electro/dynamodb/keys"
	"github.com/acksell/electro/dynamodb/schema"
)

// IndexDefinition is a physical index of an entity together with the keyers
// that compose its key fields.
type IndexDefinition struct {
	// Name is the index name, "" for the table's own index.
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	PartitionKeyer Keyer
	SortKeyer      Keyer
}

// PrimaryKey composes the index key of a document.
func (i IndexDefinition) PrimaryKey(doc map[string]any) (PrimaryKey, error) {
	part, err := i.PartitionKeyer.Key(doc)
	if err != nil {
		return PrimaryKey{}, fmt.Errorf("failed to get partition key: %w", err)
	}
	pk := PrimaryKey{
		Definition: i.KeyDefinitions,
		Values:     PrimaryKeyValues{PartitionKey: part},
	}
	if i.KeyDefinitions.SortKey.Name == "" {
		return pk, nil
	}
	sort, err := i.SortKeyer.Key(doc)
	if err != nil {
		return PrimaryKey{}, fmt.Errorf("failed to get sort key: %w", err)
	}
	pk.Values.SortKey = sort
	return pk, nil
}

// ForInstance returns the index definitions of an entity, table index first
// in declaration order.
func ForInstance(inst *schema.Instance) []IndexDefinition {
	indexes := inst.Indexes()
	defs := make([]IndexDefinition, 0, len(indexes))
	for _, idx := range indexes {
		def := IndexDefinition{
			Name: idx.ID,
			KeyDefinitions: PrimaryKeyDefinition{
				PartitionKey: KeyDef{Name: idx.PartitionKey.Field, Kind: KeyKindS},
			},
			PartitionKeyer: TemplateKeyer(idx.PartitionKey.Template),
		}
		if idx.SortKey != nil {
			def.KeyDefinitions.SortKey = KeyDef{Name: idx.SortKey.Field, Kind: KeyKindS}
			def.SortKeyer = TemplateKeyer(idx.SortKey.Template)
		}
		defs = append(defs, def)
	}
	return defs
}

// PopulateKeys writes every composable index key of an entity into doc.
// The table index must be composable. Secondary indexes whose facets are
// missing are left out so the item does not appear in them.
func PopulateKeys(inst *schema.Instance, doc map[string]any) error {
	for _, def := range ForInstance(inst) {
		pk, err := def.PrimaryKey(doc)
		if errors.Is(err, keys.ErrMissingFacet) && def.Name != "" {
			continue
		}
		if err != nil {
			return fmt.Errorf("index %s: %w", indexLabel(def.Name), err)
		}
		for k, v := range pk.Item() {
			doc[k] = v
		}
	}
	return nil
}
