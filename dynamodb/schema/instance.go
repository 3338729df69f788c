package schema

import (
	"fmt"
	"strings"

	"github.com/acksell/electro/dynamodb/keys"
)

// Key is one half of a composite index key.
type Key struct {
	// Field is the physical attribute holding the composed key.
	Field    string
	Facets   []string
	Template keys.Template
}

// Index binds an access pattern to a physical index.
type Index struct {
	// ID is the physical index name; "" is the table's own index.
	ID            string
	AccessPattern string
	Collection    string
	PartitionKey  Key
	SortKey       *Key
}

// Facets returns the partition facets followed by the sort facets, in order.
func (i *Index) Facets() []Facet {
	facets := make([]Facet, 0, len(i.PartitionKey.Facets))
	for _, name := range i.PartitionKey.Facets {
		facets = append(facets, Facet{Name: name, Role: RolePartition})
	}
	if i.SortKey != nil {
		for _, name := range i.SortKey.Facets {
			facets = append(facets, Facet{Name: name, Role: RoleSort})
		}
	}
	return facets
}

// HasSortKey reports whether the index has a sort key field.
func (i *Index) HasSortKey() bool {
	return i.SortKey != nil
}

// Instance is a queryable unit: an entity, or a collection of entities
// sharing one index.
type Instance struct {
	Name    string
	Kind    Kind
	Service string
	Version string
	// Entities lists the member entities of a collection.
	Entities []string

	attributes []Attribute
	byName     map[string]int
	indexes    []*Index
	actions    map[Action]bool
}

// Attributes returns the declared attributes in declaration order.
func (inst *Instance) Attributes() []Attribute {
	out := make([]Attribute, len(inst.attributes))
	copy(out, inst.attributes)
	return out
}

// AttributeNames returns the attribute names in declaration order.
func (inst *Instance) AttributeNames() []string {
	names := make([]string, len(inst.attributes))
	for i, a := range inst.attributes {
		names[i] = a.Name
	}
	return names
}

// Attribute looks up an attribute by its exact name.
func (inst *Instance) Attribute(name string) (Attribute, bool) {
	i, ok := inst.byName[name]
	if !ok {
		return Attribute{}, false
	}
	return inst.attributes[i], true
}

// AttributeTypeName is the name used for an attribute's type in generated
// declarations. Enums get a named type scoped to the instance, since two
// entities may declare same-named enums with different values.
func (inst *Instance) AttributeTypeName(name string) string {
	attr, ok := inst.Attribute(name)
	if !ok {
		return string(TypeAny)
	}
	if attr.Type == TypeEnum {
		return inst.Name + "_" + name + "_enum"
	}
	return string(attr.Type)
}

// AttributeTypes maps every attribute to its AttributeTypeName.
func (inst *Instance) AttributeTypes() map[string]string {
	types := make(map[string]string, len(inst.attributes))
	for _, a := range inst.attributes {
		types[a.Name] = inst.AttributeTypeName(a.Name)
	}
	return types
}

// Enums returns the enum values per enum attribute.
func (inst *Instance) Enums() map[string][]string {
	enums := make(map[string][]string)
	for _, a := range inst.attributes {
		if a.Type == TypeEnum {
			enums[a.Name] = append([]string(nil), a.EnumValues...)
		}
	}
	return enums
}

// Indexes returns the instance indexes in declaration order.
func (inst *Instance) Indexes() []*Index {
	out := make([]*Index, len(inst.indexes))
	copy(out, inst.indexes)
	return out
}

// Index returns the index with the given physical id. Collections have a
// single index which is returned for any id.
func (inst *Instance) Index(id string) (*Index, error) {
	if inst.Kind == KindCollection {
		return inst.indexes[0], nil
	}
	for _, idx := range inst.indexes {
		if idx.ID == id {
			return idx, nil
		}
	}
	return nil, fmt.Errorf("%s %q has no index %q", inst.Kind, inst.Name, id)
}

// PrimaryIndex returns the table's own index for entities and the shared
// index for collections.
func (inst *Instance) PrimaryIndex() *Index {
	idx, _ := inst.Index("")
	return idx
}

// FacetsForIndex returns the ordered facet chain of an index.
func (inst *Instance) FacetsForIndex(id string) ([]Facet, error) {
	idx, err := inst.Index(id)
	if err != nil {
		return nil, err
	}
	return idx.Facets(), nil
}

// HasSortKey reports whether the given index has a sort key. Derived on
// every call; nothing is cached.
func (inst *Instance) HasSortKey(id string) bool {
	idx, err := inst.Index(id)
	if err != nil {
		return false
	}
	return idx.HasSortKey()
}

// KeyFieldNames returns the physical partition field and, if present, the
// physical sort field of an index.
func (inst *Instance) KeyFieldNames(id string) ([]string, error) {
	idx, err := inst.Index(id)
	if err != nil {
		return nil, err
	}
	names := []string{idx.PartitionKey.Field}
	if idx.SortKey != nil {
		names = append(names, idx.SortKey.Field)
	}
	return names, nil
}

// AllKeyFieldNames returns every physical key field used by the instance's
// indexes, without duplicates.
func (inst *Instance) AllKeyFieldNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, idx := range inst.indexes {
		fields, _ := inst.KeyFieldNames(idx.ID)
		for _, f := range fields {
			if !seen[f] {
				seen[f] = true
				names = append(names, f)
			}
		}
	}
	return names
}

// AccessPatterns returns the access pattern names in index order.
func (inst *Instance) AccessPatterns() []string {
	names := make([]string, len(inst.indexes))
	for i, idx := range inst.indexes {
		names[i] = idx.AccessPattern
	}
	return names
}

// AccessPatternName translates an index id to its access pattern.
func (inst *Instance) AccessPatternName(id string) string {
	idx, err := inst.Index(id)
	if err != nil {
		return ""
	}
	return idx.AccessPattern
}

// IndexID translates an access pattern to its physical index id.
func (inst *Instance) IndexID(accessPattern string) (string, bool) {
	for _, idx := range inst.indexes {
		if strings.EqualFold(idx.AccessPattern, accessPattern) {
			return idx.ID, true
		}
	}
	return "", false
}

// Can reports whether the instance declares the action.
func (inst *Instance) Can(action Action) bool {
	return inst.actions[action]
}
