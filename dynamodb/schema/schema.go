// Package schema normalizes entity and service descriptors into attributes,
// facets and indexes. A loaded Schema is immutable and may be read
// concurrently without synchronization.
package schema

import (
	"errors"
	"strings"
)

// ErrSchemaInvalid is wrapped by every error returned from Load.
var ErrSchemaInvalid = errors.New("schema invalid")

// Kind is the shape a schema source declares.
type Kind int

const (
	// KindEntity is a single entity.
	KindEntity Kind = iota + 1
	// KindService is a group of entities, possibly sharing collections.
	KindService
	// KindCollection is an instance derived from entities sharing an index.
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindService:
		return "service"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// AttributeType is the declared type of an attribute.
type AttributeType string

const (
	TypeString  AttributeType = "string"
	TypeNumber  AttributeType = "number"
	TypeBoolean AttributeType = "boolean"
	TypeEnum    AttributeType = "enum"
	TypeAny     AttributeType = "any"
)

func (t AttributeType) valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeEnum, TypeAny:
		return true
	}
	return false
}

// Attribute is a declared entity attribute.
type Attribute struct {
	Name       string
	Type       AttributeType
	Required   bool
	ReadOnly   bool
	EnumValues []string
}

// Role is the part of a composite key a facet belongs to.
type Role string

const (
	RolePartition Role = "pk"
	RoleSort      Role = "sk"
)

// Facet is an attribute participating in a composite key.
type Facet struct {
	Name string
	Role Role
}

// Action is an operation an entity exposes.
type Action string

const (
	ActionQuery  Action = "query"
	ActionScan   Action = "scan"
	ActionCreate Action = "create"
	ActionPatch  Action = "patch"
	ActionRemove Action = "remove"
)

// Actions lists every action in declaration order.
var Actions = []Action{ActionQuery, ActionScan, ActionCreate, ActionPatch, ActionRemove}

// Schema is the loaded form of one schema source.
type Schema struct {
	// Name is the entity name for entity sources and the service name otherwise.
	Name    string
	Service string
	Kind    Kind
	// Table is the default table declared by the source, if any.
	Table string
	// RequiresTable is set for bare models which carry no store binding.
	RequiresTable bool
	Instances     []*Instance
}

// Instance looks up an instance by name, case-insensitively.
func (s *Schema) Instance(name string) (*Instance, bool) {
	for _, inst := range s.Instances {
		if strings.EqualFold(inst.Name, name) {
			return inst, true
		}
	}
	return nil, false
}

// Entities returns the entity instances in declaration order.
func (s *Schema) Entities() []*Instance {
	var out []*Instance
	for _, inst := range s.Instances {
		if inst.Kind == KindEntity {
			out = append(out, inst)
		}
	}
	return out
}

// AccessPattern resolves an access pattern name to the instance declaring it.
func (s *Schema) AccessPattern(name string) (*Instance, *Index, bool) {
	for _, inst := range s.Instances {
		for _, idx := range inst.indexes {
			if strings.EqualFold(idx.AccessPattern, name) {
				return inst, idx, true
			}
		}
	}
	return nil, nil, false
}
