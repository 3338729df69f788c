package schema

// Descriptor is the raw, undecoded form of a schema source.
// Exactly one of Entity, Service or Model must be set.
type Descriptor struct {
	Entity  *EntityDescriptor  `yaml:"entity,omitempty" json:"entity,omitempty"`
	Service *ServiceDescriptor `yaml:"service,omitempty" json:"service,omitempty"`
	// Model is an entity without a bound store. The table and connection
	// come from whoever registered the model.
	Model *EntityDescriptor `yaml:"model,omitempty" json:"model,omitempty"`
}

// ServiceDescriptor groups entities that share a table.
type ServiceDescriptor struct {
	Name     string             `yaml:"name" json:"name"`
	Table    string             `yaml:"table,omitempty" json:"table,omitempty"`
	Entities []EntityDescriptor `yaml:"entities" json:"entities"`
}

// EntityDescriptor describes a single entity.
type EntityDescriptor struct {
	Name       string                `yaml:"name" json:"name"`
	Service    string                `yaml:"service,omitempty" json:"service,omitempty"`
	Version    string                `yaml:"version,omitempty" json:"version,omitempty"`
	Table      string                `yaml:"table,omitempty" json:"table,omitempty"`
	Actions    []string              `yaml:"actions,omitempty" json:"actions,omitempty"`
	Attributes []AttributeDescriptor `yaml:"attributes" json:"attributes"`
	Indexes    []IndexDescriptor     `yaml:"indexes" json:"indexes"`
}

// AttributeDescriptor describes one entity attribute.
type AttributeDescriptor struct {
	Name     string   `yaml:"name" json:"name"`
	Type     string   `yaml:"type,omitempty" json:"type,omitempty"`
	Required bool     `yaml:"required,omitempty" json:"required,omitempty"`
	ReadOnly bool     `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	Values   []string `yaml:"values,omitempty" json:"values,omitempty"`
}

// IndexDescriptor binds an access pattern to a table index.
type IndexDescriptor struct {
	AccessPattern string `yaml:"accessPattern" json:"accessPattern"`
	// Index is the physical index name. Empty means the table's own index.
	Index      string         `yaml:"index,omitempty" json:"index,omitempty"`
	Collection string         `yaml:"collection,omitempty" json:"collection,omitempty"`
	PK         KeyDescriptor  `yaml:"pk" json:"pk"`
	SK         *KeyDescriptor `yaml:"sk,omitempty" json:"sk,omitempty"`
}

// KeyDescriptor describes one half of a composite key.
//
// Facets may be omitted when Template is given; they are then read from the
// template's {field} references in order.
type KeyDescriptor struct {
	Field    string   `yaml:"field" json:"field"`
	Facets   []string `yaml:"facets,omitempty" json:"facets,omitempty"`
	Template string   `yaml:"template,omitempty" json:"template,omitempty"`
}
