package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/acksell/electro/dynamodb/keys"
)

// defaultActions are granted to entities that declare none. Mutations are
// never granted implicitly.
var defaultActions = []Action{ActionQuery, ActionScan}

// Load validates a descriptor and builds its Schema.
func Load(d Descriptor) (*Schema, error) {
	shapes := 0
	for _, set := range []bool{d.Entity != nil, d.Service != nil, d.Model != nil} {
		if set {
			shapes++
		}
	}
	if shapes != 1 {
		return nil, fmt.Errorf("%w: source must declare exactly one of entity, service or model (found %d)", ErrSchemaInvalid, shapes)
	}

	switch {
	case d.Entity != nil:
		return loadEntitySchema(*d.Entity, false)
	case d.Model != nil:
		return loadEntitySchema(*d.Model, true)
	case d.Service != nil:
		return loadService(*d.Service)
	}
	panic("unreachable")
}

func loadEntitySchema(ed EntityDescriptor, model bool) (*Schema, error) {
	inst, err := loadEntity(ed, ed.Service)
	if err != nil {
		return nil, err
	}
	return &Schema{
		Name:          inst.Name,
		Service:       inst.Service,
		Kind:          KindEntity,
		Table:         ed.Table,
		RequiresTable: model && ed.Table == "",
		Instances:     []*Instance{inst},
	}, nil
}

func loadService(sd ServiceDescriptor) (*Schema, error) {
	if sd.Name == "" {
		return nil, fmt.Errorf("%w: service name is required", ErrSchemaInvalid)
	}
	if len(sd.Entities) == 0 {
		return nil, fmt.Errorf("%w: service %q declares no entities", ErrSchemaInvalid, sd.Name)
	}

	s := &Schema{
		Name:    sd.Name,
		Service: sd.Name,
		Kind:    KindService,
		Table:   sd.Table,
	}

	names := make(map[string]string)
	claim := func(name, owner string) error {
		key := strings.ToLower(name)
		if prev, ok := names[key]; ok {
			return fmt.Errorf("%w: name %q used by both %s and %s", ErrSchemaInvalid, name, prev, owner)
		}
		names[key] = owner
		return nil
	}

	for _, ed := range sd.Entities {
		if ed.Service != "" && ed.Service != sd.Name {
			return nil, fmt.Errorf("%w: entity %q belongs to service %q, not %q", ErrSchemaInvalid, ed.Name, ed.Service, sd.Name)
		}
		inst, err := loadEntity(ed, sd.Name)
		if err != nil {
			return nil, err
		}
		for _, ap := range inst.AccessPatterns() {
			if err := claim(ap, fmt.Sprintf("entity %q", inst.Name)); err != nil {
				return nil, err
			}
		}
		s.Instances = append(s.Instances, inst)
	}

	collections, err := buildCollections(sd.Name, s.Instances)
	if err != nil {
		return nil, err
	}
	for _, c := range collections {
		if err := claim(c.Name, fmt.Sprintf("collection %q", c.Name)); err != nil {
			return nil, err
		}
	}
	s.Instances = append(s.Instances, collections...)

	return s, nil
}

func loadEntity(ed EntityDescriptor, service string) (*Instance, error) {
	if ed.Name == "" {
		return nil, fmt.Errorf("%w: entity name is required", ErrSchemaInvalid)
	}

	inst := &Instance{
		Name:    ed.Name,
		Kind:    KindEntity,
		Service: service,
		Version: ed.Version,
		byName:  make(map[string]int),
		actions: make(map[Action]bool),
	}

	for _, ad := range ed.Attributes {
		attr, err := loadAttribute(ad)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", ed.Name, err)
		}
		if _, dup := inst.byName[attr.Name]; dup {
			return nil, fmt.Errorf("%w: entity %q: duplicate attribute %q", ErrSchemaInvalid, ed.Name, attr.Name)
		}
		inst.byName[attr.Name] = len(inst.attributes)
		inst.attributes = append(inst.attributes, attr)
	}

	actions := defaultActions
	if len(ed.Actions) > 0 {
		actions = nil
		for _, a := range ed.Actions {
			action := Action(strings.ToLower(strings.TrimSpace(a)))
			if !slices.Contains(Actions, action) {
				return nil, fmt.Errorf("%w: entity %q: unknown action %q, valid actions are %s", ErrSchemaInvalid, ed.Name, a, joinActions())
			}
			actions = append(actions, action)
		}
	}
	for _, a := range actions {
		inst.actions[a] = true
	}

	if len(ed.Indexes) == 0 {
		return nil, fmt.Errorf("%w: entity %q declares no indexes", ErrSchemaInvalid, ed.Name)
	}

	primary := 0
	patterns := make(map[string]bool)
	indexIDs := make(map[string]bool)
	for _, id := range ed.Indexes {
		idx, err := loadIndex(inst, id, service)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", ed.Name, err)
		}
		if patterns[strings.ToLower(idx.AccessPattern)] {
			return nil, fmt.Errorf("%w: entity %q: duplicate access pattern %q", ErrSchemaInvalid, ed.Name, idx.AccessPattern)
		}
		patterns[strings.ToLower(idx.AccessPattern)] = true
		if indexIDs[idx.ID] {
			return nil, fmt.Errorf("%w: entity %q: index %q bound to more than one access pattern", ErrSchemaInvalid, ed.Name, idx.ID)
		}
		indexIDs[idx.ID] = true
		if idx.ID == "" {
			primary++
		}
		inst.indexes = append(inst.indexes, idx)
	}
	if primary != 1 {
		return nil, fmt.Errorf("%w: entity %q must declare exactly one table index (index \"\"), found %d", ErrSchemaInvalid, ed.Name, primary)
	}

	return inst, nil
}

func loadAttribute(ad AttributeDescriptor) (Attribute, error) {
	name := strings.TrimSpace(ad.Name)
	if name == "" {
		return Attribute{}, fmt.Errorf("%w: attribute name is required", ErrSchemaInvalid)
	}
	typ := AttributeType(strings.ToLower(ad.Type))
	if typ == "" {
		typ = TypeString
	}
	if !typ.valid() {
		return Attribute{}, fmt.Errorf("%w: attribute %q has unknown type %q", ErrSchemaInvalid, name, ad.Type)
	}
	if typ == TypeEnum && len(ad.Values) == 0 {
		return Attribute{}, fmt.Errorf("%w: enum attribute %q declares no values", ErrSchemaInvalid, name)
	}
	if typ != TypeEnum && len(ad.Values) > 0 {
		return Attribute{}, fmt.Errorf("%w: attribute %q of type %s cannot declare enum values", ErrSchemaInvalid, name, typ)
	}
	return Attribute{
		Name:       name,
		Type:       typ,
		Required:   ad.Required,
		ReadOnly:   ad.ReadOnly,
		EnumValues: append([]string(nil), ad.Values...),
	}, nil
}

func loadIndex(inst *Instance, id IndexDescriptor, service string) (*Index, error) {
	if id.AccessPattern == "" {
		return nil, fmt.Errorf("%w: index %q has no access pattern name", ErrSchemaInvalid, id.Index)
	}

	pk, err := loadKey(inst, id.AccessPattern, "pk", id.PK, keyPrefix(service, inst.Name))
	if err != nil {
		return nil, err
	}
	if len(pk.Facets) == 0 {
		return nil, fmt.Errorf("%w: access pattern %q: partition key needs at least one facet", ErrSchemaInvalid, id.AccessPattern)
	}

	idx := &Index{
		ID:            id.Index,
		AccessPattern: id.AccessPattern,
		Collection:    id.Collection,
		PartitionKey:  pk,
	}

	if id.SK != nil {
		prefix := inst.Name
		if id.Collection != "" {
			prefix = id.Collection
		}
		sk, err := loadKey(inst, id.AccessPattern, "sk", *id.SK, prefix)
		if err != nil {
			return nil, err
		}
		if sk.Field == pk.Field {
			return nil, fmt.Errorf("%w: access pattern %q: partition and sort key share field %q", ErrSchemaInvalid, id.AccessPattern, sk.Field)
		}
		idx.SortKey = &sk
	} else if id.Collection != "" {
		return nil, fmt.Errorf("%w: access pattern %q: collections require a sort key", ErrSchemaInvalid, id.AccessPattern)
	}

	seen := make(map[string]bool)
	for _, f := range idx.Facets() {
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: access pattern %q: facet %q used more than once", ErrSchemaInvalid, id.AccessPattern, f.Name)
		}
		seen[f.Name] = true
	}

	return idx, nil
}

func loadKey(inst *Instance, accessPattern, role string, kd KeyDescriptor, prefix string) (Key, error) {
	if kd.Field == "" {
		return Key{}, fmt.Errorf("%w: access pattern %q: %s field is required", ErrSchemaInvalid, accessPattern, role)
	}

	key := Key{Field: kd.Field, Facets: append([]string(nil), kd.Facets...)}

	if kd.Template != "" {
		tmpl, err := keys.Parse(kd.Template)
		if err != nil {
			return Key{}, fmt.Errorf("%w: access pattern %q: %s template: %v", ErrSchemaInvalid, accessPattern, role, err)
		}
		refs := tmpl.Facets()
		if len(key.Facets) == 0 {
			key.Facets = refs
		} else if !slices.Equal(key.Facets, refs) {
			return Key{}, fmt.Errorf("%w: access pattern %q: %s facets %v do not match template %q", ErrSchemaInvalid, accessPattern, role, key.Facets, kd.Template)
		}
		key.Template = tmpl
	} else {
		key.Template = keys.Default(prefix, key.Facets)
	}

	for _, f := range key.Facets {
		if _, ok := inst.byName[f]; !ok {
			return Key{}, fmt.Errorf("%w: access pattern %q: %s facet %q is not a declared attribute, valid attributes are %s",
				ErrSchemaInvalid, accessPattern, role, f, strings.Join(inst.AttributeNames(), ", "))
		}
	}

	return key, nil
}

func keyPrefix(service, entity string) string {
	if service != "" {
		return service
	}
	return entity
}

func joinActions() string {
	names := make([]string, len(Actions))
	for i, a := range Actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}
