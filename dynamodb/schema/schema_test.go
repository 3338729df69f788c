package schema_test

import (
	"testing"

	"github.com/acksell/electro/dynamodb/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employeeDescriptor() schema.EntityDescriptor {
	return schema.EntityDescriptor{
		Name:    "employee",
		Service: "taskapp",
		Version: "1",
		Attributes: []schema.AttributeDescriptor{
			{Name: "employee"},
			{Name: "office"},
			{Name: "team"},
			{Name: "title"},
			{Name: "salary", Type: "number"},
			{Name: "status", Type: "enum", Values: []string{"active", "retired"}},
		},
		Indexes: []schema.IndexDescriptor{
			{
				AccessPattern: "employee",
				PK:            schema.KeyDescriptor{Field: "pk", Facets: []string{"employee"}},
				SK:            &schema.KeyDescriptor{Field: "sk"},
			},
			{
				AccessPattern: "coworkers",
				Index:         "gsi1pk-gsi1sk-index",
				Collection:    "workplaces",
				PK:            schema.KeyDescriptor{Field: "gsi1pk", Facets: []string{"office"}},
				SK:            &schema.KeyDescriptor{Field: "gsi1sk", Facets: []string{"team", "title", "employee"}},
			},
		},
	}
}

func officeDescriptor() schema.EntityDescriptor {
	return schema.EntityDescriptor{
		Name: "office",
		Attributes: []schema.AttributeDescriptor{
			{Name: "office"},
			{Name: "country"},
			{Name: "city"},
			{Name: "team"},
		},
		Indexes: []schema.IndexDescriptor{
			{
				AccessPattern: "locations",
				PK:            schema.KeyDescriptor{Field: "pk", Facets: []string{"country"}},
				SK:            &schema.KeyDescriptor{Field: "sk", Facets: []string{"city", "office"}},
			},
			{
				AccessPattern: "offices",
				Index:         "gsi1pk-gsi1sk-index",
				Collection:    "workplaces",
				PK:            schema.KeyDescriptor{Field: "gsi1pk", Facets: []string{"office"}},
				SK:            &schema.KeyDescriptor{Field: "gsi1sk", Facets: []string{"team"}},
			},
		},
	}
}

func TestLoad_Entity(t *testing.T) {
	ed := employeeDescriptor()
	s, err := schema.Load(schema.Descriptor{Entity: &ed})
	require.NoError(t, err)

	assert.Equal(t, schema.KindEntity, s.Kind)
	assert.Equal(t, "employee", s.Name)
	require.Len(t, s.Instances, 1)

	inst := s.Instances[0]
	assert.Equal(t, []string{"employee", "office", "team", "title", "salary", "status"}, inst.AttributeNames())
	assert.Equal(t, []string{"employee", "coworkers"}, inst.AccessPatterns())

	facets, err := inst.FacetsForIndex("gsi1pk-gsi1sk-index")
	require.NoError(t, err)
	assert.Equal(t, []schema.Facet{
		{Name: "office", Role: schema.RolePartition},
		{Name: "team", Role: schema.RoleSort},
		{Name: "title", Role: schema.RoleSort},
		{Name: "employee", Role: schema.RoleSort},
	}, facets)

	fields, err := inst.KeyFieldNames("")
	require.NoError(t, err)
	assert.Equal(t, []string{"pk", "sk"}, fields)
	assert.Equal(t, []string{"pk", "sk", "gsi1pk", "gsi1sk"}, inst.AllKeyFieldNames())

	idx := inst.PrimaryIndex()
	assert.Equal(t, "$taskapp#employee_{employee}", idx.PartitionKey.Template.String())
	assert.Equal(t, "$employee", idx.SortKey.Template.String())

	gsi, err := inst.Index("gsi1pk-gsi1sk-index")
	require.NoError(t, err)
	assert.Equal(t, "$workplaces#team_{team}#title_{title}#employee_{employee}", gsi.SortKey.Template.String())

	assert.Equal(t, "employee_status_enum", inst.AttributeTypeName("status"))
	assert.Equal(t, "number", inst.AttributeTypeName("salary"))
	assert.Equal(t, map[string][]string{"status": {"active", "retired"}}, inst.Enums())

	assert.True(t, inst.Can(schema.ActionQuery))
	assert.True(t, inst.Can(schema.ActionScan))
	assert.False(t, inst.Can(schema.ActionRemove))
}

func TestLoad_TemplateDerivesFacets(t *testing.T) {
	ed := employeeDescriptor()
	ed.Indexes[1].SK = &schema.KeyDescriptor{Field: "gsi1sk", Template: "TEAM#{team}#{employee}"}
	ed.Indexes[1].Collection = ""

	s, err := schema.Load(schema.Descriptor{Entity: &ed})
	require.NoError(t, err)

	idx, err := s.Instances[0].Index("gsi1pk-gsi1sk-index")
	require.NoError(t, err)
	assert.Equal(t, []string{"team", "employee"}, idx.SortKey.Facets)
}

func TestLoad_Actions(t *testing.T) {
	ed := employeeDescriptor()
	ed.Actions = []string{"query", "Remove"}

	s, err := schema.Load(schema.Descriptor{Entity: &ed})
	require.NoError(t, err)

	inst := s.Instances[0]
	assert.True(t, inst.Can(schema.ActionRemove))
	assert.False(t, inst.Can(schema.ActionScan))
}

func TestLoad_Model(t *testing.T) {
	ed := employeeDescriptor()
	s, err := schema.Load(schema.Descriptor{Model: &ed})
	require.NoError(t, err)
	assert.True(t, s.RequiresTable)
	assert.Equal(t, schema.KindEntity, s.Kind)
}

func TestLoad_Service(t *testing.T) {
	emp, off := employeeDescriptor(), officeDescriptor()
	emp.Service = ""
	s, err := schema.Load(schema.Descriptor{Service: &schema.ServiceDescriptor{
		Name:     "taskapp",
		Table:    "electro",
		Entities: []schema.EntityDescriptor{emp, off},
	}})
	require.NoError(t, err)

	assert.Equal(t, schema.KindService, s.Kind)
	assert.Equal(t, "electro", s.Table)
	require.Len(t, s.Instances, 3)
	assert.Len(t, s.Entities(), 2)

	c, ok := s.Instance("Workplaces")
	require.True(t, ok)
	assert.Equal(t, schema.KindCollection, c.Kind)
	assert.Equal(t, []string{"employee", "office"}, c.Entities)
	assert.Equal(t, []string{"employee", "office", "team", "title", "salary", "status", "country", "city"}, c.AttributeNames())
	assert.True(t, c.Can(schema.ActionQuery))
	assert.False(t, c.Can(schema.ActionScan))

	idx := c.PrimaryIndex()
	assert.Equal(t, "gsi1pk-gsi1sk-index", idx.ID)
	assert.Equal(t, "workplaces", idx.AccessPattern)
	assert.Equal(t, []string{"team"}, idx.SortKey.Facets)
	assert.Equal(t, "$workplaces#team_{team}", idx.SortKey.Template.String())

	inst, found, ok := s.AccessPattern("offices")
	require.True(t, ok)
	assert.Equal(t, "office", inst.Name)
	assert.Equal(t, "gsi1pk-gsi1sk-index", found.ID)
	assert.Equal(t, "$taskapp#country_{country}", inst.PrimaryIndex().PartitionKey.Template.String())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*schema.EntityDescriptor)
	}{
		{"duplicate attribute", func(ed *schema.EntityDescriptor) {
			ed.Attributes = append(ed.Attributes, schema.AttributeDescriptor{Name: "team"})
		}},
		{"unknown type", func(ed *schema.EntityDescriptor) {
			ed.Attributes[0].Type = "date"
		}},
		{"enum without values", func(ed *schema.EntityDescriptor) {
			ed.Attributes[5].Values = nil
		}},
		{"undeclared facet", func(ed *schema.EntityDescriptor) {
			ed.Indexes[0].PK.Facets = []string{"missing"}
		}},
		{"no partition facets", func(ed *schema.EntityDescriptor) {
			ed.Indexes[0].PK.Facets = nil
		}},
		{"no table index", func(ed *schema.EntityDescriptor) {
			ed.Indexes[0].Index = "gsi2"
		}},
		{"two table indexes", func(ed *schema.EntityDescriptor) {
			ed.Indexes[1].Index = ""
		}},
		{"duplicate access pattern", func(ed *schema.EntityDescriptor) {
			ed.Indexes[1].AccessPattern = "Employee"
		}},
		{"template disagrees with facets", func(ed *schema.EntityDescriptor) {
			ed.Indexes[1].SK.Template = "{title}#{team}"
		}},
		{"unknown action", func(ed *schema.EntityDescriptor) {
			ed.Actions = []string{"truncate"}
		}},
		{"shared key field", func(ed *schema.EntityDescriptor) {
			ed.Indexes[0].SK.Field = "pk"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed := employeeDescriptor()
			tt.mutate(&ed)
			_, err := schema.Load(schema.Descriptor{Entity: &ed})
			assert.ErrorIs(t, err, schema.ErrSchemaInvalid)
		})
	}
}

func TestLoad_ShapeErrors(t *testing.T) {
	_, err := schema.Load(schema.Descriptor{})
	assert.ErrorIs(t, err, schema.ErrSchemaInvalid)

	ed := employeeDescriptor()
	_, err = schema.Load(schema.Descriptor{Entity: &ed, Model: &ed})
	assert.ErrorIs(t, err, schema.ErrSchemaInvalid)
}

func TestLoad_CollectionMismatch(t *testing.T) {
	emp, off := employeeDescriptor(), officeDescriptor()
	off.Indexes[1].PK.Facets = []string{"country"}

	_, err := schema.Load(schema.Descriptor{Service: &schema.ServiceDescriptor{
		Name:     "taskapp",
		Entities: []schema.EntityDescriptor{emp, off},
	}})
	assert.ErrorIs(t, err, schema.ErrSchemaInvalid)
}

func TestLoad_CollectionNameClash(t *testing.T) {
	emp, off := employeeDescriptor(), officeDescriptor()
	off.Indexes[0].AccessPattern = "workplaces"

	_, err := schema.Load(schema.Descriptor{Service: &schema.ServiceDescriptor{
		Name:     "taskapp",
		Entities: []schema.EntityDescriptor{emp, off},
	}})
	assert.ErrorIs(t, err, schema.ErrSchemaInvalid)
}

func TestInstance_HasSortKey(t *testing.T) {
	ed := employeeDescriptor()
	ed.Indexes[0].SK = nil
	s, err := schema.Load(schema.Descriptor{Entity: &ed})
	require.NoError(t, err)

	inst := s.Instances[0]
	assert.False(t, inst.HasSortKey(""))
	assert.True(t, inst.HasSortKey("gsi1pk-gsi1sk-index"))
	assert.False(t, inst.HasSortKey("nope"))

	id, ok := inst.IndexID("COWORKERS")
	require.True(t, ok)
	assert.Equal(t, "gsi1pk-gsi1sk-index", id)
	assert.Equal(t, "coworkers", inst.AccessPatternName(id))
}
