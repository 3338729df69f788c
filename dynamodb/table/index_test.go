package table

import (
	"testing"

	"github.com/acksell/electro/dynamodb/keys"
	"github.com/acksell/electro/dynamodb/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var indexByID = IndexDefinition{
	KeyDefinitions: PrimaryKeyDefinition{
		PartitionKey: KeyDef{Name: "pk", Kind: KeyKindS},
	},
	PartitionKeyer: TemplateKeyer(keys.MustParse("ID#{id}")),
}

var indexByIDAndVersion = IndexDefinition{
	KeyDefinitions: PrimaryKeyDefinition{
		PartitionKey: KeyDef{Name: "pk", Kind: KeyKindS},
		SortKey:      KeyDef{Name: "sk", Kind: KeyKindS},
	},
	PartitionKeyer: TemplateKeyer(keys.MustParse("ID#{id}")),
	SortKeyer:      TemplateKeyer(keys.MustParse("VERSION#{version}")),
}

func TestIndexDefinition_PrimaryKey(t *testing.T) {
	pk, err := indexByID.PrimaryKey(map[string]any{"id": "123"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"pk": "ID#123"}, pk.Item())

	pk, err = indexByIDAndVersion.PrimaryKey(map[string]any{"id": "123", "version": 4})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"pk": "ID#123", "sk": "VERSION#4"}, pk.Item())

	_, err = indexByIDAndVersion.PrimaryKey(map[string]any{"id": "123"})
	assert.ErrorIs(t, err, keys.ErrMissingFacet)
}

func TestExtractPrimaryKey(t *testing.T) {
	def := indexByIDAndVersion.KeyDefinitions

	pk, err := def.ExtractPrimaryKey(map[string]any{"pk": "a", "sk": "b", "other": 1})
	require.NoError(t, err)
	assert.Equal(t, PrimaryKeyValues{PartitionKey: "a", SortKey: "b"}, pk.Values)

	_, err = def.ExtractPrimaryKey(map[string]any{"pk": "a"})
	assert.Error(t, err)

	_, err = def.ExtractPrimaryKey(map[string]any{"pk": 1, "sk": "b"})
	assert.Error(t, err)
}

func loadService(t *testing.T) *schema.Schema {
	t.Helper()
	attrs := []schema.AttributeDescriptor{{Name: "id"}, {Name: "org"}, {Name: "team"}}
	s, err := schema.Load(schema.Descriptor{Service: &schema.ServiceDescriptor{
		Name: "app",
		Entities: []schema.EntityDescriptor{
			{
				Name:       "user",
				Attributes: attrs,
				Indexes: []schema.IndexDescriptor{
					{AccessPattern: "user", PK: schema.KeyDescriptor{Field: "pk", Facets: []string{"id"}}, SK: &schema.KeyDescriptor{Field: "sk"}},
					{AccessPattern: "members", Index: "gsi1", Collection: "orgs",
						PK: schema.KeyDescriptor{Field: "gsi1pk", Facets: []string{"org"}},
						SK: &schema.KeyDescriptor{Field: "gsi1sk", Facets: []string{"team"}}},
				},
			},
			{
				Name:       "org",
				Attributes: attrs,
				Indexes: []schema.IndexDescriptor{
					{AccessPattern: "org", PK: schema.KeyDescriptor{Field: "pk", Facets: []string{"org"}}, SK: &schema.KeyDescriptor{Field: "sk"}},
					{AccessPattern: "details", Index: "gsi1", Collection: "orgs",
						PK: schema.KeyDescriptor{Field: "gsi1pk", Facets: []string{"org"}},
						SK: &schema.KeyDescriptor{Field: "gsi1sk"}},
				},
			},
		},
	}})
	require.NoError(t, err)
	return s
}

func TestFromSchema(t *testing.T) {
	def, err := FromSchema("electro", loadService(t))
	require.NoError(t, err)

	assert.Equal(t, "electro", def.Name)
	assert.Equal(t, []string{"pk", "sk"}, def.KeyDefinitions.Names())
	require.Len(t, def.GSIs, 1)
	gsi, ok := def.GSI("gsi1")
	require.True(t, ok)
	assert.Equal(t, []string{"gsi1pk", "gsi1sk"}, gsi.KeyDefinitions.Names())
}

func TestPopulateKeys(t *testing.T) {
	s := loadService(t)
	user, ok := s.Instance("user")
	require.True(t, ok)

	doc := map[string]any{"id": "u1", "org": "acme", "team": "dev"}
	require.NoError(t, PopulateKeys(user, doc))
	assert.Equal(t, "$app#id_u1", doc["pk"])
	assert.Equal(t, "$user", doc["sk"])
	assert.Equal(t, "$app#org_acme", doc["gsi1pk"])
	assert.Equal(t, "$orgs#team_dev", doc["gsi1sk"])

	sparse := map[string]any{"id": "u2"}
	require.NoError(t, PopulateKeys(user, sparse))
	assert.NotContains(t, sparse, "gsi1pk")

	err := PopulateKeys(user, map[string]any{"org": "acme"})
	assert.ErrorIs(t, err, keys.ErrMissingFacet)
}
