package table

import (
	"fmt"
)

type PrimaryKeyDefinition struct {
	PartitionKey KeyDef
	SortKey      KeyDef
}

func (k PrimaryKeyDefinition) String() string {
	if k.SortKey.Name == "" {
		return fmt.Sprintf("(%s)", k.PartitionKey)
	}
	return fmt.Sprintf("(%s, %s)", k.PartitionKey, k.SortKey)
}

// Names returns the key field names, partition first.
func (k PrimaryKeyDefinition) Names() []string {
	if k.SortKey.Name == "" {
		return []string{k.PartitionKey.Name}
	}
	return []string{k.PartitionKey.Name, k.SortKey.Name}
}

type KeyDef struct {
	Name string
	Kind KeyKind
}

func (k KeyDef) String() string {
	return k.Name + ":" + string(k.Kind)
}

type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

type PrimaryKeyValues struct {
	PartitionKey any
	SortKey      any
}

type PrimaryKey struct {
	Definition PrimaryKeyDefinition
	Values     PrimaryKeyValues
}

// Item returns the key as a document holding only the key fields.
func (k PrimaryKey) Item() map[string]any {
	doc := map[string]any{k.Definition.PartitionKey.Name: k.Values.PartitionKey}
	if k.Definition.SortKey.Name != "" {
		doc[k.Definition.SortKey.Name] = k.Values.SortKey
	}
	return doc
}

func (k PrimaryKeyDefinition) ExtractPrimaryKey(doc map[string]any) (PrimaryKey, error) {
	part, ok := doc[k.PartitionKey.Name]
	if !ok || part == nil {
		return PrimaryKey{}, fmt.Errorf("partition key %q not found", k.PartitionKey.Name)
	}
	if err := valueMatchesDefinition(k.PartitionKey.Kind, part); err != nil {
		return PrimaryKey{}, fmt.Errorf("document key %q kind does not match definition: %w", k.PartitionKey.Name, err)
	}
	pk := PrimaryKey{
		Definition: k,
		Values:     PrimaryKeyValues{PartitionKey: part},
	}
	if k.SortKey.Name == "" {
		return pk, nil
	}
	sort, ok := doc[k.SortKey.Name]
	if !ok || sort == nil {
		return PrimaryKey{}, fmt.Errorf("sort key %q not found on document", k.SortKey.Name)
	}
	if err := valueMatchesDefinition(k.SortKey.Kind, sort); err != nil {
		return PrimaryKey{}, fmt.Errorf("sort key %q kind does not match definition: %w", k.SortKey.Name, err)
	}
	pk.Values.SortKey = sort
	return pk, nil
}

// KindOf reports the key kind a Go value is stored as.
func KindOf(v any) (KeyKind, error) {
	switch v.(type) {
	case string:
		return KeyKindS, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return KeyKindN, nil
	case []byte:
		return KeyKindB, nil
	default:
		return "", fmt.Errorf("unexpected key attribute type %T", v)
	}
}

func valueMatchesDefinition(want KeyKind, v any) error {
	got, err := KindOf(v)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("got KeyKind %q want %q", got, want)
	}
	return nil
}
