package ddbstore

import (
	"testing"

	"github.com/acksell/electro/dynamodb/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	item := map[string]any{
		"name":   "Tyler, Walch",
		"salary": int64(150),
		"active": true,
		"tags":   []any{"a", "b"},
	}

	tests := []struct {
		name string
		cond engine.Condition
		want bool
	}{
		{"eq string", engine.Condition{Attribute: "name", Operator: engine.OpEqual, Values: []any{"Tyler, Walch"}}, true},
		{"eq int across widths", engine.Condition{Attribute: "salary", Operator: engine.OpEqual, Values: []any{150}}, true},
		{"eq bool", engine.Condition{Attribute: "active", Operator: engine.OpEqual, Values: []any{false}}, false},
		{"gt", engine.Condition{Attribute: "salary", Operator: engine.OpGreater, Values: []any{100}}, true},
		{"lt", engine.Condition{Attribute: "salary", Operator: engine.OpLess, Values: []any{100}}, false},
		{"gte equal", engine.Condition{Attribute: "salary", Operator: engine.OpGreaterEq, Values: []any{150}}, true},
		{"gt string", engine.Condition{Attribute: "name", Operator: engine.OpGreater, Values: []any{"Tom"}}, true},
		{"lt string", engine.Condition{Attribute: "name", Operator: engine.OpLess, Values: []any{"Tom"}}, false},
		{"lte", engine.Condition{Attribute: "salary", Operator: engine.OpLessEq, Values: []any{149}}, false},
		{"between", engine.Condition{Attribute: "salary", Operator: engine.OpBetween, Values: []any{100, 200}}, true},
		{"between outside", engine.Condition{Attribute: "salary", Operator: engine.OpBetween, Values: []any{151, 200}}, false},
		{"begins", engine.Condition{Attribute: "name", Operator: engine.OpBeginsWith, Values: []any{"Ty"}}, true},
		{"exists", engine.Condition{Attribute: "name", Operator: engine.OpExists}, true},
		{"exists missing", engine.Condition{Attribute: "manager", Operator: engine.OpExists}, false},
		{"not exists", engine.Condition{Attribute: "manager", Operator: engine.OpNotExists}, true},
		{"contains substring", engine.Condition{Attribute: "name", Operator: engine.OpContains, Values: []any{", W"}}, true},
		{"contains list", engine.Condition{Attribute: "tags", Operator: engine.OpContains, Values: []any{"b"}}, true},
		{"not contains", engine.Condition{Attribute: "tags", Operator: engine.OpNotContains, Values: []any{"c"}}, true},
		{"not contains missing attribute", engine.Condition{Attribute: "manager", Operator: engine.OpNotContains, Values: []any{"c"}}, true},
		{"mixed kinds never order", engine.Condition{Attribute: "name", Operator: engine.OpGreater, Values: []any{1}}, false},
		{"missing attribute never compares", engine.Condition{Attribute: "manager", Operator: engine.OpEqual, Values: []any{"x"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matches(tt.cond, item)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches_InvalidArity(t *testing.T) {
	_, err := matches(engine.Condition{Attribute: "a", Operator: engine.OpBetween, Values: []any{1}}, nil)
	assert.Error(t, err)
}

func TestKeyEncoding_RoundTrip(t *testing.T) {
	for _, f := range []float64{-10.5, 0, 1, 256, 1e9} {
		b := encodeNumber(f)
		got, err := decodeNumber(b)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	s := string([]byte{'a', 0x00, 0x01, 'b'})
	assert.Equal(t, s, string(unescapeBytes(escapeBytes([]byte(s)))))
}
