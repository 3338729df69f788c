package filter_test

import (
	"errors"
	"testing"

	"github.com/acksell/electro/dynamodb/filter"
	"github.com/acksell/electro/dynamodb/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var attrs = []schema.Attribute{
	{Name: "name", Type: schema.TypeString},
	{Name: "manager", Type: schema.TypeString},
	{Name: "salary", Type: schema.TypeNumber},
	{Name: "active", Type: schema.TypeBoolean},
	{Name: "status", Type: schema.TypeEnum, EnumValues: []string{"open", "closed"}},
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"spaces inside values", "manager, eq, tyler walch", []string{"manager", "eq", "tyler walch"}},
		{"four independent values", "manager, eq, tyler, walch", []string{"manager", "eq", "tyler", "walch"}},
		{"escaped comma", "manager, eq, tyler,, walch", []string{"manager", "eq", "tyler, walch"}},
		{"escaped comma then separator", "manager, eq, tyler,,, walch", []string{"manager", "eq", "tyler,", "walch"}},
		{"two fields", "name,exists", []string{"name", "exists"}},
		{"trailing empty value", "name,eq,", []string{"name", "eq", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filter.Split(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplit_FieldCount(t *testing.T) {
	tests := []string{
		"manager",
		"manager, is, a, big, jerk",
		"",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := filter.Split(input)
			require.ErrorIs(t, err, filter.ErrSyntax)
			assert.EqualError(t, err, "invalid filter string '"+input+"'. Where expressions must be in the format of '<attribute>,<operation>,[value1],[value2]'")
		})
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want filter.Clause
	}{
		{
			name: "string equality",
			expr: "name,eq,Jon",
			want: filter.Clause{Attribute: "name", Operation: filter.OpEq, Value1: "Jon", HasValue1: true},
		},
		{
			name: "escaped value",
			expr: "name,eq,Jon,,Doe",
			want: filter.Clause{Attribute: "name", Operation: filter.OpEq, Value1: "Jon,Doe", HasValue1: true},
		},
		{
			name: "attribute is case insensitive",
			expr: "NAME,begins,J",
			want: filter.Clause{Attribute: "name", Operation: filter.OpBegins, Value1: "J", HasValue1: true},
		},
		{
			name: "number coerced",
			expr: "salary,between,100,200",
			want: filter.Clause{Attribute: "salary", Operation: filter.OpBetween, Value1: 100, Value2: 200, HasValue1: true, HasValue2: true},
		},
		{
			name: "boolean false",
			expr: "active,eq,false",
			want: filter.Clause{Attribute: "active", Operation: filter.OpEq, Value1: false, HasValue1: true},
		},
		{
			name: "boolean anything else is true",
			expr: "active,eq,no",
			want: filter.Clause{Attribute: "active", Operation: filter.OpEq, Value1: true, HasValue1: true},
		},
		{
			name: "enum passes through",
			expr: "status,eq,open",
			want: filter.Clause{Attribute: "status", Operation: filter.OpEq, Value1: "open", HasValue1: true},
		},
		{
			name: "no values",
			expr: "manager,notExists",
			want: filter.Clause{Attribute: "manager", Operation: filter.OpNotExists},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filter.Compile(attrs, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_MalformedNumber(t *testing.T) {
	got, err := filter.Compile(attrs, "salary,gt,lots")
	require.NoError(t, err)
	assert.Equal(t, filter.Invalid{Text: "lots"}, got.Value1)
}

func TestCompile_Errors(t *testing.T) {
	_, err := filter.Compile(attrs, "nickname,eq,Jon")
	require.ErrorIs(t, err, filter.ErrUnknownAttribute)
	var ferr *filter.Error
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, "nickname", ferr.Token)
	assert.Equal(t, []string{"name", "manager", "salary", "active", "status"}, ferr.Valid)
	assert.Contains(t, err.Error(), "name, manager, salary, active, status")

	_, err = filter.Compile(attrs, "name,EQ,Jon")
	require.ErrorIs(t, err, filter.ErrUnknownOperation)
	assert.Contains(t, err.Error(), "'EQ'")
	assert.Contains(t, err.Error(), "notContains")

	_, err = filter.Compile(attrs, "name")
	assert.ErrorIs(t, err, filter.ErrSyntax)
}

func TestCompileAll(t *testing.T) {
	clauses, err := filter.CompileAll(attrs, []string{"name,eq,Jon", "salary,gte,10"})
	require.NoError(t, err)
	require.Len(t, clauses, 2)
	assert.Equal(t, "name", clauses[0].Attribute)
	assert.Equal(t, 10, clauses[1].Value1)

	_, err = filter.CompileAll(attrs, []string{"name,eq,Jon", "bogus,eq,1"})
	assert.ErrorIs(t, err, filter.ErrUnknownAttribute)
}
