// Package filter compiles comma-delimited predicate strings of the form
// "<attribute>,<operation>,[value1],[value2]" into typed clauses.
//
// A literal comma inside a value is written as two commas:
//
//	name,eq,Jon,,Doe    → value1 "Jon,Doe"
//	name,eq,Jon,,,Doe   → value1 "Jon,", value2 "Doe"
package filter

import (
	"strconv"
	"strings"

	"github.com/acksell/electro/dynamodb/schema"
)

// Operation is a filter operation name. Operations match case-sensitively.
type Operation string

const (
	OpEq          Operation = "eq"
	OpGt          Operation = "gt"
	OpLt          Operation = "lt"
	OpGte         Operation = "gte"
	OpLte         Operation = "lte"
	OpBetween     Operation = "between"
	OpBegins      Operation = "begins"
	OpExists      Operation = "exists"
	OpNotExists   Operation = "notExists"
	OpContains    Operation = "contains"
	OpNotContains Operation = "notContains"
)

// Operations lists every supported operation.
var Operations = []Operation{
	OpEq, OpGt, OpLt, OpGte, OpLte, OpBetween, OpBegins,
	OpExists, OpNotExists, OpContains, OpNotContains,
}

// Clause is a compiled filter expression.
type Clause struct {
	// Attribute carries the declared casing of the matched attribute.
	Attribute string
	Operation Operation
	Value1    any
	Value2    any
	HasValue1 bool
	HasValue2 bool
}

// Invalid is the value a number attribute receives when its text does not
// parse as an integer. Compile accepts it; consumers reject it when they
// translate the clause.
type Invalid struct {
	Text string
}

func (i Invalid) String() string {
	return "invalid number " + strconv.Quote(i.Text)
}

const (
	minFields = 2
	maxFields = 4
)

// Split tokenizes an expression into its trimmed fields.
func Split(expr string) ([]string, error) {
	var (
		fields  []string
		current strings.Builder
	)
	for i := 0; i < len(expr); i++ {
		if expr[i] != ',' {
			current.WriteByte(expr[i])
			continue
		}
		if i+1 < len(expr) && expr[i+1] == ',' {
			current.WriteByte(',')
			i++
			continue
		}
		fields = append(fields, strings.TrimSpace(current.String()))
		current.Reset()
	}
	fields = append(fields, strings.TrimSpace(current.String()))

	if len(fields) < minFields || len(fields) > maxFields {
		return nil, &Error{Kind: ErrSyntax, Expr: expr}
	}
	return fields, nil
}

// Compile tokenizes, validates and coerces one expression against the
// attributes it may reference.
func Compile(attrs []schema.Attribute, expr string) (Clause, error) {
	fields, err := Split(expr)
	if err != nil {
		return Clause{}, err
	}

	attr, ok := matchAttribute(attrs, fields[0])
	if !ok {
		valid := make([]string, len(attrs))
		for i, a := range attrs {
			valid[i] = a.Name
		}
		return Clause{}, &Error{Kind: ErrUnknownAttribute, Expr: expr, Token: fields[0], Valid: valid}
	}

	op, ok := matchOperation(fields[1])
	if !ok {
		valid := make([]string, len(Operations))
		for i, o := range Operations {
			valid[i] = string(o)
		}
		return Clause{}, &Error{Kind: ErrUnknownOperation, Expr: expr, Token: fields[1], Valid: valid}
	}

	c := Clause{Attribute: attr.Name, Operation: op}
	if len(fields) > 2 && fields[2] != "" {
		c.Value1, c.HasValue1 = coerce(attr.Type, fields[2]), true
	}
	if len(fields) > 3 && fields[3] != "" {
		c.Value2, c.HasValue2 = coerce(attr.Type, fields[3]), true
	}
	return c, nil
}

// CompileAll compiles each expression in order and stops at the first error.
func CompileAll(attrs []schema.Attribute, exprs []string) ([]Clause, error) {
	clauses := make([]Clause, 0, len(exprs))
	for _, expr := range exprs {
		c, err := Compile(attrs, expr)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

func matchAttribute(attrs []schema.Attribute, name string) (schema.Attribute, bool) {
	for _, a := range attrs {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return schema.Attribute{}, false
}

func matchOperation(name string) (Operation, bool) {
	for _, op := range Operations {
		if string(op) == name {
			return op, true
		}
	}
	return "", false
}

// coerce casts a value by the attribute's declared type. Booleans are true
// for anything but "false".
func coerce(typ schema.AttributeType, text string) any {
	switch typ {
	case schema.TypeNumber:
		n, err := strconv.Atoi(text)
		if err != nil {
			return Invalid{Text: text}
		}
		return n
	case schema.TypeBoolean:
		return text != "false"
	default:
		return text
	}
}
