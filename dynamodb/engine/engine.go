// Package engine defines the capability set the binder drives: a request
// describing one key-value operation, and engines that either describe or
// execute it.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// Method is the kind of engine operation.
type Method string

const (
	MethodQuery  Method = "query"
	MethodScan   Method = "scan"
	MethodGet    Method = "get"
	MethodPut    Method = "put"
	MethodUpdate Method = "update"
	MethodDelete Method = "delete"
)

// SortMatch is how the sort key value of a KeyCondition is compared.
type SortMatch int

const (
	SortNone SortMatch = iota
	SortEqual
	SortPrefix
)

func (m SortMatch) String() string {
	switch m {
	case SortEqual:
		return "equal"
	case SortPrefix:
		return "prefix"
	default:
		return "none"
	}
}

// KeyCondition addresses a partition and optionally a sort key range.
type KeyCondition struct {
	PartitionField string
	PartitionValue string
	SortField      string
	SortValue      string
	SortMatch      SortMatch
}

// Operator is a condition operator understood by every engine.
type Operator string

const (
	OpEqual       Operator = "="
	OpGreater     Operator = ">"
	OpLess        Operator = "<"
	OpGreaterEq   Operator = ">="
	OpLessEq      Operator = "<="
	OpBetween     Operator = "between"
	OpBeginsWith  Operator = "begins_with"
	OpExists      Operator = "attribute_exists"
	OpNotExists   Operator = "attribute_not_exists"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
)

// Arity is the number of values an operator takes.
func (o Operator) Arity() int {
	switch o {
	case OpExists, OpNotExists:
		return 0
	case OpBetween:
		return 2
	default:
		return 1
	}
}

// Condition is one predicate over an item attribute. Conditions of a request
// are combined with AND.
type Condition struct {
	Attribute string
	Operator  Operator
	Values    []any
}

func (c Condition) String() string {
	switch c.Operator.Arity() {
	case 0:
		return fmt.Sprintf("%s(%s)", c.Operator, c.Attribute)
	case 2:
		if len(c.Values) == 2 {
			return fmt.Sprintf("%s BETWEEN %v AND %v", c.Attribute, c.Values[0], c.Values[1])
		}
	default:
		if len(c.Values) == 1 {
			switch c.Operator {
			case OpBeginsWith, OpContains, OpNotContains:
				return fmt.Sprintf("%s(%s, %v)", c.Operator, c.Attribute, c.Values[0])
			}
			return fmt.Sprintf("%s %s %v", c.Attribute, c.Operator, c.Values[0])
		}
	}
	return fmt.Sprintf("%s %s %v", c.Attribute, c.Operator, c.Values)
}

// Validate checks the number of values against the operator.
func (c Condition) Validate() error {
	if c.Attribute == "" {
		return fmt.Errorf("condition has no attribute")
	}
	if n := c.Operator.Arity(); len(c.Values) != n {
		return fmt.Errorf("operator %s on %q takes %d value(s), got %d", c.Operator, c.Attribute, n, len(c.Values))
	}
	return nil
}

// Item is a stored item as attribute name to value.
type Item = map[string]any

// Request describes one engine operation.
//
// Query uses Key with a partition value and optional sort match. Get, Update
// and Delete use Key as an exact primary key. Put writes Item. Update merges
// Item into the addressed item. Conditions filter query and scan results and
// guard update and delete.
type Request struct {
	Method     Method
	Table      string
	Index      string
	Key        KeyCondition
	Conditions []Condition
	Item       Item
	Limit      int
}

// Result holds the items an operation returned.
type Result struct {
	Items []Item
	Count int
}

// Engine executes requests against a store. Params describes the request the
// engine would send without performing any I/O.
type Engine interface {
	Params(req Request) (any, error)
	Execute(ctx context.Context, req Request) (Result, error)
}

// ErrConditionFailed is wrapped when a guarded write does not apply.
var ErrConditionFailed = errors.New("condition check failed")

// EngineError wraps any failure raised by an engine.
type EngineError struct {
	Method Method
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Method, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Wrap returns err as an EngineError unless it already is one.
func Wrap(method Method, err error) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	return &EngineError{Method: method, Err: err}
}
