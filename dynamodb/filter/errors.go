package filter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSyntax           = errors.New("filter syntax")
	ErrUnknownAttribute = errors.New("unknown filter attribute")
	ErrUnknownOperation = errors.New("unknown filter operation")
)

// Error reports a rejected filter expression. Kind is one of ErrSyntax,
// ErrUnknownAttribute or ErrUnknownOperation and matches through errors.Is.
type Error struct {
	Kind error
	// Expr is the expression as supplied by the caller.
	Expr string
	// Token is the offending field, empty for syntax errors.
	Token string
	// Valid lists the accepted alternatives for Token.
	Valid []string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUnknownAttribute:
		return fmt.Sprintf("where attribute '%s' is not a valid attribute. Valid attributes include %s", e.Token, strings.Join(e.Valid, ", "))
	case ErrUnknownOperation:
		return fmt.Sprintf("where operation '%s' is not a valid operation. Valid operations include %s", e.Token, strings.Join(e.Valid, ", "))
	default:
		return fmt.Sprintf("invalid filter string '%s'. Where expressions must be in the format of '<attribute>,<operation>,[value1],[value2]'", e.Expr)
	}
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}
