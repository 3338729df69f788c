package binder

import (
	"errors"

	"github.com/acksell/electro/dynamodb/keys"
)

var (
	// ErrInvalidOptionCombination is returned before any engine call when
	// mutually exclusive options are combined.
	ErrInvalidOptionCombination = errors.New("invalid option combination")
	ErrInvalidOption            = errors.New("invalid option")
	// ErrActionNotAllowed is returned for mutations the entity does not declare.
	ErrActionNotAllowed = errors.New("action not allowed")
	// ErrInvalidFilterValue is returned for a filter value that could not be
	// coerced to its attribute type.
	ErrInvalidFilterValue = errors.New("invalid filter value")
	ErrInvalidItem        = errors.New("invalid item")
	// ErrMissingFacet is returned when a partition facet or a key facet of an
	// exact lookup has no value.
	ErrMissingFacet = keys.ErrMissingFacet
)
