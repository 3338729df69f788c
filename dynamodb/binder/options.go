package binder

import (
	"fmt"
)

// Options shape a single invocation.
type Options struct {
	// Limit caps the number of items returned. Zero means no cap.
	Limit int
	// Table overrides the table the binding was created with.
	Table string
	// DryRun returns the request the engine would send instead of sending it.
	DryRun bool
	// Raw keeps key and internal fields on returned items.
	Raw bool
	// Delete removes every matched item.
	Delete bool
}

func (o Options) validate() error {
	if o.DryRun && o.Delete {
		return fmt.Errorf("%w: dry run cannot be combined with delete", ErrInvalidOptionCombination)
	}
	if o.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidOption, o.Limit)
	}
	return nil
}

func (o Options) table(fallback string) (string, error) {
	if o.Table != "" {
		return o.Table, nil
	}
	if fallback == "" {
		return "", fmt.Errorf("%w: no table given and the schema declares none", ErrInvalidOption)
	}
	return fallback, nil
}
