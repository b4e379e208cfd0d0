package extension

import (
	"errors"
	"fmt"
)

var (
	ErrLocatorNotFound = errors.New("extension: locator not found")
	ErrSymbolMissing   = errors.New("extension: global symbol missing")
	ErrFetch           = errors.New("extension: fetch failed")
	ErrDuplicate       = errors.New("extension: duplicate id")
	ErrSealed          = errors.New("extension: registry sealed")
	ErrNilInstance     = errors.New("extension: factory returned nil")
)

// LoadError is the structured failure of a single descriptor.
type LoadError struct {
	ID      string
	Locator string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("extension %q (%s): %v", e.ID, e.Locator, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
